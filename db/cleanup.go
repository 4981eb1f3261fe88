package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mitchellh/mapstructure"

	"github.com/wealthops/cleanup-utils/dbtypes"
)

// AccountHolderTable returns the engine specific name of the source account table.
func (db *Database) AccountHolderTable() string {
	return db.EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql:  "account.virtual_account_holder",
		dbtypes.DBEngineSqlite: "account_virtual_account_holder",
	})
}

// EntityTable returns the engine specific name of the source entity table.
func (db *Database) EntityTable() string {
	return db.EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql:  "entity.entity",
		dbtypes.DBEngineSqlite: "entity_entity",
	})
}

// AccountBackupTable returns the engine specific name of the batch's account backup table.
func (db *Database) AccountBackupTable(batchID string) string {
	return db.EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql:  "account.virtual_account_holder_deletion_backup_" + batchID,
		dbtypes.DBEngineSqlite: "account_virtual_account_holder_deletion_backup_" + batchID,
	})
}

// EntityBackupTable returns the engine specific name of the batch's entity backup table.
func (db *Database) EntityBackupTable(batchID string) string {
	return db.EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql:  "entity.entity_deletion_backup_" + batchID,
		dbtypes.DBEngineSqlite: "entity_entity_deletion_backup_" + batchID,
	})
}

func appendIdArgs(sql *strings.Builder, clientIds []int64) []any {
	args := make([]any, len(clientIds))
	for i, id := range clientIds {
		if i > 0 {
			fmt.Fprintf(sql, ", ")
		}
		fmt.Fprintf(sql, "$%v", i+1)
		args[i] = id
	}
	return args
}

// GetTotalAccountsCount returns the total number of rows in the account table.
func (db *Database) GetTotalAccountsCount() (uint64, error) {
	var count uint64
	err := db.readerDb.Get(&count, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, db.AccountHolderTable()))
	if err != nil {
		return 0, fmt.Errorf("error counting accounts: %v", err)
	}
	return count, nil
}

// GetClientsWithAccounts returns the per-client account aggregates for all
// client ids that hold at least one account row.
func (db *Database) GetClientsWithAccounts(clientIds []int64) ([]*dbtypes.AccountHolding, error) {
	holdings := []*dbtypes.AccountHolding{}
	if len(clientIds) == 0 {
		return holdings, nil
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, db.EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
		SELECT
			vah.person_id AS client_id,
			COUNT(vah.account_id) AS account_count,
			ARRAY_TO_STRING(ARRAY_AGG(vah.account_id), ',') AS account_ids
		FROM account.virtual_account_holder vah
		WHERE vah.person_id IN (`,
		dbtypes.DBEngineSqlite: `
		SELECT
			vah.person_id AS client_id,
			COUNT(vah.account_id) AS account_count,
			GROUP_CONCAT(vah.account_id) AS account_ids
		FROM account_virtual_account_holder vah
		WHERE vah.person_id IN (`,
	}))
	args := appendIdArgs(&sql, clientIds)
	fmt.Fprintf(&sql, `)
		GROUP BY vah.person_id
		ORDER BY account_count DESC, vah.person_id`)

	err := db.readerDb.Select(&holdings, sql.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("error fetching clients with accounts: %v", err)
	}
	return holdings, nil
}

// GetEntityRecords returns the entity rows matching the given client ids.
func (db *Database) GetEntityRecords(clientIds []int64) ([]*dbtypes.EntityRecord, error) {
	records := []*dbtypes.EntityRecord{}
	if len(clientIds) == 0 {
		return records, nil
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, `
	SELECT
		entity_id, entity_type, entity_subtype, created_at, updated_at, deleted_at
	FROM %s
	WHERE entity_id IN (`, db.EntityTable())
	args := appendIdArgs(&sql, clientIds)
	fmt.Fprintf(&sql, `)
	ORDER BY entity_id`)

	err := db.readerDb.Select(&records, sql.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("error fetching entity records: %v", err)
	}
	return records, nil
}

// BackupTablesExist reports whether either backup table for the batch already exists.
func (db *Database) BackupTablesExist(batchID string) (bool, error) {
	var count uint64
	var err error
	switch db.engine {
	case dbtypes.DBEnginePgsql:
		err = db.readerDb.Get(&count, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE (table_schema = 'account' AND table_name = $1)
		   OR (table_schema = 'entity' AND table_name = $2)`,
			"virtual_account_holder_deletion_backup_"+batchID,
			"entity_deletion_backup_"+batchID)
	case dbtypes.DBEngineSqlite:
		err = db.readerDb.Get(&count, `
		SELECT COUNT(*)
		FROM sqlite_master
		WHERE type = 'table' AND name IN ($1, $2)`,
			"account_virtual_account_holder_deletion_backup_"+batchID,
			"entity_entity_deletion_backup_"+batchID)
	default:
		return false, fmt.Errorf("unknown database engine")
	}
	if err != nil {
		return false, fmt.Errorf("error checking backup tables for batch %v: %v", batchID, err)
	}
	return count > 0, nil
}

// CreateBackupTableStatements returns the DDL for the batch's backup tables.
// The statements are also what the dry run prints.
func (db *Database) CreateBackupTableStatements(batchID string, reason string) []string {
	reason = strings.ReplaceAll(reason, "'", "''")
	if db.engine == dbtypes.DBEngineSqlite {
		return []string{
			fmt.Sprintf(`CREATE TABLE %s (
	person_id INTEGER NOT NULL,
	account_id INTEGER NOT NULL,
	deleted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	deletion_reason TEXT DEFAULT '%s',
	deletion_batch_id TEXT DEFAULT '%s'
)`, db.AccountBackupTable(batchID), reason, batchID),
			fmt.Sprintf(`CREATE TABLE %s (
	entity_id INTEGER NOT NULL,
	entity_type TEXT NOT NULL,
	entity_subtype TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	deleted_at TIMESTAMP,
	deletion_reason TEXT DEFAULT '%s',
	deletion_batch_id TEXT DEFAULT '%s'
)`, db.EntityBackupTable(batchID), reason, batchID),
		}
	}

	// entity.entity already has a deleted_at column, so the LIKE copy carries it
	// and only the two new audit columns get added there.
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
	LIKE account.virtual_account_holder INCLUDING ALL
)`, db.AccountBackupTable(batchID)),
		fmt.Sprintf(`ALTER TABLE %s
	ADD COLUMN IF NOT EXISTS deleted_at TIMESTAMPTZ DEFAULT NOW(),
	ADD COLUMN IF NOT EXISTS deletion_reason TEXT DEFAULT '%s',
	ADD COLUMN IF NOT EXISTS deletion_batch_id TEXT DEFAULT '%s'`, db.AccountBackupTable(batchID), reason, batchID),
		fmt.Sprintf(`CREATE TABLE %s (
	LIKE entity.entity INCLUDING ALL
)`, db.EntityBackupTable(batchID)),
		fmt.Sprintf(`ALTER TABLE %s
	ADD COLUMN IF NOT EXISTS deletion_reason TEXT DEFAULT '%s',
	ADD COLUMN IF NOT EXISTS deletion_batch_id TEXT DEFAULT '%s'`, db.EntityBackupTable(batchID), reason, batchID),
	}
}

// CreateBackupTables creates the batch's backup tables. It errors if tables
// for the same batch id already exist instead of silently reusing them.
func (db *Database) CreateBackupTables(batchID string, reason string) error {
	exists, err := db.BackupTablesExist(batchID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("backup tables for batch %v already exist", batchID)
	}

	for _, stmt := range db.CreateBackupTableStatements(batchID, reason) {
		if _, err := db.writerDb.Exec(stmt); err != nil {
			return fmt.Errorf("error creating backup tables for batch %v: %v", batchID, err)
		}
	}
	return nil
}

// BackupClientRows copies the matching rows of both source tables into the
// batch's backup tables within the given transaction.
func (db *Database) BackupClientRows(tx *sqlx.Tx, clientIds []int64, batchID string, reason string) (dbtypes.BackupCounts, error) {
	counts := dbtypes.BackupCounts{}
	if len(clientIds) == 0 {
		return counts, nil
	}

	nowFunc := db.EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql:  "NOW()",
		dbtypes.DBEngineSqlite: "CURRENT_TIMESTAMP",
	})

	var sql strings.Builder
	fmt.Fprintf(&sql, `INSERT INTO %s SELECT *, %s, $%v, $%v FROM %s WHERE person_id IN (`,
		db.AccountBackupTable(batchID), nowFunc, len(clientIds)+1, len(clientIds)+2, db.AccountHolderTable())
	args := appendIdArgs(&sql, clientIds)
	fmt.Fprintf(&sql, `)`)
	args = append(args, reason, batchID)

	res, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return counts, fmt.Errorf("error backing up account records: %v", err)
	}
	accountRows, _ := res.RowsAffected()
	counts.AccountRows = uint64(accountRows)

	sql.Reset()
	fmt.Fprintf(&sql, `INSERT INTO %s SELECT *, $%v, $%v FROM %s WHERE entity_id IN (`,
		db.EntityBackupTable(batchID), len(clientIds)+1, len(clientIds)+2, db.EntityTable())
	args = appendIdArgs(&sql, clientIds)
	fmt.Fprintf(&sql, `)`)
	args = append(args, reason, batchID)

	res, err = tx.Exec(sql.String(), args...)
	if err != nil {
		return counts, fmt.Errorf("error backing up entity records: %v", err)
	}
	entityRows, _ := res.RowsAffected()
	counts.EntityRows = uint64(entityRows)

	return counts, nil
}

// DeleteClientRows deletes the matching rows from both source tables within
// the given transaction.
func (db *Database) DeleteClientRows(tx *sqlx.Tx, clientIds []int64) (dbtypes.BackupCounts, error) {
	counts := dbtypes.BackupCounts{}
	if len(clientIds) == 0 {
		return counts, nil
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, `DELETE FROM %s WHERE person_id IN (`, db.AccountHolderTable())
	args := appendIdArgs(&sql, clientIds)
	fmt.Fprintf(&sql, `)`)

	res, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return counts, fmt.Errorf("error deleting account records: %v", err)
	}
	accountRows, _ := res.RowsAffected()
	counts.AccountRows = uint64(accountRows)

	sql.Reset()
	fmt.Fprintf(&sql, `DELETE FROM %s WHERE entity_id IN (`, db.EntityTable())
	args = appendIdArgs(&sql, clientIds)
	fmt.Fprintf(&sql, `)`)

	res, err = tx.Exec(sql.String(), args...)
	if err != nil {
		return counts, fmt.Errorf("error deleting entity records: %v", err)
	}
	entityRows, _ := res.RowsAffected()
	counts.EntityRows = uint64(entityRows)

	return counts, nil
}

// CountRemainingClients counts how many of the given client ids still have
// rows in the source tables.
func (db *Database) CountRemainingClients(clientIds []int64) (dbtypes.BackupCounts, error) {
	counts := dbtypes.BackupCounts{}
	if len(clientIds) == 0 {
		return counts, nil
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, `SELECT COUNT(*) FROM %s WHERE person_id IN (`, db.AccountHolderTable())
	args := appendIdArgs(&sql, clientIds)
	fmt.Fprintf(&sql, `)`)
	err := db.readerDb.Get(&counts.AccountRows, sql.String(), args...)
	if err != nil {
		return counts, fmt.Errorf("error counting remaining account records: %v", err)
	}

	sql.Reset()
	fmt.Fprintf(&sql, `SELECT COUNT(*) FROM %s WHERE entity_id IN (`, db.EntityTable())
	args = appendIdArgs(&sql, clientIds)
	fmt.Fprintf(&sql, `)`)
	err = db.readerDb.Get(&counts.EntityRows, sql.String(), args...)
	if err != nil {
		return counts, fmt.Errorf("error counting remaining entity records: %v", err)
	}

	return counts, nil
}

// CountBackupRows counts the rows in the batch's backup tables that carry the
// batch id in their audit columns.
func (db *Database) CountBackupRows(batchID string) (dbtypes.BackupCounts, error) {
	counts := dbtypes.BackupCounts{}

	err := db.readerDb.Get(&counts.AccountRows, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE deletion_batch_id = $1 AND deleted_at IS NOT NULL`,
		db.AccountBackupTable(batchID)), batchID)
	if err != nil {
		return counts, fmt.Errorf("error counting account backup rows: %v", err)
	}

	err = db.readerDb.Get(&counts.EntityRows, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE deletion_batch_id = $1`,
		db.EntityBackupTable(batchID)), batchID)
	if err != nil {
		return counts, fmt.Errorf("error counting entity backup rows: %v", err)
	}

	return counts, nil
}

// GetEntityBackupRows returns the audit bookkeeping of the batch's entity backup rows.
func (db *Database) GetEntityBackupRows(batchID string) ([]*dbtypes.BackupRow, error) {
	rows, err := db.readerDb.Queryx(fmt.Sprintf(
		`SELECT entity_id, deletion_reason, deletion_batch_id FROM %s ORDER BY entity_id`,
		db.EntityBackupTable(batchID)))
	if err != nil {
		return nil, fmt.Errorf("error fetching entity backup rows: %v", err)
	}
	defer rows.Close()

	backupRows := []*dbtypes.BackupRow{}
	for rows.Next() {
		rowMap := make(map[string]interface{})
		if err := rows.MapScan(rowMap); err != nil {
			return nil, fmt.Errorf("error scanning entity backup row: %v", err)
		}

		var backupRow dbtypes.BackupRow
		cfg := &mapstructure.DecoderConfig{
			Metadata:         nil,
			Result:           &backupRow,
			TagName:          "db",
			WeaklyTypedInput: true,
		}
		decoder, _ := mapstructure.NewDecoder(cfg)
		if err := decoder.Decode(rowMap); err != nil {
			return nil, fmt.Errorf("error decoding entity backup row: %v", err)
		}
		backupRows = append(backupRows, &backupRow)
	}

	return backupRows, nil
}

// RestoreStatements returns the anti-join INSERTs that restore the batch's
// backed up rows into the source tables. They are safe to run repeatedly.
func (db *Database) RestoreStatements(batchID string) []string {
	return []string{
		fmt.Sprintf(`INSERT INTO %[1]s
SELECT person_id, account_id
FROM %[2]s
WHERE person_id NOT IN (
    SELECT person_id FROM %[1]s WHERE person_id IS NOT NULL
)`, db.AccountHolderTable(), db.AccountBackupTable(batchID)),
		fmt.Sprintf(`INSERT INTO %[1]s
SELECT entity_id, entity_type, entity_subtype, created_at, updated_at, deleted_at
FROM %[2]s
WHERE entity_id NOT IN (
    SELECT entity_id FROM %[1]s WHERE entity_id IS NOT NULL
)`, db.EntityTable(), db.EntityBackupTable(batchID)),
	}
}

// RestoreFromBackup re-inserts the batch's backed up rows into the source
// tables within the given transaction, skipping rows that already exist.
func (db *Database) RestoreFromBackup(tx *sqlx.Tx, batchID string) (dbtypes.BackupCounts, error) {
	counts := dbtypes.BackupCounts{}
	stmts := db.RestoreStatements(batchID)

	res, err := tx.Exec(stmts[0])
	if err != nil {
		return counts, fmt.Errorf("error restoring account records: %v", err)
	}
	accountRows, _ := res.RowsAffected()
	counts.AccountRows = uint64(accountRows)

	res, err = tx.Exec(stmts[1])
	if err != nil {
		return counts, fmt.Errorf("error restoring entity records: %v", err)
	}
	entityRows, _ := res.RowsAffected()
	counts.EntityRows = uint64(entityRows)

	return counts, nil
}

package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/wealthops/cleanup-utils/dbtypes"
	"github.com/wealthops/cleanup-utils/types"
)

var errTestRollback = errors.New("rollback test")

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	cfg := &types.DatabaseConfig{
		Engine: "sqlite",
		Sqlite: &types.SqliteDatabaseConfig{
			File: filepath.Join(t.TempDir(), "cleanup_test.sqlite"),
		},
	}

	database, err := NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	err = database.ApplyEmbeddedDbSchema(-2)
	require.NoError(t, err)

	return database
}

func insertAccountRow(t *testing.T, database *Database, personId int64, accountId int64) {
	t.Helper()
	_, err := database.writerDb.Exec(
		`INSERT INTO account_virtual_account_holder (person_id, account_id) VALUES ($1, $2)`,
		personId, accountId)
	require.NoError(t, err)
}

func insertEntityRow(t *testing.T, database *Database, entityId int64, entityType string) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err := database.writerDb.Exec(
		`INSERT INTO entity_entity (entity_id, entity_type, entity_subtype, created_at, updated_at, deleted_at)
		 VALUES ($1, $2, NULL, $3, $4, NULL)`,
		entityId, entityType, now, now)
	require.NoError(t, err)
}

func TestNewDatabaseUnknownEngine(t *testing.T) {
	_, err := NewDatabase(&types.DatabaseConfig{Engine: "oracle"})
	require.ErrorContains(t, err, "unknown database engine")
}

func TestNewDatabaseSqliteEngine(t *testing.T) {
	database := newTestDatabase(t)
	require.Equal(t, dbtypes.DBEngineSqlite, database.Engine())
	require.Equal(t, "sqlite", database.Engine().String())
}

func TestRunTransactionRollsBackOnError(t *testing.T) {
	database := newTestDatabase(t)
	insertEntityRow(t, database, 1, "PERSON")

	err := database.RunTransaction(func(tx *sqlx.Tx) error {
		_, execErr := tx.Exec(`DELETE FROM entity_entity WHERE entity_id = $1`, int64(1))
		require.NoError(t, execErr)
		return errTestRollback
	})
	require.ErrorIs(t, err, errTestRollback)

	var count int
	err = database.readerDb.Get(&count, `SELECT COUNT(*) FROM entity_entity WHERE entity_id = $1`, int64(1))
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

package db

import (
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthops/cleanup-utils/dbtypes"
)

const testReason = "Missing email cleanup"

func TestGetClientsWithAccounts(t *testing.T) {
	database := newTestDatabase(t)
	insertAccountRow(t, database, 101, 9001)
	insertAccountRow(t, database, 101, 9002)
	insertAccountRow(t, database, 102, 9003)
	insertAccountRow(t, database, 999, 9004)

	holdings, err := database.GetClientsWithAccounts([]int64{101, 102, 103})
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	// ordered by account count desc
	assert.Equal(t, int64(101), holdings[0].ClientID)
	assert.Equal(t, uint64(2), holdings[0].AccountCount)
	assert.ElementsMatch(t, []string{"9001", "9002"}, strings.Split(holdings[0].AccountIds, ","))
	assert.Equal(t, int64(102), holdings[1].ClientID)
	assert.Equal(t, uint64(1), holdings[1].AccountCount)
}

func TestGetClientsWithAccountsEmptyInput(t *testing.T) {
	database := newTestDatabase(t)

	holdings, err := database.GetClientsWithAccounts(nil)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestGetEntityRecords(t *testing.T) {
	database := newTestDatabase(t)
	insertEntityRow(t, database, 202, "PERSON")
	insertEntityRow(t, database, 201, "PERSON")
	insertEntityRow(t, database, 999, "ORGANIZATION")

	records, err := database.GetEntityRecords([]int64{201, 202, 203})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(201), records[0].EntityId)
	assert.Equal(t, int64(202), records[1].EntityId)
	assert.Equal(t, "PERSON", records[0].EntityType)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestCreateBackupTables(t *testing.T) {
	database := newTestDatabase(t)
	batchID := "20250830_120000"

	exists, err := database.BackupTablesExist(batchID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = database.CreateBackupTables(batchID, testReason)
	require.NoError(t, err)

	exists, err = database.BackupTablesExist(batchID)
	require.NoError(t, err)
	assert.True(t, exists)

	// same batch id again is an explicit error, not a silent reuse
	err = database.CreateBackupTables(batchID, testReason)
	require.ErrorContains(t, err, "already exist")
}

func TestBackupAndDeleteClientRows(t *testing.T) {
	database := newTestDatabase(t)
	batchID := "20250830_120001"
	clientIds := []int64{301, 302, 303}

	insertAccountRow(t, database, 301, 9101)
	insertEntityRow(t, database, 301, "PERSON")
	insertEntityRow(t, database, 302, "PERSON")
	insertEntityRow(t, database, 888, "PERSON")

	err := database.CreateBackupTables(batchID, testReason)
	require.NoError(t, err)

	var backedUp, deleted dbtypes.BackupCounts
	err = database.RunTransaction(func(tx *sqlx.Tx) error {
		var txErr error
		backedUp, txErr = database.BackupClientRows(tx, clientIds, batchID, testReason)
		if txErr != nil {
			return txErr
		}
		deleted, txErr = database.DeleteClientRows(tx, clientIds)
		return txErr
	})
	require.NoError(t, err)

	assert.Equal(t, dbtypes.BackupCounts{AccountRows: 1, EntityRows: 2}, backedUp)
	assert.Equal(t, backedUp, deleted)

	remaining, err := database.CountRemainingClients(clientIds)
	require.NoError(t, err)
	assert.Equal(t, dbtypes.BackupCounts{}, remaining)

	backupCounts, err := database.CountBackupRows(batchID)
	require.NoError(t, err)
	assert.Equal(t, backedUp, backupCounts)

	// unrelated rows stay untouched
	records, err := database.GetEntityRecords([]int64{888})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	backupRows, err := database.GetEntityBackupRows(batchID)
	require.NoError(t, err)
	require.Len(t, backupRows, 2)
	assert.Equal(t, int64(301), backupRows[0].EntityId)
	assert.Equal(t, testReason, backupRows[0].DeletionReason)
	assert.Equal(t, batchID, backupRows[0].DeletionBatchId)
}

func TestRestoreFromBackupIsIdempotent(t *testing.T) {
	database := newTestDatabase(t)
	batchID := "20250830_120002"
	clientIds := []int64{401, 402}

	insertAccountRow(t, database, 401, 9201)
	insertEntityRow(t, database, 401, "PERSON")
	insertEntityRow(t, database, 402, "PERSON")

	err := database.CreateBackupTables(batchID, testReason)
	require.NoError(t, err)

	err = database.RunTransaction(func(tx *sqlx.Tx) error {
		if _, txErr := database.BackupClientRows(tx, clientIds, batchID, testReason); txErr != nil {
			return txErr
		}
		_, txErr := database.DeleteClientRows(tx, clientIds)
		return txErr
	})
	require.NoError(t, err)

	var restored dbtypes.BackupCounts
	err = database.RunTransaction(func(tx *sqlx.Tx) error {
		var txErr error
		restored, txErr = database.RestoreFromBackup(tx, batchID)
		return txErr
	})
	require.NoError(t, err)
	assert.Equal(t, dbtypes.BackupCounts{AccountRows: 1, EntityRows: 2}, restored)

	records, err := database.GetEntityRecords(clientIds)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// second run inserts nothing thanks to the anti-join guard
	err = database.RunTransaction(func(tx *sqlx.Tx) error {
		var txErr error
		restored, txErr = database.RestoreFromBackup(tx, batchID)
		return txErr
	})
	require.NoError(t, err)
	assert.Equal(t, dbtypes.BackupCounts{}, restored)

	holdings, err := database.GetClientsWithAccounts(clientIds)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, uint64(1), holdings[0].AccountCount)
}

package cleanup

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/wealthops/cleanup-utils/db"
	"github.com/wealthops/cleanup-utils/dbtypes"
	"github.com/wealthops/cleanup-utils/types"
)

// State tracks the progress of one cleanup run.
type State int

const (
	StateStart State = iota
	StateLoaded
	StateAnalyzed
	StateValidated
	StateAborted
	StateBackedUp
	StateDeleted
	StateVerified
	StateRollbackEmitted
)

// ErrClientsWithAccounts is returned when the safety gate finds client ids
// that still hold account rows. Deletion never proceeds past it.
var ErrClientsWithAccounts = errors.New("clients with accounts found")

// ErrVerificationFailed marks a post-delete count mismatch that needs manual review.
var ErrVerificationFailed = errors.New("post-deletion verification failed")

var logger = logrus.StandardLogger().WithField("module", "cleanup")

// Cleaner runs the missing email client cleanup: load, analyze, validate,
// backup, delete, verify and rollback script generation.
type Cleaner struct {
	config    *types.Config
	db        *db.Database
	batchID   string
	state     State
	clientIds []int64
}

// NewBatchID derives a batch id from the current time. It names one run's
// backup tables, rollback script and report files and must be unique per run.
func NewBatchID() string {
	return time.Now().Format("20060102_150405")
}

// NewCleaner creates a Cleaner for one run.
func NewCleaner(config *types.Config, database *db.Database, batchID string) *Cleaner {
	return &Cleaner{
		config:  config,
		db:      database,
		batchID: batchID,
		state:   StateStart,
	}
}

func (c *Cleaner) BatchID() string {
	return c.batchID
}

func (c *Cleaner) State() State {
	return c.state
}

// SetInputFile overrides the configured input CSV path, for CLI flag overrides.
func (c *Cleaner) SetInputFile(path string) {
	c.config.Cleanup.InputFile = path
}

// LoadClientIds reads the configured input CSV. This happens before any
// database contact, so malformed input never touches the database.
func (c *Cleaner) LoadClientIds() error {
	clientIds, err := loadClientIdsFromCsv(c.config.Cleanup.InputFile)
	if err != nil {
		return err
	}
	if len(clientIds) == 0 {
		return fmt.Errorf("no client ids loaded from %v", c.config.Cleanup.InputFile)
	}

	c.clientIds = clientIds
	c.state = StateLoaded
	logger.Infof("loaded %v client ids from %v", len(clientIds), c.config.Cleanup.InputFile)
	return nil
}

// AnalysisResult holds the membership breakdown of one analyze pass.
type AnalysisResult struct {
	TotalAccounts   uint64
	ClientCount     int
	WithAccounts    []*dbtypes.AccountHolding
	WithoutAccounts []int64
	EntityRecords   []*dbtypes.EntityRecord
	AccountsFromCsv uint64
	ReportFiles     []string
}

// Analyze checks each loaded client id for membership in the account and
// entity tables and writes the report files. It performs no database writes.
func (c *Cleaner) Analyze() (*AnalysisResult, error) {
	if c.state < StateLoaded {
		return nil, fmt.Errorf("client ids not loaded")
	}

	totalAccounts, err := c.db.GetTotalAccountsCount()
	if err != nil {
		return nil, err
	}

	withAccounts, err := c.db.GetClientsWithAccounts(c.clientIds)
	if err != nil {
		return nil, err
	}

	entityRecords, err := c.db.GetEntityRecords(c.clientIds)
	if err != nil {
		return nil, err
	}

	withAccountIds := map[int64]bool{}
	accountsFromCsv := uint64(0)
	for _, holding := range withAccounts {
		withAccountIds[holding.ClientID] = true
		accountsFromCsv += holding.AccountCount
	}
	withoutAccounts := []int64{}
	for _, clientId := range c.clientIds {
		if !withAccountIds[clientId] {
			withoutAccounts = append(withoutAccounts, clientId)
		}
	}

	result := &AnalysisResult{
		TotalAccounts:   totalAccounts,
		ClientCount:     len(c.clientIds),
		WithAccounts:    withAccounts,
		WithoutAccounts: withoutAccounts,
		EntityRecords:   entityRecords,
		AccountsFromCsv: accountsFromCsv,
	}

	logger.Infof("analysis results:")
	logger.Infof("  total accounts in database: %v", totalAccounts)
	logger.Infof("  total clients from csv: %v", len(c.clientIds))
	logger.Infof("  clients WITH accounts: %v", len(withAccounts))
	logger.Infof("  clients WITHOUT accounts: %v", len(withoutAccounts))
	logger.Infof("  clients in entity table: %v", len(entityRecords))
	logger.Infof("  total accounts owned by csv clients: %v", accountsFromCsv)
	if totalAccounts > 0 {
		logger.Infof("  percentage of total accounts: %.2f%%", float64(accountsFromCsv)/float64(totalAccounts)*100)
	}

	for _, holding := range withAccounts {
		logger.Warnf("  client %v holds %v accounts (account ids: %v) - DO NOT DELETE", holding.ClientID, holding.AccountCount, holding.AccountIds)
	}

	reportFiles, err := c.writeAnalysisReports(result)
	if err != nil {
		return nil, err
	}
	result.ReportFiles = reportFiles

	c.state = StateAnalyzed
	return result, nil
}

// ValidateSafeToDelete is the hard safety gate: it fails if any loaded client
// id has an associated account row.
func (c *Cleaner) ValidateSafeToDelete() error {
	if c.state < StateLoaded {
		return fmt.Errorf("client ids not loaded")
	}

	withAccounts, err := c.db.GetClientsWithAccounts(c.clientIds)
	if err != nil {
		return err
	}

	if len(withAccounts) > 0 {
		c.state = StateAborted
		logger.Errorf("ABORTING: found %v clients with accounts", len(withAccounts))
		for _, holding := range withAccounts {
			logger.Errorf("  client %v has %v accounts", holding.ClientID, holding.AccountCount)
		}
		return fmt.Errorf("%w: %v of %v client ids hold accounts", ErrClientsWithAccounts, len(withAccounts), len(c.clientIds))
	}

	logger.Infof("confirmed: all %v clients have no accounts - safe to delete", len(c.clientIds))
	c.state = StateValidated
	return nil
}

// SafeDelete runs the deletion protocol. With execute set to false it only
// prints the planned SQL and row counts (dry run, zero writes). With execute
// set to true it creates the backup tables, copies and deletes the matching
// rows inside one transaction, verifies the result and emits the rollback script.
func (c *Cleaner) SafeDelete(execute bool) error {
	err := c.ValidateSafeToDelete()
	if err != nil {
		return err
	}

	entityRecords, err := c.db.GetEntityRecords(c.clientIds)
	if err != nil {
		return err
	}
	if len(entityRecords) > 0 {
		logger.Infof("found %v clients in entity table - will be deleted", len(entityRecords))
	} else {
		logger.Infof("no clients found in entity table")
	}

	if !execute {
		c.printDryRun(entityRecords)
		return nil
	}

	logger.Warnf("EXECUTING ACTUAL DELETION - this will modify the database!")

	reason := c.config.Cleanup.DeletionReason
	err = c.db.CreateBackupTables(c.batchID, reason)
	if err != nil {
		return err
	}
	logger.Infof("created backup tables: %v, %v", c.db.AccountBackupTable(c.batchID), c.db.EntityBackupTable(c.batchID))

	var backedUp, deleted dbtypes.BackupCounts
	err = c.db.RunTransaction(func(tx *sqlx.Tx) error {
		backedUp, err = c.db.BackupClientRows(tx, c.clientIds, c.batchID, reason)
		if err != nil {
			return err
		}

		deleted, err = c.db.DeleteClientRows(tx, c.clientIds)
		if err != nil {
			return err
		}

		if backedUp != deleted {
			return fmt.Errorf("backup/delete count mismatch: backed up %v/%v, deleted %v/%v",
				backedUp.AccountRows, backedUp.EntityRows, deleted.AccountRows, deleted.EntityRows)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.state = StateDeleted

	logger.Infof("backed up %v account records and %v entity records", backedUp.AccountRows, backedUp.EntityRows)
	logger.Infof("deleted %v records from %v", deleted.AccountRows, c.db.AccountHolderTable())
	logger.Infof("deleted %v records from %v", deleted.EntityRows, c.db.EntityTable())

	err = c.Verify(backedUp)
	if err != nil {
		return err
	}

	rollbackFile, err := c.GenerateRollbackScript()
	if err != nil {
		return err
	}

	logger.Infof("SUCCESS: all client records deleted from both tables")
	logger.Infof("  backup tables: %v, %v", c.db.AccountBackupTable(c.batchID), c.db.EntityBackupTable(c.batchID))
	logger.Infof("  rollback script: %v", rollbackFile)
	return nil
}

// Verify re-queries the source tables for remaining matches and compares the
// backup row counts against the pre-delete counts. A mismatch is a fatal
// inconsistency; no automatic rollback is attempted.
func (c *Cleaner) Verify(expected dbtypes.BackupCounts) error {
	if c.state < StateDeleted {
		return fmt.Errorf("nothing deleted yet")
	}

	remaining, err := c.db.CountRemainingClients(c.clientIds)
	if err != nil {
		return err
	}
	if remaining.AccountRows > 0 || remaining.EntityRows > 0 {
		logger.Errorf("ERROR: some clients still exist after deletion!")
		if remaining.AccountRows > 0 {
			logger.Errorf("  %v rows still in %v", remaining.AccountRows, c.db.AccountHolderTable())
		}
		if remaining.EntityRows > 0 {
			logger.Errorf("  %v rows still in %v", remaining.EntityRows, c.db.EntityTable())
		}
		return fmt.Errorf("%w: %v account / %v entity rows remain, manual review required",
			ErrVerificationFailed, remaining.AccountRows, remaining.EntityRows)
	}

	backupCounts, err := c.db.CountBackupRows(c.batchID)
	if err != nil {
		return err
	}
	if backupCounts != expected {
		return fmt.Errorf("%w: backup tables hold %v/%v rows, expected %v/%v, manual review required",
			ErrVerificationFailed, backupCounts.AccountRows, backupCounts.EntityRows, expected.AccountRows, expected.EntityRows)
	}

	logger.Infof("verified: 0 remaining matches, backup counts equal pre-delete counts")
	c.state = StateVerified
	return nil
}

// ApplyRollback restores a previous batch's backed up rows into the source
// tables. The anti-join restore skips rows that already exist, so re-running
// it inserts no duplicates.
func (c *Cleaner) ApplyRollback(batchID string) (dbtypes.BackupCounts, error) {
	counts := dbtypes.BackupCounts{}

	exists, err := c.db.BackupTablesExist(batchID)
	if err != nil {
		return counts, err
	}
	if !exists {
		return counts, fmt.Errorf("no backup tables found for batch %v", batchID)
	}

	err = c.db.RunTransaction(func(tx *sqlx.Tx) error {
		var txErr error
		counts, txErr = c.db.RestoreFromBackup(tx, batchID)
		return txErr
	})
	if err != nil {
		return counts, err
	}

	logger.Infof("restored %v account records and %v entity records from batch %v backups",
		counts.AccountRows, counts.EntityRows, batchID)
	return counts, nil
}

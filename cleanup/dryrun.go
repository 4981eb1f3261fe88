package cleanup

import (
	"fmt"
	"strings"

	"github.com/wealthops/cleanup-utils/dbtypes"
)

// sampleIdList renders the first sampleSize client ids the way the planned
// SQL is displayed, with a trailing ellipsis when the list is truncated.
func (c *Cleaner) sampleIdList() string {
	sampleSize := c.config.Cleanup.SampleSize
	if sampleSize <= 0 || sampleSize > len(c.clientIds) {
		sampleSize = len(c.clientIds)
	}

	parts := make([]string, sampleSize)
	for i := 0; i < sampleSize; i++ {
		parts[i] = fmt.Sprintf("%d", c.clientIds[i])
	}
	idList := strings.Join(parts, ",")
	if sampleSize < len(c.clientIds) {
		idList += "..."
	}
	return idList
}

// printDryRun logs the complete planned process without touching the database.
func (c *Cleaner) printDryRun(entityRecords []*dbtypes.EntityRecord) {
	accountBackupTable := c.db.AccountBackupTable(c.batchID)
	entityBackupTable := c.db.EntityBackupTable(c.batchID)
	rollbackFile := c.rollbackScriptPath()

	logger.Infof("DRY RUN MODE - no actual deletion will occur")
	logger.Infof("DRY RUN: would create backup tables:")
	logger.Infof("  - %v", accountBackupTable)
	logger.Infof("  - %v", entityBackupTable)
	logger.Infof("DRY RUN: backup tables include audit columns: deleted_at, deletion_reason, deletion_batch_id")

	sampleSize := c.config.Cleanup.SampleSize
	logger.Infof("DRY RUN: would backup %v account rows and %v entity rows. Sample records:", 0, len(entityRecords))
	for i, record := range entityRecords {
		if sampleSize > 0 && i >= sampleSize {
			logger.Infof("  ... and %v more records", len(entityRecords)-sampleSize)
			break
		}
		subtype := ""
		if record.EntitySubtype != nil {
			subtype = *record.EntitySubtype
		}
		logger.Infof("  entity %v (%v %v), created %v", record.EntityId, record.EntityType, subtype, record.CreatedAt.Format("2006-01-02"))
	}

	logger.Infof("DRY RUN: would generate rollback script: %v", rollbackFile)

	logger.Infof("DRY RUN: backup tables creation SQL:")
	for _, stmt := range c.db.CreateBackupTableStatements(c.batchID, c.config.Cleanup.DeletionReason) {
		logger.Infof("%v;", stmt)
	}

	idList := c.sampleIdList()
	logger.Infof("DRY RUN: backup records SQL (first %v client ids):", c.config.Cleanup.SampleSize)
	logger.Infof("INSERT INTO %v SELECT *, NOW(), '%v', '%v' FROM %v WHERE person_id IN (%v);",
		accountBackupTable, c.config.Cleanup.DeletionReason, c.batchID, c.db.AccountHolderTable(), idList)
	logger.Infof("INSERT INTO %v SELECT *, '%v', '%v' FROM %v WHERE entity_id IN (%v);",
		entityBackupTable, c.config.Cleanup.DeletionReason, c.batchID, c.db.EntityTable(), idList)

	logger.Infof("DRY RUN: deletion SQL (first %v client ids):", c.config.Cleanup.SampleSize)
	logger.Infof("DELETE FROM %v WHERE person_id IN (%v);", c.db.AccountHolderTable(), idList)
	logger.Infof("DELETE FROM %v WHERE entity_id IN (%v);", c.db.EntityTable(), idList)

	logger.Infof("DRY RUN: rollback script content that would be written to %v:", rollbackFile)
	for _, stmt := range c.db.RestoreStatements(c.batchID) {
		logger.Infof("%v;", stmt)
	}

	logger.Infof("DRY RUN: no database modifications performed")
	logger.Infof("DRY RUN: to execute actual deletion, run with --execute flag")
}

package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func (c *Cleaner) rollbackScriptPath() string {
	return filepath.Join(c.config.Cleanup.OutputDir, fmt.Sprintf("rollback_deletion_%s.sql", c.batchID))
}

// GenerateRollbackScript writes the batch's SQL rollback script. The restore
// INSERTs are guarded by NOT IN anti-joins, so applying the script twice
// inserts no duplicates.
func (c *Cleaner) GenerateRollbackScript() (string, error) {
	accountBackupTable := c.db.AccountBackupTable(c.batchID)
	entityBackupTable := c.db.EntityBackupTable(c.batchID)
	restoreStatements := c.db.RestoreStatements(c.batchID)

	rollbackSql := fmt.Sprintf(`-- Rollback script for deletion batch: %[1]s
-- Generated on: %[2]s
--
-- INSTRUCTIONS:
-- 1. Review the records in the backup tables first:
--    SELECT * FROM %[3]s ORDER BY person_id;
--    SELECT * FROM %[4]s ORDER BY entity_id;
-- 2. If you need to restore records, run the INSERT statements below
-- 3. After successful restore, you can drop the backup tables

-- Restore deleted virtual_account_holder records
%[5]s;

-- Restore deleted entity records
%[6]s;

-- Verify restore (run this to check)
-- SELECT COUNT(*) AS restored_account_count FROM %[7]s v
-- JOIN %[3]s b ON v.person_id = b.person_id;
-- SELECT COUNT(*) AS restored_entity_count FROM %[8]s e
-- JOIN %[4]s b ON e.entity_id = b.entity_id;

-- After successful restore, clean up backup tables
-- DROP TABLE %[3]s;
-- DROP TABLE %[4]s;
`,
		c.batchID,
		time.Now().Format(time.RFC3339),
		accountBackupTable,
		entityBackupTable,
		restoreStatements[0],
		restoreStatements[1],
		c.db.AccountHolderTable(),
		c.db.EntityTable(),
	)

	rollbackFile := c.rollbackScriptPath()
	err := os.WriteFile(rollbackFile, []byte(rollbackSql), 0o644)
	if err != nil {
		return "", fmt.Errorf("error writing rollback script %v: %v", rollbackFile, err)
	}

	logger.Infof("generated rollback script: %v", rollbackFile)
	c.state = StateRollbackEmitted
	return rollbackFile, nil
}

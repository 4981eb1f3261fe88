package cleanup

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// writeAnalysisReports writes the analyze mode report files, all named with
// the run's batch id. The entity report is only written when matches exist.
func (c *Cleaner) writeAnalysisReports(result *AnalysisResult) ([]string, error) {
	reportFiles := []string{}

	accountsFile := filepath.Join(c.config.Cleanup.OutputDir, fmt.Sprintf("clients_with_accounts_%s.csv", c.batchID))
	err := c.writeAccountsReport(accountsFile, result)
	if err != nil {
		return nil, err
	}
	logger.Infof("wrote %v clients WITH accounts to: %v", len(result.WithAccounts), accountsFile)
	reportFiles = append(reportFiles, accountsFile)

	safeDeleteFile := filepath.Join(c.config.Cleanup.OutputDir, fmt.Sprintf("clients_safe_to_delete_%s.txt", c.batchID))
	err = c.writeSafeDeleteReport(safeDeleteFile, result)
	if err != nil {
		return nil, err
	}
	logger.Infof("wrote %v clients safe to delete to: %v", len(result.WithoutAccounts), safeDeleteFile)
	reportFiles = append(reportFiles, safeDeleteFile)

	if len(result.EntityRecords) > 0 {
		entityFile := filepath.Join(c.config.Cleanup.OutputDir, fmt.Sprintf("clients_in_entity_table_%s.csv", c.batchID))
		err = c.writeEntityReport(entityFile, result)
		if err != nil {
			return nil, err
		}
		logger.Infof("wrote %v clients found in entity table to: %v", len(result.EntityRecords), entityFile)
		reportFiles = append(reportFiles, entityFile)
	} else {
		logger.Infof("no clients found in entity table - no entity report written")
	}

	return reportFiles, nil
}

func (c *Cleaner) writeAccountsReport(path string, result *AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating report file %v: %v", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	err = writer.Write([]string{"client_id", "account_count", "account_ids"})
	if err != nil {
		return fmt.Errorf("error writing report file %v: %v", path, err)
	}
	for _, holding := range result.WithAccounts {
		err = writer.Write([]string{
			strconv.FormatInt(holding.ClientID, 10),
			strconv.FormatUint(holding.AccountCount, 10),
			holding.AccountIds,
		})
		if err != nil {
			return fmt.Errorf("error writing report file %v: %v", path, err)
		}
	}

	return nil
}

func (c *Cleaner) writeSafeDeleteReport(path string, result *AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating report file %v: %v", path, err)
	}
	defer f.Close()

	sortedIds := make([]int64, len(result.WithoutAccounts))
	copy(sortedIds, result.WithoutAccounts)
	sort.Slice(sortedIds, func(i, j int) bool { return sortedIds[i] < sortedIds[j] })

	fmt.Fprintf(f, "# Clients from %s that have NO accounts\n", filepath.Base(c.config.Cleanup.InputFile))
	fmt.Fprintf(f, "# Generated on %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(f, "# Total: %d clients\n\n", len(sortedIds))
	for _, clientId := range sortedIds {
		fmt.Fprintf(f, "%d\n", clientId)
	}

	return nil
}

func (c *Cleaner) writeEntityReport(path string, result *AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating report file %v: %v", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	err = writer.Write([]string{"entity_id", "entity_type", "entity_subtype", "created_at", "updated_at", "deleted_at"})
	if err != nil {
		return fmt.Errorf("error writing report file %v: %v", path, err)
	}
	for _, record := range result.EntityRecords {
		subtype := ""
		if record.EntitySubtype != nil {
			subtype = *record.EntitySubtype
		}
		deletedAt := ""
		if record.DeletedAt != nil {
			deletedAt = record.DeletedAt.Format(time.RFC3339)
		}
		err = writer.Write([]string{
			strconv.FormatInt(record.EntityId, 10),
			record.EntityType,
			subtype,
			record.CreatedAt.Format(time.RFC3339),
			record.UpdatedAt.Format(time.RFC3339),
			deletedAt,
		})
		if err != nil {
			return fmt.Errorf("error writing report file %v: %v", path, err)
		}
	}

	return nil
}

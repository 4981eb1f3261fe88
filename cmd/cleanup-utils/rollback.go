package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Restore a batch's backed up rows into the source tables",
	Long:  "Re-inserts the rows of a previous deletion batch from its backup tables into the source tables. The restore skips rows that already exist, so it can be re-run safely.",
	RunE:  runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)

	rollbackCmd.Flags().String("batch", "", "Batch id of the deletion run to roll back")
	rollbackCmd.Flags().BoolP("debug", "d", false, "Enable debug mode")

	rollbackCmd.MarkFlagRequired("batch")
}

func runRollback(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	batchID, _ := cmd.Flags().GetString("batch")
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if batchID == "" {
		return fmt.Errorf("batch id is required")
	}

	cleaner, _, dispose, err := initRun(cmd)
	if err != nil {
		return err
	}
	defer dispose()

	counts, err := cleaner.ApplyRollback(batchID)
	if err != nil {
		return err
	}

	logrus.Infof("rollback completed: %v account rows and %v entity rows restored", counts.AccountRows, counts.EntityRows)
	return nil
}

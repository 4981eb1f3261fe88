package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete client records from both tables after backup (dry run by default)",
	Long:  "Validates that no client holds an account, backs the matching rows up into batch backup tables, deletes them inside one transaction and emits a rollback script. Without --execute only the planned SQL and row counts are printed.",
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().String("input", "", "Input CSV file (overrides config)")
	deleteCmd.Flags().Bool("execute", false, "Perform the actual deletion instead of a dry run")
	deleteCmd.Flags().BoolP("debug", "d", false, "Enable debug mode")
}

func runDelete(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	execute, _ := cmd.Flags().GetBool("execute")
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if execute {
		logrus.Warnf("EXECUTE MODE - this will perform actual deletion!")
	} else {
		logrus.Infof("DRY RUN MODE - use --execute to perform actual deletion")
	}

	cleaner, _, dispose, err := initRun(cmd)
	if err != nil {
		return err
	}
	defer dispose()

	inputFile, _ := cmd.Flags().GetString("input")
	if inputFile != "" {
		cleaner.SetInputFile(inputFile)
	}

	err = cleaner.LoadClientIds()
	if err != nil {
		return err
	}

	return cleaner.SafeDelete(execute)
}

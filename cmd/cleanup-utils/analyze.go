package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze which clients from the input CSV hold accounts or entity records",
	Long:  "Checks each client id from the input CSV for membership in the account and entity tables and writes report files. Performs no database writes.",
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("input", "", "Input CSV file (overrides config)")
	analyzeCmd.Flags().BoolP("debug", "d", false, "Enable debug mode")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
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

	result, err := cleaner.Analyze()
	if err != nil {
		return err
	}

	logrus.Infof("analysis completed: %v clients checked, %v reports written", result.ClientCount, len(result.ReportFiles))
	return nil
}

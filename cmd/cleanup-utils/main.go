package main

import (
	"github.com/spf13/cobra"

	"github.com/wealthops/cleanup-utils/cleanup"
	"github.com/wealthops/cleanup-utils/db"
	"github.com/wealthops/cleanup-utils/types"
	"github.com/wealthops/cleanup-utils/utils"
)

var rootCmd = &cobra.Command{
	Use:   "cleanup-utils",
	Short: "Missing email client cleanup utilities",
	Long:  "Utilities for identifying and safely removing client records without email addresses, with backup tables and rollback scripts",
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file, if empty string defaults will be used")

	if err := rootCmd.Execute(); err != nil {
		utils.LogFatal(err, "error executing command", 0)
	}
}

// initRun loads the config, sets up per-run logging and connects to the
// database. The returned cleaner scopes the connection to this run; callers
// close it through the cleanup function on all exit paths.
func initRun(cmd *cobra.Command) (*cleanup.Cleaner, *db.Database, func(), error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	utils.Config = cfg

	batchID := cleanup.NewBatchID()
	logWriter, _ := utils.InitLogger(batchID)

	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logWriter.Dispose()
		return nil, nil, nil, err
	}

	cleaner := cleanup.NewCleaner(cfg, database, batchID)
	dispose := func() {
		database.Close()
		logWriter.Dispose()
	}
	return cleaner, database, dispose, nil
}

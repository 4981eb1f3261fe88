package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Apply the embedded base schema to a scratch database",
	Long:  "Creates the account and entity source tables in a scratch or development database. The production tables are expected to pre-exist; analyze and delete never create them.",
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().BoolP("debug", "d", false, "Enable debug mode")
}

func runSchema(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	_, database, dispose, err := initRun(cmd)
	if err != nil {
		return err
	}
	defer dispose()

	err = database.ApplyEmbeddedDbSchema(-2)
	if err != nil {
		return err
	}

	logrus.Infof("schema applied to %v database", database.Engine())
	return nil
}

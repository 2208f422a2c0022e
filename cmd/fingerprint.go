package cmd

import (
	"fmt"

	"db-automigrate/internal/dialect"
	"db-automigrate/internal/engine"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Print the schema script the model renders to, without connecting",
	RunE: func(cmd *cobra.Command, args []string) error {
		driverName := viper.GetString("database.driver")
		schemaName := viper.GetString("database.schema")
		if driverName == "" {
			config, err := GetActiveDBConfig()
			if err != nil {
				return fmt.Errorf("database.driver is required: %w", err)
			}
			driverName, schemaName = config.Driver, config.Schema
		}

		d, err := dialect.GetDriver(driverName)
		if err != nil {
			return err
		}

		src, err := loadModel(schemaName)
		if err != nil {
			return err
		}

		tables, err := engine.BuildTables(d, src, viper.GetString("migration.log_table"))
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), engine.Fingerprint(d, tables))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(fingerprintCmd)
}

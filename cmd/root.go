package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"db-automigrate/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	Logger  = zap.NewNop()
)

var RootCmd = &cobra.Command{
	Use:   "db-automigrate",
	Short: "Reconcile a database schema with a declared model",
	Long: `
  ___  _   _ _____ ___  __  __ ___ ___ ___    _ _____ ___
 / _ \| | | |_   _/ _ \|  \/  |_ _/ __| _ \  /_\_   _| __|
| (_) | |_| | | || (_) | |\/| || | (_ |   / / _ \| | | _|
 \__\_\\___/  |_| \___/|_|  |_|___\___|_|_\/_/ \_\_| |___|

DB AUTOMIGRATE - adds missing tables, columns and indexes inside one transaction
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(viper.GetString("log.level"), viper.GetString("log.format"))
		if err != nil {
			return err
		}
		Logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = Logger.Sync()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Define flags
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-automigrate.yaml)")
	RootCmd.PersistentFlags().String("dsn", "", "Database Source Name (DSN)")
	RootCmd.PersistentFlags().String("driver", "", "database/sql driver: sqlserver, postgres or pgx")
	RootCmd.PersistentFlags().String("schema", "", "Schema for entities that do not name one")
	RootCmd.PersistentFlags().StringP("model", "m", "", "YAML model file")
	RootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	RootCmd.PersistentFlags().String("log-format", "console", "log format: console or json")

	viper.BindPFlag("database.dsn", RootCmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("database.driver", RootCmd.PersistentFlags().Lookup("driver"))
	viper.BindPFlag("database.schema", RootCmd.PersistentFlags().Lookup("schema"))
	viper.BindPFlag("model.file", RootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", RootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-automigrate")
		viper.SetConfigType("yaml")
	}

	// AUTOMIGRATE_DATABASE_DSN overrides database.dsn, etc.
	viper.SetEnvPrefix("AUTOMIGRATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

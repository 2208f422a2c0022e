package cmd

import (
	"database/sql"
	"fmt"
	"time"

	"db-automigrate/internal/dialect"
	"db-automigrate/internal/engine"
	"db-automigrate/internal/model"
	"db-automigrate/internal/observe"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema in line with the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := ResolveDBConfig()
		if err != nil {
			return err
		}

		d, err := dialect.GetDriver(config.Driver)
		if err != nil {
			return err
		}

		src, err := loadModel(config.Schema)
		if err != nil {
			return err
		}

		logTable := viper.GetString("migration.log_table")
		// Model errors surface here, before a connection is opened.
		tables, err := engine.BuildTables(d, src, logTable)
		if err != nil {
			return err
		}

		db, err := sql.Open(config.Driver, config.DSN)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(cmd.Context()); err != nil {
			return fmt.Errorf("failed to connect to db: %w", err)
		}
		fmt.Printf("🦅 Connected to %s (%s)\n", config.Name, config.Driver)

		metrics := observe.NewMetrics("automigrate")
		observers := engine.Observers{observe.NewLogObserver(Logger), metrics}

		var progress *progressObserver
		if viper.GetBool("progress") {
			progress = newProgressObserver(len(tables))
			observers = append(observers, progress)
			progress.Start()
		}

		opts := engine.Options{
			LogTable: logTable,
			Observer: observers,
			Logger:   Logger,
			DryRun:   viper.GetBool("migration.dry_run"),
		}
		if viper.GetBool("migration.allow_changes") {
			opts.Renames = engine.PreserveAndAdd{}
		}

		start := time.Now()
		res, err := engine.New(db, d, src, opts).Migrate(cmd.Context())

		if progress != nil {
			progress.Stop()
		}
		writeMetrics(metrics)

		if err != nil {
			// MigrationFailedError already carries the rolled back change log.
			return err
		}

		printSummary(res, opts.DryRun, time.Since(start))
		return nil
	},
}

func printSummary(res *engine.Result, dryRun bool, elapsed time.Duration) {
	fmt.Println("\n📊 Summary Report:")
	switch {
	case res.Skipped:
		fmt.Println("Model unchanged since the last migration, nothing to do.")
	case res.Empty():
		fmt.Println("Schema already matches the model.")
	default:
		fmt.Print(res.Log())
	}
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Tables Changed: %d\n", len(res.Tables))
	if dryRun {
		fmt.Println("[SIMULATION] Dry-Run Mode Active: all changes were rolled back.")
	}
	fmt.Printf("Run %s done in %s\n", res.RunID, elapsed.Round(time.Millisecond))
}

func writeMetrics(m *observe.Metrics) {
	path := viper.GetString("metrics.textfile")
	if path == "" {
		return
	}
	if err := m.WriteToTextfile(path); err != nil {
		Logger.Warn("failed to write metrics textfile", zap.String("path", path), zap.Error(err))
	}
}

// loadModel reads the model file and applies the configured default schema.
func loadModel(defaultSchema string) (model.Static, error) {
	path := viper.GetString("model.file")
	if path == "" {
		return nil, fmt.Errorf("model.file is required (via --model, env or config)")
	}
	src, err := model.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if defaultSchema != "" {
		src = src.WithSchema(defaultSchema)
	}
	return src, nil
}

func init() {
	RootCmd.AddCommand(migrateCmd)

	// CLI Flags
	migrateCmd.Flags().String("log-table", dialect.DefaultLogTable, "Name of the migration log table")
	migrateCmd.Flags().Bool("allow-changes", false, "Preserve changed columns under a temporary name and add the new definition")
	migrateCmd.Flags().Bool("dry-run", false, "Reconcile, then roll everything back")
	migrateCmd.Flags().String("metrics-textfile", "", "Write prometheus metrics to this file after the run")
	migrateCmd.Flags().Bool("progress", false, "Show a progress bar")

	viper.BindPFlag("migration.log_table", migrateCmd.Flags().Lookup("log-table"))
	viper.BindPFlag("migration.allow_changes", migrateCmd.Flags().Lookup("allow-changes"))
	viper.BindPFlag("migration.dry_run", migrateCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("metrics.textfile", migrateCmd.Flags().Lookup("metrics-textfile"))
	viper.BindPFlag("progress", migrateCmd.Flags().Lookup("progress"))
}

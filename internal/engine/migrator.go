package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"db-automigrate/internal/dialect"
	"db-automigrate/internal/model"
	"db-automigrate/internal/schema"
	"db-automigrate/internal/sqlfrag"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options tunes a Migrator. The zero value denies structural changes, logs
// nothing and commits.
type Options struct {
	// LogTable defaults to dialect.DefaultLogTable.
	LogTable string
	Renames  RenameDecision
	Observer Observer
	Logger   *zap.Logger
	// DryRun rolls the transaction back after a complete reconciliation.
	DryRun bool
}

// Migrator reconciles a database schema with a model.
type Migrator struct {
	db     *sql.DB
	driver dialect.Driver
	source model.Source
	opts   Options
}

func New(db *sql.DB, d dialect.Driver, src model.Source, opts Options) *Migrator {
	if opts.LogTable == "" {
		opts.LogTable = dialect.DefaultLogTable
	}
	if opts.Renames == nil {
		opts.Renames = DenyChanges{}
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Migrator{db: db, driver: d, source: src, opts: opts}
}

// Migrate runs one reconciliation inside a single serializable transaction.
//
// Model errors, including ambiguous aliases, are returned before a connection
// is opened. Any later failure rolls the whole run back and is returned as a
// *MigrationFailedError carrying the partial result.
func (m *Migrator) Migrate(ctx context.Context) (*Result, error) {
	tables, err := BuildTables(m.driver, m.source, m.opts.LogTable)
	if err != nil {
		return nil, err
	}
	fingerprint := Fingerprint(m.driver, tables)

	runID := uuid.NewString()
	logger := m.opts.Logger.With(zap.String("run_id", runID), zap.String("driver", m.driver.Name()))
	logger.Info("starting automatic migration", zap.Int("tables", len(tables)), zap.Bool("dry_run", m.opts.DryRun))

	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	r := &run{
		id:       runID,
		tx:       tx,
		driver:   m.driver,
		renames:  m.opts.Renames,
		observer: m.opts.Observer,
		log:      logger,
	}

	fail := func(err error) (*Result, error) {
		res := r.result()
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error("rollback failed", zap.Error(rbErr))
		}
		logger.Error("automatic migration rolled back", zap.Error(err))
		return res, &MigrationFailedError{Err: err, Result: res}
	}

	seen, err := m.driver.ModelFingerprintExists(ctx, tx, m.opts.LogTable, fingerprint)
	if err != nil {
		return fail(fmt.Errorf("migration log: %w", err))
	}
	if seen {
		if err := tx.Commit(); err != nil {
			return fail(fmt.Errorf("commit: %w", err))
		}
		logger.Info("model unchanged since last migration, skipping")
		return &Result{RunID: runID, Skipped: true}, nil
	}

	if err := r.reconcile(ctx, tables); err != nil {
		return fail(err)
	}

	res := r.result()
	if m.opts.DryRun {
		if err := tx.Rollback(); err != nil {
			return res, fmt.Errorf("rollback dry run: %w", err)
		}
		logger.Info("dry run complete, changes rolled back", zap.Int("tables_changed", len(res.Tables)))
		return res, nil
	}
	if err := tx.Commit(); err != nil {
		return fail(fmt.Errorf("commit: %w", err))
	}
	logger.Info("automatic migration committed", zap.Int("tables_changed", len(res.Tables)))
	return res, nil
}

// run holds the state of one Migrate call.
type run struct {
	id       string
	tx       dialect.Querier
	driver   dialect.Driver
	renames  RenameDecision
	observer Observer
	log      *zap.Logger

	suffixes int
	logs     []*tableLog
}

func (r *run) exec(ctx context.Context, stmt sqlfrag.Query) error {
	if ce := r.log.Check(zap.DebugLevel, "exec"); ce != nil {
		text, args := dialect.Render(r.driver, stmt)
		ce.Write(zap.String("sql", text), zap.Int("args", len(args)))
	}
	return dialect.Exec(ctx, r.tx, r.driver, stmt)
}

func (r *run) nextSuffix() string {
	r.suffixes++
	return fmt.Sprintf("_%s_%d", r.id[:8], r.suffixes)
}

// reconcile settles every table's columns before any table's indexes.
func (r *run) reconcile(ctx context.Context, tables []*schema.TargetTable) error {
	created := make(map[*schema.TargetTable]bool, len(tables))
	for _, t := range tables {
		tl := newTableLog(t)
		r.logs = append(r.logs, tl)
		isNew, err := r.reconcileTable(ctx, t, tl)
		if err != nil {
			return err
		}
		created[t] = isNew
	}

	for i, t := range tables {
		tl := r.logs[i]
		var live []*schema.LiveIndex
		if !created[t] {
			var err error
			if live, err = r.driver.LoadIndexes(ctx, r.tx, t); err != nil {
				return fmt.Errorf("load indexes of %s: %w", t, err)
			}
		}
		if err := r.reconcileIndexes(ctx, t, live, tl); err != nil {
			return err
		}
		r.observer.TableReconciled(t, tl.freeze())
	}
	return nil
}

// reconcileTable creates t when it is missing and reconciles its non-key columns.
func (r *run) reconcileTable(ctx context.Context, t *schema.TargetTable, tl *tableLog) (bool, error) {
	exists, err := r.driver.TableExists(ctx, r.tx, t.Name, t.Schema)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", t, err)
	}

	if !exists {
		keys := t.Keys()
		if len(keys) == 0 {
			return false, fmt.Errorf("table %s does not exist and declares no key columns", t)
		}
		tl.created()
		if err := r.exec(ctx, r.driver.CreateTableStatement(t, keys)); err != nil {
			return false, fmt.Errorf("create table %s: %w", t, err)
		}
		r.observer.TableCreated(t)

		live := make([]*schema.LiveColumn, len(keys))
		for i, k := range keys {
			live[i] = &schema.LiveColumn{Column: k.Column}
		}
		return true, r.reconcileColumns(ctx, t, live, false, tl)
	}

	hasRows, err := r.driver.HasAnyRows(ctx, r.tx, t)
	if err != nil {
		return false, fmt.Errorf("check rows of %s: %w", t, err)
	}
	live, err := r.driver.LoadColumns(ctx, r.tx, t)
	if err != nil {
		return false, fmt.Errorf("load columns of %s: %w", t, err)
	}
	return false, r.reconcileColumns(ctx, t, live, hasRows, tl)
}

func (r *run) result() *Result {
	res := &Result{RunID: r.id}
	for _, tl := range r.logs {
		if !tl.res.Empty() {
			res.Tables = append(res.Tables, tl.freeze())
		}
	}
	return res
}

// tableApplier is the Applier handed to rename policies.
type tableApplier struct {
	run   *run
	table *schema.TargetTable
}

func (a *tableApplier) RenameColumn(ctx context.Context, from, to string) error {
	if err := a.run.exec(ctx, a.run.driver.RenameColumnStatement(a.table, from, to)); err != nil {
		return fmt.Errorf("rename column %s.%s to %s: %w", a.table, from, to, err)
	}
	return nil
}

func (a *tableApplier) AddColumn(ctx context.Context, c *schema.TargetColumn) error {
	if err := a.run.exec(ctx, a.run.driver.AddColumnStatement(c)); err != nil {
		return fmt.Errorf("add column %s: %w", c.QualifiedName(), err)
	}
	return nil
}

func (a *tableApplier) Exec(ctx context.Context, stmt sqlfrag.Query) error {
	return a.run.exec(ctx, stmt)
}

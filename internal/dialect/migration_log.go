package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"db-automigrate/internal/schema"
	"db-automigrate/internal/sqlfrag"
)

// DefaultLogTable is the migration log table used when none is configured.
const DefaultLogTable = "__AutomaticMigrations"

const (
	logDateColumn  = "DateApplied"
	logModelColumn = "CurrentModel"
)

var now = func() time.Time { return time.Now().UTC() }

type logDriver interface {
	Driver
	logColumnTypes() (timestamp, text string)
	latestFingerprintStatement(t *schema.TargetTable) sqlfrag.Query
}

func logTableShape(d logDriver, name string) *schema.TargetTable {
	tsType, textType := d.logColumnTypes()
	t := &schema.TargetTable{
		Entity:      name,
		Name:        name,
		Schema:      d.DefaultSchema(),
		EscapedName: qualify(d, d.DefaultSchema(), name),
	}
	t.Columns = []*schema.TargetColumn{
		{Column: schema.Column{Name: logDateColumn, Type: tsType}, Key: true, Table: t, EscapedName: d.EscapeIdentifier(logDateColumn)},
		{Column: schema.Column{Name: logModelColumn, Type: textType, Nullable: true}, Table: t, EscapedName: d.EscapeIdentifier(logModelColumn)},
	}
	return t
}

func modelFingerprintExists(ctx context.Context, q Querier, d logDriver, logTable, fingerprint string) (bool, error) {
	if logTable == "" {
		logTable = DefaultLogTable
	}
	t := logTableShape(d, logTable)

	exists, err := d.TableExists(ctx, q, t.Name, t.Schema)
	if err != nil {
		return false, fmt.Errorf("check migration log %s: %w", t, err)
	}
	if !exists {
		if err := Exec(ctx, q, d, d.CreateTableStatement(t, t.Columns)); err != nil {
			return false, fmt.Errorf("create migration log %s: %w", t, err)
		}
	} else {
		text, args := d.latestFingerprintStatement(t).Build(d.Placeholder)
		var latest sql.NullString
		rows, err := q.QueryContext(ctx, text, args...)
		if err != nil {
			return false, &ExecError{Statement: text, Args: args, Err: err}
		}
		if rows.Next() {
			err = rows.Scan(&latest)
		}
		err = errors.Join(err, rows.Err(), rows.Close())
		if err != nil {
			return false, fmt.Errorf("read migration log %s: %w", t, err)
		}
		if latest.Valid && latest.String == fingerprint {
			return true, nil
		}
	}

	insert := sqlfrag.New(
		sqlfrag.Lit("INSERT INTO "+t.EscapedName+" ("+escapeAll(d, []string{logDateColumn, logModelColumn}, "")+") VALUES ("),
		sqlfrag.Param(now()), sqlfrag.Lit(", "), sqlfrag.Param(fingerprint),
		sqlfrag.Lit(")"),
	)
	if err := Exec(ctx, q, d, insert); err != nil {
		return false, fmt.Errorf("append migration log %s: %w", t, err)
	}
	return false, nil
}

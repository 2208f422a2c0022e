package engine

import (
	"context"

	"db-automigrate/internal/schema"
	"db-automigrate/internal/sqlfrag"
)

// Applier executes statements inside the running migration's transaction.
type Applier interface {
	RenameColumn(ctx context.Context, from, to string) error
	AddColumn(ctx context.Context, c *schema.TargetColumn) error
	Exec(ctx context.Context, stmt sqlfrag.Query) error
}

// ColumnChange describes a live column that matched a target column by name or
// alias but differs structurally.
type ColumnChange struct {
	Table  *schema.TargetTable
	Prior  *schema.LiveColumn
	Target *schema.TargetColumn
	// TempSuffix is unique within the run. Append it to a name to park a column.
	TempSuffix string
	Apply      Applier
}

// RenameDecision resolves a ColumnChange. Returning an error aborts the run.
type RenameDecision interface {
	Decide(ctx context.Context, ch ColumnChange) error
}

// DenyChanges rejects every structural change.
type DenyChanges struct{}

func (DenyChanges) Decide(_ context.Context, ch ColumnChange) error {
	return &UnsupportedChangeError{Table: ch.Table.String(), Prior: ch.Prior, Target: ch.Target}
}

// PreserveAndAdd renames the prior column aside with the temp suffix and adds the
// target column next to it. Data stays in the parked column. Parked names longer
// than schema.MaxIdentifierLength are shortened with a digest.
type PreserveAndAdd struct{}

func (PreserveAndAdd) Decide(ctx context.Context, ch ColumnChange) error {
	parked := schema.ShortenIdentifier(ch.Prior.Name + ch.TempSuffix)
	if err := ch.Apply.RenameColumn(ctx, ch.Prior.Name, parked); err != nil {
		return err
	}
	return ch.Apply.AddColumn(ctx, ch.Target)
}

// RenameFunc adapts a function to RenameDecision.
type RenameFunc func(ctx context.Context, ch ColumnChange) error

func (f RenameFunc) Decide(ctx context.Context, ch ColumnChange) error { return f(ctx, ch) }

package engine

import (
	"context"
	"fmt"
	"strings"

	"db-automigrate/internal/schema"

	"go.uber.org/zap"
)

// matchColumn finds the live column for c: by name first, then by alias in
// declaration order.
func matchColumn(live []*schema.LiveColumn, c *schema.TargetColumn) *schema.LiveColumn {
	for _, l := range live {
		if strings.EqualFold(l.Name, c.Name) {
			return l
		}
	}
	for _, alias := range c.Aliases {
		for _, l := range live {
			if strings.EqualFold(l.Name, alias) {
				return l
			}
		}
	}
	return nil
}

// needsValue reports whether adding c to a table with rows would fail for lack of a value.
func needsValue(c *schema.TargetColumn) bool {
	return !c.Nullable && c.Default == "" && !c.Identity
}

// reconcileColumns converges the non-key columns of t. hasRows enables the
// unsafe-change gate.
func (r *run) reconcileColumns(ctx context.Context, t *schema.TargetTable, live []*schema.LiveColumn, hasRows bool, tl *tableLog) error {
	for _, c := range t.NonKeys() {
		prior := matchColumn(live, c)

		if prior == nil {
			tl.columnAdded(c)
			if hasRows && needsValue(c) {
				return &UnsafeChangeError{Table: t.String(), Column: c}
			}
			if err := r.exec(ctx, r.driver.AddColumnStatement(c)); err != nil {
				return fmt.Errorf("add column %s: %w", c.QualifiedName(), err)
			}
			r.observer.ColumnAdded(c)
			continue
		}

		same := schema.SameColumn(prior, c, r.driver)
		renamed := prior.Name != c.Name
		if same && !renamed {
			continue
		}

		tl.columnRenamed(prior, c)
		if same {
			r.log.Debug("column matched by alias", zap.String("table", t.String()),
				zap.String("from", prior.Name), zap.String("to", c.Name))
			if err := r.exec(ctx, r.driver.RenameColumnStatement(t, prior.Name, c.Name)); err != nil {
				return fmt.Errorf("rename column %s: %w", c.QualifiedName(), err)
			}
			r.observer.ColumnChanged(prior, c)
			continue
		}

		if hasRows && needsValue(c) {
			return &UnsafeChangeError{Table: t.String(), Column: c, Prior: prior}
		}
		ch := ColumnChange{
			Table:      t,
			Prior:      prior,
			Target:     c,
			TempSuffix: r.nextSuffix(),
			Apply:      &tableApplier{run: r, table: t},
		}
		if err := r.renames.Decide(ctx, ch); err != nil {
			return err
		}
		r.observer.ColumnChanged(prior, c)
	}
	return nil
}

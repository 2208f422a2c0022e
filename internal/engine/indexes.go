package engine

import (
	"context"
	"fmt"
	"strings"

	"db-automigrate/internal/schema"
)

func findIndex(live []*schema.LiveIndex, name string) *schema.LiveIndex {
	for _, l := range live {
		if strings.EqualFold(l.Name, name) {
			return l
		}
	}
	return nil
}

// reconcileIndexes converges the indexes of t. Indexes that duplicate the
// primary key are left alone.
func (r *run) reconcileIndexes(ctx context.Context, t *schema.TargetTable, live []*schema.LiveIndex, tl *tableLog) error {
	for _, idx := range t.Indexes {
		if t.IsKeyIndex(idx) {
			continue
		}

		existing := findIndex(live, idx.Name)
		if existing != nil && schema.SameIndex(existing, idx) {
			continue
		}
		tl.indexUpdated(idx, existing != nil)

		if existing != nil {
			if err := r.exec(ctx, r.driver.DropIndexStatement(t, existing.Name)); err != nil {
				return fmt.Errorf("drop index %s: %w", existing.Name, err)
			}
			r.observer.IndexDropped(t, existing.Name)
		}
		if err := r.exec(ctx, r.driver.CreateIndexStatement(idx)); err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
		r.observer.IndexCreated(idx)
	}
	return nil
}

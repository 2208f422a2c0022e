package engine

import "db-automigrate/internal/schema"

// Observer receives mutation events synchronously, right after each statement
// has been executed.
type Observer interface {
	TableCreated(t *schema.TargetTable)
	ColumnAdded(c *schema.TargetColumn)
	ColumnChanged(prior *schema.LiveColumn, target *schema.TargetColumn)
	IndexCreated(idx *schema.TargetIndex)
	IndexDropped(t *schema.TargetTable, name string)
	// TableReconciled fires once per table after both phases, with the table's
	// mutation log.
	TableReconciled(t *schema.TargetTable, changes *TableResult)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) TableCreated(*schema.TargetTable) {}
func (NopObserver) ColumnAdded(*schema.TargetColumn) {}
func (NopObserver) ColumnChanged(*schema.LiveColumn, *schema.TargetColumn) {}
func (NopObserver) IndexCreated(*schema.TargetIndex) {}
func (NopObserver) IndexDropped(*schema.TargetTable, string) {}
func (NopObserver) TableReconciled(*schema.TargetTable, *TableResult) {}

// Observers fans every event out in order.
type Observers []Observer

func (o Observers) TableCreated(t *schema.TargetTable) {
	for _, x := range o {
		x.TableCreated(t)
	}
}

func (o Observers) ColumnAdded(c *schema.TargetColumn) {
	for _, x := range o {
		x.ColumnAdded(c)
	}
}

func (o Observers) ColumnChanged(prior *schema.LiveColumn, target *schema.TargetColumn) {
	for _, x := range o {
		x.ColumnChanged(prior, target)
	}
}

func (o Observers) IndexCreated(idx *schema.TargetIndex) {
	for _, x := range o {
		x.IndexCreated(idx)
	}
}

func (o Observers) IndexDropped(t *schema.TargetTable, name string) {
	for _, x := range o {
		x.IndexDropped(t, name)
	}
}

func (o Observers) TableReconciled(t *schema.TargetTable, changes *TableResult) {
	for _, x := range o {
		x.TableReconciled(t, changes)
	}
}

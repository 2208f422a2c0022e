// Package observe provides engine observers for logs and metrics.
package observe

import (
	"db-automigrate/internal/engine"
	"db-automigrate/internal/schema"

	"go.uber.org/zap"
)

// LogObserver logs every mutation at info level.
type LogObserver struct {
	Logger *zap.Logger
}

var _ engine.Observer = (*LogObserver)(nil)

func NewLogObserver(l *zap.Logger) *LogObserver {
	return &LogObserver{Logger: l}
}

func (o *LogObserver) TableCreated(t *schema.TargetTable) {
	o.Logger.Info("table created", zap.String("table", t.String()))
}

func (o *LogObserver) ColumnAdded(c *schema.TargetColumn) {
	o.Logger.Info("column added", zap.String("table", c.Table.String()),
		zap.String("column", c.Name), zap.Stringer("type", c.Column))
}

func (o *LogObserver) ColumnChanged(prior *schema.LiveColumn, target *schema.TargetColumn) {
	o.Logger.Info("column changed", zap.String("table", target.Table.String()),
		zap.String("from", prior.Name), zap.Stringer("from_type", prior.Column),
		zap.String("to", target.Name), zap.Stringer("to_type", target.Column))
}

func (o *LogObserver) IndexCreated(idx *schema.TargetIndex) {
	o.Logger.Info("index created", zap.String("table", idx.Table.String()),
		zap.String("index", idx.Name), zap.Strings("columns", idx.Columns), zap.Bool("unique", idx.Unique))
}

func (o *LogObserver) IndexDropped(t *schema.TargetTable, name string) {
	o.Logger.Info("index dropped", zap.String("table", t.String()), zap.String("index", name))
}

func (o *LogObserver) TableReconciled(t *schema.TargetTable, changes *engine.TableResult) {
	if changes.Empty() {
		o.Logger.Debug("table up to date", zap.String("table", t.String()))
		return
	}
	o.Logger.Info("table reconciled", zap.String("table", t.String()),
		zap.Bool("created", changes.Created),
		zap.Int("columns_added", len(changes.ColumnsAdded)),
		zap.Int("columns_changed", len(changes.ColumnsRenamed)),
		zap.Int("indexes_updated", len(changes.IndexesUpdated)))
}

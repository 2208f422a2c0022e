package engine

import (
	"fmt"
	"strings"

	"db-automigrate/internal/schema"
)

// ColumnRename is a matched prior column and the target it converges to.
type ColumnRename struct {
	Prior  *schema.LiveColumn
	Target *schema.TargetColumn
}

// IndexChange records an index creation. Dropped is set when a stale index of the
// same name was dropped first.
type IndexChange struct {
	Index   *schema.TargetIndex
	Dropped bool
}

// TableResult is the mutation log of one table.
type TableResult struct {
	Table          *schema.TargetTable
	Created        bool
	ColumnsAdded   []*schema.TargetColumn
	ColumnsRenamed []ColumnRename
	IndexesUpdated []IndexChange
}

// Empty reports whether nothing was changed on the table.
func (t *TableResult) Empty() bool {
	return !t.Created && len(t.ColumnsAdded) == 0 && len(t.ColumnsRenamed) == 0 && len(t.IndexesUpdated) == 0
}

// Result is the outcome of one run. Tables only lists tables that changed.
type Result struct {
	RunID   string
	Skipped bool
	Tables  []*TableResult
}

// Empty reports whether the run changed nothing.
func (r *Result) Empty() bool {
	return len(r.Tables) == 0
}

// Table returns the log for a table by name, or nil.
func (r *Result) Table(name string) *TableResult {
	for _, t := range r.Tables {
		if strings.EqualFold(t.Table.Name, name) {
			return t
		}
	}
	return nil
}

// Log renders a human readable change log.
func (r *Result) Log() string {
	var sb strings.Builder
	for _, t := range r.Tables {
		if t.Created {
			fmt.Fprintf(&sb, "Table %s created.\n", t.Table)
		} else {
			fmt.Fprintf(&sb, "Table %s modified.\n", t.Table)
		}
		for _, c := range t.ColumnsAdded {
			fmt.Fprintf(&sb, "  Column: %s added.\n", c.Name)
		}
		for _, c := range t.ColumnsRenamed {
			if strings.EqualFold(c.Prior.Name, c.Target.Name) {
				fmt.Fprintf(&sb, "  Column: %s changed.\n", c.Target.Name)
			} else {
				fmt.Fprintf(&sb, "  Column: %s renamed to %s.\n", c.Prior.Name, c.Target.Name)
			}
		}
		for _, ix := range t.IndexesUpdated {
			if ix.Dropped {
				fmt.Fprintf(&sb, "  Index: %s dropped.\n", ix.Index.Name)
			}
			fmt.Fprintf(&sb, "  Index: %s created.\n", ix.Index.Name)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// tableLog accumulates mutations for one table during a run. It is owned by the
// migrator and frozen into a TableResult at the end.
type tableLog struct {
	res TableResult
}

func newTableLog(t *schema.TargetTable) *tableLog {
	return &tableLog{res: TableResult{Table: t}}
}

func (l *tableLog) created() { l.res.Created = true }
func (l *tableLog) columnAdded(c *schema.TargetColumn) { l.res.ColumnsAdded = append(l.res.ColumnsAdded, c) }

func (l *tableLog) columnRenamed(prior *schema.LiveColumn, target *schema.TargetColumn) {
	l.res.ColumnsRenamed = append(l.res.ColumnsRenamed, ColumnRename{Prior: prior, Target: target})
}

func (l *tableLog) indexUpdated(idx *schema.TargetIndex, dropped bool) {
	l.res.IndexesUpdated = append(l.res.IndexesUpdated, IndexChange{Index: idx, Dropped: dropped})
}

func (l *tableLog) freeze() *TableResult {
	out := l.res
	out.ColumnsAdded = append([]*schema.TargetColumn(nil), l.res.ColumnsAdded...)
	out.ColumnsRenamed = append([]ColumnRename(nil), l.res.ColumnsRenamed...)
	out.IndexesUpdated = append([]IndexChange(nil), l.res.IndexesUpdated...)
	return &out
}

package engine

import (
	"fmt"
	"strings"

	"db-automigrate/internal/schema"
)

// UnsafeChangeError is returned when a non-nullable column without a default
// would be added to, or changed on, a table that already holds rows.
type UnsafeChangeError struct {
	Table  string
	Column *schema.TargetColumn
	// Prior is nil for an add.
	Prior *schema.LiveColumn
}

func (e *UnsafeChangeError) Error() string {
	if e.Prior != nil {
		return fmt.Sprintf("table %s has rows: changing column %s to %s (NOT NULL, no default) requires a default value or an empty table",
			e.Table, e.Prior.Name, e.Column.Name)
	}
	return fmt.Sprintf("table %s has rows: adding column %s (NOT NULL, no default) requires a default value or an empty table",
		e.Table, e.Column.Name)
}

// UnsupportedChangeError is returned by DenyChanges when a live column matches a
// target column but differs structurally.
type UnsupportedChangeError struct {
	Table  string
	Prior  *schema.LiveColumn
	Target *schema.TargetColumn
}

func (e *UnsupportedChangeError) Error() string {
	return fmt.Sprintf("table %s: unsupported change of column %s [%s] to %s [%s]",
		e.Table, e.Prior.Name, e.Prior.Column, e.Target.Name, e.Target.Column)
}

// MigrationFailedError aborts a run. Result holds the mutations recorded before
// the failure; all of them were rolled back.
type MigrationFailedError struct {
	Err    error
	Result *Result
}

func (e *MigrationFailedError) Error() string {
	var sb strings.Builder
	sb.WriteString("automatic migration failed: ")
	sb.WriteString(e.Err.Error())
	if e.Result != nil && !e.Result.Empty() {
		sb.WriteString("\n")
		sb.WriteString(e.Result.Log())
	}
	return sb.String()
}

func (e *MigrationFailedError) Unwrap() error { return e.Err }

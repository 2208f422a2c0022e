package dialect

import (
	"context"
	"database/sql"

	"db-automigrate/internal/schema"
	"db-automigrate/internal/sqlfrag"
)

// Querier is the part of *sql.Tx, *sql.Conn and *sql.DB the drivers need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Driver abstracts database-specific schema operations.
//
// Statement methods only build SQL; the caller executes them immediately so that
// later decisions observe the mutated schema.
type Driver interface {
	Name() string
	Placeholder(index int) string // Returns $1, @p1, etc.
	DefaultSchema() string

	// Rendering
	EscapeIdentifier(name string) string
	RenderColumnType(c *schema.TargetColumn) string
	ClassifyType(name string) schema.TypeClass
	NormalizeType(name string) string
	NormalizeDefault(expr string) string

	// Catalog checks (Schema Introspection)
	TableExists(ctx context.Context, q Querier, name, schemaName string) (bool, error)
	HasAnyRows(ctx context.Context, q Querier, t *schema.TargetTable) (bool, error)
	LoadColumns(ctx context.Context, q Querier, t *schema.TargetTable) ([]*schema.LiveColumn, error)
	LoadIndexes(ctx context.Context, q Querier, t *schema.TargetTable) ([]*schema.LiveIndex, error)

	// DDL
	CreateTableStatement(t *schema.TargetTable, columns []*schema.TargetColumn) sqlfrag.Query
	AddColumnStatement(c *schema.TargetColumn) sqlfrag.Query
	RenameColumnStatement(t *schema.TargetTable, from, to string) sqlfrag.Query
	CreateIndexStatement(idx *schema.TargetIndex) sqlfrag.Query
	DropIndexStatement(t *schema.TargetTable, name string) sqlfrag.Query

	// ModelFingerprintExists reports whether fingerprint is the most recently applied
	// model. When it is not, it is appended to the log. The log table is created on
	// first use.
	ModelFingerprintExists(ctx context.Context, q Querier, logTable, fingerprint string) (bool, error)
}

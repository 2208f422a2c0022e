package dialect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"db-automigrate/internal/schema"
	"db-automigrate/internal/sqlfrag"
)

// SQLServer targets Microsoft SQL Server through github.com/microsoft/go-mssqldb.
type SQLServer struct{}

var (
	// sys.default_constraints reports CURRENT_TIMESTAMP as (getdate()).
	mssqlDefaults = map[string]string{
		"current_timestamp": "getdate()",
	}
	mssqlText    = map[string]bool{"nvarchar": true, "varchar": true}
	mssqlDecimal = map[string]bool{"decimal": true, "numeric": true}
)

func (d *SQLServer) Name() string { return "sqlserver" }

// go-mssqldb binds @p1, @p2 positionally.
func (d *SQLServer) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *SQLServer) DefaultSchema() string { return "dbo" }

func (d *SQLServer) EscapeIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d *SQLServer) ClassifyType(name string) schema.TypeClass {
	return classify(name, mssqlText, mssqlDecimal)
}

func (d *SQLServer) NormalizeType(sqlType string) string {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	switch t {
	case "numeric":
		return "decimal"
	case "integer":
		return "int"
	case "double precision":
		return "float"
	case "rowversion":
		return "timestamp"
	default:
		return t
	}
}

func (d *SQLServer) NormalizeDefault(expr string) string {
	return normalizeDefault(expr, mssqlDefaults)
}

// RenderColumnType renders type, size, nullability, IDENTITY and DEFAULT.
// Text columns without a length render as (MAX).
func (d *SQLServer) RenderColumnType(c *schema.TargetColumn) string {
	var sb strings.Builder
	sb.WriteString(c.Type)
	class := d.ClassifyType(c.Type)
	switch {
	case c.Length != nil && *c.Length > 0:
		sb.WriteString("(" + strconv.Itoa(*c.Length) + ")")
	case c.Length != nil || class.IsText:
		sb.WriteString("(MAX)")
	}
	if p, s, ok := schema.EffectivePrecision(c.Column, class); ok {
		fmt.Fprintf(&sb, "(%d,%d)", p, s)
	}
	if c.Nullable {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}
	if c.Identity {
		sb.WriteString(" IDENTITY(1,1)")
	} else if c.Default != "" {
		sb.WriteString(" DEFAULT " + c.Default)
	}
	return sb.String()
}

func (d *SQLServer) TableExists(ctx context.Context, q Querier, name, schemaName string) (bool, error) {
	return tableExists(ctx, q, d, name, schemaName)
}

func (d *SQLServer) HasAnyRows(ctx context.Context, q Querier, t *schema.TargetTable) (bool, error) {
	return queryExists(ctx, q, d, sqlfrag.Literal("SELECT TOP (1) 1 FROM "+t.EscapedName))
}

func (d *SQLServer) LoadColumns(ctx context.Context, q Querier, t *schema.TargetTable) ([]*schema.LiveColumn, error) {
	stmt := sqlfrag.New(
		sqlfrag.Lit(`SELECT c.COLUMN_NAME, c.DATA_TYPE, c.CHARACTER_MAXIMUM_LENGTH, c.NUMERIC_PRECISION, c.NUMERIC_SCALE, c.IS_NULLABLE,
	COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity'),
	c.COLUMN_DEFAULT
FROM INFORMATION_SCHEMA.COLUMNS c
WHERE c.TABLE_SCHEMA = `), sqlfrag.Param(t.Schema),
		sqlfrag.Lit(" AND c.TABLE_NAME = "), sqlfrag.Param(t.Name),
		sqlfrag.Lit(" ORDER BY c.ORDINAL_POSITION"),
	)
	return loadColumns(ctx, q, d, stmt)
}

// LoadIndexes returns non-primary-key indexes with their key columns in order.
func (d *SQLServer) LoadIndexes(ctx context.Context, q Querier, t *schema.TargetTable) ([]*schema.LiveIndex, error) {
	stmt := sqlfrag.New(
		sqlfrag.Lit(`SELECT i.name, i.is_unique, i.filter_definition, c.name
FROM sys.indexes i
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
WHERE i.object_id = OBJECT_ID(`), sqlfrag.Param(t.EscapedName),
		sqlfrag.Lit(`) AND i.is_primary_key = 0 AND i.is_unique_constraint = 0 AND ic.is_included_column = 0
ORDER BY i.name, ic.key_ordinal`),
	)
	return loadIndexes(ctx, q, d, stmt)
}

func (d *SQLServer) CreateTableStatement(t *schema.TargetTable, columns []*schema.TargetColumn) sqlfrag.Query {
	return createTable(d, t, columns, "")
}

func (d *SQLServer) AddColumnStatement(c *schema.TargetColumn) sqlfrag.Query {
	return sqlfrag.Literal("ALTER TABLE " + c.Table.EscapedName + " ADD " + columnDefinition(d, c))
}

// RenameColumnStatement uses sp_rename; both names are bound.
func (d *SQLServer) RenameColumnStatement(t *schema.TargetTable, from, to string) sqlfrag.Query {
	return sqlfrag.New(
		sqlfrag.Lit("EXEC sp_rename "),
		sqlfrag.Param(t.EscapedName+"."+d.EscapeIdentifier(from)),
		sqlfrag.Lit(", "),
		sqlfrag.Param(to),
		sqlfrag.Lit(", 'COLUMN'"),
	)
}

func (d *SQLServer) CreateIndexStatement(idx *schema.TargetIndex) sqlfrag.Query {
	kind := "NONCLUSTERED INDEX "
	if idx.Unique {
		kind = "UNIQUE " + kind
	}
	text := "CREATE " + kind + d.EscapeIdentifier(idx.Name) + " ON " + idx.Table.EscapedName +
		" (" + escapeAll(d, idx.Columns, " ASC") + ")"
	if idx.Filter != "" {
		text += " WHERE " + idx.Filter
	}
	return sqlfrag.Literal(text)
}

func (d *SQLServer) DropIndexStatement(t *schema.TargetTable, name string) sqlfrag.Query {
	return sqlfrag.Literal("DROP INDEX " + d.EscapeIdentifier(name) + " ON " + t.EscapedName)
}

func (d *SQLServer) ModelFingerprintExists(ctx context.Context, q Querier, logTable, fingerprint string) (bool, error) {
	return modelFingerprintExists(ctx, q, d, logTable, fingerprint)
}

func (d *SQLServer) logColumnTypes() (string, string) { return "datetime2", "nvarchar" }

func (d *SQLServer) latestFingerprintStatement(t *schema.TargetTable) sqlfrag.Query {
	return sqlfrag.Literal("SELECT TOP (1) " + d.EscapeIdentifier(logModelColumn) + " FROM " + t.EscapedName +
		" ORDER BY " + d.EscapeIdentifier(logDateColumn) + " DESC")
}

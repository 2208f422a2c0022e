package dialect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"db-automigrate/internal/schema"
	"db-automigrate/internal/sqlfrag"
)

// Postgres targets PostgreSQL through lib/pq or pgx.
type Postgres struct{}

var (
	pgDefaults = map[string]string{
		"current_timestamp":       "now()",
		"transaction_timestamp()": "now()",
	}
	pgText    = map[string]bool{"varchar": true, "character varying": true}
	pgDecimal = map[string]bool{"numeric": true, "decimal": true}
)

func (d *Postgres) Name() string { return "postgres" }

func (d *Postgres) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *Postgres) DefaultSchema() string { return "public" }

// EscapeIdentifier strips one pair of surrounding quotes before quoting, so
// pre-quoted names are not double escaped.
func (d *Postgres) EscapeIdentifier(name string) string {
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = name[1 : len(name)-1]
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Postgres) ClassifyType(name string) schema.TypeClass {
	return classify(name, pgText, pgDecimal)
}

func (d *Postgres) NormalizeType(sqlType string) string {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	switch t {
	case "character varying":
		return "varchar"
	case "character", "bpchar":
		return "char"
	case "int", "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "int2":
		return "smallint"
	case "bool":
		return "boolean"
	case "decimal":
		return "numeric"
	case "float8":
		return "double precision"
	case "float4":
		return "real"
	case "timestamp without time zone":
		return "timestamp"
	case "timestamp with time zone":
		return "timestamptz"
	default:
		return t
	}
}

func (d *Postgres) NormalizeDefault(expr string) string {
	return normalizeDefault(expr, pgDefaults)
}

// RenderColumnType renders type, size, nullability, identity and DEFAULT.
// Text columns without a length are emitted without one.
func (d *Postgres) RenderColumnType(c *schema.TargetColumn) string {
	var sb strings.Builder
	sb.WriteString(c.Type)
	class := d.ClassifyType(c.Type)
	if c.Length != nil && *c.Length > 0 {
		sb.WriteString("(" + strconv.Itoa(*c.Length) + ")")
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
		sb.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
	} else if c.Default != "" {
		sb.WriteString(" DEFAULT " + c.Default)
	}
	return sb.String()
}

func (d *Postgres) TableExists(ctx context.Context, q Querier, name, schemaName string) (bool, error) {
	return tableExists(ctx, q, d, name, schemaName)
}

func (d *Postgres) HasAnyRows(ctx context.Context, q Querier, t *schema.TargetTable) (bool, error) {
	return queryExists(ctx, q, d, sqlfrag.Literal("SELECT 1 FROM "+t.EscapedName+" LIMIT 1"))
}

func (d *Postgres) LoadColumns(ctx context.Context, q Querier, t *schema.TargetTable) ([]*schema.LiveColumn, error) {
	stmt := sqlfrag.New(
		sqlfrag.Lit(`SELECT c.column_name, c.data_type, c.character_maximum_length, c.numeric_precision, c.numeric_scale, c.is_nullable,
	CASE WHEN c.is_identity = 'YES' THEN 1 ELSE 0 END,
	c.column_default
FROM information_schema.columns c
WHERE c.table_schema = `), sqlfrag.Param(t.Schema),
		sqlfrag.Lit(" AND c.table_name = "), sqlfrag.Param(t.Name),
		sqlfrag.Lit(" ORDER BY c.ordinal_position"),
	)
	return loadColumns(ctx, q, d, stmt)
}

// LoadIndexes reads pg_index, skipping the primary key. Expression index members
// have no attribute and are reported with an empty column name.
func (d *Postgres) LoadIndexes(ctx context.Context, q Querier, t *schema.TargetTable) ([]*schema.LiveIndex, error) {
	stmt := sqlfrag.New(
		sqlfrag.Lit(`SELECT ic.relname, ix.indisunique, pg_get_expr(ix.indpred, ix.indrelid), COALESCE(a.attname, '')
FROM pg_index ix
JOIN pg_class tc ON tc.oid = ix.indrelid
JOIN pg_namespace ns ON ns.oid = tc.relnamespace
JOIN pg_class ic ON ic.oid = ix.indexrelid
CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
LEFT JOIN pg_attribute a ON a.attrelid = tc.oid AND a.attnum = k.attnum
WHERE ns.nspname = `), sqlfrag.Param(t.Schema),
		sqlfrag.Lit(" AND tc.relname = "), sqlfrag.Param(t.Name),
		sqlfrag.Lit(` AND NOT ix.indisprimary
ORDER BY ic.relname, k.ord`),
	)
	return loadIndexes(ctx, q, d, stmt)
}

func (d *Postgres) CreateTableStatement(t *schema.TargetTable, columns []*schema.TargetColumn) sqlfrag.Query {
	return createTable(d, t, columns, "CONSTRAINT "+d.EscapeIdentifier(t.Name+"_pkey")+" ")
}

func (d *Postgres) AddColumnStatement(c *schema.TargetColumn) sqlfrag.Query {
	return sqlfrag.Literal("ALTER TABLE " + c.Table.EscapedName + " ADD COLUMN " + columnDefinition(d, c))
}

func (d *Postgres) RenameColumnStatement(t *schema.TargetTable, from, to string) sqlfrag.Query {
	return sqlfrag.Literal("ALTER TABLE " + t.EscapedName + " RENAME COLUMN " +
		d.EscapeIdentifier(from) + " TO " + d.EscapeIdentifier(to))
}

func (d *Postgres) CreateIndexStatement(idx *schema.TargetIndex) sqlfrag.Query {
	kind := "INDEX "
	if idx.Unique {
		kind = "UNIQUE " + kind
	}
	text := "CREATE " + kind + d.EscapeIdentifier(idx.Name) + " ON " + idx.Table.EscapedName +
		" (" + escapeAll(d, idx.Columns, "") + ")"
	if idx.Filter != "" {
		text += " WHERE " + idx.Filter
	}
	return sqlfrag.Literal(text)
}

// DropIndexStatement qualifies the index with the table's schema; Postgres
// index names are schema scoped.
func (d *Postgres) DropIndexStatement(t *schema.TargetTable, name string) sqlfrag.Query {
	return sqlfrag.Literal("DROP INDEX IF EXISTS " + qualify(d, t.Schema, name))
}

func (d *Postgres) ModelFingerprintExists(ctx context.Context, q Querier, logTable, fingerprint string) (bool, error) {
	return modelFingerprintExists(ctx, q, d, logTable, fingerprint)
}

func (d *Postgres) logColumnTypes() (string, string) { return "timestamptz", "text" }

func (d *Postgres) latestFingerprintStatement(t *schema.TargetTable) sqlfrag.Query {
	return sqlfrag.Literal("SELECT " + d.EscapeIdentifier(logModelColumn) + " FROM " + t.EscapedName +
		" ORDER BY " + d.EscapeIdentifier(logDateColumn) + " DESC LIMIT 1")
}

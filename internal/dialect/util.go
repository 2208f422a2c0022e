package dialect

import (
	"context"
	"fmt"
	"strings"

	"db-automigrate/internal/schema"
	"db-automigrate/internal/sqlfrag"
)

// ExecError wraps a failed statement with the text and arguments that were sent.
type ExecError struct {
	Statement string
	Args      []any
	Err       error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exec %q: %v", e.Statement, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Exec renders stmt with the driver's placeholders and runs it on q.
func Exec(ctx context.Context, q Querier, d Driver, stmt sqlfrag.Query) error {
	text, args := stmt.Build(d.Placeholder)
	if _, err := q.ExecContext(ctx, text, args...); err != nil {
		return &ExecError{Statement: text, Args: args, Err: err}
	}
	return nil
}

// Render returns the statement text and arguments as they would be executed.
func Render(d Driver, stmt sqlfrag.Query) (string, []any) {
	return stmt.Build(d.Placeholder)
}

// queryExists runs stmt and reports whether it returned at least one row.
func queryExists(ctx context.Context, q Querier, d Driver, stmt sqlfrag.Query) (bool, error) {
	text, args := stmt.Build(d.Placeholder)
	rows, err := q.QueryContext(ctx, text, args...)
	if err != nil {
		return false, &ExecError{Statement: text, Args: args, Err: err}
	}
	defer rows.Close()
	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, err
	}
	return found, nil
}

// tableExists checks INFORMATION_SCHEMA, which both supported databases expose.
func tableExists(ctx context.Context, q Querier, d Driver, name, schemaName string) (bool, error) {
	if schemaName == "" {
		schemaName = d.DefaultSchema()
	}
	stmt := sqlfrag.New(
		sqlfrag.Lit("SELECT 1 FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = "), sqlfrag.Param(name),
		sqlfrag.Lit(" AND TABLE_SCHEMA = "), sqlfrag.Param(schemaName),
	)
	return queryExists(ctx, q, d, stmt)
}

func qualify(d Driver, schemaName, name string) string {
	return d.EscapeIdentifier(schemaName) + "." + d.EscapeIdentifier(name)
}

func escapeAll(d Driver, names []string, suffix string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.EscapeIdentifier(n) + suffix
	}
	return strings.Join(out, ", ")
}

// createTable renders CREATE TABLE with the given columns and a primary key over
// the key columns among them.
func createTable(d Driver, t *schema.TargetTable, columns []*schema.TargetColumn, pkPrefix string) sqlfrag.Query {
	defs := sqlfrag.NewList(", ", "")
	var keys []string
	for _, c := range columns {
		defs.Add(sqlfrag.Lit(columnDefinition(d, c)))
		if c.Key {
			keys = append(keys, c.Name)
		}
	}
	if len(keys) > 0 {
		defs.Add(sqlfrag.Lit(pkPrefix + "PRIMARY KEY (" + escapeAll(d, keys, "") + ")"))
	}
	return sqlfrag.New(
		sqlfrag.Lit("CREATE TABLE "+t.EscapedName+" ("),
		defs,
		sqlfrag.Lit(")"),
	)
}

func columnDefinition(d Driver, c *schema.TargetColumn) string {
	name := c.EscapedName
	if name == "" {
		name = d.EscapeIdentifier(c.Name)
	}
	return name + " " + d.RenderColumnType(c)
}

// normalizeDefault canonicalizes expr and maps equivalent spellings onto one form.
func normalizeDefault(expr string, same map[string]string) string {
	n := schema.NormalizeExpr(expr)
	if canonical, ok := same[n]; ok {
		return canonical
	}
	return n
}

func classify(name string, text, decimal map[string]bool) schema.TypeClass {
	n := strings.ToLower(strings.TrimSpace(name))
	return schema.TypeClass{IsText: text[n], IsDecimal: decimal[n]}
}

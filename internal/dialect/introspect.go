package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"db-automigrate/internal/schema"
	"db-automigrate/internal/sqlfrag"
)

// Column catalog queries select, in order: name, data type, character length,
// numeric precision, numeric scale, YES/NO nullability, identity as 0/1, default.
func loadColumns(ctx context.Context, q Querier, d Driver, stmt sqlfrag.Query) ([]*schema.LiveColumn, error) {
	text, args := stmt.Build(d.Placeholder)
	rows, err := q.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, &ExecError{Statement: text, Args: args, Err: err}
	}
	defer rows.Close()

	var cols []*schema.LiveColumn
	for rows.Next() {
		var (
			name, dataType, nullable string
			length, prec, scale      sql.NullInt64
			identity                 sql.NullInt64
			def                      sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &length, &prec, &scale, &nullable, &identity, &def); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c := &schema.LiveColumn{Column: schema.Column{
			Name:     name,
			Type:     dataType,
			Length:   nullInt(length),
			Nullable: strings.EqualFold(nullable, "YES"),
			Identity: identity.Valid && identity.Int64 == 1,
			Default:  strings.TrimSpace(def.String),
		}}
		if d.ClassifyType(dataType).IsDecimal {
			c.Precision = nullInt(prec)
			c.Scale = nullInt(scale)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Index catalog queries select one row per key column: index name, unique flag,
// filter predicate, column name. Rows are ordered by index name and key position.
func loadIndexes(ctx context.Context, q Querier, d Driver, stmt sqlfrag.Query) ([]*schema.LiveIndex, error) {
	text, args := stmt.Build(d.Placeholder)
	rows, err := q.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, &ExecError{Statement: text, Args: args, Err: err}
	}
	defer rows.Close()

	var (
		out     []*schema.LiveIndex
		current *schema.LiveIndex
	)
	for rows.Next() {
		var (
			name, column string
			unique       bool
			filter       sql.NullString
		)
		if err := rows.Scan(&name, &unique, &filter, &column); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		if current == nil || current.Name != name {
			current = &schema.LiveIndex{Name: name, Unique: unique, Filter: filter.String}
			out = append(out, current)
		}
		current.Columns = append(current.Columns, column)
	}
	return out, rows.Err()
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

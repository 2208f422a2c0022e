package engine

import (
	"fmt"
	"strings"

	"db-automigrate/internal/dialect"
	"db-automigrate/internal/model"
	"db-automigrate/internal/schema"
)

// BuildTables reads the model and returns the ordered target tables. Excluded
// entities and entities mapped to logTable are dropped.
func BuildTables(d dialect.Driver, src model.Source, logTable string) ([]*schema.TargetTable, error) {
	if logTable == "" {
		logTable = dialect.DefaultLogTable
	}
	entities, err := src.ListEntities()
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}

	var tables []*schema.TargetTable
	for _, e := range entities {
		if e.Excluded {
			continue
		}
		props, err := src.ListProperties(e)
		if err != nil {
			return nil, fmt.Errorf("list properties of %s: %w", e.Name, err)
		}
		indexes, err := src.ListIndexes(e)
		if err != nil {
			return nil, fmt.Errorf("list indexes of %s: %w", e.Name, err)
		}
		t, err := schema.NewTargetTable(e, props, indexes, d.EscapeIdentifier, d.DefaultSchema())
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(t.Name, logTable) && strings.EqualFold(t.Schema, d.DefaultSchema()) {
			continue
		}
		tables = append(tables, t)
	}
	return schema.Order(tables), nil
}

// Fingerprint renders the full target schema as DDL text. Two models with the
// same fingerprint produce the same schema.
func Fingerprint(d dialect.Driver, tables []*schema.TargetTable) string {
	var sb strings.Builder
	for _, t := range tables {
		sb.WriteString(d.CreateTableStatement(t, t.Columns).String())
		sb.WriteString(";\n")
	}
	for _, t := range tables {
		for _, idx := range t.Indexes {
			if t.IsKeyIndex(idx) {
				continue
			}
			sb.WriteString(d.CreateIndexStatement(idx).String())
			sb.WriteString(";\n")
		}
	}
	return sb.String()
}

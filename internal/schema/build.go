package schema

import (
	"fmt"
	"sort"
	"strings"

	"db-automigrate/internal/model"
)

// AmbiguousAliasError is a configuration error: one alias can only point at one column.
type AmbiguousAliasError struct {
	Table   string
	Alias   string
	Columns []string
}

func (e *AmbiguousAliasError) Error() string {
	return fmt.Sprintf("table %s: alias %q is claimed by more than one column (%s)",
		e.Table, e.Alias, strings.Join(e.Columns, ", "))
}

// Escaper quotes one identifier.
type Escaper func(name string) string

// NewTargetTable builds the descriptor for one entity. defaultSchema is used when
// the entity declares none.
func NewTargetTable(e model.Entity, props []model.Property, indexes []model.Index, escape Escaper, defaultSchema string) (*TargetTable, error) {
	t := &TargetTable{
		Entity:     e.Name,
		BaseEntity: e.BaseType,
		Owned:      e.Owned,
		Name:       e.Table,
		Schema:     e.Schema,
	}
	if t.Name == "" {
		t.Name = e.Name
	}
	if t.Schema == "" {
		t.Schema = defaultSchema
	}
	t.EscapedName = escape(t.Schema) + "." + escape(t.Name)

	seen := make(map[string]bool, len(props))
	for _, p := range props {
		key := strings.ToLower(p.Column)
		if seen[key] {
			return nil, fmt.Errorf("table %s: column %s declared twice", t, p.Column)
		}
		seen[key] = true

		c := &TargetColumn{
			Column: Column{
				Name:      p.Column,
				Type:      p.Type,
				Precision: p.Precision,
				Scale:     p.Scale,
				Nullable:  p.Nullable,
				Identity:  p.Identity,
				Default:   strings.TrimSpace(p.Default),
			},
			Table:       t,
			EscapedName: escape(p.Column),
			Key:         p.Key,
			Aliases:     append([]string(nil), p.Aliases...),
		}
		if p.Length != nil {
			l := int(*p.Length)
			if p.Length.IsUnbounded() {
				l = Unbounded
			}
			c.Length = &l
		}
		t.Columns = append(t.Columns, c)
	}

	if err := validateAliases(t); err != nil {
		return nil, err
	}

	for _, ix := range indexes {
		if len(ix.Columns) == 0 {
			return nil, fmt.Errorf("table %s: index without columns", t)
		}
		// declared spelling, so the generated name does not depend on case
		columns := make([]string, len(ix.Columns))
		for i, name := range ix.Columns {
			if c := t.Column(name); c != nil {
				name = c.Name
			}
			columns[i] = name
		}
		t.Indexes = append(t.Indexes, &TargetIndex{
			Table:   t,
			Name:    IndexName(t.Name, columns, ix.Unique),
			Columns: columns,
			Unique:  ix.Unique,
			Filter:  strings.TrimSpace(ix.Filter),
		})
	}
	return t, nil
}

// validateAliases rejects aliases claimed by two columns or colliding with another
// column's current name.
func validateAliases(t *TargetTable) error {
	owner := make(map[string]string)
	for _, c := range t.Columns {
		owner[strings.ToLower(c.Name)] = c.Name
	}

	claimed := make(map[string][]string)
	spelled := make(map[string]string)
	for _, c := range t.Columns {
		for _, a := range c.Aliases {
			k := strings.ToLower(a)
			if k == strings.ToLower(c.Name) {
				continue
			}
			if other, ok := owner[k]; ok {
				return &AmbiguousAliasError{Table: t.String(), Alias: a, Columns: []string{other, c.Name}}
			}
			claimed[k] = append(claimed[k], c.Name)
			if _, ok := spelled[k]; !ok {
				spelled[k] = a
			}
		}
	}

	aliases := make([]string, 0, len(claimed))
	for a := range claimed {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	for _, a := range aliases {
		if cols := claimed[a]; len(cols) > 1 {
			return &AmbiguousAliasError{Table: t.String(), Alias: spelled[a], Columns: cols}
		}
	}
	return nil
}

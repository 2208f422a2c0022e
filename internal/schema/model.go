package schema

import (
	"fmt"
	"strings"
)

// Unbounded marks a MAX-sized column length.
const Unbounded = -1

// Default precision and scale used when a decimal column declares none.
const (
	DefaultPrecision = 18
	DefaultScale     = 2
)

// TypeClass is the family-level classification of a column type.
type TypeClass struct {
	IsText    bool
	IsDecimal bool
}

// Column is the structural shape shared by target and live columns.
type Column struct {
	Name      string
	Type      string
	Length    *int
	Precision *int
	Scale     *int
	Nullable  bool
	Identity  bool
	Default   string
}

func (c Column) String() string {
	var sb strings.Builder
	sb.WriteString(c.Type)
	if c.Length != nil {
		if *c.Length == Unbounded {
			sb.WriteString("(max)")
		} else {
			fmt.Fprintf(&sb, "(%d)", *c.Length)
		}
	}
	if c.Precision != nil {
		scale := 0
		if c.Scale != nil {
			scale = *c.Scale
		}
		fmt.Fprintf(&sb, "(%d,%d)", *c.Precision, scale)
	}
	if c.Nullable {
		sb.WriteString(" null")
	} else {
		sb.WriteString(" not null")
	}
	if c.Identity {
		sb.WriteString(" identity")
	}
	if c.Default != "" {
		sb.WriteString(" default ")
		sb.WriteString(c.Default)
	}
	return sb.String()
}

// TargetColumn is a column the model wants to exist.
type TargetColumn struct {
	Column
	Table       *TargetTable
	EscapedName string
	Key         bool
	// Aliases are prior names, used only to detect renames.
	Aliases []string
}

// QualifiedName returns schema.table.column, unescaped.
func (c *TargetColumn) QualifiedName() string {
	return c.Table.Schema + "." + c.Table.Name + "." + c.Name
}

// LiveColumn is a column read from the database catalog.
type LiveColumn struct {
	Column
}

// TargetIndex is an index the model wants to exist.
type TargetIndex struct {
	Table   *TargetTable
	Name    string
	Columns []string
	Unique  bool
	Filter  string
}

// LiveIndex is an index read from the database catalog.
type LiveIndex struct {
	Name    string
	Columns []string
	Unique  bool
	Filter  string
}

// TargetTable is the desired shape of one table.
type TargetTable struct {
	Entity     string
	BaseEntity string
	Owned      bool

	Name   string
	Schema string
	// EscapedName is the escaped schema-qualified name.
	EscapedName string

	Columns []*TargetColumn
	Indexes []*TargetIndex
}

// Keys returns the primary-key columns in declaration order.
func (t *TargetTable) Keys() []*TargetColumn {
	var keys []*TargetColumn
	for _, c := range t.Columns {
		if c.Key {
			keys = append(keys, c)
		}
	}
	return keys
}

// NonKeys returns every column that is not part of the primary key.
func (t *TargetTable) NonKeys() []*TargetColumn {
	var cols []*TargetColumn
	for _, c := range t.Columns {
		if !c.Key {
			cols = append(cols, c)
		}
	}
	return cols
}

// Column looks a column up by name, case-insensitively.
func (t *TargetTable) Column(name string) *TargetColumn {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// IsKeyIndex reports whether idx is unique over exactly the primary-key columns,
// which makes it redundant with the primary-key constraint.
func (t *TargetTable) IsKeyIndex(idx *TargetIndex) bool {
	if !idx.Unique {
		return false
	}
	keys := t.Keys()
	if len(keys) == 0 || len(keys) != len(idx.Columns) {
		return false
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k.Name)] = true
	}
	for _, c := range idx.Columns {
		if !set[strings.ToLower(c)] {
			return false
		}
		delete(set, strings.ToLower(c))
	}
	return true
}

func (t *TargetTable) String() string {
	return t.Schema + "." + t.Name
}

// Package model describes the object model the target schema is derived from.
// It is the boundary with whatever introspects the application's entities.
package model

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entity is one mapped type.
type Entity struct {
	Name       string     `yaml:"name"`
	Table      string     `yaml:"table"`
	Schema     string     `yaml:"schema"`
	BaseType   string     `yaml:"base"`
	Owned      bool       `yaml:"owned"`
	Excluded   bool       `yaml:"exclude"`
	Properties []Property `yaml:"properties"`
	Indexes    []Index    `yaml:"indexes"`
}

// Property maps to one column.
type Property struct {
	Column    string   `yaml:"column"`
	Type      string   `yaml:"type"`
	Length    *Length  `yaml:"length"`
	Precision *int     `yaml:"precision"`
	Scale     *int     `yaml:"scale"`
	Nullable  bool     `yaml:"nullable"`
	Identity  bool     `yaml:"identity"`
	Default   string   `yaml:"default"`
	Key       bool     `yaml:"key"`
	Aliases   []string `yaml:"aliases"`
}

// Index is declared over property column names.
type Index struct {
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
	Filter  string   `yaml:"filter"`
}

// Unbounded is the length sentinel for MAX-sized columns.
const Unbounded = -1

// Length of a character or binary column. Unbounded means no limit.
type Length int

// UnmarshalYAML accepts an integer or the word "max".
func (l *Length) UnmarshalYAML(n *yaml.Node) error {
	v := strings.TrimSpace(n.Value)
	if strings.EqualFold(v, "max") {
		*l = Unbounded
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid length %q: %w", v, err)
	}
	*l = Length(i)
	return nil
}

// IsUnbounded reports whether l carries the MAX sentinel.
func (l Length) IsUnbounded() bool { return int(l) == Unbounded }

// Source is the model-introspection collaborator.
type Source interface {
	ListEntities() ([]Entity, error)
	ListProperties(e Entity) ([]Property, error)
	ListIndexes(e Entity) ([]Index, error)
}

// Static serves entities held in memory.
type Static []Entity

func (s Static) ListEntities() ([]Entity, error) { return s, nil }

func (s Static) ListProperties(e Entity) ([]Property, error) { return e.Properties, nil }

func (s Static) ListIndexes(e Entity) ([]Index, error) { return e.Indexes, nil }

// WithSchema returns a copy in which entities without a schema use schema.
func (s Static) WithSchema(schema string) Static {
	out := make(Static, len(s))
	copy(out, s)
	for i := range out {
		if out[i].Schema == "" {
			out[i].Schema = schema
		}
	}
	return out
}

// IntPtr is a convenience for optional numeric fields.
func IntPtr(i int) *int { return &i }

// LengthPtr is a convenience for optional lengths.
func LengthPtr(i int) *Length {
	l := Length(i)
	return &l
}

package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk model layout.
type Document struct {
	Schema   string   `yaml:"schema"`
	Entities []Entity `yaml:"entities"`
}

// LoadFile reads a YAML model. Entities without a schema inherit the document schema.
func LoadFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML model document.
func Parse(data []byte) (Static, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}

	seen := make(map[string]bool)
	for i := range doc.Entities {
		e := &doc.Entities[i]
		if e.Name == "" {
			return nil, fmt.Errorf("entity #%d has no name", i+1)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("entity %s declared twice", e.Name)
		}
		seen[e.Name] = true
		if e.Table == "" {
			e.Table = e.Name
		}
		if e.Schema == "" {
			e.Schema = doc.Schema
		}
		for j, p := range e.Properties {
			if p.Column == "" || p.Type == "" {
				return nil, fmt.Errorf("entity %s: property #%d needs column and type", e.Name, j+1)
			}
		}
	}
	for _, e := range doc.Entities {
		if e.BaseType != "" && !seen[e.BaseType] {
			return nil, fmt.Errorf("entity %s: unknown base type %s", e.Name, e.BaseType)
		}
	}
	return Static(doc.Entities), nil
}

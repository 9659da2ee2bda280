// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// DefaultSchema returns the fields extracted when no schema file is given.
func DefaultSchema() types.Schema {
	return types.Schema{
		{Name: "材料", Description: "文中研究的材料或化学体系"},
		{Name: "工艺", Description: "使用的制备或处理方法"},
		{Name: "性能", Description: "关键性能指标数值或趋势"},
	}
}

// LoadSchema reads a field schema from a YAML file. Two shapes are
// accepted: a mapping of name to description, whose key order becomes the
// field order, or a sequence of {name, description} entries.
func LoadSchema(path string) (types.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("schema %s is empty", path)
	}

	root := doc.Content[0]
	var schema types.Schema
	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			schema = append(schema, types.ExtractionField{
				Name:        root.Content[i].Value,
				Description: root.Content[i+1].Value,
			})
		}
	case yaml.SequenceNode:
		if err := root.Decode(&schema); err != nil {
			return nil, fmt.Errorf("decoding schema %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("schema %s: expected mapping or list", path)
	}

	if err := validateSchema(schema); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return schema, nil
}

func validateSchema(schema types.Schema) error {
	if len(schema) == 0 {
		return fmt.Errorf("no fields defined")
	}
	seen := make(map[string]bool, len(schema))
	for i, f := range schema {
		if f.Name == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

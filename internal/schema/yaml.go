package schema

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/nathanial/ledger-sub001/internal/datom"
)

// LoadYAML reads a schema declaration file (a top-level `attributes:` list,
// one entry per attribute) and returns the assembled Schema. Absent optional
// fields take the same defaults loadOne applies when reassembling a schema
// from the indexes: cardinality one, no uniqueness, not indexed, not a
// component.
func LoadYAML(path string) (Schema, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}

	raw := v.Get("attributes")
	if raw == nil {
		return Schema{}, nil
	}
	rawSlice, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("schema: attributes must be a list, got %T", raw)
	}

	out := make(Schema, len(rawSlice))
	for i, item := range rawSlice {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("schema: attributes[%d]: expected map, got %T", i, item)
		}
		as, err := attributeSchemaFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("schema: attributes[%d]: %w", i, err)
		}
		out[as.Ident] = as
	}
	return out, nil
}

func attributeSchemaFromMap(m map[string]any) (AttributeSchema, error) {
	var as AttributeSchema

	ident, ok := m["ident"].(string)
	if !ok || strings.TrimSpace(ident) == "" {
		return as, fmt.Errorf("missing 'ident' field")
	}
	as.Ident = datom.Attribute(ident)

	valueType, ok := m["valueType"].(string)
	if !ok || strings.TrimSpace(valueType) == "" {
		return as, fmt.Errorf("%s: missing 'valueType' field", ident)
	}
	as.ValueType = ValueType(valueType)

	as.Cardinality = CardinalityOne
	if c, ok := m["cardinality"].(string); ok && c != "" {
		as.Cardinality = Cardinality(c)
	}

	if u, ok := m["unique"].(string); ok && u != "" {
		as.Unique = Unique(u)
	}
	if idx, ok := m["indexed"].(bool); ok {
		as.Indexed = idx
	}
	if comp, ok := m["component"].(bool); ok {
		as.Component = comp
	}
	if doc, ok := m["doc"].(string); ok {
		as.Doc = strings.TrimSpace(doc)
	}
	return as, nil
}

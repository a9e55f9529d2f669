package entity

import (
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"

	"entity-mapper/fieldkind"
)

// DecodeYAML populates target from a YAML mapping document.
func (m *Mapper) DecodeYAML(data []byte, target any) error {
	var src Map
	if err := yaml.Unmarshal(data, &src); err != nil {
		return fmt.Errorf("decoding YAML document: %w", err)
	}

	if src == nil {
		return fmt.Errorf("decoding YAML document: %w", newError(ErrUnsupportedValue, nil, "", "document is empty"))
	}

	return m.FromMap(target, src)
}

// EncodeYAML converts v with ToMap and renders it with keys in field declaration
// order at every entity level.
func (m *Mapper) EncodeYAML(v any) ([]byte, error) {
	src, err := m.ToMap(v)
	if err != nil {
		return nil, err
	}

	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	node, err := m.yamlNode(t, src)
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("encoding YAML document: %w", err)
	}

	return data, nil
}

func (m *Mapper) yamlNode(t reflect.Type, src Map) (*yaml.Node, error) {
	schema, err := m.SchemaOf(t)
	if err != nil {
		return nil, err
	}

	node := &yaml.Node{Kind: yaml.MappingNode}

	for i := range schema.Fields {
		f := &schema.Fields[i]

		val, ok := src[f.Key]
		if !f.Exported || !ok {
			continue
		}

		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}

		var child *yaml.Node

		nested, isMap := val.(Map)
		if isMap && f.Kind == fieldkind.KindEntity {
			child, err = m.yamlNode(f.Elem(), nested)
			if err != nil {
				return nil, err
			}
		} else {
			child = &yaml.Node{}
			if err := child.Encode(val); err != nil {
				return nil, fmt.Errorf("encoding field %s: %w", f.Key, err)
			}
		}

		node.Content = append(node.Content, key, child)
	}

	return node, nil
}

// Package schema describes the expected structure of model responses
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Type identifies the kind of value a schema node expects
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeArray   Type = "array"

	// TypeText marks the response as unstructured plain text.
	// A schema containing a text node anywhere disables JSON enforcement
	// for the whole response; callers use streaming or raw-text handling.
	TypeText Type = "text"
)

var validTypes = map[Type]bool{
	TypeString:  true,
	TypeInteger: true,
	TypeNumber:  true,
	TypeBoolean: true,
	TypeObject:  true,
	TypeArray:   true,
	TypeText:    true,
}

// Node is one node in a recursive response schema.
// Properties and Items are only meaningful for object and array nodes.
type Node struct {
	Type        Type             `json:"type" yaml:"type"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]*Node `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string         `json:"required,omitempty" yaml:"required,omitempty"`
	Items       *Node            `json:"items,omitempty" yaml:"items,omitempty"`
}

// Validate checks the node tree for structural problems: unknown types,
// required entries naming undeclared properties, and required lists on
// non-object nodes (required on an array is not meaningful).
func (n *Node) Validate() error {
	return n.validate("response")
}

func (n *Node) validate(path string) error {
	if n == nil {
		return fmt.Errorf("schema at '%s' is missing", path)
	}
	if !validTypes[n.Type] {
		return fmt.Errorf("unrecognized type %q at '%s'", n.Type, path)
	}
	if n.Type != TypeObject && len(n.Required) > 0 {
		return fmt.Errorf("'required' at '%s' is only valid on object schemas", path)
	}
	if n.Type == TypeObject {
		for _, name := range n.Required {
			if _, ok := n.Properties[name]; !ok {
				return fmt.Errorf("'required' at '%s' names undeclared property %q", path, name)
			}
		}
		for name, prop := range n.Properties {
			if err := prop.validate(path + ".properties." + name); err != nil {
				return err
			}
		}
	}
	if n.Type == TypeArray {
		if n.Items == nil {
			return fmt.Errorf("array schema at '%s' needs an 'items' schema", path)
		}
		if err := n.Items.validate(path + ".items"); err != nil {
			return err
		}
	}
	return nil
}

// HasText reports whether the node or any nested field is a text node
func (n *Node) HasText() bool {
	if n == nil {
		return false
	}
	if n.Type == TypeText {
		return true
	}
	for _, prop := range n.Properties {
		if prop.HasText() {
			return true
		}
	}
	if n.Items != nil && n.Items.HasText() {
		return true
	}
	return false
}

// ParseResponseNode interprets the raw 'response' object of a template.
// Two shapes are accepted: an explicit schema node (the object carries a
// "type" key with a recognized type string), or the legacy mapping of
// field name to schema node, which is folded into an implicit object root
// with every field required. An empty object means no structural
// constraint and yields a nil node.
func ParseResponseNode(raw map[string]json.RawMessage) (*Node, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	if typeRaw, ok := raw["type"]; ok {
		var typeName string
		if err := json.Unmarshal(typeRaw, &typeName); err == nil && validTypes[Type(typeName)] {
			buf, err := json.Marshal(raw)
			if err != nil {
				return nil, err
			}
			var node Node
			if err := json.Unmarshal(buf, &node); err != nil {
				return nil, fmt.Errorf("invalid response schema: %w", err)
			}
			return &node, nil
		}
	}

	root := &Node{
		Type:       TypeObject,
		Properties: make(map[string]*Node, len(raw)),
	}
	for name, body := range raw {
		var node Node
		if err := json.Unmarshal(body, &node); err != nil {
			return nil, fmt.Errorf("invalid schema for response field %q: %w", name, err)
		}
		root.Properties[name] = &node
		root.Required = append(root.Required, name)
	}
	sort.Strings(root.Required)
	return root, nil
}

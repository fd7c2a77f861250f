package schema

// ResponseFormat is the provider payload requesting structured output,
// as accepted by OpenAI-compatible chat completion endpoints.
type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// JSONSchema is the named schema wrapper inside a ResponseFormat
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// BuildResponseFormat converts a schema node tree into the provider
// payload. Returns nil when root is nil or contains a text node, meaning
// the response is unstructured and the caller should use plain-text or
// streaming handling. Descriptions are preserved verbatim; they are part
// of the instruction to the model, not just documentation.
func BuildResponseFormat(root *Node) *ResponseFormat {
	if root == nil || root.HasText() {
		return nil
	}
	return &ResponseFormat{
		Type: "json_schema",
		JSONSchema: &JSONSchema{
			Name:   "response",
			Strict: true,
			Schema: buildSchema(root),
		},
	}
}

func buildSchema(n *Node) map[string]any {
	out := map[string]any{"type": string(n.Type)}
	if n.Description != "" {
		out["description"] = n.Description
	}
	if n.Type == TypeObject {
		props := make(map[string]any, len(n.Properties))
		for name, prop := range n.Properties {
			props[name] = buildSchema(prop)
		}
		out["properties"] = props
		if len(n.Required) > 0 {
			required := make([]string, len(n.Required))
			copy(required, n.Required)
			out["required"] = required
		}
	}
	if n.Type == TypeArray && n.Items != nil {
		out["items"] = buildSchema(n.Items)
	}
	return out
}

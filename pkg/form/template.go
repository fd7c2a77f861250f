// Package form turns declarative prompt templates into rendered message
// lists and provider response-format payloads.
package form

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/promptform/promptform/pkg/schema"
)

// thinkingKey is claimed by the thinking-block splitter and may not be
// used as a response field.
const thinkingKey = "thinking"

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Message is one role/content pair of a rendered request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Template is an immutable prompt template: optional system text, user
// text with {name} placeholders, and a response schema. A nil response
// node means no structural constraint (plain text).
type Template struct {
	system      string
	user        string
	response    *schema.Node
	rawResponse json.RawMessage
	keys        []string
}

type templateDoc struct {
	System   string          `json:"system,omitempty"`
	User     string          `json:"user"`
	Response json.RawMessage `json:"response"`
}

// New builds a template from in-memory parts. The response node may be
// nil for an unconstrained (plain text) response.
func New(system, user string, response *schema.Node) (*Template, error) {
	if user == "" {
		return nil, &TemplateFormatError{Reason: "template must include a 'user' string"}
	}
	if response != nil {
		if err := response.Validate(); err != nil {
			return nil, &TemplateFormatError{Reason: err.Error()}
		}
		if err := checkReservedKeys(response); err != nil {
			return nil, err
		}
		if err := checkTextMixing(response); err != nil {
			return nil, err
		}
	}
	return &Template{
		system:   system,
		user:     user,
		response: response,
		keys:     scanPlaceholders(system, user),
	}, nil
}

// Parse builds a template from a JSON document with top-level keys
// 'system' (optional), 'user' (required) and 'response' (required, may
// be an empty object).
func Parse(data []byte) (*Template, error) {
	var doc templateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &TemplateFormatError{Reason: fmt.Sprintf("not a valid JSON template: %v", err)}
	}
	return fromDoc(doc)
}

// ParseYAML builds a template from a YAML document with the same shape
// as Parse.
func ParseYAML(data []byte) (*Template, error) {
	var doc struct {
		System   string         `yaml:"system"`
		User     string         `yaml:"user"`
		Response map[string]any `yaml:"response"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &TemplateFormatError{Reason: fmt.Sprintf("not a valid YAML template: %v", err)}
	}
	if doc.Response == nil {
		return nil, &TemplateFormatError{Reason: "template must include a 'response' object"}
	}
	raw, err := json.Marshal(doc.Response)
	if err != nil {
		return nil, &TemplateFormatError{Reason: fmt.Sprintf("invalid response schema: %v", err)}
	}
	return fromDoc(templateDoc{System: doc.System, User: doc.User, Response: raw})
}

// Load reads a template from a JSON or YAML file, chosen by extension.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

func fromDoc(doc templateDoc) (*Template, error) {
	if doc.User == "" {
		return nil, &TemplateFormatError{Reason: "template must include a 'user' string"}
	}
	if len(doc.Response) == 0 {
		return nil, &TemplateFormatError{Reason: "template must include a 'response' object"}
	}

	var rawFields map[string]json.RawMessage
	if err := json.Unmarshal(doc.Response, &rawFields); err != nil {
		return nil, &TemplateFormatError{Reason: fmt.Sprintf("'response' must be an object: %v", err)}
	}

	node, err := schema.ParseResponseNode(rawFields)
	if err != nil {
		return nil, &TemplateFormatError{Reason: err.Error()}
	}
	if node != nil {
		if err := node.Validate(); err != nil {
			return nil, &TemplateFormatError{Reason: err.Error()}
		}
		if err := checkReservedKeys(node); err != nil {
			return nil, err
		}
		if err := checkTextMixing(node); err != nil {
			return nil, err
		}
	}

	return &Template{
		system:      doc.System,
		user:        doc.User,
		response:    node,
		rawResponse: doc.Response,
		keys:        scanPlaceholders(doc.System, doc.User),
	}, nil
}

// checkReservedKeys rejects top-level response fields whose names are
// claimed elsewhere ('thinking' belongs to the thinking-block splitter).
// Applies to both accepted response shapes: the parsed root carries the
// top-level fields either way.
func checkReservedKeys(node *schema.Node) error {
	if node.Type != schema.TypeObject {
		return nil
	}
	if _, ok := node.Properties[thinkingKey]; ok {
		return &TemplateFormatError{Reason: "'thinking' is reserved and cannot be a response field"}
	}
	return nil
}

// checkTextMixing rejects a top-level text field standing next to other
// top-level fields; a text response must stand alone. Text nodes nested
// deeper are legal and mark the whole response as unstructured.
func checkTextMixing(node *schema.Node) error {
	if node.Type != schema.TypeObject || len(node.Properties) < 2 {
		return nil
	}
	for _, prop := range node.Properties {
		if prop.Type == schema.TypeText {
			return &TemplateFormatError{Reason: "a 'text' response cannot be mixed with structured fields"}
		}
	}
	return nil
}

// scanPlaceholders collects {name} tokens from system and user text in
// order of first appearance. Matching is single-level; literal braces
// have no escape mechanism.
func scanPlaceholders(parts ...string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, text := range parts {
		for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			if !seen[match[1]] {
				seen[match[1]] = true
				keys = append(keys, match[1])
			}
		}
	}
	return keys
}

// System returns the system prompt text, empty if none
func (t *Template) System() string { return t.system }

// User returns the user prompt text
func (t *Template) User() string { return t.user }

// Response returns the response schema root, nil when unconstrained
func (t *Template) Response() *schema.Node { return t.response }

// Keys returns the placeholder names appearing in the template text
func (t *Template) Keys() []string {
	keys := make([]string, len(t.keys))
	copy(keys, t.keys)
	return keys
}

// Unstructured reports whether the response is plain text (empty schema
// or any text node)
func (t *Template) Unstructured() bool {
	return t.response == nil || t.response.HasText()
}

// MarshalJSON serializes the template in its on-disk format. The
// original response object is preserved byte-for-byte when the template
// was loaded from a document.
func (t *Template) MarshalJSON() ([]byte, error) {
	doc := templateDoc{System: t.system, User: t.user, Response: t.rawResponse}
	if doc.Response == nil {
		if t.response != nil {
			raw, err := json.Marshal(t.response)
			if err != nil {
				return nil, err
			}
			doc.Response = raw
		} else {
			doc.Response = json.RawMessage("{}")
		}
	}
	return json.Marshal(doc)
}

// Save writes the template to path as JSON. Save then Load yields a
// template rendering identical messages for identical bindings.
func (t *Template) Save(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// UnmarshalJSON is the counterpart of MarshalJSON
func (t *Template) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

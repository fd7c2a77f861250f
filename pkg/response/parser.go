// Package response validates model output against a declared schema
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/promptform/promptform/pkg/schema"
)

var (
	codeFencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*\n?(.*?)\\s*```$")
	thinkingPattern  = regexp.MustCompile(`(?s)<think>(.*?)</think>(.*)`)
)

// Parse decodes and validates raw model output against the schema root.
// For a nil or text schema the trimmed raw string is returned as-is.
// Otherwise the output is decoded as JSON (markdown code fences are
// stripped first, models like to wrap JSON in them) and checked
// strictly: required fields must be present, primitive types must match
// exactly with no coercion, array items must satisfy the item schema.
// Fields outside the schema pass through unchanged; the schema is a
// floor, not a ceiling.
//
// Failures are typed: *InvalidJSONError when decoding fails,
// *SchemaMismatchError naming the offending field path otherwise.
func Parse(raw string, root *schema.Node) (any, error) {
	if root == nil || root.HasText() {
		return strings.TrimSpace(raw), nil
	}

	cleaned := StripCodeFence(raw)
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, &InvalidJSONError{Offset: decodeOffset(err), Err: err}
	}
	if dec.More() {
		return nil, &InvalidJSONError{
			Offset: dec.InputOffset(),
			Err:    errors.New("trailing data after JSON value"),
		}
	}

	return validate(value, root, "response")
}

func decodeOffset(err error) int64 {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Offset
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Offset
	}
	return -1
}

// validate walks the decoded value alongside the schema. Schema-typed
// integers and numbers are returned as int64 and float64; values outside
// the schema keep their decoded form.
func validate(value any, n *schema.Node, path string) (any, error) {
	switch n.Type {
	case schema.TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, mismatch(path, "string", value)
		}
		return s, nil

	case schema.TypeInteger:
		num, ok := value.(json.Number)
		if !ok {
			return nil, mismatch(path, "integer", value)
		}
		i, err := num.Int64()
		if err != nil {
			return nil, &SchemaMismatchError{Path: path, Reason: fmt.Sprintf("expected integer, got number %s", num)}
		}
		return i, nil

	case schema.TypeNumber:
		num, ok := value.(json.Number)
		if !ok {
			return nil, mismatch(path, "number", value)
		}
		f, err := num.Float64()
		if err != nil {
			return nil, &SchemaMismatchError{Path: path, Reason: fmt.Sprintf("unrepresentable number %s", num)}
		}
		return f, nil

	case schema.TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, mismatch(path, "boolean", value)
		}
		return b, nil

	case schema.TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, mismatch(path, "object", value)
		}
		for _, name := range n.Required {
			if _, present := obj[name]; !present {
				return nil, &SchemaMismatchError{Path: path + "." + name, Reason: "required field is missing"}
			}
		}
		out := make(map[string]any, len(obj))
		for name, fieldValue := range obj {
			prop, declared := n.Properties[name]
			if !declared {
				out[name] = fieldValue
				continue
			}
			checked, err := validate(fieldValue, prop, path+"."+name)
			if err != nil {
				return nil, err
			}
			out[name] = checked
		}
		return out, nil

	case schema.TypeArray:
		items, ok := value.([]any)
		if !ok {
			return nil, mismatch(path, "array", value)
		}
		out := make([]any, len(items))
		for i, item := range items {
			checked, err := validate(item, n.Items, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = checked
		}
		return out, nil

	default:
		return nil, &SchemaMismatchError{Path: path, Reason: fmt.Sprintf("cannot validate against type %q", n.Type)}
	}
}

func mismatch(path, want string, got any) *SchemaMismatchError {
	return &SchemaMismatchError{Path: path, Reason: fmt.Sprintf("expected %s, got %s", want, typeName(got))}
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// StripCodeFence removes a surrounding markdown code fence from model
// output. Handles ```json\n...\n``` and plain ``` fences.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if matches := codeFencePattern.FindStringSubmatch(s); len(matches) == 2 {
		return strings.TrimSpace(matches[1])
	}
	return s
}

// SplitThinking separates a leading <think>...</think> block from the
// rest of a plain-text response. found is false when no block exists and
// rest is the whole trimmed input.
func SplitThinking(raw string) (thinking, rest string, found bool) {
	if matches := thinkingPattern.FindStringSubmatch(raw); len(matches) == 3 {
		return strings.TrimSpace(matches[1]), strings.TrimSpace(matches[2]), true
	}
	return "", strings.TrimSpace(raw), false
}

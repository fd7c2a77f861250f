package form

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptform/promptform/pkg/schema"
)

const basicTemplate = `{
	"system": "You are a helpful assistant. Instructions: {instructions}",
	"user": "I have a problem: {problem}",
	"response": {
		"solution": {"type": "string", "description": "Your solution."}
	}
}`

func TestParse_Basic(t *testing.T) {
	tmpl, err := Parse([]byte(basicTemplate))
	require.NoError(t, err)

	assert.Equal(t, []string{"instructions", "problem"}, tmpl.Keys())
	assert.False(t, tmpl.Unstructured())
	require.NotNil(t, tmpl.Response())
	assert.Equal(t, schema.TypeObject, tmpl.Response().Type)
}

func TestParse_MissingUser(t *testing.T) {
	_, err := Parse([]byte(`{"system": "hi", "response": {}}`))
	var formatErr *TemplateFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "'user'")
}

func TestParse_MissingResponse(t *testing.T) {
	_, err := Parse([]byte(`{"user": "hi"}`))
	var formatErr *TemplateFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "'response'")
}

func TestParse_UnrecognizedType(t *testing.T) {
	_, err := Parse([]byte(`{"user": "hi", "response": {"x": {"type": "uuid"}}}`))
	var formatErr *TemplateFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "unrecognized type")
}

func TestParse_RequiredNamingUndeclaredProperty(t *testing.T) {
	_, err := Parse([]byte(`{
		"user": "hi",
		"response": {
			"person": {
				"type": "object",
				"properties": {"name": {"type": "string"}},
				"required": ["name", "nickname"]
			}
		}
	}`))
	var formatErr *TemplateFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "undeclared property")
}

func TestParse_RequiredOnArrayRejected(t *testing.T) {
	_, err := Parse([]byte(`{
		"user": "hi",
		"response": {
			"items": {"type": "array", "items": {"type": "string"}, "required": ["x"]}
		}
	}`))
	var formatErr *TemplateFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestParse_EmptyResponseMeansPlainText(t *testing.T) {
	tmpl, err := Parse([]byte(`{"user": "hi", "response": {}}`))
	require.NoError(t, err)
	assert.True(t, tmpl.Unstructured())
	assert.Nil(t, tmpl.Response())
}

func TestParse_TextMixedWithStructuredRejected(t *testing.T) {
	_, err := Parse([]byte(`{
		"user": "hi",
		"response": {
			"summary": {"type": "text"},
			"extra": {"type": "string"}
		}
	}`))
	var formatErr *TemplateFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "cannot be mixed")
}

func TestParse_NestedTextLoadsAsUnstructured(t *testing.T) {
	tmpl, err := Parse([]byte(`{
		"user": "say {x}",
		"response": {
			"wrap": {"type": "array", "items": {"type": "text"}}
		}
	}`))
	require.NoError(t, err)
	assert.True(t, tmpl.Unstructured())
	assert.Nil(t, tmpl.Form().ResponseFormat())
}

func TestParse_ReservedThinkingFieldRejected(t *testing.T) {
	_, err := Parse([]byte(`{
		"user": "hi",
		"response": {"thinking": {"type": "string"}}
	}`))
	var formatErr *TemplateFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "reserved")

	// Same rule for the explicit-node response shape.
	_, err = Parse([]byte(`{
		"user": "hi",
		"response": {
			"type": "object",
			"properties": {"thinking": {"type": "string"}},
			"required": ["thinking"]
		}
	}`))
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "reserved")

	_, err = New("", "hi", &schema.Node{
		Type:       schema.TypeObject,
		Properties: map[string]*schema.Node{"thinking": {Type: schema.TypeString}},
	})
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "reserved")
}

func TestParseYAML(t *testing.T) {
	doc := `
system: "You are a helpful assistant."
user: "Summarize: {text}"
response:
  summary:
    type: text
`
	tmpl, err := ParseYAML([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"text"}, tmpl.Keys())
	assert.True(t, tmpl.Unstructured())
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "tmpl.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(basicTemplate), 0o644))
	tmpl, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"instructions", "problem"}, tmpl.Keys())

	yamlPath := filepath.Join(dir, "tmpl.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("user: \"hi {name}\"\nresponse:\n  answer:\n    type: string\n"), 0o644))
	tmpl, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, tmpl.Keys())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tmpl, err := Parse([]byte(basicTemplate))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, tmpl.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)

	bind := func(tm *Template) []Message {
		f := tm.Form()
		require.NoError(t, f.Put("instructions", "solve it"))
		require.NoError(t, f.Put("problem", "a wild animal in my livingroom"))
		messages, err := f.Messages()
		require.NoError(t, err)
		return messages
	}

	assert.Equal(t, bind(tmpl), bind(reloaded))
	assert.Equal(t, tmpl.Form().ResponseFormat(), reloaded.Form().ResponseFormat())
}

func TestNew_InMemory(t *testing.T) {
	tmpl, err := New("", "Say hello to {name}", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, tmpl.Keys())
	assert.True(t, tmpl.Unstructured())

	_, err = New("", "", nil)
	var formatErr *TemplateFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestScanPlaceholders_DeduplicatesAndOrders(t *testing.T) {
	tmpl, err := New("Rules: {rules} and again {rules}", "Do {task} with {rules}", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"rules", "task"}, tmpl.Keys())
}

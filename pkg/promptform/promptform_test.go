package promptform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptform/promptform/pkg/form"
	"github.com/promptform/promptform/pkg/llm"
	"github.com/promptform/promptform/pkg/response"
	"github.com/promptform/promptform/pkg/schema"
	"github.com/promptform/promptform/pkg/store"
)

// fakeClient is a canned transport for exercising the orchestration
// layer without a server.
type fakeClient struct {
	completion string
	fragments  []string
	err        error

	completeCalls int
	lastRequest   llm.Request
}

func (f *fakeClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.completeCalls++
	f.lastRequest = req
	if f.err != nil {
		return "", f.err
	}
	return f.completion, nil
}

func (f *fakeClient) Stream(ctx context.Context, req llm.Request) (response.FragmentReader, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return response.Fragments(f.fragments...), nil
}

func newCompleter(t *testing.T, cfg Config) *Completer {
	t.Helper()
	if cfg.Settings.Model == "" {
		cfg.Settings.Model = "test-model"
	}
	completer, err := New(cfg)
	require.NoError(t, err)
	return completer
}

func structuredForm(t *testing.T) *form.Form {
	t.Helper()
	tmpl, err := form.New("You extract facts.", "Describe {person}.", &schema.Node{
		Type: schema.TypeObject,
		Properties: map[string]*schema.Node{
			"name": {Type: schema.TypeString},
			"age":  {Type: schema.TypeInteger},
		},
		Required: []string{"name", "age"},
	})
	require.NoError(t, err)

	f := tmpl.Form()
	require.NoError(t, f.Put("person", "Alice"))
	return f
}

func textForm(t *testing.T) *form.Form {
	t.Helper()
	tmpl, err := form.New("", "Summarize {topic}.", nil)
	require.NoError(t, err)

	f := tmpl.Form()
	require.NoError(t, f.Put("topic", "tides"))
	return f
}

func TestComplete_Structured(t *testing.T) {
	client := &fakeClient{completion: `{"name": "Alice", "age": 30}`}
	completer := newCompleter(t, Config{Client: client})

	parsed, err := completer.Complete(context.Background(), structuredForm(t))
	require.NoError(t, err)

	tree, ok := parsed.(map[string]any)
	require.True(t, ok, "expected a map, got %T", parsed)
	assert.Equal(t, "Alice", tree["name"])
	assert.Equal(t, int64(30), tree["age"])

	// The rendered request carries the substituted prompt and a schema.
	require.Len(t, client.lastRequest.Messages, 2)
	assert.Equal(t, "Describe Alice.", client.lastRequest.Messages[1].Content)
	require.NotNil(t, client.lastRequest.ResponseFormat)
	assert.Equal(t, "json_schema", client.lastRequest.ResponseFormat.Type)
}

func TestComplete_TextTemplateReturnsRawString(t *testing.T) {
	client := &fakeClient{completion: "  The tides are caused by the moon.  "}
	completer := newCompleter(t, Config{Client: client})

	parsed, err := completer.Complete(context.Background(), textForm(t))
	require.NoError(t, err)
	assert.Equal(t, "The tides are caused by the moon.", parsed)
	assert.Nil(t, client.lastRequest.ResponseFormat)
}

func TestComplete_SchemaMismatchPropagates(t *testing.T) {
	client := &fakeClient{completion: `{"name": "Alice"}`}
	completer := newCompleter(t, Config{Client: client})

	_, err := completer.Complete(context.Background(), structuredForm(t))
	var mismatch *response.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "response.age", mismatch.Path)
}

func TestComplete_MissingPlaceholderFailsBeforeRequest(t *testing.T) {
	client := &fakeClient{completion: "never sent"}
	completer := newCompleter(t, Config{Client: client})

	tmpl, err := form.New("", "Describe {person}.", nil)
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), tmpl.Form())
	var missing *form.MissingPlaceholderError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"person"}, missing.Missing)
	assert.Zero(t, client.completeCalls)
}

func TestComplete_TransportErrorPropagates(t *testing.T) {
	wantErr := &llm.MaxRetriesError{Attempts: 4, Last: &llm.APIError{StatusCode: 503}}
	client := &fakeClient{err: wantErr}
	completer := newCompleter(t, Config{Client: client})

	_, err := completer.Complete(context.Background(), textForm(t))
	var retriesErr *llm.MaxRetriesError
	require.ErrorAs(t, err, &retriesErr)
	assert.Equal(t, 4, retriesErr.Attempts)
}

func TestComplete_CacheHitSkipsRequest(t *testing.T) {
	client := &fakeClient{completion: "from the wire"}
	cache := store.NewMemoryCache(0)
	defer cache.Close()
	completer := newCompleter(t, Config{Client: client, Cache: cache})

	first, err := completer.Complete(context.Background(), textForm(t))
	require.NoError(t, err)
	assert.Equal(t, "from the wire", first)
	assert.Equal(t, 1, client.completeCalls)

	// Same rendered request: answered from the cache.
	second, err := completer.Complete(context.Background(), textForm(t))
	require.NoError(t, err)
	assert.Equal(t, "from the wire", second)
	assert.Equal(t, 1, client.completeCalls)
}

func TestCompleteStream_DeliversFragmentsInOrder(t *testing.T) {
	client := &fakeClient{fragments: []string{"The ", "tides ", "rise."}}
	completer := newCompleter(t, Config{Client: client})

	var got []string
	full, err := completer.CompleteStream(context.Background(), textForm(t), func(fragment string) {
		got = append(got, fragment)
	})
	require.NoError(t, err)
	assert.Equal(t, "The tides rise.", full)
	assert.Equal(t, []string{"The ", "tides ", "rise."}, got)
}

func TestCompleteStream_RejectsStructuredTemplate(t *testing.T) {
	client := &fakeClient{fragments: []string{"never"}}
	completer := newCompleter(t, Config{Client: client})

	_, err := completer.CompleteStream(context.Background(), structuredForm(t), nil)
	var formatErr *form.TemplateFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestCompleteStream_CachesAccumulatedResult(t *testing.T) {
	client := &fakeClient{fragments: []string{"Hel", "lo"}}
	cache := store.NewMemoryCache(0)
	defer cache.Close()
	completer := newCompleter(t, Config{Client: client, Cache: cache})

	full, err := completer.CompleteStream(context.Background(), textForm(t), nil)
	require.NoError(t, err)
	require.Equal(t, "Hello", full)

	// A later non-streaming run of the same form hits the cache.
	client.completion = "should not be used"
	parsed, err := completer.Complete(context.Background(), textForm(t))
	require.NoError(t, err)
	assert.Equal(t, "Hello", parsed)
	assert.Zero(t, client.completeCalls)
}

func TestCompletion_SingleUse(t *testing.T) {
	client := &fakeClient{completion: "once"}
	completer := newCompleter(t, Config{Client: client})

	completion := completer.NewCompletion(textForm(t))
	assert.Equal(t, PhasePending, completion.Phase())
	assert.NotEmpty(t, completion.ID())

	_, err := completion.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, completion.Phase())

	_, err = completion.Run(context.Background())
	require.ErrorIs(t, err, ErrCompletionReused)

	_, err = completion.RunStream(context.Background(), nil)
	require.ErrorIs(t, err, ErrCompletionReused)
}

func TestCompletion_FailedPhase(t *testing.T) {
	client := &fakeClient{err: &llm.APIError{StatusCode: 500}}
	completer := newCompleter(t, Config{Client: client})

	completion := completer.NewCompletion(textForm(t))
	_, err := completion.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, completion.Phase())
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&form.TemplateFormatError{Reason: "x"}, "template_format"},
		{&form.UnknownPlaceholderError{Key: "x"}, "unknown_placeholder"},
		{&form.MissingPlaceholderError{Missing: []string{"x"}}, "missing_placeholder"},
		{&response.InvalidJSONError{Offset: 3}, "invalid_json"},
		{&response.SchemaMismatchError{Path: "response.x", Reason: "missing"}, "schema_mismatch"},
		{&response.StreamAbortedError{Partial: "p", Err: errors.New("reset")}, "stream_aborted"},
		{&llm.APIError{StatusCode: 400}, "transport"},
		{&llm.MaxRetriesError{Attempts: 2, Last: errors.New("x")}, "transport"},
		{&llm.ConfigError{Field: "model", Reason: "required"}, "config"},
		{context.Canceled, "canceled"},
		{errors.New("mystery"), "unknown"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, errorKind(tc.err), "for %v", tc.err)
	}
}

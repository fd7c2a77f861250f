package trace

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopExporter(t *testing.T) {
	exporter := NewNoopExporter()
	err := exporter.Export(context.Background(), &Record{
		Timestamp:    time.Now(),
		CompletionID: "id",
		Operation:    "complete",
		Status:       "success",
	})
	require.NoError(t, err)
	require.NoError(t, exporter.Close())
}

func TestRecordJSONShape(t *testing.T) {
	record := &Record{
		Timestamp:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		CompletionID: "abc-123",
		Operation:    "complete",
		Model:        "test-model",
		DurationMs:   42,
		Status:       "error",
		ErrorKind:    "schema_mismatch",
		Spans: []Span{
			{Name: "render", DurationMs: 1, OK: true},
			{Name: "request", DurationMs: 38, OK: true},
			{Name: "parse", DurationMs: 3, OK: false, ErrorKind: "schema_mismatch"},
		},
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc-123", decoded["completionId"])
	assert.Equal(t, "schema_mismatch", decoded["errorKind"])
	assert.Len(t, decoded["spans"], 3)

	// Success records omit the error kind entirely.
	data, err = json.Marshal(&Record{Status: "success"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "errorKind")
}

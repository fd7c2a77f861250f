package response

import "fmt"

// InvalidJSONError reports that the model output could not be decoded
// as JSON. Offset is the byte position the decoder failed at, -1 when
// the decoder did not report one. The caller may recover by
// re-prompting; this package never retries.
type InvalidJSONError struct {
	Offset int64
	Err    error
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("invalid JSON response at offset %d: %v", e.Offset, e.Err)
}

func (e *InvalidJSONError) Unwrap() error { return e.Err }

// SchemaMismatchError reports decoded JSON that does not conform to the
// declared schema. Path names the offending field, e.g.
// "response.items[2].name".
type SchemaMismatchError struct {
	Path   string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch at '%s': %s", e.Path, e.Reason)
}

// StreamAbortedError reports a fragment stream that terminated
// abnormally before completion. Partial holds the accumulated buffer up
// to the abort point; it is incomplete and must be treated as such.
type StreamAbortedError struct {
	Partial string
	Err     error
}

func (e *StreamAbortedError) Error() string {
	return fmt.Sprintf("stream aborted after %d bytes: %v", len(e.Partial), e.Err)
}

func (e *StreamAbortedError) Unwrap() error { return e.Err }

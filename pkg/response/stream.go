package response

import (
	"io"
	"strings"
)

// FragmentReader is a pull-based source of text fragments. Next returns
// the next fragment in arrival order, io.EOF when the stream is
// complete, or any other error when it terminated abnormally. Fragment
// boundaries are opaque; they align with no token or line boundary.
type FragmentReader interface {
	Next() (string, error)
}

// ChunkHandler receives one fragment. It runs to completion before the
// next fragment is pulled; delivery is strictly sequential.
type ChunkHandler func(fragment string)

// ParseStream folds a fragment stream into the final accumulated
// string, invoking onChunk (if non-nil) synchronously for each fragment
// in order. Only valid for plain-text responses. Abnormal termination
// fails with *StreamAbortedError carrying the buffer accumulated so
// far, clearly incomplete.
func ParseStream(frags FragmentReader, onChunk ChunkHandler) (string, error) {
	var sb strings.Builder
	for {
		fragment, err := frags.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", &StreamAbortedError{Partial: sb.String(), Err: err}
		}
		if onChunk != nil {
			onChunk(fragment)
		}
		sb.WriteString(fragment)
	}
}

// Fragments builds an in-memory FragmentReader over fixed fragments,
// useful for tests and replays.
func Fragments(frags ...string) FragmentReader {
	return &sliceReader{frags: frags}
}

type sliceReader struct {
	frags []string
	pos   int
}

func (r *sliceReader) Next() (string, error) {
	if r.pos >= len(r.frags) {
		return "", io.EOF
	}
	fragment := r.frags[r.pos]
	r.pos++
	return fragment, nil
}

package form

import (
	"fmt"
	"strings"
)

// TemplateFormatError reports a malformed template at load time.
// It is fatal: the template itself must be fixed, retrying cannot help.
type TemplateFormatError struct {
	Reason string
}

func (e *TemplateFormatError) Error() string {
	return "invalid template: " + e.Reason
}

// UnknownPlaceholderError reports a Put call with a key that does not
// appear anywhere in the template text. Failing fast here catches typos
// before the render.
type UnknownPlaceholderError struct {
	Key   string
	Valid []string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("unknown placeholder %q, valid placeholders are: %s",
		e.Key, strings.Join(e.Valid, ", "))
}

// MissingPlaceholderError reports a render attempted before every
// placeholder was bound. Missing always lists every unfilled name.
type MissingPlaceholderError struct {
	Missing []string
}

func (e *MissingPlaceholderError) Error() string {
	return "unfilled placeholders: " + strings.Join(e.Missing, ", ")
}

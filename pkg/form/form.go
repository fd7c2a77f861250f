package form

import (
	"strings"

	"github.com/promptform/promptform/pkg/schema"
)

// Form binds a template to a set of placeholder values. A form is not
// safe for concurrent use; create one per completion.
type Form struct {
	tmpl *Template
	data map[string]string
}

// Form creates a new, empty binding for the template
func (t *Template) Form() *Form {
	return &Form{
		tmpl: t,
		data: make(map[string]string, len(t.keys)),
	}
}

// Template returns the template this form is bound to
func (f *Form) Template() *Template { return f.tmpl }

// Keys returns the placeholder names the form accepts
func (f *Form) Keys() []string { return f.tmpl.Keys() }

// Put binds a value to a placeholder. Binding the same key twice
// silently overwrites. A key that does not appear in the template text
// fails with UnknownPlaceholderError.
func (f *Form) Put(key, value string) error {
	for _, k := range f.tmpl.keys {
		if k == key {
			f.data[key] = value
			return nil
		}
	}
	return &UnknownPlaceholderError{Key: key, Valid: f.tmpl.Keys()}
}

// Messages renders the message list: the system message first when the
// template has one, then the user message, with every {name} token
// substituted. Rendering is all-or-nothing: if any placeholder is
// unbound the render fails with MissingPlaceholderError naming every
// missing key, and nothing is returned.
func (f *Form) Messages() ([]Message, error) {
	var missing []string
	for _, key := range f.tmpl.keys {
		if _, ok := f.data[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingPlaceholderError{Missing: missing}
	}

	var messages []Message
	if f.tmpl.system != "" {
		messages = append(messages, Message{Role: "system", Content: f.substitute(f.tmpl.system)})
	}
	messages = append(messages, Message{Role: "user", Content: f.substitute(f.tmpl.user)})
	return messages, nil
}

// ResponseFormat returns the provider payload for structured output,
// nil when the template response is plain text or unconstrained.
func (f *Form) ResponseFormat() *schema.ResponseFormat {
	return schema.BuildResponseFormat(f.tmpl.response)
}

func (f *Form) substitute(text string) string {
	out := placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := token[1 : len(token)-1]
		if value, ok := f.data[name]; ok {
			return value
		}
		return token
	})
	return strings.TrimSpace(out)
}

package promptform

import (
	"github.com/promptform/promptform/pkg/form"
	"github.com/promptform/promptform/pkg/llm"
	"github.com/promptform/promptform/pkg/schema"
)

// Type re-exports for caller convenience

// Template is re-exported from the form package
type Template = form.Template

// Form is re-exported from the form package
type Form = form.Form

// Message is re-exported from the form package
type Message = form.Message

// SchemaNode is re-exported from the schema package
type SchemaNode = schema.Node

// Settings is re-exported from the llm package
type Settings = llm.Settings

// LoadTemplate is re-exported from the form package
var LoadTemplate = form.Load

// ParseTemplate is re-exported from the form package
var ParseTemplate = form.Parse

// NewTemplate is re-exported from the form package
var NewTemplate = form.New

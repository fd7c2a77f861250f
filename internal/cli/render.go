package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptform/promptform/pkg/form"
)

type renderOptions struct {
	Bindings []string
}

func newRenderCmd() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render a template's messages and response format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringArrayVarP(&opts.Bindings, "bind", "b", nil, "placeholder binding key=value (repeatable)")
	return cmd
}

func runRender(cmd *cobra.Command, opts *renderOptions, path string) error {
	f, err := loadForm(path, opts.Bindings)
	if err != nil {
		return err
	}

	messages, err := f.Messages()
	if err != nil {
		return err
	}
	for _, msg := range messages {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s]\n%s\n\n", msg.Role, msg.Content)
	}

	if format := f.ResponseFormat(); format != nil {
		encoded, err := json.MarshalIndent(format, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[response_format]\n%s\n", encoded)
	}
	return nil
}

func loadForm(path string, bindings []string) (*form.Form, error) {
	tmpl, err := form.Load(path)
	if err != nil {
		return nil, err
	}
	f := tmpl.Form()
	for _, binding := range bindings {
		key, value, found := strings.Cut(binding, "=")
		if !found {
			return nil, fmt.Errorf("invalid binding %q, expected key=value", binding)
		}
		if err := f.Put(key, value); err != nil {
			return nil, err
		}
	}
	return f, nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptform/promptform/pkg/form"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys TEMPLATE",
		Short: "List the placeholder keys of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := form.Load(args[0])
			if err != nil {
				return err
			}
			for _, key := range tmpl.Keys() {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}

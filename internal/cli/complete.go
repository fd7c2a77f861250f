package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptform/promptform/internal/config"
	"github.com/promptform/promptform/pkg/promptform"
	"github.com/promptform/promptform/pkg/store"
)

type completeOptions struct {
	Bindings []string
	Stream   bool
}

func newCompleteCmd() *cobra.Command {
	opts := &completeOptions{}
	cmd := &cobra.Command{
		Use:   "complete TEMPLATE",
		Short: "Run a completion for a template against the configured endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringArrayVarP(&opts.Bindings, "bind", "b", nil, "placeholder binding key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "stream the response (plain-text templates only)")
	return cmd
}

func runComplete(cmd *cobra.Command, opts *completeOptions, path string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	f, err := loadForm(path, opts.Bindings)
	if err != nil {
		return err
	}

	completerCfg := promptform.Config{Settings: cfg.Settings()}
	if cfg.Cache.Path != "" {
		cache, err := store.NewSQLiteCache(cfg.Cache.Path, cfg.CacheTTL())
		if err != nil {
			return err
		}
		defer cache.Close()
		completerCfg.Cache = cache
	}

	completer, err := promptform.New(completerCfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if opts.Stream {
		_, err := completer.CompleteStream(ctx, f, func(fragment string) {
			fmt.Fprint(cmd.OutOrStdout(), fragment)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	}

	parsed, err := completer.Complete(ctx, f)
	if err != nil {
		return err
	}

	switch v := parsed.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	default:
		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	}
	return nil
}

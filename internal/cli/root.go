// Package cli wires configuration, storage and transports into the crisprcat
// command tree.
package cli

import (
	"context"
	"fmt"

	"crisprcatalog/internal/config"
	"crisprcatalog/internal/core"
	"crisprcatalog/internal/logging"
	"crisprcatalog/pkg/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	cfg *config.Config
}

// Config returns the configuration resolved by the root pre-run hook.
func (o *RootOptions) Config() *config.Config {
	if o.cfg == nil {
		return config.Default()
	}
	return o.cfg
}

// NewRootCommand creates the root command for the crisprcat CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "crisprcat",
		Short: "crisprcat - CRISPR target-site catalog",
		Long: `crisprcat manages a catalog of pathogens and their CRISPR target sites.

It serves the catalog over HTTP, exports snapshots as JSON or CSV,
and offers an interactive terminal shell backed by the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json|console)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewSnapshotsCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// resolve loads the config file and environment, then applies flags the
// user set explicitly. Subcommand flags are applied by the subcommand.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.LogFormat
	}
	o.cfg = cfg
	return nil
}

// logger builds the zap logger described by the resolved config.
func (o *RootOptions) logger() (*zap.Logger, error) {
	cfg := o.Config()
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

// openStore validates the config and opens the configured relational store.
func (o *RootOptions) openStore(ctx context.Context) (domain.Store, error) {
	cfg := o.Config()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := core.OpenStore(ctx, cfg.Storage.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	return store, nil
}

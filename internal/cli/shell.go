package cli

import (
	"fmt"
	"os"

	"crisprcatalog/internal/client"
	"crisprcatalog/internal/logging"
	"crisprcatalog/internal/shell"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ShellOptions holds flags for the shell command.
type ShellOptions struct {
	APIURL  string
	Style   string
	LogFile string
}

// NewShellCommand creates the interactive shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShellOptions{}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Browse and add pathogens interactively",
		Long: `Open a terminal UI over the catalog HTTP API.

Keys: / search, a add, r reload, enter details, q quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.APIURL, "api-url", "", "catalog API base URL")
	cmd.Flags().StringVar(&opts.Style, "style", "dark", "markdown style for details (dark|light|notty)")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "append JSON logs to this file")

	return cmd
}

func runShell(cmd *cobra.Command, rootOpts *RootOptions, opts *ShellOptions) error {
	cfg := rootOpts.Config()
	if cmd.Flags().Changed("api-url") {
		cfg.Client.APIURL = opts.APIURL
	}
	timeout := cfg.Client.HTTPTimeout()

	api, err := client.New(cfg.Client.APIURL, client.WithTimeout(timeout))
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}

	logger, closeLog, err := opts.logger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info("shell started", zap.String("api", api.BaseURL()), zap.Duration("timeout", timeout))

	return shell.Run(cmd.Context(), api, shell.Options{
		RequestTimeout: timeout,
		MarkdownStyle:  opts.Style,
		Logger:         logger,
	})
}

// logger opens the log file, if any. The shell owns the terminal, so
// without --log-file logs are discarded.
func (o *ShellOptions) logger(level string) (*zap.Logger, func(), error) {
	if o.LogFile == "" {
		return zap.NewNop(), func() {}, nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}
	f, err := os.OpenFile(o.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := logging.NewWriter(f, lvl)
	return logger, func() {
		_ = logger.Sync()
		_ = f.Close()
	}, nil
}

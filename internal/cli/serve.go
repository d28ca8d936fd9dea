package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"crisprcatalog/internal/adapters/pathogens"
	"crisprcatalog/internal/config"
	"crisprcatalog/internal/core"
	"crisprcatalog/internal/logging"
	"crisprcatalog/internal/server"
	"crisprcatalog/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Host      string
	Port      string
	TraceFile string

	storage storageFlags
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog HTTP API",
		Long: `Serve the pathogen catalog over HTTP.

Routes: /api/pathogens, /api/pathogens/search, /api/pathogens/export,
/healthz, /metrics and /debug/vars. The server drains in-flight
requests on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "listen host")
	cmd.Flags().StringVarP(&opts.Port, "port", "p", "", "listen port (default "+config.DefaultPort+")")
	cmd.Flags().StringVar(&opts.TraceFile, "trace-file", "", "append JSON trace spans to this file")
	opts.storage.register(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions, opts *ServeOptions) error {
	cfg := rootOpts.Config()
	opts.apply(cmd, cfg)

	logger, err := rootOpts.logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var trace io.Writer
	if opts.TraceFile != "" {
		f, err := os.OpenFile(opts.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer f.Close()
		trace = f
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := rootOpts.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	srv, err := newServer(cfg, store, logger, trace)
	if err != nil {
		return err
	}
	logger.Info("catalog starting",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("storage", cfg.Storage.Driver),
	)
	return srv.Run(ctx)
}

func (o *ServeOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = o.Host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = o.Port
	}
	o.storage.apply(cmd, cfg)
}

// newServer assembles the instrumented service and the HTTP server around
// an open store. trace may be nil.
func newServer(cfg *config.Config, store domain.Store, logger *zap.Logger, trace io.Writer) (*server.Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	svcOpts := []core.ServiceOption{
		core.WithLogger(logging.Service(logger)),
		core.WithAuditRecorder(logging.Audit(logger)),
		core.WithMetricsRecorder(core.NewMultiMetricsRecorder(prom, core.NewExpvarMetricsRecorder(""))),
		core.WithFetchConcurrency(cfg.Catalog.FetchConcurrency),
	}
	if trace != nil {
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(trace)))
	}
	svc := core.NewService(store, svcOpts...)

	api := pathogens.NewHandler(svc)
	api.Logger = logger.Named("api")

	read, write, shutdown := cfg.Server.Timeouts()
	return server.New(api, server.Options{
		Addr:            cfg.Server.Addr(),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ReadTimeout:     read,
		WriteTimeout:    write,
		ShutdownTimeout: shutdown,
		Logger:          logger,
		Gatherer:        registry,
	}), nil
}

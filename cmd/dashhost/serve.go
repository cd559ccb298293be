package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/httpapi"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/tracing"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/watch"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

type serveOptions struct {
	addr         string
	watch        bool
	debounce     time.Duration
	otlpEndpoint string
	otlpInsecure bool
}

func newServeCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only admin API and reload the manifest on change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootFlags, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "Listen address for the admin API")
	cmd.Flags().BoolVar(&opts.watch, "watch", true, "Reload the manifest when it changes")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "Delay before reloading a changed manifest")
	cmd.Flags().StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for traces (disabled when empty)")
	cmd.Flags().BoolVar(&opts.otlpInsecure, "otlp-insecure", false, "Disable TLS for the OTLP exporter")

	return cmd
}

func runServe(cmd *cobra.Command, rootFlags *rootFlags, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	var tracer ports.Tracer
	if opts.otlpEndpoint != "" {
		provider, err := tracing.NewProvider(ctx, tracing.ExporterConfig{
			Endpoint:       opts.otlpEndpoint,
			ServiceName:    "dashhost",
			ServiceVersion: version,
			Insecure:       opts.otlpInsecure,
		})
		if err != nil {
			return newCommandError("serve", "configuring tracing", err, "Check --otlp-endpoint or leave it empty to disable tracing.")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = provider.Shutdown(shutdownCtx)
		}()
		tracer = tracing.New(provider.Tracer("dashhost"))
	}

	app, err := bootApp(cmd, rootFlags, "serve", bootOptions{tracer: tracer})
	if err != nil {
		return err
	}
	defer app.Close()

	server := httpapi.NewServer(app.host, httpapi.Options{
		Logger:         app.logger,
		Metrics:        app.metrics,
		MetricsHandler: app.metrics.Handler(),
	})

	var watcher *watch.Watcher
	if opts.watch {
		watcher, err = watch.NewWatcher(app.manifest, app.loader, app.host,
			watch.WithLogger(app.logger),
			watch.WithDebounce(opts.debounce),
		)
		if err != nil {
			return newCommandError("serve", "watching manifest", err, "")
		}
	}

	g, gctx := errgroup.WithContext(app.ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, opts.addr)
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return newCommandError("serve", "running admin API on "+opts.addr, err, "Pick a free address with --addr.")
	}
	app.logger.Info(app.ctx, "shutdown complete")
	return nil
}

package main

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/dashhost/internal/application/host"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/luahook"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/metrics"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// appContext bundles the services a command works with after the manifest
// has been loaded and the host bootstrapped.
type appContext struct {
	ctx      context.Context
	logger   ports.Logger
	loader   *config.ManifestLoader
	host     *host.Host
	metrics  *metrics.Prometheus
	manifest string

	// bootstrapErr holds plugin failures that did not prevent startup.
	bootstrapErr error
	subs         []ports.Subscription
}

type bootOptions struct {
	tracer ports.Tracer
}

// bootApp loads the manifest and bootstraps a host. Log entries emitted
// before the configured logger exists are buffered and replayed into it.
func bootApp(cmd *cobra.Command, flags *rootFlags, command string, opts bootOptions) (*appContext, error) {
	ctx, _ := logging.EnsureCorrelationID(cmd.Context())

	buffer := logging.NewEventBuffer(0)
	manifest, err := config.NewManifestLoader(logging.NewBufferedLogger(buffer), nil).Load(ctx, flags.manifest)
	if err != nil {
		if logger, logErr := newLogger(cmd, flags, config.Settings{}, command); logErr == nil {
			buffer.Flush(logger)
		}
		return nil, newCommandError(command, "loading manifest "+flags.manifest, err, manifestSuggestion(err))
	}

	logger, err := newLogger(cmd, flags, manifest.Settings, command)
	if err != nil {
		return nil, newCommandError(command, "configuring logging", err, "Use --log-level debug|info|warn|error and --log-format text|json.")
	}
	buffer.Flush(logger)

	compiler := luahook.NewCompiler(luahook.WithLogger(logger))
	descriptors, err := config.ToDescriptors(manifest, compiler)
	if err != nil {
		return nil, newCommandError(command, "compiling plugin hooks", err, "Fix the Lua hook source shown above.")
	}

	collector := metrics.NewPrometheus(prometheus.NewRegistry(), logger)
	h := host.New(host.Options{
		Logger:  logger,
		Metrics: collector,
		Tracer:  opts.tracer,
	})

	app := &appContext{
		ctx:      ctx,
		logger:   logger,
		loader:   config.NewManifestLoader(logger, compiler),
		host:     h,
		metrics:  collector,
		manifest: flags.manifest,
	}
	app.subs = append(app.subs, metrics.NewEventCounter(h.Bus(), collector))

	if err := h.Bootstrap(ctx, descriptors); err != nil {
		logger.Warn(ctx, "some plugins failed to start", "error", err)
		app.bootstrapErr = err
	}
	return app, nil
}

// Close releases host subscriptions.
func (a *appContext) Close() {
	for _, sub := range a.subs {
		sub.Unsubscribe()
	}
	a.host.Close()
}

// newLogger resolves level and format from flags, then the manifest, then
// defaults. Commands stay quiet unless asked otherwise.
func newLogger(cmd *cobra.Command, flags *rootFlags, settings config.Settings, command string) (ports.Logger, error) {
	level := firstNonEmpty(flags.logLevel, settings.LogLevel, "warn")
	if flags.verbose {
		level = "debug"
	}
	format := firstNonEmpty(flags.logFormat, settings.LogFormat, logging.FormatText)

	return logging.NewFromOptions(logging.Options{
		Writer:    cmd.ErrOrStderr(),
		Level:     level,
		Format:    format,
		Layer:     "application",
		Component: "cli",
		Fields:    map[string]interface{}{"command": command},
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	cblog "github.com/charmbracelet/log"

	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the logging adapters.
type Options struct {
	Writer       io.Writer
	Level        string
	Format       string
	TimeFormat   string
	ReportCaller bool
	Formatter    cblog.Formatter
	Layer        string
	Component    string
	Fields       map[string]interface{}
}

// Logger implements ports.Logger using charmbracelet/log.
type Logger struct {
	logger *cblog.Logger
	fields []interface{}
	layer  string
}

// New creates a charmbracelet/log backed Logger.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	formatter := opts.Formatter
	if strings.EqualFold(opts.Format, FormatJSON) {
		formatter = cblog.JSONFormatter
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		TimeFormat:      opts.TimeFormat,
		ReportTimestamp: true,
		ReportCaller:    opts.ReportCaller,
		Formatter:       formatter,
		Fields:          mapToFields(opts.Fields),
	})

	return &Logger{
		logger: base,
		fields: componentFields(opts.Component),
		layer:  layerOrDefault(opts.Layer),
	}, nil
}

// NewFromOptions picks the backend for opts.Format: zerolog for json output,
// charmbracelet/log for text.
func NewFromOptions(opts Options) (ports.Logger, error) {
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		return NewZerolog(opts)
	case "", FormatText:
		return New(opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}
}

// Debug emits a debug log entry.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, cblog.DebugLevel, msg, fields...)
}

// Info emits an info log entry.
func (l *Logger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, cblog.InfoLevel, msg, fields...)
}

// Warn emits a warning log entry.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, cblog.WarnLevel, msg, fields...)
}

// Error emits an error log entry.
func (l *Logger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, cblog.ErrorLevel, msg, fields...)
}

// With derives a new logger with persistent fields.
func (l *Logger) With(fields ...interface{}) ports.Logger {
	if l == nil {
		return &NoOpLogger{}
	}
	return &Logger{
		logger: l.logger,
		fields: appendFields(l.fields, fields),
		layer:  l.layer,
	}
}

func (l *Logger) log(ctx context.Context, level cblog.Level, msg string, fields ...interface{}) {
	if l == nil || l.logger == nil {
		return
	}
	payload := mergeFields(l.fields, fields, contextExtras(ctx, l.layer))

	switch level {
	case cblog.DebugLevel:
		l.logger.Debug(msg, payload...)
	case cblog.WarnLevel:
		l.logger.Warn(msg, payload...)
	case cblog.ErrorLevel:
		l.logger.Error(msg, payload...)
	default:
		l.logger.Info(msg, payload...)
	}
}

func componentFields(component string) []interface{} {
	fields := make([]interface{}, 0, 6)
	if component != "" {
		fields = append(fields, "component", component)
	}
	return fields
}

func layerOrDefault(layer string) string {
	if layer == "" {
		return "infrastructure"
	}
	return layer
}

func appendFields(base, extra []interface{}) []interface{} {
	next := make([]interface{}, len(base), len(base)+len(extra))
	copy(next, base)
	return append(next, extra...)
}

func contextExtras(ctx context.Context, layer string) map[string]interface{} {
	extras := map[string]interface{}{"layer": layer}
	if id := ports.GetCorrelationID(ctx); id != "" {
		extras["correlation_id"] = id
	}
	return extras
}

func mapToFields(input map[string]interface{}) []interface{} {
	if len(input) == 0 {
		return nil
	}
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := make([]interface{}, 0, len(input)*2)
	for _, k := range keys {
		res = append(res, k, input[k])
	}
	return res
}

// mergeFields flattens base, additions and extras into one key/value list.
// Later keys override earlier ones while keeping first-seen order; empty
// extras are dropped.
func mergeFields(base []interface{}, additions []interface{}, extras map[string]interface{}) []interface{} {
	store := make(map[string]interface{})
	order := make([]string, 0)

	addPair := func(key string, value interface{}) {
		if key == "" {
			return
		}
		if _, exists := store[key]; !exists {
			order = append(order, key)
		}
		store[key] = value
	}

	process := func(values []interface{}) {
		for i := 0; i+1 < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			addPair(key, values[i+1])
		}
	}

	process(base)
	process(additions)
	extraKeys := make([]string, 0, len(extras))
	for key, value := range extras {
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		addPair(key, extras[key])
	}

	result := make([]interface{}, 0, len(order)*2)
	for _, key := range order {
		result = append(result, key, store[key])
	}
	return result
}

var _ ports.Logger = (*Logger)(nil)

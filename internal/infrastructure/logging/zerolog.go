package logging

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// ZerologLogger implements ports.Logger on top of zerolog. It writes one JSON
// object per entry and is the backend used for --log-format=json.
type ZerologLogger struct {
	base   zerolog.Logger
	fields []interface{}
	layer  string
}

// NewZerolog creates a zerolog-backed logger from the shared Options.
func NewZerolog(opts Options) (*ZerologLogger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	builder := zerolog.New(writer).Level(level).With().Timestamp()
	for _, pair := range pairs(mapToFields(opts.Fields)) {
		builder = builder.Interface(pair.key, pair.value)
	}

	return &ZerologLogger{
		base:   builder.Logger(),
		fields: componentFields(opts.Component),
		layer:  layerOrDefault(opts.Layer),
	}, nil
}

// Debug emits a debug log entry.
func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.DebugLevel, msg, fields...)
}

// Info emits an info log entry.
func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.InfoLevel, msg, fields...)
}

// Warn emits a warning log entry.
func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.WarnLevel, msg, fields...)
}

// Error emits an error log entry.
func (l *ZerologLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, zerolog.ErrorLevel, msg, fields...)
}

// With derives a new logger with persistent fields.
func (l *ZerologLogger) With(fields ...interface{}) ports.Logger {
	if l == nil {
		return &NoOpLogger{}
	}
	return &ZerologLogger{
		base:   l.base,
		fields: appendFields(l.fields, fields),
		layer:  l.layer,
	}
}

func (l *ZerologLogger) log(ctx context.Context, level zerolog.Level, msg string, fields ...interface{}) {
	if l == nil {
		return
	}
	event := l.base.WithLevel(level)
	if event == nil {
		return
	}
	for _, pair := range pairs(mergeFields(l.fields, fields, contextExtras(ctx, l.layer))) {
		if err, ok := pair.value.(error); ok {
			event = event.AnErr(pair.key, err)
			continue
		}
		event = event.Interface(pair.key, pair.value)
	}
	event.Msg(msg)
}

type fieldPair struct {
	key   string
	value interface{}
}

func pairs(flat []interface{}) []fieldPair {
	out := make([]fieldPair, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		key, ok := flat[i].(string)
		if !ok {
			continue
		}
		out = append(out, fieldPair{key: key, value: flat[i+1]})
	}
	return out
}

var _ ports.Logger = (*ZerologLogger)(nil)

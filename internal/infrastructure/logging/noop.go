package logging

import (
	"context"

	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// NoOpLogger discards all log entries. Components fall back to it when no
// logger is configured.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(context.Context, string, ...interface{}) {}
func (n *NoOpLogger) Info(context.Context, string, ...interface{})  {}
func (n *NoOpLogger) Warn(context.Context, string, ...interface{})  {}
func (n *NoOpLogger) Error(context.Context, string, ...interface{}) {}

// With implements ports.Logger.
func (n *NoOpLogger) With(...interface{}) ports.Logger { return n }

// NewNoOpLogger returns a ports.Logger that discards all log entries.
func NewNoOpLogger() ports.Logger {
	return &NoOpLogger{}
}

// OrNoOp returns logger, or a no-op logger when it is nil.
func OrNoOp(logger ports.Logger) ports.Logger {
	if logger == nil {
		return NewNoOpLogger()
	}
	return logger
}

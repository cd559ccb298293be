package logging

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

const defaultBufferLimit = 1000

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

type bufferedEntry struct {
	ctx    context.Context
	level  logLevel
	msg    string
	fields []interface{}
}

// EventBuffer holds log entries emitted while the manifest is still being
// read, before the configured logger exists. When full, the oldest entry is
// dropped.
type EventBuffer struct {
	mu      sync.Mutex
	limit   int
	dropped int
	events  []bufferedEntry
}

// NewEventBuffer creates a buffer with the provided capacity (defaults to 1000).
func NewEventBuffer(limit int) *EventBuffer {
	if limit <= 0 {
		limit = defaultBufferLimit
	}
	return &EventBuffer{
		limit:  limit,
		events: make([]bufferedEntry, 0, limit),
	}
}

func (b *EventBuffer) add(entry bufferedEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == b.limit {
		copy(b.events, b.events[1:])
		b.events[len(b.events)-1] = entry
		b.dropped++
		return
	}
	b.events = append(b.events, entry)
}

// Len returns the number of entries waiting to be flushed.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Flush replays buffered entries into delegate in order and empties the
// buffer. A warning is appended when entries were dropped.
func (b *EventBuffer) Flush(delegate ports.Logger) {
	if delegate == nil {
		return
	}
	b.mu.Lock()
	events := make([]bufferedEntry, len(b.events))
	copy(events, b.events)
	dropped := b.dropped
	b.events = b.events[:0]
	b.dropped = 0
	b.mu.Unlock()

	for _, entry := range events {
		switch entry.level {
		case levelDebug:
			delegate.Debug(entry.ctx, entry.msg, entry.fields...)
		case levelWarn:
			delegate.Warn(entry.ctx, entry.msg, entry.fields...)
		case levelError:
			delegate.Error(entry.ctx, entry.msg, entry.fields...)
		default:
			delegate.Info(entry.ctx, entry.msg, entry.fields...)
		}
	}
	if dropped > 0 {
		delegate.Warn(context.Background(), "early log entries dropped", "count", dropped)
	}
}

// BufferedLogger implements ports.Logger by writing into an EventBuffer.
type BufferedLogger struct {
	buffer *EventBuffer
	fields []interface{}
}

// NewBufferedLogger returns a logger that stores entries in the provided buffer.
func NewBufferedLogger(buffer *EventBuffer) *BufferedLogger {
	return &BufferedLogger{buffer: buffer}
}

func (l *BufferedLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelDebug, msg, fields...)
}

func (l *BufferedLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelInfo, msg, fields...)
}

func (l *BufferedLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelWarn, msg, fields...)
}

func (l *BufferedLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelError, msg, fields...)
}

// With returns a child buffered logger with persistent fields.
func (l *BufferedLogger) With(fields ...interface{}) ports.Logger {
	return &BufferedLogger{buffer: l.buffer, fields: appendFields(l.fields, fields)}
}

func (l *BufferedLogger) log(ctx context.Context, level logLevel, msg string, fields ...interface{}) {
	if l == nil || l.buffer == nil {
		return
	}
	l.buffer.add(bufferedEntry{
		ctx:    ctx,
		level:  level,
		msg:    msg,
		fields: appendFields(l.fields, fields),
	})
}

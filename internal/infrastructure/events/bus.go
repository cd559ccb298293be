package events

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// Bus is the synchronous lifecycle event bus. Handlers run on the publishing
// goroutine in subscription order; each one is isolated so an error or panic
// is logged and delivery continues.
type Bus struct {
	logger ports.Logger
	subs   map[domainplugin.EventType][]subscriptionEntry
	all    []subscriptionEntry
	nextID int
	mu     sync.RWMutex
}

// NewBus creates an event bus that logs every delivery through logger.
func NewBus(logger ports.Logger) *Bus {
	return &Bus{
		logger: logging.OrNoOp(logger).With("component", "bus"),
		subs:   make(map[domainplugin.EventType][]subscriptionEntry),
	}
}

// Publish delivers event to the handlers registered for its type and to the
// SubscribeAll handlers, in subscription order. Handlers subscribed during
// delivery only see later events.
func (b *Bus) Publish(ctx context.Context, event domainplugin.Event) {
	if b == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	handlers := b.snapshot(event.Type)

	b.logger.Debug(ctx, "plugin event",
		"event_type", string(event.Type),
		"plugin_id", event.PluginID,
		"timestamp", event.Timestamp,
		"handlers", len(handlers),
	)

	for _, entry := range handlers {
		if err := b.deliver(ctx, entry, event); err != nil {
			b.logger.Warn(ctx, "event handler failed",
				"event_type", string(event.Type),
				"plugin_id", event.PluginID,
				"subscription", entry.id,
				"error", err,
			)
		}
	}
}

// Subscribe registers handler for one event type. Subscribing the same
// handler twice yields two independent subscriptions.
func (b *Bus) Subscribe(eventType domainplugin.EventType, handler ports.EventHandler) ports.Subscription {
	if b == nil || handler == nil {
		return noopSubscription{}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscriptionEntry{id: id, handler: handler})
	b.mu.Unlock()

	return newSubscription(func() { b.remove(eventType, id) })
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler ports.EventHandler) ports.Subscription {
	if b == nil || handler == nil {
		return noopSubscription{}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscriptionEntry{id: id, handler: handler})
	b.mu.Unlock()

	return newSubscription(func() { b.removeAll(id) })
}

// HandlerCount returns the number of handlers that would receive an event of
// the given type.
func (b *Bus) HandlerCount(eventType domainplugin.EventType) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType]) + len(b.all)
}

// snapshot merges type and catch-all handlers by subscription id, which
// preserves overall subscription order.
func (b *Bus) snapshot(eventType domainplugin.EventType) []subscriptionEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	typed, all := b.subs[eventType], b.all
	handlers := make([]subscriptionEntry, 0, len(typed)+len(all))
	i, j := 0, 0
	for i < len(typed) && j < len(all) {
		if typed[i].id < all[j].id {
			handlers = append(handlers, typed[i])
			i++
		} else {
			handlers = append(handlers, all[j])
			j++
		}
	}
	handlers = append(handlers, typed[i:]...)
	return append(handlers, all[j:]...)
}

func (b *Bus) deliver(ctx context.Context, entry subscriptionEntry, event domainplugin.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v\n%s", r, debug.Stack())
		}
	}()
	return entry.handler(ctx, event)
}

func (b *Bus) remove(eventType domainplugin.EventType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventType] = without(b.subs[eventType], id)
	if len(b.subs[eventType]) == 0 {
		delete(b.subs, eventType)
	}
}

func (b *Bus) removeAll(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = without(b.all, id)
}

// without returns a fresh slice so snapshots taken by in-flight publishes
// are never modified.
func without(entries []subscriptionEntry, id int) []subscriptionEntry {
	out := make([]subscriptionEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.id != id {
			out = append(out, entry)
		}
	}
	return out
}

type subscriptionEntry struct {
	id      int
	handler ports.EventHandler
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type subscription struct {
	once   sync.Once
	cancel func()
}

func newSubscription(cancel func()) *subscription {
	return &subscription{cancel: cancel}
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

var _ ports.EventBus = (*Bus)(nil)

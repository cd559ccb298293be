package ports

import (
	"context"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

// EventBus distributes lifecycle events to subscribers. Publish is
// synchronous: it returns after every handler registered for the event type
// has run, in subscription order, on the calling goroutine. A failing or
// panicking handler never prevents delivery to the remaining handlers.
type EventBus interface {
	Publish(ctx context.Context, event domainplugin.Event)
	Subscribe(eventType domainplugin.EventType, handler EventHandler) Subscription
	SubscribeAll(handler EventHandler) Subscription
}

// EventHandler processes a lifecycle event. Failures should be returned so
// the bus can log them.
type EventHandler func(context.Context, domainplugin.Event) error

// Subscription is a registered handler. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

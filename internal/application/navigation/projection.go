package navigation

import (
	"context"
	"sort"
	"sync"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// Entry is one row of the rendered navigation bar.
type Entry struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Icon   domainplugin.Handle `json:"-"`
	Active bool                `json:"active"`
}

// Projection caches the ordered navigation list. It recomputes on every
// state event; callers re-fetch Items after a notification.
type Projection struct {
	source ports.PluginSource

	mu    sync.RWMutex
	items []*domainplugin.Descriptor
	subs  []ports.Subscription
}

// NewProjection computes the initial list and subscribes to state events.
func NewProjection(source ports.PluginSource, bus ports.EventBus) *Projection {
	p := &Projection{source: source}
	p.Refresh()
	if bus != nil {
		for _, eventType := range domainplugin.StateEventTypes {
			p.subs = append(p.subs, bus.Subscribe(eventType, p.handle))
		}
	}
	return p
}

// Items returns a fresh copy of the navigation list.
func (p *Projection) Items() []*domainplugin.Descriptor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*domainplugin.Descriptor, len(p.items))
	copy(out, p.items)
	return out
}

// Entries returns the list as view rows, marking activeID.
func (p *Projection) Entries(activeID string) []Entry {
	items := p.Items()
	entries := make([]Entry, len(items))
	for i, d := range items {
		entries[i] = Entry{ID: d.ID, Name: d.Name, Icon: d.Icon, Active: d.ID == activeID}
	}
	return entries
}

// Refresh recomputes the list from the source.
func (p *Projection) Refresh() {
	var items []*domainplugin.Descriptor
	if p.source != nil {
		items = Compute(p.source.ListEnabled())
	}
	p.mu.Lock()
	p.items = items
	p.mu.Unlock()
}

// Close releases the bus subscriptions.
func (p *Projection) Close() {
	for _, sub := range p.subs {
		sub.Unsubscribe()
	}
	p.subs = nil
}

func (p *Projection) handle(context.Context, domainplugin.Event) error {
	p.Refresh()
	return nil
}

// Compute filters enabled to navigation members and sorts them by position,
// keeping input order on ties.
func Compute(enabled []*domainplugin.Descriptor) []*domainplugin.Descriptor {
	items := make([]*domainplugin.Descriptor, 0, len(enabled))
	for _, d := range enabled {
		if d.InNav() {
			items = append(items, d)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Config.Position < items[j].Config.Position
	})
	return items
}

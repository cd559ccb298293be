// Package tui renders an interactive plugin dashboard over a host.
package tui

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/dashhost/internal/application/host"
	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

const eventBuffer = 64

// Row is one plugin line in the dashboard list.
type Row struct {
	Plugin *domainplugin.Descriptor
	State  domainplugin.State
}

// bridge forwards bus events into the update loop.
type bridge struct {
	events chan domainplugin.Event
	done   chan struct{}
	sub    ports.Subscription
	once   sync.Once
}

func newBridge(bus ports.EventBus) *bridge {
	b := &bridge{
		events: make(chan domainplugin.Event, eventBuffer),
		done:   make(chan struct{}),
	}
	b.sub = bus.SubscribeAll(func(_ context.Context, evt domainplugin.Event) error {
		select {
		case b.events <- evt:
		case <-b.done:
		default:
			// Dropped events are recovered by the reload after each operation.
		}
		return nil
	})
	return b
}

func (b *bridge) close() {
	b.once.Do(func() {
		b.sub.Unsubscribe()
		close(b.done)
	})
}

// Model is the Bubbletea state of the dashboard.
type Model struct {
	host   *host.Host
	ctx    context.Context
	bridge *bridge

	rows     []Row
	cursor   int
	activeID string
	nav      []string

	spinner spinner.Model
	pending map[string]string

	lastEvent string
	errorMsg  string
	width     int
	height    int
	quitting  bool
}

// NewModel creates a dashboard over h. Close releases the bus subscription.
func NewModel(ctx context.Context, h *host.Host) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := Model{
		host:    h,
		ctx:     ctx,
		bridge:  newBridge(h.Bus()),
		spinner: s,
		pending: make(map[string]string),
		width:   80,
		height:  24,
	}
	m.reload()
	return m
}

// Init starts listening for bus events.
func (m Model) Init() tea.Cmd {
	return m.listen()
}

// Close unsubscribes from the bus.
func (m Model) Close() {
	if m.bridge != nil {
		m.bridge.close()
	}
}

// Run starts the dashboard program and blocks until the user quits.
func Run(ctx context.Context, h *host.Host, opts ...tea.ProgramOption) error {
	m := NewModel(ctx, h)
	defer m.Close()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}

// Rows returns the plugin rows in registration order.
func (m Model) Rows() []Row { return m.rows }

// Cursor returns the selected row index.
func (m Model) Cursor() int { return m.cursor }

// ActiveID returns the id of the active plugin, or "".
func (m Model) ActiveID() string { return m.activeID }

// Pending reports the in-flight operation for id.
func (m Model) Pending(id string) (string, bool) {
	op, ok := m.pending[id]
	return op, ok
}

// Error returns the current error banner text.
func (m Model) Error() string { return m.errorMsg }

// Selected returns the plugin under the cursor.
func (m Model) Selected() (Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m Model) listen() tea.Cmd {
	if m.bridge == nil {
		return nil
	}
	events, done := m.bridge.events, m.bridge.done
	return func() tea.Msg {
		select {
		case evt := <-events:
			return EventMsg{Event: evt}
		case <-done:
			return eventsClosedMsg{}
		}
	}
}

// reload snapshots registry state, the nav projection and the selection.
func (m *Model) reload() {
	registry := m.host.Registry()
	descriptors := registry.List()
	rows := make([]Row, 0, len(descriptors))
	for _, d := range descriptors {
		state, _ := registry.State(d.ID)
		rows = append(rows, Row{Plugin: d, State: state})
	}
	m.rows = rows
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	m.activeID = m.host.Tracker().ActiveID()
	items := m.host.Projection().Items()
	nav := make([]string, 0, len(items))
	for _, d := range items {
		nav = append(nav, d.ID)
	}
	m.nav = nav
}

func (m *Model) moveUp() {
	if len(m.rows) == 0 {
		return
	}
	m.cursor--
	if m.cursor < 0 {
		m.cursor = len(m.rows) - 1
	}
}

func (m *Model) moveDown() {
	if len(m.rows) == 0 {
		return
	}
	m.cursor++
	if m.cursor >= len(m.rows) {
		m.cursor = 0
	}
}

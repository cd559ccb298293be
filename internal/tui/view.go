package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

const helpLine = "↑/↓ move • i install • u uninstall • e enable • d disable • enter open/close • q quit"

// View renders the current model state.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderList())
	sections = append(sections, m.renderContent())
	if m.errorMsg != "" {
		sections = append(sections, errorBannerStyle.Render("✗ "+m.errorMsg))
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("dashhost")

	var items []string
	for _, id := range m.nav {
		name := id
		if d, ok := m.host.Registry().Get(id); ok {
			name = d.Name
		}
		if id == m.activeID {
			items = append(items, navActiveStyle.Render(name))
		} else {
			items = append(items, navItemStyle.Render(name))
		}
	}
	nav := mutedStyle.Render("no plugins enabled")
	if len(items) > 0 {
		nav = lipgloss.JoinHorizontal(lipgloss.Top, items...)
	}

	return headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, title, nav))
}

func (m Model) renderList() string {
	if len(m.rows) == 0 {
		return mutedStyle.Render("No plugins registered.")
	}

	lines := make([]string, 0, len(m.rows))
	for i, row := range m.rows {
		lines = append(lines, m.renderRow(row, i == m.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderRow(row Row, selected bool) string {
	state := row.State.String()
	badge := StateStyle(state).Render(fmt.Sprintf("%-10s", state))
	line := fmt.Sprintf("%s %s %s", badge, row.Plugin.Name, mutedStyle.Render("("+row.Plugin.ID+")"))
	if op, ok := m.pending[row.Plugin.ID]; ok {
		line = fmt.Sprintf("%s %s %s", line, m.spinner.View(), op)
	}
	if selected {
		return selectedItemStyle.Render(line)
	}
	return itemStyle.Render(line)
}

func (m Model) renderContent() string {
	if m.activeID == "" {
		return contentStyle.Render(mutedStyle.Render("No plugin open. Select an enabled plugin and press enter."))
	}
	d, ok := m.host.Registry().Get(m.activeID)
	if !ok {
		return contentStyle.Render(mutedStyle.Render("Active plugin is gone."))
	}
	return contentStyle.Render(describe(d))
}

func describe(d *domainplugin.Descriptor) string {
	lines := []string{titleStyle.Render(d.Name)}
	if d.Description != "" {
		lines = append(lines, d.Description)
	}
	var meta []string
	if d.Version != "" {
		meta = append(meta, "v"+d.Version)
	}
	if d.Author != "" {
		meta = append(meta, "by "+d.Author)
	}
	if d.Category != "" {
		meta = append(meta, d.Category)
	}
	if len(meta) > 0 {
		lines = append(lines, mutedStyle.Render(strings.Join(meta, " · ")))
	}
	if len(d.Routes) > 0 {
		paths := make([]string, 0, len(d.Routes))
		for _, r := range d.Routes {
			paths = append(paths, r.Path)
		}
		lines = append(lines, "routes: "+strings.Join(paths, ", "))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	footer := helpLine
	if m.lastEvent != "" {
		footer = fmt.Sprintf("%s\nlast event: %s", footer, m.lastEvent)
	}
	return footerStyle.Render(footer)
}

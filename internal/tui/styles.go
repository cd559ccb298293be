package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("99")  // Purple
	successColor = lipgloss.Color("42")  // Green
	warningColor = lipgloss.Color("226") // Yellow
	errorColor   = lipgloss.Color("196") // Red
	mutedColor   = lipgloss.Color("245") // Gray
	accentColor  = lipgloss.Color("212") // Pink

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			PaddingRight(2)

	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(mutedColor).
			MarginBottom(1)

	navItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	navActiveStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Underline(true).
			Padding(0, 1)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Foreground(accentColor).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderLeft(true).
				BorderForeground(primaryColor)

	stateEnabledStyle = lipgloss.NewStyle().
				Foreground(successColor).
				Bold(true)

	stateInstalledStyle = lipgloss.NewStyle().
				Foreground(warningColor)

	stateRegisteredStyle = lipgloss.NewStyle().
				Foreground(mutedColor)

	contentStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2).
			MarginTop(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	errorBannerStyle = lipgloss.NewStyle().
				Foreground(errorColor).
				Bold(true).
				MarginTop(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(mutedColor).
			MarginTop(1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(primaryColor)
)

// StateStyle returns the badge style for a plugin state.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "enabled":
		return stateEnabledStyle
	case "installed":
		return stateInstalledStyle
	default:
		return stateRegisteredStyle
	}
}

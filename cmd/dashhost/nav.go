package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

var (
	navTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	navIndexStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	navNameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	navMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
)

func newNavCmd(rootFlags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nav",
		Short: "Print the navigation bar the manifest produces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootApp(cmd, rootFlags, "nav", bootOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			return renderNav(cmd.OutOrStdout(), app.host.Projection().Items(), supportsUnicode(cmd.OutOrStdout()))
		},
	}

	return cmd
}

func renderNav(w io.Writer, items []*domainplugin.Descriptor, styled bool) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No plugins in navigation.")
		return err
	}

	lines := make([]string, 0, len(items)+1)
	if styled {
		lines = append(lines, navTitleStyle.Render("Navigation"))
	} else {
		lines = append(lines, "Navigation")
	}
	for i, d := range items {
		index := fmt.Sprintf("%2d.", i+1)
		suffix := ""
		if d.Category != "" {
			suffix = " [" + d.Category + "]"
		}
		if styled {
			lines = append(lines, fmt.Sprintf("%s %s%s", navIndexStyle.Render(index), navNameStyle.Render(d.Name), navMutedStyle.Render(suffix)))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s (%s)%s", index, d.Name, d.ID, suffix))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

type listOptions struct {
	jsonOutput bool
	category   string
	search     string
}

func newListCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plugins from the manifest with their lifecycle state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootFlags, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().StringVar(&opts.category, "category", "", "Only show plugins in this category")
	cmd.Flags().StringVar(&opts.search, "search", "", "Only show plugins whose name, description or author match")

	return cmd
}

func runList(cmd *cobra.Command, rootFlags *rootFlags, opts *listOptions) error {
	app, err := bootApp(cmd, rootFlags, "list", bootOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	plugins := selectPlugins(app, opts.category, opts.search)
	rows := make([]listJSONPlugin, 0, len(plugins))
	for _, d := range plugins {
		state, _ := app.host.Registry().State(d.ID)
		rows = append(rows, listJSONPlugin{
			ID:           d.ID,
			Name:         d.Name,
			Version:      d.Version,
			Category:     d.Category,
			State:        state.String(),
			Dependencies: d.Config.Dependencies,
		})
	}

	if opts.jsonOutput {
		return renderListJSON(cmd.OutOrStdout(), rows)
	}
	if app.bootstrapErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n\n", app.bootstrapErr)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No plugins match.")
		return nil
	}
	return renderListTable(cmd.OutOrStdout(), rows)
}

// selectPlugins applies the category and search filters in registration order.
func selectPlugins(app *appContext, category, search string) []*domainplugin.Descriptor {
	registry := app.host.Registry()
	plugins := registry.List()
	if category != "" {
		plugins = registry.ListByCategory(category)
	}
	if search == "" {
		return plugins
	}
	matched := make(map[string]bool)
	for _, d := range registry.Search(search) {
		matched[d.ID] = true
	}
	out := make([]*domainplugin.Descriptor, 0, len(plugins))
	for _, d := range plugins {
		if matched[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

func renderListTable(w io.Writer, rows []listJSONPlugin) error {
	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "ID\tNAME\tVERSION\tCATEGORY\tSTATE")

	useUnicode := supportsUnicode(w)
	title := cases.Title(language.English)
	for _, row := range rows {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			row.ID,
			row.Name,
			valueOrFallback(row.Version, "-"),
			valueOrFallback(title.String(row.Category), "-"),
			formatState(row.State, useUnicode),
		)
	}

	return writer.Flush()
}

type listJSONPlugin struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Category     string   `json:"category,omitempty"`
	State        string   `json:"state"`
	Dependencies []string `json:"dependencies,omitempty"`
}

type listJSONPayload struct {
	Version string           `json:"version"`
	Count   int              `json:"count"`
	Plugins []listJSONPlugin `json:"plugins"`
}

func renderListJSON(w io.Writer, rows []listJSONPlugin) error {
	payload := listJSONPayload{
		Version: "1",
		Count:   len(rows),
		Plugins: rows,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func supportsUnicode(writer any) bool {
	if file, ok := writer.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

func formatState(state string, useUnicode bool) string {
	icons := map[string][2]string{
		"enabled":    {"●", "[ON]"},
		"installed":  {"○", "[--]"},
		"registered": {"·", "[  ]"},
	}
	icon, ok := icons[state]
	if !ok {
		return state
	}
	if useUnicode {
		return icon[0] + " " + state
	}
	return icon[1] + " " + state
}

func valueOrFallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

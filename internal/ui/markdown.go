package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/kokistudios/joyland/internal/schedule"
)

func RenderMarkdown(md string) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		// Fallback: print raw
		fmt.Fprintln(os.Stderr, md)
		return
	}

	out, err := renderer.Render(md)
	if err != nil {
		fmt.Fprintln(os.Stderr, md)
		return
	}

	fmt.Fprint(os.Stderr, out)
}

// SchedulesMarkdown describes a schedule table as a markdown document.
func SchedulesMarkdown(tbl *schedule.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Schedules (table %s)\n\n", tbl.Version())

	b.WriteString("| Event | Name | Special |\n|---|---|---|\n")
	for _, def := range tbl.Symbols() {
		special := ""
		if def.Special {
			special = def.Alert.Message
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", def.ID, def.Name, special)
	}

	b.WriteString("\n| # |")
	for i := 1; i <= schedule.Length; i++ {
		fmt.Fprintf(&b, " %d |", i)
	}
	b.WriteString("\n|---|" + strings.Repeat("---|", schedule.Length) + "\n")
	for id := 1; id <= schedule.NumSchedules; id++ {
		fmt.Fprintf(&b, "| %d |", id)
		for _, sym := range tbl.Moves(id) {
			if tbl.IsSpecial(sym) {
				fmt.Fprintf(&b, " **%s** |", sym)
			} else {
				fmt.Fprintf(&b, " %s |", sym)
			}
		}
		b.WriteString("\n")
	}
	if tbl.Banner() != "" {
		fmt.Fprintf(&b, "\n> %s\n", tbl.Banner())
	}
	return b.String()
}

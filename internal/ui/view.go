package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kokistudios/joyland/internal/schedule"
	"github.com/kokistudios/joyland/internal/tracker"
)

// ViewOptions selects the optional sections of RenderView.
type ViewOptions struct {
	Timeline bool
	History  bool
}

// RenderView renders the tracker projection: status card, alert, branch
// banner, timeline, allowed events and optionally the history log.
func RenderView(tbl *schedule.Table, v tracker.View, history []schedule.Symbol, opts ViewOptions) string {
	var parts []string
	parts = append(parts, StatusCard(v))
	if v.Alert != nil {
		parts = append(parts, AlertBanner(*v.Alert))
	}
	if v.Banner != "" {
		parts = append(parts, warningStyle.Render("⚠ "+v.Banner))
	}
	if opts.Timeline && v.Locked {
		parts = append(parts, Timeline(v.Timeline))
	}
	parts = append(parts, Allowed(tbl, v))
	if opts.History {
		parts = append(parts, HistoryLog(tbl, history))
	}
	return strings.Join(parts, "\n\n")
}

// StatusCard boxes the projection's status text under a state heading.
func StatusCard(v tracker.View) string {
	var heading string
	switch {
	case !v.Started:
		heading = dimStyle.Render("IDLE")
	case v.Contradicted:
		heading = errorStyle.Render("NO MATCH")
	case v.Locked:
		heading = successStyle.Render("LOCKED")
	default:
		heading = warningStyle.Render(fmt.Sprintf("SEARCHING (%d)", v.HypothesisCount))
	}
	completed := "unknown"
	if v.CompletedKnown {
		completed = "none"
		if len(v.Completed) > 0 {
			completed = joinInts(v.Completed)
		}
	}
	body := v.Status + "\n" + dimStyle.Render("Completed this cycle: "+completed)
	return boxStyle.Render(heading + "\n" + body)
}

// AlertBanner renders a special-event alert.
func AlertBanner(a tracker.Alert) string {
	return alertBoxStyle.Render(strings.ToUpper(a.Kind) + "  " + a.Message)
}

// Timeline renders the locked schedule as a row of numbered cells.
func Timeline(cells []tracker.Cell) string {
	rendered := make([]string, 0, len(cells))
	for _, c := range cells {
		label := fmt.Sprintf("%d %s", c.Step, c.Symbol)
		style := lipgloss.NewStyle().Padding(0, 1)
		switch {
		case c.Current:
			style = currentStyle.Padding(0, 1)
		case c.Passed:
			style = dimStyle.Padding(0, 1)
		case c.NextSpecial:
			label += " ★"
			style = specialStyle.Padding(0, 1)
		case c.Special:
			style = accentStyle.Padding(0, 1)
		}
		rendered = append(rendered, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// Allowed lists the events that may be tapped next.
func Allowed(tbl *schedule.Table, v tracker.View) string {
	switch v.Allowance {
	case tracker.AllowAll:
		return Dim("Next: any event")
	case tracker.AllowNone:
		return Red("Next: nothing matches")
	}
	names := make([]string, 0, len(v.Allowed))
	for _, sym := range v.Allowed {
		names = append(names, fmt.Sprintf("%s %s", Bold(string(sym)), tbl.Name(sym)))
	}
	return "Next: " + strings.Join(names, ", ")
}

// HistoryLog renders the tapped events oldest first.
func HistoryLog(tbl *schedule.Table, history []schedule.Symbol) string {
	if len(history) == 0 {
		return Dim("No moves logged.")
	}
	lines := make([]string, 0, len(history)+1)
	lines = append(lines, headerStyle.Render("History"))
	for i, sym := range history {
		lines = append(lines, fmt.Sprintf("%3d  %s  %s", i+1, sym, tbl.Name(sym)))
	}
	return strings.Join(lines, "\n")
}

func joinInts(xs []int) string {
	s := make([]string, len(xs))
	for i, x := range xs {
		s[i] = fmt.Sprint(x)
	}
	return strings.Join(s, ", ")
}

package ui

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kokistudios/joyland/internal/tracker"
)

// PlayOptions configures interactive play mode.
type PlayOptions struct {
	Timeline bool
	// OnAlert is called when a new special alert appears.
	OnAlert func(tracker.Alert)
}

// PlayModel is a bubbletea model that drives a Tracker from key presses.
type PlayModel struct {
	ctx     context.Context
	tr      *tracker.Tracker
	opts    PlayOptions
	message string
	alert   string
}

// NewPlayModel creates a play-mode model over tr.
func NewPlayModel(ctx context.Context, tr *tracker.Tracker, opts PlayOptions) PlayModel {
	m := PlayModel{ctx: ctx, tr: tr, opts: opts}
	if a := tr.Projection().Alert; a != nil {
		m.alert = a.Kind
	}
	return m
}

func (m PlayModel) Init() tea.Cmd { return nil }

func (m PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.message = ""
	switch key.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+z":
		if len(m.tr.History()) == 0 {
			m.message = "Nothing to undo."
		} else {
			m.tr.Undo(m.ctx)
		}
	case "ctrl+k":
		m.tr.StartKnownCycle(m.ctx)
		m.message = "Started a known cycle."
	case "ctrl+n":
		m.tr.StartNewSchedule(m.ctx)
		m.message = "Started a new schedule."
	case "ctrl+x":
		m.tr.MarkUnknownPosition(m.ctx)
		m.message = "Position marked unknown."
	case "ctrl+y":
		if m.tr.CopySaveCode(m.ctx) {
			m.message = "Save code copied."
		} else {
			m.message = "Could not copy the save code."
		}
	default:
		m.tap(key.String())
	}
	m.checkAlert()
	return m, nil
}

func (m *PlayModel) tap(key string) {
	sym, ok := m.tr.Table().Lookup(key)
	if !ok {
		return
	}
	if !m.tr.Projection().Allows(sym) {
		m.message = fmt.Sprintf("%s is not possible here.", m.tr.Table().Name(sym))
		return
	}
	if err := m.tr.Tap(m.ctx, string(sym)); err != nil {
		m.message = err.Error()
	}
}

func (m *PlayModel) checkAlert() {
	a := m.tr.Projection().Alert
	if a == nil {
		m.alert = ""
		return
	}
	if a.Kind != m.alert && m.opts.OnAlert != nil {
		m.opts.OnAlert(*a)
	}
	m.alert = a.Kind
}

func (m PlayModel) View() string {
	tbl := m.tr.Table()
	var keys []string
	for _, def := range tbl.Symbols() {
		keys = append(keys, fmt.Sprintf("%s %s", Bold(strings.ToLower(string(def.ID))), def.Name))
	}
	out := RenderView(tbl, m.tr.Projection(), m.tr.History(), ViewOptions{Timeline: m.opts.Timeline})
	if m.message != "" {
		out += "\n\n" + promptStyle.Render(m.message)
	}
	out += "\n\n" + Dim(strings.Join(keys, " • "))
	out += "\n" + Dim("ctrl+z undo • ctrl+k known cycle • ctrl+n new schedule • ctrl+x unknown position • ctrl+y copy code • esc quit")
	return out + "\n"
}

// Play runs interactive play mode until the user quits.
func Play(ctx context.Context, tr *tracker.Tracker, opts PlayOptions) error {
	p := tea.NewProgram(NewPlayModel(ctx, tr, opts), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	_, err := p.Run()
	SanitizeTerminal()
	return err
}

package tracker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kokistudios/joyland/internal/schedule"
)

// Allowance says which events the renderer should enable.
type Allowance int

const (
	// AllowAll means nothing constrains the next tap yet.
	AllowAll Allowance = iota
	// AllowNone means observations contradict every hypothesis.
	AllowNone
	// AllowSome means only View.Allowed may be tapped.
	AllowSome
)

// Alert is raised when the locked position's next event is special.
type Alert struct {
	Kind    string
	Symbol  schedule.Symbol
	Message string
}

// Cell annotates one step of the locked schedule's timeline.
type Cell struct {
	Step        int
	Symbol      schedule.Symbol
	Passed      bool
	Current     bool
	Special     bool
	NextSpecial bool
}

// View is everything a renderer needs, derived from a State.
type View struct {
	Started         bool
	Locked          bool
	Contradicted    bool
	HistoryLen      int
	HypothesisCount int

	CompletedKnown bool
	Completed      []int
	Remaining      []int

	Allowance Allowance
	Allowed   []schedule.Symbol

	PossibleSchedules []int
	PossibleMoves     []int

	// Set only when Locked.
	Schedule int
	Move     int
	Next     schedule.Symbol
	Alert    *Alert
	Timeline []Cell

	Banner string
	Status string
}

// Allows reports whether sym may be tapped.
func (v View) Allows(sym schedule.Symbol) bool {
	switch v.Allowance {
	case AllowAll:
		return true
	case AllowNone:
		return false
	}
	for _, a := range v.Allowed {
		if a == sym {
			return true
		}
	}
	return false
}

// Project derives the view of s. It does not modify s.
func Project(tbl *schedule.Table, s State) View {
	v := View{
		Started:         s.started,
		Contradicted:    s.Contradicted(),
		HistoryLen:      len(s.history),
		HypothesisCount: len(s.hyps),
	}
	v.Allowance, v.Allowed = allowedEvents(tbl, s)

	if len(s.hyps) == 0 {
		if v.Contradicted {
			v.Status = "No match. Use reset, start or new-schedule."
		} else {
			v.Status = "Waiting for input…"
		}
		return v
	}

	scheds := map[int]bool{}
	entering := map[int]bool{}
	moves := map[int]bool{}
	masks := map[Mask]bool{}
	var inSchedule []Hypothesis
	between := 0
	for _, h := range s.hyps {
		masks[h.Completed.Normalize()] = true
		if h.Between() {
			between++
			done := h.Completed.Normalize()
			for id := 1; id <= schedule.NumSchedules; id++ {
				if !done.Has(id) {
					entering[id] = true
				}
			}
			continue
		}
		inSchedule = append(inSchedule, h)
		scheds[h.Schedule] = true
		moves[h.Position] = true
	}

	// Schedules that could be entered next only count while no position
	// inside a schedule survives.
	if len(inSchedule) == 0 {
		scheds = entering
	}
	v.PossibleSchedules = sortedKeys(scheds)
	for _, p := range sortedKeys(moves) {
		v.PossibleMoves = append(v.PossibleMoves, p-1)
	}

	if len(masks) == 1 {
		v.CompletedKnown = true
		done := s.hyps[0].Completed.Normalize()
		v.Completed = done.IDs()
		v.Remaining = (AllDone &^ done).IDs()
	}

	v.Banner = branchBanner(tbl, s.history, inSchedule)

	inScheds := map[int]bool{}
	for _, h := range inSchedule {
		inScheds[h.Schedule] = true
	}
	v.Locked = between == 0 && len(inScheds) == 1 && len(moves) == 1
	if !v.Locked {
		v.Status = fmt.Sprintf("Moves logged: %d\nPossible states: %d\nPossible schedules: %s\nPossible moves: %s",
			v.HistoryLen, v.HypothesisCount, joinInts(v.PossibleSchedules), joinInts(v.PossibleMoves))
		return v
	}

	h := inSchedule[0]
	v.Schedule = h.Schedule
	v.Move = h.Position - 1
	v.Next = tbl.At(h.Schedule, h.Position)
	v.PossibleSchedules = []int{v.Schedule}
	v.PossibleMoves = []int{v.Move}
	if a, ok := tbl.Alert(v.Next); ok {
		v.Alert = &Alert{Kind: a.Kind, Symbol: v.Next, Message: a.Message}
	}
	v.Timeline = timeline(tbl, h)
	v.Status = fmt.Sprintf("Schedule %d\nMove %d / %d", v.Schedule, v.Move, schedule.Length)
	return v
}

func allowedEvents(tbl *schedule.Table, s State) (Allowance, []schedule.Symbol) {
	if len(s.hyps) == 0 {
		if len(s.history) == 0 {
			return AllowAll, nil
		}
		return AllowNone, nil
	}
	set := map[schedule.Symbol]bool{}
	for _, h := range s.hyps {
		if h.Between() {
			done := h.Completed.Normalize()
			for id := 1; id <= schedule.NumSchedules; id++ {
				if !done.Has(id) {
					set[tbl.First(id)] = true
				}
			}
			continue
		}
		set[tbl.At(h.Schedule, h.Position)] = true
	}
	var out []schedule.Symbol
	for _, def := range tbl.Symbols() {
		if set[def.ID] {
			out = append(out, def.ID)
		}
	}
	return AllowSome, out
}

// branchBanner warns when two filler events may open a schedule whose third
// move is one of the specials, and only specials remain possible.
func branchBanner(tbl *schedule.Table, history []schedule.Symbol, inSchedule []Hypothesis) string {
	n := len(history)
	filler := tbl.Filler()
	if n < 2 || history[n-2] != filler || history[n-1] != filler {
		return ""
	}
	third := map[schedule.Symbol]bool{}
	for _, h := range inSchedule {
		if h.Position != 3 || tbl.At(h.Schedule, 1) != filler || tbl.At(h.Schedule, 2) != filler {
			continue
		}
		third[tbl.At(h.Schedule, 3)] = true
	}
	if len(third) == 0 {
		return ""
	}
	for sym := range third {
		if !tbl.IsSpecial(sym) {
			return ""
		}
	}
	for _, sym := range tbl.Specials() {
		if !third[sym] {
			return ""
		}
	}
	if b := tbl.Banner(); b != "" {
		return b
	}
	var names []string
	for _, sym := range tbl.Specials() {
		names = append(names, tbl.Name(sym))
	}
	return "Start-of-schedule: next is either " + strings.Join(names, " or ")
}

func timeline(tbl *schedule.Table, h Hypothesis) []Cell {
	move := h.Position - 1
	nextSpecial := 0
	for step := h.Position; step <= schedule.Length; step++ {
		if tbl.IsSpecial(tbl.At(h.Schedule, step)) {
			nextSpecial = step
			break
		}
	}
	cells := make([]Cell, schedule.Length)
	for i := range cells {
		step := i + 1
		sym := tbl.At(h.Schedule, step)
		cells[i] = Cell{
			Step:        step,
			Symbol:      sym,
			Passed:      step < move,
			Current:     step == move,
			Special:     tbl.IsSpecial(sym),
			NextSpecial: step == nextSpecial,
		}
	}
	return cells
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func joinInts(xs []int) string {
	if len(xs) == 0 {
		return "(between schedules)"
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}

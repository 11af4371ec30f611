package tracker

import (
	"errors"
	"fmt"

	"github.com/kokistudios/joyland/internal/schedule"
)

var (
	// ErrUnknownSymbol is returned when a tapped event is not in the table.
	ErrUnknownSymbol = errors.New("unknown event")
	// ErrNoConsistentPosition is returned when tapping after every
	// hypothesis has been pruned. Undo or reset first.
	ErrNoConsistentPosition = errors.New("no consistent position")
)

// Frame is one undo snapshot: the hypotheses and lock flag after a tap.
type Frame struct {
	Hypotheses Set
	Locked     bool
}

// State is the complete engine state. It is a value: commands return a new
// State and never modify the one they were given, so a State can be held
// indefinitely.
type State struct {
	hyps    Set
	history []schedule.Symbol
	locked  bool
	stack   []Frame
	base    Frame
	started bool
}

// Hypotheses returns the surviving hypotheses.
func (s State) Hypotheses() Set { return s.hyps.Clone() }

// History returns the observed events, oldest first.
func (s State) History() []schedule.Symbol {
	return append([]schedule.Symbol(nil), s.history...)
}

// CycleLocked reports the user-asserted lock flag.
func (s State) CycleLocked() bool { return s.locked }

// Stack returns a copy of the undo stack, one frame per history entry.
func (s State) Stack() []Frame {
	out := make([]Frame, len(s.stack))
	for i, f := range s.stack {
		out[i] = Frame{Hypotheses: f.Hypotheses.Clone(), Locked: f.Locked}
	}
	return out
}

// Base returns the frame installed by the most recent start command.
func (s State) Base() Frame {
	return Frame{Hypotheses: s.base.Hypotheses.Clone(), Locked: s.base.Locked}
}

// Started reports whether the user has started tracking or tapped.
func (s State) Started() bool { return s.started }

// Contradicted reports that events were observed but no hypothesis
// survives them.
func (s State) Contradicted() bool {
	return len(s.hyps) == 0 && len(s.history) > 0
}

// Command is one user action applied through Apply.
type Command interface {
	apply(tbl *schedule.Table, s State) (State, error)
}

// Apply runs cmd against s. On error the returned State is s.
func Apply(tbl *schedule.Table, s State, cmd Command) (State, error) {
	next, err := cmd.apply(tbl, s)
	if err != nil {
		return s, err
	}
	return next, nil
}

// Tap records one observed event.
type Tap struct{ Event schedule.Symbol }

func (c Tap) apply(tbl *schedule.Table, s State) (State, error) {
	if !tbl.Has(c.Event) {
		return s, fmt.Errorf("%w: %q", ErrUnknownSymbol, c.Event)
	}
	if s.Contradicted() {
		return s, ErrNoConsistentPosition
	}

	cur := s.hyps
	if len(cur) == 0 {
		cur = Seed(tbl, c.Event)
	}
	next := Advance(tbl, cur, c.Event)
	if s.locked {
		next = LockBias(next)
	}

	history := make([]schedule.Symbol, len(s.history)+1)
	copy(history, s.history)
	history[len(s.history)] = c.Event

	stack := make([]Frame, len(s.stack)+1)
	copy(stack, s.stack)
	stack[len(s.stack)] = Frame{Hypotheses: next, Locked: s.locked}

	return State{
		hyps:    next,
		history: history,
		locked:  s.locked,
		stack:   stack,
		base:    s.base,
		started: true,
	}, nil
}

// Undo drops the most recent tap.
type Undo struct{}

func (Undo) apply(_ *schedule.Table, s State) (State, error) {
	if len(s.history) == 0 {
		return s, nil
	}
	n := len(s.history) - 1
	top := s.base
	if n > 0 {
		top = s.stack[n-1]
	}
	return State{
		hyps:    top.Hypotheses,
		history: s.history[:n:n],
		locked:  top.Locked,
		stack:   s.stack[:n:n],
		base:    s.base,
		started: s.started,
	}, nil
}

// StartKnownCycle starts a fresh cycle: schedule move 1, nothing completed
// yet. It sets the lock flag.
type StartKnownCycle struct{}

func (StartKnownCycle) apply(_ *schedule.Table, _ State) (State, error) {
	return started(StartStates(true), true), nil
}

// StartNewSchedule starts a schedule at move 1 without knowing how much of
// the cycle is done. The lock flag is kept.
type StartNewSchedule struct{}

func (StartNewSchedule) apply(_ *schedule.Table, s State) (State, error) {
	return started(StartStates(false), s.locked), nil
}

// MarkUnknownPosition forgets all hypotheses and history; the next tap
// seeds from scratch. The lock flag is kept.
type MarkUnknownPosition struct{}

func (MarkUnknownPosition) apply(_ *schedule.Table, s State) (State, error) {
	return started(nil, s.locked), nil
}

// HardReset returns to the pristine, never-started state.
type HardReset struct{}

func (HardReset) apply(_ *schedule.Table, _ State) (State, error) {
	return State{}, nil
}

func started(hyps Set, locked bool) State {
	return State{
		hyps:    hyps,
		locked:  locked,
		base:    Frame{Hypotheses: hyps, Locked: locked},
		started: true,
	}
}

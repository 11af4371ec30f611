// Package tracker reconstructs a position in the Joyland event cycle from
// observed events. It keeps every schedule position consistent with the
// taps so far, prunes the ones later taps contradict, and reports a locked
// position once only one remains.
//
// State is an immutable value advanced by Apply; Tracker wraps it with the
// persistence and clipboard collaborators and is the surface renderers use.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/joyland/internal/schedule"
)

// Persister stores the serialized engine state under one well-known key.
// Load reports false when nothing is stored.
type Persister interface {
	Load(ctx context.Context) ([]byte, bool, error)
	Save(ctx context.Context, blob []byte) error
	Clear(ctx context.Context) error
}

// Clipboard receives save codes.
type Clipboard interface {
	WriteText(text string) error
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPersister saves state after every command.
func WithPersister(p Persister) Option {
	return func(t *Tracker) { t.persister = p }
}

// WithClipboard enables CopySaveCode.
func WithClipboard(c Clipboard) Option {
	return func(t *Tracker) { t.clipboard = c }
}

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithClock overrides the time source used for save-code timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// Tracker is the command surface used by renderers. It is meant for use
// from a single goroutine.
type Tracker struct {
	table     *schedule.Table
	state     State
	persister Persister
	clipboard Clipboard
	logger    *log.Logger
	now       func() time.Time
}

// New creates a tracker in the pristine state.
func New(tbl *schedule.Table, opts ...Option) *Tracker {
	t := &Tracker{
		table:  tbl,
		logger: log.New(io.Discard),
		now:    time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Table returns the schedule table in use.
func (t *Tracker) Table() *schedule.Table { return t.table }

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// History returns the observed events.
func (t *Tracker) History() []schedule.Symbol { return t.state.History() }

// Projection derives the current view.
func (t *Tracker) Projection() View { return Project(t.table, t.state) }

// Restore loads persisted state. Missing or unreadable state leaves the
// tracker pristine; problems are logged, never returned.
func (t *Tracker) Restore(ctx context.Context) {
	if t.persister == nil {
		return
	}
	blob, ok, err := t.persister.Load(ctx)
	if err != nil {
		t.logger.Warn("Saved state unavailable, starting fresh", "err", err)
		return
	}
	if !ok {
		return
	}
	s, err := UnmarshalState(t.table, blob)
	if err != nil {
		t.logger.Warn("Ignoring corrupt saved state", "err", err)
		return
	}
	t.state = s
}

// Tap records an observed event given by id or name.
func (t *Tracker) Tap(ctx context.Context, token string) error {
	sym, ok := t.table.Lookup(token)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSymbol, token)
	}
	return t.dispatch(ctx, Tap{Event: sym})
}

// Undo drops the most recent tap. It is a no-op with no history.
func (t *Tracker) Undo(ctx context.Context) {
	_ = t.dispatch(ctx, Undo{})
}

// StartKnownCycle starts tracking at the beginning of a fresh cycle.
func (t *Tracker) StartKnownCycle(ctx context.Context) {
	_ = t.dispatch(ctx, StartKnownCycle{})
}

// StartNewSchedule starts tracking at move 1 of an unknown schedule.
func (t *Tracker) StartNewSchedule(ctx context.Context) {
	_ = t.dispatch(ctx, StartNewSchedule{})
}

// MarkUnknownPosition lets the next tap seed every matching position.
func (t *Tracker) MarkUnknownPosition(ctx context.Context) {
	_ = t.dispatch(ctx, MarkUnknownPosition{})
}

// HardReset forgets everything, including persisted state.
func (t *Tracker) HardReset(ctx context.Context) {
	t.state, _ = Apply(t.table, t.state, HardReset{})
	if t.persister == nil {
		return
	}
	if err := t.persister.Clear(ctx); err != nil {
		t.logger.Warn("Failed to clear saved state", "err", err)
	}
}

// SaveCode encodes the current state.
func (t *Tracker) SaveCode() (string, error) {
	return EncodeSaveCode(t.state, t.now())
}

// CopySaveCode writes the save code to the clipboard. The state is not
// affected either way.
func (t *Tracker) CopySaveCode(ctx context.Context) bool {
	if t.clipboard == nil {
		t.logger.Warn("No clipboard available")
		return false
	}
	code, err := t.SaveCode()
	if err != nil {
		t.logger.Warn("Failed to encode save code", "err", err)
		return false
	}
	if err := t.clipboard.WriteText(code); err != nil {
		t.logger.Warn("Failed to copy save code", "err", err)
		return false
	}
	return true
}

// LoadSaveCode replaces the state with the one encoded in code. On failure
// the current state is left untouched and false is returned.
func (t *Tracker) LoadSaveCode(ctx context.Context, code string) bool {
	s, err := DecodeSaveCode(t.table, code)
	if err != nil {
		t.logger.Debug("Rejected save code", "err", err)
		return false
	}
	t.state = s
	t.persist(ctx)
	return true
}

// Dispatch applies any command and persists the result.
func (t *Tracker) Dispatch(ctx context.Context, cmd Command) error {
	if _, ok := cmd.(HardReset); ok {
		t.HardReset(ctx)
		return nil
	}
	return t.dispatch(ctx, cmd)
}

func (t *Tracker) dispatch(ctx context.Context, cmd Command) error {
	next, err := Apply(t.table, t.state, cmd)
	if err != nil {
		return err
	}
	t.state = next
	t.persist(ctx)
	return nil
}

func (t *Tracker) persist(ctx context.Context) {
	if t.persister == nil {
		return
	}
	blob, err := MarshalState(t.state, time.Time{})
	if err == nil {
		err = t.persister.Save(ctx, blob)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Warn("Failed to save state", "err", err)
	}
}

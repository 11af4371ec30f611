package tracker

import (
	"fmt"

	"github.com/kokistudios/joyland/internal/schedule"
)

// Mask is the set of schedules finished in the current cycle; bit i-1 is
// schedule i.
type Mask uint8

// AllDone has every schedule's bit set. It means the same as 0: the cycle
// restarts.
const AllDone Mask = 1<<schedule.NumSchedules - 1

// Bit returns the mask bit for a 1-based schedule id.
func Bit(scheduleID int) Mask { return 1 << (scheduleID - 1) }

// Has reports whether scheduleID is marked done.
func (m Mask) Has(scheduleID int) bool { return m&Bit(scheduleID) != 0 }

// Normalize maps a full mask to the empty one.
func (m Mask) Normalize() Mask {
	if m == AllDone {
		return 0
	}
	return m
}

// IDs lists the schedule ids set in m.
func (m Mask) IDs() []int {
	var out []int
	for id := 1; id <= schedule.NumSchedules; id++ {
		if m.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// Hypothesis is one candidate position. Schedule 0 with Position 0 is the
// between-schedules state; otherwise Position is the 1-based index of the
// next expected symbol.
type Hypothesis struct {
	Schedule  int  `json:"schedule"`
	Position  int  `json:"position"`
	Completed Mask `json:"completed"`
	Asserted  bool `json:"asserted,omitempty"`
}

// Between reports whether h sits between two schedules.
func (h Hypothesis) Between() bool { return h.Schedule == 0 }

// Key is the canonical identity of a hypothesis.
type Key struct {
	Schedule  int
	Position  int
	Completed Mask
	Asserted  bool
}

// Key returns the canonical key.
func (h Hypothesis) Key() Key {
	return Key{h.Schedule, h.Position, h.Completed, h.Asserted}
}

func (h Hypothesis) String() string {
	if h.Between() {
		return fmt.Sprintf("between(done=%04b)", h.Completed)
	}
	return fmt.Sprintf("s%d@%d(done=%04b)", h.Schedule, h.Position, h.Completed)
}

// Validate checks the structural invariants of h.
func (h Hypothesis) Validate() error {
	if h.Completed > AllDone {
		return fmt.Errorf("mask %d out of range", h.Completed)
	}
	if h.Between() {
		if h.Position != 0 {
			return fmt.Errorf("between-schedules hypothesis at position %d", h.Position)
		}
		return nil
	}
	if h.Schedule < 1 || h.Schedule > schedule.NumSchedules {
		return fmt.Errorf("schedule %d out of range", h.Schedule)
	}
	if h.Position < 1 || h.Position > schedule.Length {
		return fmt.Errorf("position %d out of range", h.Position)
	}
	if h.Completed.Has(h.Schedule) {
		return fmt.Errorf("schedule %d is both current and completed", h.Schedule)
	}
	return nil
}

// Set is an ordered collection of hypotheses. Order matters only for the
// lock-bias tie-break.
type Set []Hypothesis

// Dedupe drops exact duplicates, keeping the first occurrence. The input
// is not modified.
func Dedupe(in Set) Set {
	seen := make(map[Key]struct{}, len(in))
	out := make(Set, 0, len(in))
	for _, h := range in {
		k := h.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	return append(Set(nil), s...)
}

// Equal reports element-wise equality including order.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

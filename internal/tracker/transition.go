package tracker

import (
	"github.com/kokistudios/joyland/internal/schedule"
)

// Seed places a hypothesis at every position where event occurs, for every
// completion mask that leaves that schedule open. The tapped event is not
// consumed; callers advance the result with the same event.
func Seed(tbl *schedule.Table, event schedule.Symbol) Set {
	var out Set
	for id := 1; id <= schedule.NumSchedules; id++ {
		for pos := 1; pos <= schedule.Length; pos++ {
			if tbl.At(id, pos) != event {
				continue
			}
			for m := Mask(0); m <= AllDone; m++ {
				if m.Has(id) {
					continue
				}
				out = append(out, Hypothesis{Schedule: id, Position: pos, Completed: m})
			}
		}
	}
	return out
}

// StartStates returns the hypotheses for "a schedule starts now". With a
// known cycle only the fresh-cycle mask is kept; otherwise every mask that
// leaves the schedule open is possible.
func StartStates(knownCycle bool) Set {
	var out Set
	for id := 1; id <= schedule.NumSchedules; id++ {
		for m := Mask(0); m <= AllDone; m++ {
			if knownCycle && m != 0 {
				continue
			}
			if m.Has(id) {
				continue
			}
			out = append(out, Hypothesis{Schedule: id, Position: 1, Completed: m, Asserted: true})
		}
	}
	return out
}

// Advance consumes one observed event. Hypotheses whose expected symbol
// differs are pruned; the result is deduplicated.
func Advance(tbl *schedule.Table, in Set, event schedule.Symbol) Set {
	next := make(Set, 0, len(in))
	for _, h := range in {
		if h.Between() {
			done := h.Completed.Normalize()
			for id := 1; id <= schedule.NumSchedules; id++ {
				if done.Has(id) || tbl.First(id) != event {
					continue
				}
				// Move 1 was the tap itself.
				next = append(next, Hypothesis{Schedule: id, Position: 2, Completed: done, Asserted: true})
			}
			continue
		}

		if tbl.At(h.Schedule, h.Position) != event {
			continue
		}
		if h.Position == schedule.Length {
			next = append(next, Hypothesis{Completed: h.Completed | Bit(h.Schedule), Asserted: true})
			continue
		}
		h.Position++
		next = append(next, h)
	}
	return Dedupe(next)
}

// LockBias keeps only the hypotheses carrying the most frequent completion
// mask. On a tie the mask seen first in set order wins.
func LockBias(in Set) Set {
	if len(in) == 0 {
		return in
	}
	counts := make(map[Mask]int)
	var order []Mask
	for _, h := range in {
		if _, seen := counts[h.Completed]; !seen {
			order = append(order, h.Completed)
		}
		counts[h.Completed]++
	}
	best, bestCount := order[0], -1
	for _, m := range order {
		if counts[m] > bestCount {
			best, bestCount = m, counts[m]
		}
	}
	out := make(Set, 0, bestCount)
	for _, h := range in {
		if h.Completed == best {
			out = append(out, h)
		}
	}
	return out
}

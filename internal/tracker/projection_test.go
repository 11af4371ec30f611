package tracker

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kokistudios/joyland/internal/schedule"
)

func TestProject_Pristine(t *testing.T) {
	v := Project(defaultTable(t), State{})
	if v.Started || v.Locked || v.CompletedKnown {
		t.Errorf("unexpected flags: %+v", v)
	}
	if v.Allowance != AllowAll || !v.Allows("A") {
		t.Errorf("allowance = %v, want AllowAll", v.Allowance)
	}
	if v.Status != "Waiting for input…" {
		t.Errorf("status = %q", v.Status)
	}
}

func TestProject_TTAScenario(t *testing.T) {
	tbl := altTable(t)
	s := mustApply(t, tbl, State{}, taps("TTA")...)
	for _, h := range s.Hypotheses() {
		if tbl.At(h.Schedule, h.Position-1) != "A" || tbl.At(h.Schedule, h.Position-2) != "T" || tbl.At(h.Schedule, h.Position-3) != "T" {
			t.Errorf("%s is not consistent with T,T,A", h)
		}
	}
	v := Project(tbl, s)
	if !v.Locked {
		t.Fatalf("expected lock, status:\n%s", v.Status)
	}
	if v.Schedule != 2 || v.Move != 3 {
		t.Errorf("locked at schedule %d move %d, want 2/3", v.Schedule, v.Move)
	}
	if v.Next != "T" || v.Alert != nil {
		t.Errorf("next = %s alert = %v, want T and no alert", v.Next, v.Alert)
	}
	if v.CompletedKnown {
		t.Error("completion state should still be unknown after seeding")
	}
	if v.Status != "Schedule 2\nMove 3 / 13" {
		t.Errorf("status = %q", v.Status)
	}
}

func TestProject_TTA_DefaultTableIsAmbiguous(t *testing.T) {
	tbl := defaultTable(t)
	v := Project(tbl, mustApply(t, tbl, State{}, taps("TTA")...))
	if v.Locked {
		t.Fatal("default table has T,T,A in schedules 2 and 3")
	}
	if !reflect.DeepEqual(v.PossibleSchedules, []int{2, 3}) {
		t.Errorf("possible schedules = %v, want [2 3]", v.PossibleSchedules)
	}
	if !reflect.DeepEqual(v.PossibleMoves, []int{3, 7}) {
		t.Errorf("possible moves = %v, want [3 7]", v.PossibleMoves)
	}
	if !strings.HasPrefix(v.Status, "Moves logged: 3\n") {
		t.Errorf("status = %q", v.Status)
	}
}

func TestProject_Convergence(t *testing.T) {
	tbl := defaultTable(t)
	for id := 1; id <= schedule.NumSchedules; id++ {
		s := mustApply(t, tbl, State{}, StartKnownCycle{})
		moves := tbl.Moves(id)
		for k := 1; k <= schedule.Length; k++ {
			s = mustApply(t, tbl, s, Tap{Event: moves[k-1]})
			v := Project(tbl, s)
			if k == schedule.Length {
				if v.Locked {
					t.Errorf("schedule %d: should be between schedules after move 13", id)
				}
				if !v.CompletedKnown || !reflect.DeepEqual(v.Completed, []int{id}) {
					t.Errorf("schedule %d: completed = %v, want [%d]", id, v.Completed, id)
				}
				continue
			}
			if !v.Locked {
				if k >= 3 {
					t.Errorf("schedule %d: not locked after %d taps", id, k)
				}
				continue
			}
			if v.Schedule != id || v.Move != k {
				t.Errorf("schedule %d tap %d: locked at %d/%d", id, k, v.Schedule, v.Move)
			}
			want := []schedule.Symbol{moves[k]}
			if v.Allowance != AllowSome || !reflect.DeepEqual(v.Allowed, want) {
				t.Errorf("schedule %d tap %d: allowed = %v, want %v", id, k, v.Allowed, want)
			}
		}
	}
}

func TestProject_AlertAndTimeline(t *testing.T) {
	tbl := defaultTable(t)
	s := mustApply(t, tbl, State{}, StartKnownCycle{})
	s = mustApply(t, tbl, s, taps("TTA")...)
	v := Project(tbl, s)
	if !v.Locked || v.Schedule != 2 {
		t.Fatalf("expected lock on schedule 2, got %+v", v)
	}
	if len(v.Timeline) != schedule.Length {
		t.Fatalf("timeline len = %d", len(v.Timeline))
	}
	for _, c := range v.Timeline {
		if c.Passed != (c.Step < 3) || c.Current != (c.Step == 3) {
			t.Errorf("step %d: passed=%v current=%v", c.Step, c.Passed, c.Current)
		}
		if c.Special != (c.Symbol == "A" || c.Symbol == "C") {
			t.Errorf("step %d: special=%v for %s", c.Step, c.Special, c.Symbol)
		}
		// Next special after move 3 is Card Realm at step 6.
		if c.NextSpecial != (c.Step == 6) {
			t.Errorf("step %d: nextSpecial=%v", c.Step, c.NextSpecial)
		}
	}

	s = mustApply(t, tbl, s, taps("TF")...)
	v = Project(tbl, s)
	if v.Alert == nil || v.Alert.Kind != "treasure" || v.Alert.Symbol != "C" {
		t.Errorf("alert = %+v, want treasure for C", v.Alert)
	}
	if !v.Timeline[5].NextSpecial || !v.Timeline[4].Current {
		t.Error("Card Realm should be the next special right after the current move")
	}

	// Schedule 3 reaches Cube Battle at move 7.
	s = mustApply(t, tbl, State{}, StartKnownCycle{})
	s = mustApply(t, tbl, s, taps("TTFCTT")...)
	v = Project(tbl, s)
	if v.Alert == nil || v.Alert.Kind != "cube" {
		t.Errorf("alert = %+v, want cube", v.Alert)
	}
}

func TestProject_AllowedBetweenSchedules(t *testing.T) {
	tbl := defaultTable(t)
	s := mustApply(t, tbl, State{}, StartKnownCycle{})
	moves := tbl.Moves(1)
	for _, m := range moves {
		s = mustApply(t, tbl, s, Tap{Event: m})
	}
	v := Project(tbl, s)
	if v.Allowance != AllowSome || !reflect.DeepEqual(v.Allowed, []schedule.Symbol{"T"}) {
		t.Errorf("allowed = %v, want [T]", v.Allowed)
	}
	if !reflect.DeepEqual(v.PossibleSchedules, []int{2, 3, 4}) {
		t.Errorf("possible schedules = %v, want [2 3 4]", v.PossibleSchedules)
	}
	if !reflect.DeepEqual(v.Remaining, []int{2, 3, 4}) {
		t.Errorf("remaining = %v", v.Remaining)
	}
	if !strings.Contains(v.Status, "Possible moves: (between schedules)") {
		t.Errorf("status = %q", v.Status)
	}
}

func TestProject_PossibleSchedulesPreferInSchedule(t *testing.T) {
	tbl := defaultTable(t)
	// J ends schedules 1 and 4 and is move 10 of schedules 2 and 3, so both
	// between-schedules and in-schedule positions survive.
	s := mustApply(t, tbl, State{}, Tap{Event: "J"})
	between := false
	for _, h := range s.Hypotheses() {
		between = between || h.Between()
	}
	if !between {
		t.Fatal("expected some between-schedules hypotheses")
	}
	v := Project(tbl, s)
	if !reflect.DeepEqual(v.PossibleSchedules, []int{2, 3}) {
		t.Errorf("possible schedules = %v, want [2 3]", v.PossibleSchedules)
	}
	if !reflect.DeepEqual(v.PossibleMoves, []int{10}) {
		t.Errorf("possible moves = %v, want [10]", v.PossibleMoves)
	}
}

func TestProject_BranchBanner(t *testing.T) {
	tbl := defaultTable(t)

	plain := mustApply(t, tbl, State{}, StartKnownCycle{}, Tap{Event: "T"}, Tap{Event: "T"})
	if b := Project(tbl, plain).Banner; b != "" {
		t.Errorf("schedule 3 still possible, banner should be empty, got %q", b)
	}

	// Finish schedule 3 first; after T,T only schedules 2 and 4 remain and
	// their third moves are both specials.
	s := mustApply(t, tbl, State{}, StartKnownCycle{})
	for _, m := range tbl.Moves(3) {
		s = mustApply(t, tbl, s, Tap{Event: m})
	}
	s = mustApply(t, tbl, s, taps("TT")...)
	v := Project(tbl, s)
	if v.Banner != tbl.Banner() {
		t.Errorf("banner = %q, want table banner", v.Banner)
	}
	if !reflect.DeepEqual(v.Allowed, []schedule.Symbol{"A", "C"}) {
		t.Errorf("allowed = %v, want [A C]", v.Allowed)
	}

	// With schedules 3 and 4 done only schedule 2 opens with T,T, and its
	// third move is a single special.
	s = mustApply(t, tbl, State{}, StartKnownCycle{})
	for _, id := range []int{3, 4} {
		for _, m := range tbl.Moves(id) {
			s = mustApply(t, tbl, s, Tap{Event: m})
		}
	}
	s = mustApply(t, tbl, s, taps("TT")...)
	v = Project(tbl, s)
	if v.Banner != "" {
		t.Errorf("one special candidate should not raise the banner, got %q", v.Banner)
	}
	if !reflect.DeepEqual(v.Allowed, []schedule.Symbol{"A"}) {
		t.Errorf("allowed = %v, want [A]", v.Allowed)
	}
}

package tracker

import (
	"testing"

	"github.com/kokistudios/joyland/internal/schedule"
)

func defaultTable(t *testing.T) *schedule.Table {
	t.Helper()
	return schedule.Default()
}

// altTable is the default alphabet with schedule 3's Cube Battle replaced
// so that only schedule 2 contains T,T,A.
func altTable(t *testing.T) *schedule.Table {
	t.Helper()
	syms := schedule.Default().Symbols()
	sched := [schedule.NumSchedules][schedule.Length]schedule.Symbol{
		moves("TFTBTTFCTFTBJ"),
		moves("TTATFCTTFJFTB"),
		moves("TTFCTTBTFJTBF"),
		moves("TTCTFTATFTFAJ"),
	}
	tbl, err := schedule.New(syms, "T", sched)
	if err != nil {
		t.Fatalf("schedule.New: %v", err)
	}
	return tbl
}

func moves(s string) [schedule.Length]schedule.Symbol {
	var out [schedule.Length]schedule.Symbol
	for i, r := range s {
		out[i] = schedule.Symbol(string(r))
	}
	return out
}

func TestMaskNormalize(t *testing.T) {
	if AllDone != 15 {
		t.Fatalf("AllDone = %d, want 15", AllDone)
	}
	if AllDone.Normalize() != 0 {
		t.Error("full mask should normalize to 0")
	}
	if Mask(5).Normalize() != 5 {
		t.Error("partial mask should be unchanged")
	}
	ids := Mask(0b1010).IDs()
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 4 {
		t.Errorf("IDs() = %v, want [2 4]", ids)
	}
}

func TestDedupe_Idempotent(t *testing.T) {
	in := Set{
		{Schedule: 1, Position: 2, Completed: 0},
		{Schedule: 1, Position: 2, Completed: 0},
		{Schedule: 1, Position: 2, Completed: 2},
		{Schedule: 1, Position: 2, Completed: 0, Asserted: true},
		{Completed: 3, Asserted: true},
		{Completed: 3, Asserted: true},
	}
	once := Dedupe(in)
	if len(once) != 4 {
		t.Fatalf("len = %d, want 4", len(once))
	}
	if !Dedupe(once).Equal(once) {
		t.Error("second dedupe changed the set")
	}
	seen := map[Key]bool{}
	for _, h := range once {
		if seen[h.Key()] {
			t.Errorf("duplicate key %v", h.Key())
		}
		seen[h.Key()] = true
	}
	if once[0] != in[0] || once[1] != in[2] {
		t.Error("dedupe should keep first occurrences in order")
	}
}

func TestSeed(t *testing.T) {
	tbl := defaultTable(t)
	seeded := Seed(tbl, "A")
	// A appears at 2@3, 3@7, 4@7 and 4@12; eight open masks each.
	if len(seeded) != 4*8 {
		t.Fatalf("len = %d, want 32", len(seeded))
	}
	for _, h := range seeded {
		if tbl.At(h.Schedule, h.Position) != "A" {
			t.Errorf("%s is not on an A", h)
		}
		if h.Completed.Has(h.Schedule) {
			t.Errorf("%s has its own schedule completed", h)
		}
		if h.Asserted {
			t.Errorf("%s should not be asserted", h)
		}
	}
	if first := seeded[0]; first.Schedule != 2 || first.Position != 3 || first.Completed != 0 {
		t.Errorf("first seed = %s, want s2@3 mask 0", first)
	}
}

func TestStartStates(t *testing.T) {
	known := StartStates(true)
	if len(known) != 4 {
		t.Fatalf("known cycle: len = %d, want 4", len(known))
	}
	for i, h := range known {
		if h.Schedule != i+1 || h.Position != 1 || h.Completed != 0 || !h.Asserted {
			t.Errorf("known[%d] = %+v", i, h)
		}
	}
	unknown := StartStates(false)
	if len(unknown) != 32 {
		t.Fatalf("unknown cycle: len = %d, want 32", len(unknown))
	}
	for _, h := range unknown {
		if err := h.Validate(); err != nil {
			t.Errorf("%s: %v", h, err)
		}
	}
}

func TestAdvance(t *testing.T) {
	tbl := defaultTable(t)
	cases := []struct {
		name  string
		in    Set
		event schedule.Symbol
		want  Set
	}{
		{
			name:  "match moves forward",
			in:    Set{{Schedule: 2, Position: 3, Completed: 1}},
			event: "A",
			want:  Set{{Schedule: 2, Position: 4, Completed: 1}},
		},
		{
			name:  "mismatch is pruned",
			in:    Set{{Schedule: 2, Position: 3, Completed: 1}},
			event: "C",
			want:  Set{},
		},
		{
			name:  "last move completes the schedule",
			in:    Set{{Schedule: 1, Position: 13, Completed: 2}},
			event: "J",
			want:  Set{{Completed: 3, Asserted: true}},
		},
		{
			name:  "between enters every open schedule",
			in:    Set{{Completed: 0b0101, Asserted: true}},
			event: "T",
			want: Set{
				{Schedule: 2, Position: 2, Completed: 0b0101, Asserted: true},
				{Schedule: 4, Position: 2, Completed: 0b0101, Asserted: true},
			},
		},
		{
			name:  "between with full mask restarts the cycle",
			in:    Set{{Completed: AllDone, Asserted: true}},
			event: "T",
			want: Set{
				{Schedule: 1, Position: 2, Asserted: true},
				{Schedule: 2, Position: 2, Asserted: true},
				{Schedule: 3, Position: 2, Asserted: true},
				{Schedule: 4, Position: 2, Asserted: true},
			},
		},
		{
			name:  "between with wrong event is pruned",
			in:    Set{{Completed: 1, Asserted: true}},
			event: "F",
			want:  Set{},
		},
		{
			name: "results are deduplicated",
			in: Set{
				{Completed: 1, Asserted: true},
				{Completed: 1, Asserted: true},
			},
			event: "T",
			want: Set{
				{Schedule: 2, Position: 2, Completed: 1, Asserted: true},
				{Schedule: 3, Position: 2, Completed: 1, Asserted: true},
				{Schedule: 4, Position: 2, Completed: 1, Asserted: true},
			},
		},
	}
	for _, tc := range cases {
		got := Advance(tbl, tc.in, tc.event)
		if !got.Equal(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAdvance_DoesNotModifyInput(t *testing.T) {
	tbl := defaultTable(t)
	in := Set{{Schedule: 2, Position: 3}}
	Advance(tbl, in, "A")
	if in[0].Position != 3 {
		t.Errorf("input mutated: %v", in)
	}
}

func TestLockBias(t *testing.T) {
	cases := []struct {
		name string
		in   Set
		want Set
	}{
		{"empty", Set{}, Set{}},
		{
			name: "most frequent mask wins",
			in: Set{
				{Schedule: 1, Position: 4, Completed: 2},
				{Schedule: 2, Position: 4, Completed: 1},
				{Schedule: 3, Position: 4, Completed: 1},
			},
			want: Set{
				{Schedule: 2, Position: 4, Completed: 1},
				{Schedule: 3, Position: 4, Completed: 1},
			},
		},
		{
			name: "tie goes to the first mask seen",
			in: Set{
				{Schedule: 3, Position: 2, Completed: 2},
				{Schedule: 1, Position: 2, Completed: 4},
			},
			want: Set{{Schedule: 3, Position: 2, Completed: 2}},
		},
	}
	for _, tc := range cases {
		got := LockBias(tc.in)
		if !got.Equal(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		h  Hypothesis
		ok bool
	}{
		{Hypothesis{Schedule: 1, Position: 1}, true},
		{Hypothesis{Completed: AllDone}, true},
		{Hypothesis{Position: 3}, false},
		{Hypothesis{Schedule: 5, Position: 1}, false},
		{Hypothesis{Schedule: 1, Position: 14}, false},
		{Hypothesis{Schedule: 1, Position: 0}, false},
		{Hypothesis{Schedule: 2, Position: 1, Completed: 2}, false},
		{Hypothesis{Completed: 16}, false},
	}
	for _, tc := range cases {
		err := tc.h.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("Validate(%+v) = %v, want ok=%v", tc.h, err, tc.ok)
		}
	}
}

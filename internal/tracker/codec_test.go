package tracker

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSaveCode_RoundTrip(t *testing.T) {
	tbl := defaultTable(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	states := map[string]State{
		"pristine":      {},
		"known cycle":   mustApply(t, tbl, State{}, StartKnownCycle{}),
		"locked":        mustApply(t, tbl, State{}, append([]Command{StartKnownCycle{}}, taps("TTATF")...)...),
		"seeded":        mustApply(t, tbl, State{}, taps("TT")...),
		"contradiction": mustApply(t, tbl, State{}, StartKnownCycle{}, Tap{Event: "F"}),
		"unknown cycle": mustApply(t, tbl, State{}, append([]Command{StartNewSchedule{}}, taps("TTF")...)...),
	}
	for name, s := range states {
		code, err := EncodeSaveCode(s, ts)
		if err != nil {
			t.Fatalf("%s: encode: %v", name, err)
		}
		got, err := DecodeSaveCode(tbl, code)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if !sameState(got, s) {
			t.Errorf("%s: round trip changed the state", name)
		}
		if !got.Started() {
			t.Errorf("%s: decoded state should count as started", name)
		}
	}
}

func TestSaveCode_ToleratesWhitespace(t *testing.T) {
	tbl := defaultTable(t)
	s := mustApply(t, tbl, State{}, StartKnownCycle{}, Tap{Event: "T"})
	code, err := EncodeSaveCode(s, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSaveCode(tbl, "  "+code+"\n")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sameState(got, s) {
		t.Error("state mismatch")
	}
}

func TestSaveCode_Timestamp(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	data, err := MarshalState(State{}, ts)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["t"] != float64(1700000000123) || doc["v"] != float64(FormatVersion) {
		t.Errorf("t=%v v=%v", doc["t"], doc["v"])
	}

	data, _ = MarshalState(State{}, time.Time{})
	if strings.Contains(string(data), `"t":`) {
		t.Errorf("zero time should be omitted: %s", data)
	}
}

func TestDecodeSaveCode_Invalid(t *testing.T) {
	tbl := defaultTable(t)
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	cases := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"not base64", "%%%not-base64%%%"},
		{"not json", enc("hello")},
		{"truncated", enc(`{"v":1,"hypotheses":[`)},
		{"bad version", enc(`{"v":99,"hypotheses":[],"history":[],"stack":[]}`)},
		{"stack mismatch", enc(`{"v":1,"hypotheses":[],"history":["T"],"stack":[]}`)},
		{"unknown symbol", enc(`{"v":1,"hypotheses":[],"history":["Z"],"stack":[{"hypotheses":[],"locked":false}]}`)},
		{"bad hypothesis", enc(`{"v":1,"hypotheses":[{"schedule":2,"position":1,"completed":2}],"history":[],"stack":[]}`)},
		{"bad base", enc(`{"v":1,"hypotheses":[],"history":[],"stack":[],"base":{"hypotheses":[{"schedule":0,"position":4,"completed":0}]}}`)},
		{"bad frame", enc(`{"v":1,"hypotheses":[],"history":["T"],"stack":[{"hypotheses":[{"schedule":9,"position":1,"completed":0}]}]}`)},
		{"duplicate hypotheses", enc(`{"v":1,"hypotheses":[{"schedule":1,"position":2,"completed":0},{"schedule":1,"position":2,"completed":0}],` +
			`"history":[],"stack":[],"base":{"hypotheses":[{"schedule":1,"position":2,"completed":0},{"schedule":1,"position":2,"completed":0}]}}`)},
		{"duplicate in frame", enc(`{"v":1,"hypotheses":[{"schedule":1,"position":2,"completed":0}],"history":["T"],` +
			`"stack":[{"hypotheses":[{"schedule":1,"position":2,"completed":0},{"schedule":1,"position":2,"completed":0}]}]}`)},
		{"current differs from stack top", enc(`{"v":1,"hypotheses":[{"schedule":1,"position":2,"completed":0}],"history":["T"],"locked":false,` +
			`"stack":[{"hypotheses":[{"schedule":3,"position":9,"completed":2}],"locked":true}]}`)},
		{"lock differs from stack top", enc(`{"v":1,"hypotheses":[{"schedule":1,"position":2,"completed":0}],"history":["T"],"locked":false,` +
			`"stack":[{"hypotheses":[{"schedule":1,"position":2,"completed":0}],"locked":true}]}`)},
		{"current differs from base", enc(`{"v":1,"hypotheses":[{"schedule":1,"position":2,"completed":0}],"history":[],"stack":[]}`)},
		{"mask overflow", enc(`{"v":1,"hypotheses":[{"schedule":0,"position":0,"completed":300}],"history":[],"stack":[]}`)},
	}
	for _, tc := range cases {
		if _, err := DecodeSaveCode(tbl, tc.code); !errors.Is(err, ErrInvalidSaveCode) {
			t.Errorf("%s: err = %v, want ErrInvalidSaveCode", tc.name, err)
		}
	}
}

func TestDecodeSaveCode_AcceptsSymbolNames(t *testing.T) {
	tbl := defaultTable(t)
	doc := `{"v":1,"hypotheses":[{"schedule":1,"position":2,"completed":0}],"history":["Tiny Adventures"],` +
		`"locked":true,"stack":[{"hypotheses":[{"schedule":1,"position":2,"completed":0}],"locked":true}]}`
	s, err := DecodeSaveCode(tbl, base64.StdEncoding.EncodeToString([]byte(doc)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h := s.History(); len(h) != 1 || h[0] != "T" {
		t.Errorf("history = %v, want [T]", h)
	}
	if !s.CycleLocked() {
		t.Error("lock flag not restored")
	}
}

func TestUnmarshalState_KeepsStartedFlag(t *testing.T) {
	tbl := defaultTable(t)
	data, err := MarshalState(State{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	s, err := UnmarshalState(tbl, data)
	if err != nil {
		t.Fatal(err)
	}
	if s.Started() {
		t.Error("persisted blob of a pristine state should not be started")
	}
}

func TestDecodeSaveCode_UndoStaysInverse(t *testing.T) {
	tbl := defaultTable(t)
	before := mustApply(t, tbl, State{}, StartKnownCycle{}, Tap{Event: "T"})
	code, err := EncodeSaveCode(before, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := DecodeSaveCode(tbl, code)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	after := mustApply(t, tbl, loaded, Tap{Event: "F"}, Undo{})
	if !sameState(after, before) {
		t.Errorf("tap then undo after load = %v locked=%v, want %v locked=%v",
			after.Hypotheses(), after.CycleLocked(), before.Hypotheses(), before.CycleLocked())
	}
}

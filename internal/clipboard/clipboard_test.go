package clipboard

import (
	"context"
	"testing"

	"github.com/kokistudios/joyland/internal/schedule"
	"github.com/kokistudios/joyland/internal/tracker"
)

func TestMemory(t *testing.T) {
	var m Memory
	if err := m.WriteText("abc"); err != nil {
		t.Fatal(err)
	}
	got, err := m.ReadText()
	if err != nil || got != "abc" {
		t.Errorf("ReadText = %q, %v", got, err)
	}
}

func TestMemory_CarriesSaveCode(t *testing.T) {
	ctx := context.Background()
	clip := &Memory{}
	tr := tracker.New(schedule.Default(), tracker.WithClipboard(clip))
	tr.StartKnownCycle(ctx)
	if err := tr.Tap(ctx, "T"); err != nil {
		t.Fatal(err)
	}
	if !tr.CopySaveCode(ctx) {
		t.Fatal("CopySaveCode failed")
	}

	code, _ := clip.ReadText()
	other := tracker.New(schedule.Default())
	if !other.LoadSaveCode(ctx, code) {
		t.Fatal("LoadSaveCode failed")
	}
	if got := other.History(); len(got) != 1 || got[0] != "T" {
		t.Errorf("history = %v", got)
	}
}

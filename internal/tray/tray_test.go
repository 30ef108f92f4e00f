package tray

import (
	"testing"

	"github.com/ayusman/handrehab/internal/engine"
	"github.com/ayusman/handrehab/internal/gesture"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		snap engine.Snapshot
		want string
	}{
		{name: "empty", snap: engine.Snapshot{}, want: idleStatus},
		{
			name: "single event",
			snap: engine.Snapshot{Events: []engine.Event{{
				Kind:     gesture.KindOpenClose,
				Label:    "Fully Open",
				Counters: map[string]int{gesture.CounterCycles: 3},
			}}},
			want: "Fully Open (cycles 3)",
		},
		{
			name: "two subjects",
			snap: engine.Snapshot{Events: []engine.Event{
				{Kind: gesture.KindArmRaise, Label: "Lowered", Counters: map[string]int{gesture.CounterRaises: 1}},
				{Subject: 1, Kind: gesture.KindArmRaise, Label: "Side Raise | Angle: 90", Counters: map[string]int{gesture.CounterRaises: 2}},
			}},
			want: "Lowered (raises 1) | #1 Side Raise | Angle: 90 (raises 2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.snap); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTray_Toggle(t *testing.T) {
	tr := New()
	if tr.IsRunning() {
		t.Fatal("new tray should not be running")
	}

	var got []bool
	tr.OnToggle(func(running bool) { got = append(got, running) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("toggle callbacks = %v, want [true false]", got)
	}

	tr.SetRunning(true)
	if !tr.IsRunning() {
		t.Error("SetRunning(true) not reflected")
	}
}

func TestTray_SettingsCallback(t *testing.T) {
	tr := New()
	called := false
	tr.OnSettings(func() { called = true })
	tr.handleSettings()
	if !called {
		t.Error("settings callback not called")
	}
}

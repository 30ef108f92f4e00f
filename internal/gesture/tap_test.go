package gesture

import (
	"testing"
	"time"

	"github.com/ayusman/handrehab/internal/detector"
)

func at(ms int) time.Time {
	return time.Unix(1700000000, 0).Add(time.Duration(ms) * time.Millisecond)
}

func tapFrame(target int, ms int) *detector.Snapshot {
	s := detector.TapPose(target)
	s.Timestamp = at(ms)
	return &s
}

func TestTapSequencer_SingleTap(t *testing.T) {
	d := NewTapSequencer(40)

	// Thumb alternates inside and outside the index proximity circle.
	d.Update(tapFrame(-1, 0))
	d.Update(tapFrame(0, 100))
	d.Update(tapFrame(0, 200))
	d.Update(tapFrame(-1, 350))
	d.Update(tapFrame(-1, 400))

	pending := d.Pending()
	if len(pending) != 1 {
		t.Fatalf("len(Pending()) = %d, want 1", len(pending))
	}
	if pending[0].Target != "Index" {
		t.Errorf("Target = %q, want Index", pending[0].Target)
	}
	if pending[0].Duration != 250*time.Millisecond {
		t.Errorf("Duration = %v, want 250ms", pending[0].Duration)
	}
	if d.Target() != 1 {
		t.Errorf("Target() = %d, want 1 (Middle)", d.Target())
	}
	if r := d.Result(); r.Label != "Target: Middle" {
		t.Errorf("Label = %q, want Target: Middle", r.Label)
	}
}

func TestTapSequencer_WrongFingerDoesNotCount(t *testing.T) {
	d := NewTapSequencer(40)

	// Touching the middle finger while the index is the target is ignored.
	d.Update(tapFrame(1, 0))
	d.Update(tapFrame(-1, 100))

	if d.Target() != 0 {
		t.Errorf("Target() = %d, want 0", d.Target())
	}
	if len(d.Pending()) != 0 {
		t.Errorf("Pending() = %v, want empty", d.Pending())
	}
}

func TestTapSequencer_FistDoesNotCount(t *testing.T) {
	d := NewTapSequencer(40)

	// Everything bunched together: thumb near every fingertip.
	s := detector.OpenPalm()
	for _, tip := range detector.FingerTips {
		s.Points[tip] = detector.Point3D{X: 0.5, Y: 0.5}
	}
	s.Points[detector.ThumbTip] = detector.Point3D{X: 0.505, Y: 0.5}
	s.Timestamp = at(0)
	d.Update(&s)

	if d.Timing() {
		t.Error("closed fist should not start a tap")
	}
}

func TestTapSequencer_FullSequence(t *testing.T) {
	d := NewTapSequencer(40)

	var completed []Tap
	ms := 0
	for target := 0; target < 4; target++ {
		d.Update(tapFrame(target, ms))
		ms += 100 * (target + 1)
		d.Update(tapFrame(-1, ms))
		if r := d.Result(); len(r.Sequence) > 0 {
			completed = r.Sequence
		}
		ms += 50
	}

	if len(completed) != 4 {
		t.Fatalf("completed sequence has %d taps, want 4", len(completed))
	}
	for i, tap := range completed {
		if tap.Target != TapTargets[i] {
			t.Errorf("tap %d target = %q, want %q", i, tap.Target, TapTargets[i])
		}
		want := time.Duration(100*(i+1)) * time.Millisecond
		if tap.Duration != want {
			t.Errorf("tap %d duration = %v, want %v", i, tap.Duration, want)
		}
	}

	if d.Target() != 0 {
		t.Errorf("Target() = %d, want 0 after completion", d.Target())
	}
	if len(d.Pending()) != 0 {
		t.Errorf("Pending() = %v, want cleared", d.Pending())
	}

	r := d.Result()
	if r.Counters[CounterSequences] != 1 || r.Counters[CounterTaps] != 4 {
		t.Errorf("Counters = %v", r.Counters)
	}

	// The summary is only reported on the completing frame.
	d.Update(tapFrame(-1, ms+100))
	if r := d.Result(); len(r.Sequence) != 0 {
		t.Errorf("Sequence should be cleared on the next frame, got %v", r.Sequence)
	}
}

func TestTapSequencer_LostKeepsProgress(t *testing.T) {
	d := NewTapSequencer(40)
	d.Update(tapFrame(0, 0))
	d.Update(tapFrame(-1, 100))
	d.Update(tapFrame(1, 200))

	if !d.Timing() {
		t.Fatal("expected a tap on Middle to be in progress")
	}

	d.Lost()
	if d.Timing() {
		t.Error("Lost should drop the in-progress tap")
	}
	if d.Target() != 1 || len(d.Pending()) != 1 {
		t.Errorf("Lost should keep progress: target=%d pending=%d", d.Target(), len(d.Pending()))
	}

	// Releasing after the loss must not record a tap.
	d.Update(tapFrame(-1, 300))
	if len(d.Pending()) != 1 {
		t.Errorf("len(Pending()) = %d, want 1", len(d.Pending()))
	}

	d.Reset()
	if d.Target() != 0 || len(d.Pending()) != 0 || d.Result().Counters[CounterTaps] != 0 {
		t.Error("Reset should clear everything")
	}
}

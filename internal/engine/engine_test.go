package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/handrehab/internal/detector"
	"github.com/ayusman/handrehab/internal/gesture"
)

func frame(seq uint64, subjects ...detector.Snapshot) detector.Frame {
	ts := time.Unix(1700000000, 0).Add(time.Duration(seq) * 100 * time.Millisecond)
	for i := range subjects {
		subjects[i].Timestamp = ts
	}
	return detector.Frame{Seq: seq, Timestamp: ts, Subjects: subjects}
}

func newEngine(t *testing.T, kinds ...gesture.Kind) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Kinds = kinds
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestNew(t *testing.T) {
	t.Run("rejects empty kinds", func(t *testing.T) {
		if _, err := New(Config{}); err == nil {
			t.Error("expected error for empty kinds")
		}
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		if _, err := New(Config{Kinds: []gesture.Kind{"wave"}}); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("defaults grace frames", func(t *testing.T) {
		e, err := New(Config{Kinds: []gesture.Kind{gesture.KindRotation}})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if e.Config().GraceFrames != DefaultGraceFrames {
			t.Errorf("GraceFrames = %d, want %d", e.Config().GraceFrames, DefaultGraceFrames)
		}
	})
}

func TestEngine_OpenCloseScenario(t *testing.T) {
	e := newEngine(t, gesture.KindOpenClose)

	var labels []string
	inputs := []detector.Snapshot{
		detector.Curled(true, true, true, true),
		detector.Curled(false, false, false, false),
	}
	for i, s := range inputs {
		snap, err := e.Process(frame(uint64(i+1), s))
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		ev, ok := snap.Event(0, gesture.KindOpenClose)
		if !ok {
			t.Fatal("missing open-close event")
		}
		labels = append(labels, ev.Label)
	}

	if labels[0] != "Fully Closed" || labels[1] != "Fully Open" {
		t.Errorf("labels = %v, want [Fully Closed Fully Open]", labels)
	}
	if got := e.Last().Counter(gesture.KindOpenClose, gesture.CounterCycles); got != 1 {
		t.Errorf("cycles = %d, want 1", got)
	}
}

func TestEngine_IdleSnapshot(t *testing.T) {
	e := newEngine(t, gesture.KindRotation)

	snap, err := e.Process(frame(1))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	ev, ok := snap.Event(0, gesture.KindRotation)
	if !ok {
		t.Fatal("expected an event for slot 0 even without subjects")
	}
	if ev.Label != "No Hand Detected" || ev.Present {
		t.Errorf("unexpected idle event: %+v", ev)
	}
	if ev.Counters[gesture.CounterRotations] != 0 {
		t.Errorf("rotations = %d, want 0", ev.Counters[gesture.CounterRotations])
	}
}

func TestEngine_SubjectLossResetsRotationHysteresis(t *testing.T) {
	e := newEngine(t, gesture.KindRotation)

	e.Process(frame(1, detector.HandAt(0)))
	e.Process(frame(2, detector.HandAt(40)))
	// Hand gone for one frame.
	e.Process(frame(3))
	// Reappears at a very different angle: no rotation from the stale angle.
	snap, _ := e.Process(frame(4, detector.HandAt(-120)))

	if got := snap.Counter(gesture.KindRotation, gesture.CounterRotations); got != 1 {
		t.Errorf("rotations = %d, want 1", got)
	}

	// Disarmed by the loss, so the next crossing counts.
	snap, _ = e.Process(frame(5, detector.HandAt(-60)))
	if got := snap.Counter(gesture.KindRotation, gesture.CounterRotations); got != 2 {
		t.Errorf("rotations = %d, want 2", got)
	}
}

func TestEngine_GraceFrames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Kinds = []gesture.Kind{gesture.KindRotation}
	cfg.GraceFrames = 3
	e, _ := New(cfg)

	e.Process(frame(1, detector.HandAt(0)))
	e.Process(frame(2))
	e.Process(frame(3))
	// Two misses are within grace: the previous angle is kept and this counts.
	snap, _ := e.Process(frame(4, detector.HandAt(90)))
	if got := snap.Counter(gesture.KindRotation, gesture.CounterRotations); got != 1 {
		t.Errorf("rotations = %d, want 1", got)
	}

	e.Process(frame(5))
	e.Process(frame(6))
	e.Process(frame(7))
	ev, _ := e.Last().Event(0, gesture.KindRotation)
	if ev.Present {
		t.Error("subject should be lost after 3 missed frames")
	}
}

func TestEngine_OutOfOrder(t *testing.T) {
	e := newEngine(t, gesture.KindOpenClose)

	e.Process(frame(5, detector.Fist()))
	before := e.Last()

	_, err := e.Process(frame(4, detector.OpenPalm()))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("Process() error = %v, want ErrOutOfOrder", err)
	}

	_, err = e.Process(frame(5, detector.OpenPalm()))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("duplicate seq error = %v, want ErrOutOfOrder", err)
	}

	if got := e.Last().Counter(gesture.KindOpenClose, gesture.CounterCycles); got != 0 {
		t.Errorf("out-of-order frames changed state: cycles = %d", got)
	}
	if e.Last().Seq != before.Seq {
		t.Errorf("Last().Seq = %d, want %d", e.Last().Seq, before.Seq)
	}
}

func TestEngine_TaxonomyAndMissingLandmarks(t *testing.T) {
	e := newEngine(t, gesture.KindOpenClose, gesture.KindArmRaise)

	pose := detector.ArmPose(true)
	pose.Subject = 1
	snap, _ := e.Process(frame(1, detector.Fist(), pose))

	if ev, _ := snap.Event(0, gesture.KindOpenClose); ev.Label != "Fully Closed" {
		t.Errorf("hand label = %q, want Fully Closed", ev.Label)
	}
	if ev, _ := snap.Event(0, gesture.KindArmRaise); ev.Label != "No Pose Detected" {
		t.Errorf("arm raise should ignore hand snapshots, label = %q", ev.Label)
	}
	if ev, _ := snap.Event(1, gesture.KindArmRaise); ev.Counters[gesture.CounterRaises] != 1 {
		t.Errorf("raises = %d, want 1", ev.Counters[gesture.CounterRaises])
	}

	// A hand missing a fingertip is "no update", not a loss.
	partial := detector.OpenPalm()
	delete(partial.Points, detector.PinkyTip)
	snap, _ = e.Process(frame(2, partial))
	ev, _ := snap.Event(0, gesture.KindOpenClose)
	if ev.Label != "Fully Closed" || !ev.Present {
		t.Errorf("partial snapshot should leave state unchanged, got %+v", ev)
	}
}

func TestEngine_MultipleSubjectsAreIndependent(t *testing.T) {
	e := newEngine(t, gesture.KindOpenClose)

	right := detector.Fist()
	left := detector.OpenPalm()
	left.Subject = 1
	e.Process(frame(1, right, left))

	right = detector.OpenPalm()
	left = detector.OpenPalm()
	left.Subject = 1
	snap, _ := e.Process(frame(2, right, left))

	r, _ := snap.Event(0, gesture.KindOpenClose)
	l, _ := snap.Event(1, gesture.KindOpenClose)
	if r.Counters[gesture.CounterCycles] != 1 || l.Counters[gesture.CounterCycles] != 0 {
		t.Errorf("cycles right=%d left=%d, want 1 and 0", r.Counters[gesture.CounterCycles], l.Counters[gesture.CounterCycles])
	}
	if snap.Counter(gesture.KindOpenClose, gesture.CounterCycles) != 1 {
		t.Errorf("total cycles = %d, want 1", snap.Counter(gesture.KindOpenClose, gesture.CounterCycles))
	}
	if snap.Events[0].Subject != 0 || snap.Events[1].Subject != 1 {
		t.Errorf("events not ordered by subject: %+v", snap.Events)
	}
}

func TestEngine_SnapshotsAreImmutable(t *testing.T) {
	e := newEngine(t, gesture.KindOpenClose)

	e.Process(frame(1, detector.Fist()))
	first, _ := e.Process(frame(2, detector.OpenPalm()))
	first.Events[0].Counters[gesture.CounterCycles] = 99

	e.Process(frame(3, detector.Fist()))
	snap, _ := e.Process(frame(4, detector.OpenPalm()))
	if got := snap.Counter(gesture.KindOpenClose, gesture.CounterCycles); got != 2 {
		t.Errorf("cycles = %d, want 2", got)
	}
}

func TestEngine_TapSequenceCompletion(t *testing.T) {
	e := newEngine(t, gesture.KindFingerTap)

	seq := uint64(0)
	next := func(s detector.Snapshot) Snapshot {
		seq++
		snap, err := e.Process(frame(seq, s))
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		return snap
	}

	var completed []gesture.Tap
	for target := 0; target < 4; target++ {
		next(detector.TapPose(target))
		snap := next(detector.TapPose(-1))
		if ev, _ := snap.Event(0, gesture.KindFingerTap); len(ev.Sequence) > 0 {
			completed = ev.Sequence
		}
	}

	if len(completed) != 4 {
		t.Fatalf("completed_sequence has %d taps, want 4", len(completed))
	}
	for _, tap := range completed {
		if tap.Duration != 100*time.Millisecond {
			t.Errorf("%s duration = %v, want 100ms", tap.Target, tap.Duration)
		}
	}

	ev, _ := e.Last().Event(0, gesture.KindFingerTap)
	if ev.Label != "Target: Index" {
		t.Errorf("Label = %q, want Target: Index", ev.Label)
	}
}

func TestEngine_CompletedSequenceIsReportedOnce(t *testing.T) {
	tests := []struct {
		name  string
		grace int
		after func() []detector.Snapshot
	}{
		{
			name:  "present without a fingertip",
			grace: DefaultGraceFrames,
			after: func() []detector.Snapshot {
				s := detector.TapPose(-1)
				delete(s.Points, detector.PinkyTip)
				return []detector.Snapshot{s}
			},
		},
		{
			name:  "missing within grace",
			grace: 5,
			after: func() []detector.Snapshot { return nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Kinds = []gesture.Kind{gesture.KindFingerTap}
			cfg.GraceFrames = tt.grace
			e, err := New(cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			seq := uint64(0)
			var last Snapshot
			for target := 0; target < 4; target++ {
				seq++
				e.Process(frame(seq, detector.TapPose(target)))
				seq++
				last, _ = e.Process(frame(seq, detector.TapPose(-1)))
			}
			if ev, _ := last.Event(0, gesture.KindFingerTap); len(ev.Sequence) != 4 {
				t.Fatalf("completing frame sequence len = %d, want 4", len(ev.Sequence))
			}

			for i := 0; i < 3; i++ {
				seq++
				snap, err := e.Process(frame(seq, tt.after()...))
				if err != nil {
					t.Fatalf("Process() error = %v", err)
				}
				ev, _ := snap.Event(0, gesture.KindFingerTap)
				if len(ev.Sequence) != 0 {
					t.Errorf("frame %d after completion repeated the sequence (%d taps)", i, len(ev.Sequence))
				}
				if got := snap.Counter(gesture.KindFingerTap, gesture.CounterSequences); got != 1 {
					t.Errorf("sequences = %d, want 1", got)
				}
			}
		})
	}
}

func TestEngine_OpenCloseCycleSpansLoss(t *testing.T) {
	e := newEngine(t, gesture.KindOpenClose)

	e.Process(frame(1, detector.Fist()))
	snap, _ := e.Process(frame(2))
	if ev, _ := snap.Event(0, gesture.KindOpenClose); ev.Present || ev.Label != "Unknown" {
		t.Errorf("lost hand event = %+v, want absent with Unknown label", ev)
	}

	snap, _ = e.Process(frame(3, detector.OpenPalm()))
	if got := snap.Counter(gesture.KindOpenClose, gesture.CounterCycles); got != 1 {
		t.Errorf("cycles = %d, want 1", got)
	}
}

func TestEngine_Reset(t *testing.T) {
	e := newEngine(t, gesture.KindOpenClose)

	e.Process(frame(1, detector.Fist()))
	e.Process(frame(2, detector.OpenPalm()))
	e.Reset()

	snap, _ := e.Process(frame(3, detector.OpenPalm()))
	if got := snap.Counter(gesture.KindOpenClose, gesture.CounterCycles); got != 0 {
		t.Errorf("cycles after Reset = %d, want 0", got)
	}
}

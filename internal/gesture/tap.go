package gesture

import (
	"time"

	"github.com/ayusman/handrehab/internal/detector"
)

// Tap sequencer counters.
const (
	CounterTaps      = "taps"
	CounterSequences = "sequences"
)

// TapTargets names the fingers in tap order. They match detector.FingerTips.
var TapTargets = []string{"Index", "Middle", "Ring", "Pinky"}

// TapSequencer times thumb taps on each finger in turn.
//
// AwaitingTap(i) -> Tapping(i, start) on contact; Tapping -> AwaitingTap(i+1) on
// release. After the last finger the completed log is emitted and cleared.
type TapSequencer struct {
	threshold float64
	target    int
	start     time.Time
	timing    bool
	log       []Tap
	completed []Tap
	taps      int
	sequences int
}

// NewTapSequencer creates a sequencer. threshold is the contact distance in pixels.
func NewTapSequencer(threshold float64) *TapSequencer {
	if threshold <= 0 {
		threshold = DefaultTapThreshold
	}
	return &TapSequencer{threshold: threshold}
}

func (d *TapSequencer) Kind() Kind { return KindFingerTap }
func (d *TapSequencer) Taxonomy() detector.Taxonomy { return detector.TaxonomyHand }
func (d *TapSequencer) Required() []detector.ID {
	return append([]detector.ID{detector.ThumbTip}, detector.FingerTips...)
}

// touching reports whether the thumb touches the current target and no other fingertip.
// Requiring the others to stay away keeps a closed fist from tapping every finger.
func (d *TapSequencer) touching(s *detector.Snapshot) bool {
	thumb, _ := s.Pixel(detector.ThumbTip)
	for i, tip := range detector.FingerTips {
		p, _ := s.Pixel(tip)
		near := detector.Distance(thumb, p) < d.threshold
		if i == d.target && !near {
			return false
		}
		if i != d.target && near {
			return false
		}
	}
	return true
}

func (d *TapSequencer) Update(s *detector.Snapshot) {
	d.Observe(d.touching(s), s.Timestamp)
}

// Observe advances the state machine with a contact reading taken at now.
// It returns the completed sequence when the last target is released.
func (d *TapSequencer) Observe(touching bool, now time.Time) []Tap {
	d.completed = nil

	if touching {
		if !d.timing {
			d.start = now
			d.timing = true
		}
		return nil
	}

	if !d.timing {
		return nil
	}

	duration := now.Sub(d.start)
	d.log = append(d.log, Tap{
		Target:   TapTargets[d.target],
		Duration: duration,
		Seconds:  duration.Seconds(),
	})
	d.taps++
	d.timing = false
	d.start = time.Time{}
	d.target++

	if d.target >= len(TapTargets) {
		d.completed = d.log
		d.log = nil
		d.target = 0
		d.sequences++
	}
	return d.completed
}

// Lost drops an in-progress tap. The current target and completed taps are kept.
func (d *TapSequencer) Lost() {
	d.timing = false
	d.start = time.Time{}
	d.completed = nil
}

func (d *TapSequencer) Reset() {
	d.Lost()
	d.target = 0
	d.log = nil
	d.taps = 0
	d.sequences = 0
}

// Target returns the index of the finger expected next.
func (d *TapSequencer) Target() int { return d.target }

// Timing reports whether a tap is in progress.
func (d *TapSequencer) Timing() bool { return d.timing }

// Pending returns the taps completed in the current sequence.
func (d *TapSequencer) Pending() []Tap {
	out := make([]Tap, len(d.log))
	copy(out, d.log)
	return out
}

func (d *TapSequencer) Result() Result {
	r := Result{
		Kind:  KindFingerTap,
		Label: "Target: " + TapTargets[d.target],
		Counters: map[string]int{
			CounterTaps:      d.taps,
			CounterSequences: d.sequences,
		},
	}
	if len(d.completed) > 0 {
		r.Sequence = make([]Tap, len(d.completed))
		copy(r.Sequence, d.completed)
	}
	return r
}

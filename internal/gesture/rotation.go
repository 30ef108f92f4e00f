package gesture

import (
	"fmt"
	"math"

	"github.com/ayusman/handrehab/internal/detector"
)

// CounterRotations counts wrist rotations beyond the threshold.
const CounterRotations = "rotations"

// Rotation counts wrist rotations from the wrist to middle-finger MCP direction.
type Rotation struct {
	threshold float64
	policy    ArmPolicy
	previous  float64
	hasPrev   bool
	armed     bool
	count     int
	present   bool
}

// NewRotation creates a rotation detector. A non-positive threshold uses the default.
func NewRotation(threshold float64, policy ArmPolicy) *Rotation {
	if threshold <= 0 {
		threshold = DefaultRotationThreshold
	}
	if policy == "" {
		policy = RearmOnLoss
	}
	return &Rotation{threshold: threshold, policy: policy}
}

func (d *Rotation) Kind() Kind { return KindRotation }
func (d *Rotation) Taxonomy() detector.Taxonomy { return detector.TaxonomyHand }
func (d *Rotation) Required() []detector.ID {
	return []detector.ID{detector.Wrist, detector.MiddleMCP}
}

// NormalizeDiff folds an angle difference into (-180, 180].
func NormalizeDiff(diff float64) float64 {
	if diff > 180 {
		diff -= 360
	} else if diff <= -180 {
		diff += 360
	}
	return diff
}

// Observe advances the detector with an angle in degrees. It reports whether a
// rotation was counted.
func (d *Rotation) Observe(angle float64) bool {
	d.present = true
	counted := false

	if d.hasPrev {
		diff := NormalizeDiff(angle - d.previous)
		if math.Abs(diff) > d.threshold {
			if !d.armed {
				d.count++
				d.armed = true
				counted = true
			}
		} else if d.policy == RearmOnSettle {
			d.armed = false
		}
	} else {
		d.armed = false
	}

	d.previous = angle
	d.hasPrev = true
	return counted
}

func (d *Rotation) Update(s *detector.Snapshot) {
	wrist, _ := s.Point(detector.Wrist)
	mcp, _ := s.Point(detector.MiddleMCP)
	d.Observe(detector.AngleDeg(wrist, mcp))
}

func (d *Rotation) Lost() {
	d.hasPrev = false
	d.previous = 0
	d.armed = false
	d.present = false
}

func (d *Rotation) Reset() {
	d.Lost()
	d.count = 0
}

// PreviousAngle returns the last observed angle, if any.
func (d *Rotation) PreviousAngle() (float64, bool) { return d.previous, d.hasPrev }

// Armed reports whether a rotation has been counted and not yet released.
func (d *Rotation) Armed() bool { return d.armed }

// Count returns the number of counted rotations.
func (d *Rotation) Count() int { return d.count }

func (d *Rotation) Result() Result {
	label := "No Hand Detected"
	if d.present {
		label = fmt.Sprintf("Rotations: %d", d.count)
	}
	return Result{
		Kind:     KindRotation,
		Label:    label,
		Counters: map[string]int{CounterRotations: d.count},
	}
}

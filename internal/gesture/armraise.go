package gesture

import (
	"fmt"
	"math"

	"github.com/ayusman/handrehab/internal/detector"
)

// CounterRaises counts lowered-to-raised transitions of the left arm.
const CounterRaises = "raises"

// ArmRaise classifies the left arm of a pose subject as lowered, side raise or front raise.
type ArmRaise struct {
	height  float64
	raised  bool
	present bool
	label   string
	angle   float64
	count   int
}

// NewArmRaise creates an arm raise detector. height is how far (in normalized units)
// the wrist must be above the shoulder to count as raised.
func NewArmRaise(height float64) *ArmRaise {
	if height <= 0 {
		height = DefaultRaiseHeight
	}
	return &ArmRaise{height: height, label: "No Pose Detected"}
}

func (d *ArmRaise) Kind() Kind { return KindArmRaise }
func (d *ArmRaise) Taxonomy() detector.Taxonomy { return detector.TaxonomyPose }
func (d *ArmRaise) Required() []detector.ID {
	return []detector.ID{detector.LeftShoulder, detector.LeftElbow, detector.LeftWrist, detector.LeftHip}
}

func (d *ArmRaise) Update(s *detector.Snapshot) {
	shoulder, _ := s.Point(detector.LeftShoulder)
	elbow, _ := s.Point(detector.LeftElbow)
	wrist, _ := s.Point(detector.LeftWrist)
	hip, _ := s.Point(detector.LeftHip)

	d.present = true
	d.angle = detector.JointAngle(hip, shoulder, elbow)

	// y grows downward: positive when the hand is above the shoulder.
	raised := shoulder.Y-wrist.Y > d.height
	if !raised {
		d.raised = false
		d.label = "Lowered"
		return
	}

	direction := "Front Raise"
	if math.Abs(shoulder.X-wrist.X) > math.Abs(shoulder.Z-wrist.Z) {
		direction = "Side Raise"
	}
	d.label = fmt.Sprintf("%s | Angle: %d", direction, int(d.angle))

	if !d.raised {
		d.count++
	}
	d.raised = true
}

// Lost keeps the raised flag: a subject that leaves and returns with the arm still
// up is not counted again.
func (d *ArmRaise) Lost() {
	d.present = false
	d.label = "No Pose Detected"
}

func (d *ArmRaise) Reset() {
	d.Lost()
	d.raised = false
	d.count = 0
}

// Angle returns the latest hip-shoulder-elbow angle in degrees.
func (d *ArmRaise) Angle() float64 { return d.angle }

// Count returns the number of counted raises.
func (d *ArmRaise) Count() int { return d.count }

func (d *ArmRaise) Result() Result {
	return Result{
		Kind:     KindArmRaise,
		Label:    d.label,
		Counters: map[string]int{CounterRaises: d.count},
	}
}

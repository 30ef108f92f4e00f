package detector

import (
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns queued results in order, then falls back to the fixed subjects.
type MockDetector struct {
	mu       sync.Mutex
	subjects []Snapshot
	queue    [][]Snapshot
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetSubjects sets the subjects returned once the queue is drained.
func (m *MockDetector) SetSubjects(subjects []Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = subjects
}

// Queue appends per-call results. A nil entry means nothing was detected.
func (m *MockDetector) Queue(results ...[]Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, results...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued result, the fixed subjects, or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	now := time.Now()
	var out []Snapshot
	if len(m.queue) > 0 {
		out = m.queue[0]
		m.queue = m.queue[1:]
	} else {
		out = m.subjects
	}

	result := make([]Snapshot, len(out))
	for i, s := range out {
		if s.Timestamp.IsZero() {
			s.Timestamp = now
		}
		result[i] = s
	}
	return result, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

func newHand(points [NumHandLandmarks]Point3D) Snapshot {
	s := Snapshot{
		Taxonomy:   TaxonomyHand,
		Handedness: "Right",
		Score:      0.95,
		Points:     make(map[ID]Point3D, NumHandLandmarks),
		Width:      DefaultFrameWidth,
		Height:     DefaultFrameHeight,
	}
	for i, p := range points {
		s.Points[ID(i)] = p
	}
	return s
}

// OpenPalm returns a hand with all four fingers extended upward.
func OpenPalm() Snapshot {
	var p [NumHandLandmarks]Point3D

	p[Wrist] = Point3D{X: 0.5, Y: 0.8}

	// Thumb extended to the side
	p[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	p[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	p[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	p[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	p[IndexMCP] = Point3D{X: 0.55, Y: 0.68}
	p[IndexPIP] = Point3D{X: 0.57, Y: 0.55}
	p[IndexDIP] = Point3D{X: 0.58, Y: 0.45}
	p[IndexTip] = Point3D{X: 0.58, Y: 0.35}

	p[MiddleMCP] = Point3D{X: 0.50, Y: 0.66}
	p[MiddlePIP] = Point3D{X: 0.50, Y: 0.52}
	p[MiddleDIP] = Point3D{X: 0.50, Y: 0.40}
	p[MiddleTip] = Point3D{X: 0.50, Y: 0.28}

	p[RingMCP] = Point3D{X: 0.45, Y: 0.68}
	p[RingPIP] = Point3D{X: 0.43, Y: 0.55}
	p[RingDIP] = Point3D{X: 0.42, Y: 0.45}
	p[RingTip] = Point3D{X: 0.42, Y: 0.35}

	p[PinkyMCP] = Point3D{X: 0.40, Y: 0.70}
	p[PinkyPIP] = Point3D{X: 0.37, Y: 0.60}
	p[PinkyDIP] = Point3D{X: 0.35, Y: 0.50}
	p[PinkyTip] = Point3D{X: 0.34, Y: 0.42}

	return newHand(p)
}

// Fist returns a hand with every fingertip below its PIP joint.
func Fist() Snapshot {
	var p [NumHandLandmarks]Point3D

	p[Wrist] = Point3D{X: 0.5, Y: 0.8}

	p[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	p[ThumbMCP] = Point3D{X: 0.58, Y: 0.70, Z: 0.02}
	p[ThumbIP] = Point3D{X: 0.57, Y: 0.66, Z: 0.0}
	p[ThumbTip] = Point3D{X: 0.53, Y: 0.66, Z: -0.02}

	p[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: -0.02}
	p[IndexPIP] = Point3D{X: 0.55, Y: 0.62, Z: -0.05}
	p[IndexDIP] = Point3D{X: 0.54, Y: 0.66, Z: -0.04}
	p[IndexTip] = Point3D{X: 0.54, Y: 0.70, Z: -0.02}

	p[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: -0.02}
	p[MiddlePIP] = Point3D{X: 0.50, Y: 0.60, Z: -0.05}
	p[MiddleDIP] = Point3D{X: 0.49, Y: 0.64, Z: -0.04}
	p[MiddleTip] = Point3D{X: 0.49, Y: 0.69, Z: -0.02}

	p[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: -0.02}
	p[RingPIP] = Point3D{X: 0.45, Y: 0.62, Z: -0.05}
	p[RingDIP] = Point3D{X: 0.44, Y: 0.66, Z: -0.04}
	p[RingTip] = Point3D{X: 0.44, Y: 0.70, Z: -0.02}

	p[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: -0.02}
	p[PinkyPIP] = Point3D{X: 0.40, Y: 0.65, Z: -0.05}
	p[PinkyDIP] = Point3D{X: 0.40, Y: 0.68, Z: -0.04}
	p[PinkyTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	return newHand(p)
}

// Curled returns an open palm with the selected fingers (index, middle, ring, pinky)
// folded so that each tip sits below its PIP joint.
func Curled(index, middle, ring, pinky bool) Snapshot {
	open := OpenPalm()
	fist := Fist()
	for i, curled := range []bool{index, middle, ring, pinky} {
		if !curled {
			continue
		}
		tip := FingerTips[i]
		for id := tip - 3; id <= tip; id++ {
			open.Points[id] = fist.Points[id]
		}
	}
	return open
}

// HandAt returns an open palm rotated so that the wrist to middle-finger MCP vector
// points at the given angle in degrees.
func HandAt(angleDeg float64) Snapshot {
	s := OpenPalm()
	wrist := s.Points[Wrist]
	rad := angleDeg * math.Pi / 180
	s.Points[MiddleMCP] = Point3D{X: wrist.X + 0.15*math.Cos(rad), Y: wrist.Y + 0.15*math.Sin(rad)}
	return s
}

// TapPose returns a hand whose thumb tip rests on the fingertip at position target
// in FingerTips. A negative target leaves the thumb away from every fingertip.
func TapPose(target int) Snapshot {
	s := OpenPalm()
	if target < 0 || target >= len(FingerTips) {
		s.Points[ThumbTip] = Point3D{X: 0.80, Y: 0.75}
		return s
	}
	tip := s.Points[FingerTips[target]]
	s.Points[ThumbTip] = Point3D{X: tip.X + 0.01, Y: tip.Y + 0.01}
	return s
}

// ArmPose returns a pose subject with the left arm lowered or raised to the side.
func ArmPose(raised bool) Snapshot {
	s := Snapshot{
		Taxonomy: TaxonomyPose,
		Score:    0.9,
		Points:   make(map[ID]Point3D, 8),
		Width:    DefaultFrameWidth,
		Height:   DefaultFrameHeight,
	}
	s.Points[LeftShoulder] = Point3D{X: 0.60, Y: 0.40}
	s.Points[RightShoulder] = Point3D{X: 0.40, Y: 0.40}
	s.Points[LeftHip] = Point3D{X: 0.58, Y: 0.75}
	s.Points[RightHip] = Point3D{X: 0.42, Y: 0.75}
	if raised {
		s.Points[LeftElbow] = Point3D{X: 0.75, Y: 0.32}
		s.Points[LeftWrist] = Point3D{X: 0.88, Y: 0.22}
	} else {
		s.Points[LeftElbow] = Point3D{X: 0.62, Y: 0.55}
		s.Points[LeftWrist] = Point3D{X: 0.63, Y: 0.70}
	}
	return s
}

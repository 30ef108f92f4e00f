// Package gesture turns per-frame landmark snapshots into debounced gesture events.
//
// Each Detector owns the state of exactly one subject and must be driven by a single
// goroutine, in frame order.
package gesture

import (
	"fmt"
	"time"

	"github.com/ayusman/handrehab/internal/detector"
)

// Kind identifies a gesture family.
type Kind string

const (
	KindOpenClose Kind = "open-close"
	KindRotation  Kind = "rotation"
	KindFingerTap Kind = "finger-tap"
	KindArmRaise  Kind = "arm-raise"
)

// Kinds lists every supported gesture family.
var Kinds = []Kind{KindOpenClose, KindRotation, KindFingerTap, KindArmRaise}

// ParseKind parses a gesture family name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown gesture kind %q", s)
}

// Tap is one completed finger tap.
type Tap struct {
	Target   string        `json:"target"`
	Duration time.Duration `json:"-"`
	Seconds  float64       `json:"duration_seconds"`
}

// Result is the observable state of a detector after the latest update.
type Result struct {
	Kind     Kind
	Label    string
	Counters map[string]int
	// Sequence is only set on the frame that completes a tap sequence.
	Sequence []Tap
}

// Detector is the strategy implemented by each gesture family.
type Detector interface {
	Kind() Kind
	// Taxonomy is the landmark model the detector reads.
	Taxonomy() detector.Taxonomy
	// Required lists the landmarks that must be present for Update to be called.
	Required() []detector.ID
	// Update feeds one frame of the subject.
	Update(s *detector.Snapshot)
	// Lost tells the detector its subject disappeared. Hysteresis state is cleared,
	// counters are kept.
	Lost()
	// Reset clears everything, counters included.
	Reset()
	Result() Result
}

// Default tunables.
const (
	DefaultRotationThreshold = 30.0 // degrees
	DefaultTapThreshold      = 40.0 // pixels
	DefaultRaiseHeight       = 0.05 // normalized units above the shoulder
)

// ArmPolicy decides when a rotation detector may count again.
type ArmPolicy string

const (
	// RearmOnLoss disarms only when the hand disappears (or on the first frame after it).
	RearmOnLoss ArmPolicy = "loss"
	// RearmOnSettle additionally disarms once a frame-to-frame change is within threshold.
	RearmOnSettle ArmPolicy = "settle"
)

// CurlPair compares a fingertip with the joint it must drop below to count as curled.
type CurlPair struct {
	Tip   detector.ID `json:"tip"`
	Joint detector.ID `json:"joint"`
}

// DefaultCurlPairs compares each fingertip with its PIP joint.
var DefaultCurlPairs = []CurlPair{
	{Tip: detector.IndexTip, Joint: detector.IndexPIP},
	{Tip: detector.MiddleTip, Joint: detector.MiddlePIP},
	{Tip: detector.RingTip, Joint: detector.RingPIP},
	{Tip: detector.PinkyTip, Joint: detector.PinkyPIP},
}

// Config holds the tunables of every detector.
type Config struct {
	CurlPairs         []CurlPair
	RotationThreshold float64
	RotationPolicy    ArmPolicy
	TapThreshold      float64
	RaiseHeight       float64
}

// DefaultConfig returns a Config with the default thresholds.
func DefaultConfig() Config {
	pairs := make([]CurlPair, len(DefaultCurlPairs))
	copy(pairs, DefaultCurlPairs)
	return Config{
		CurlPairs:         pairs,
		RotationThreshold: DefaultRotationThreshold,
		RotationPolicy:    RearmOnLoss,
		TapThreshold:      DefaultTapThreshold,
		RaiseHeight:       DefaultRaiseHeight,
	}
}

// New creates a detector of the given kind.
func New(kind Kind, cfg Config) (Detector, error) {
	switch kind {
	case KindOpenClose:
		return NewOpenClose(cfg.CurlPairs), nil
	case KindRotation:
		return NewRotation(cfg.RotationThreshold, cfg.RotationPolicy), nil
	case KindFingerTap:
		return NewTapSequencer(cfg.TapThreshold), nil
	case KindArmRaise:
		return NewArmRaise(cfg.RaiseHeight), nil
	default:
		return nil, fmt.Errorf("unknown gesture kind %q", kind)
	}
}

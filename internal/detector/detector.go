package detector

import "gocv.io/x/gocv"

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns one snapshot per detected subject.
	// Returns an empty slice if nothing is detected.
	Detect(frame *gocv.Mat) ([]Snapshot, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// Taxonomy selects the landmark model (hand or pose).
	Taxonomy Taxonomy `json:"taxonomy,omitempty"`

	// MaxSubjects is the maximum number of hands or bodies to detect (default: 1).
	MaxSubjects int `json:"max_subjects,omitempty"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `json:"min_confidence,omitempty"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `json:"min_tracking_confidence,omitempty"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Taxonomy:        TaxonomyHand,
		MaxSubjects:     1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}

package app

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/handrehab/internal/broadcast"
	"github.com/ayusman/handrehab/internal/capture"
	"github.com/ayusman/handrehab/internal/engine"
	"github.com/ayusman/handrehab/internal/gesture"
	"github.com/ayusman/handrehab/internal/store"
)

// Setting keys as stored in the settings table.
const (
	KeyRotationThreshold = "rotation_threshold"
	KeyRotationPolicy    = "rotation_policy"
	KeyTapThreshold      = "tap_threshold"
	KeyRaiseHeight       = "raise_height"
	KeyGraceFrames       = "grace_frames"
	KeyQueueDepth        = "queue_depth"
	KeyMirror            = "mirror"
	KeyIdleFPS           = "idle_fps"
	KeyActiveFPS         = "active_fps"
	KeyMotionThreshold   = "motion_threshold"
	KeySessionSeconds    = "session_seconds"
)

// DefaultSessionSeconds is the length of an exercise session. Zero runs until stopped.
const DefaultSessionSeconds = 30

// Settings are the user-adjustable tunables applied to every new session.
type Settings struct {
	RotationThreshold float64           `json:"rotation_threshold"`
	RotationPolicy    gesture.ArmPolicy `json:"rotation_policy"`
	TapThreshold      float64           `json:"tap_threshold"`
	RaiseHeight       float64           `json:"raise_height"`
	GraceFrames       int               `json:"grace_frames"`
	QueueDepth        int               `json:"queue_depth"`
	Mirror            bool              `json:"mirror"`
	IdleFPS           int               `json:"idle_fps"`
	ActiveFPS         int               `json:"active_fps"`
	MotionThreshold   float64           `json:"motion_threshold"`
	SessionSeconds    int               `json:"session_seconds"`
}

// DefaultSettings returns the built-in tunables.
func DefaultSettings() Settings {
	return Settings{
		RotationThreshold: gesture.DefaultRotationThreshold,
		RotationPolicy:    gesture.RearmOnLoss,
		TapThreshold:      gesture.DefaultTapThreshold,
		RaiseHeight:       gesture.DefaultRaiseHeight,
		GraceFrames:       engine.DefaultGraceFrames,
		QueueDepth:        broadcast.DefaultDepth,
		Mirror:            true,
		IdleFPS:           capture.DefaultIdleFPS,
		ActiveFPS:         capture.DefaultActiveFPS,
		MotionThreshold:   capture.DefaultMotionThreshold,
		SessionSeconds:    DefaultSessionSeconds,
	}
}

// Validate checks every field is within range.
func (s Settings) Validate() error {
	switch {
	case s.RotationThreshold <= 0 || s.RotationThreshold >= 180:
		return errors.New("rotation_threshold must be in (0, 180)")
	case s.RotationPolicy != gesture.RearmOnLoss && s.RotationPolicy != gesture.RearmOnSettle:
		return fmt.Errorf("rotation_policy must be %q or %q", gesture.RearmOnLoss, gesture.RearmOnSettle)
	case s.TapThreshold <= 0:
		return errors.New("tap_threshold must be positive")
	case s.RaiseHeight <= 0 || s.RaiseHeight >= 1:
		return errors.New("raise_height must be in (0, 1)")
	case s.GraceFrames < 1:
		return errors.New("grace_frames must be at least 1")
	case s.QueueDepth < 1 || s.QueueDepth > broadcast.MaxDepth:
		return fmt.Errorf("queue_depth must be between 1 and %d", broadcast.MaxDepth)
	case s.IdleFPS < 1 || s.ActiveFPS < 1:
		return errors.New("idle_fps and active_fps must be positive")
	case s.MotionThreshold <= 0:
		return errors.New("motion_threshold must be positive")
	case s.SessionSeconds < 0:
		return errors.New("session_seconds must not be negative")
	}
	return nil
}

// GestureConfig returns the detector tunables.
func (s Settings) GestureConfig() gesture.Config {
	cfg := gesture.DefaultConfig()
	cfg.RotationThreshold = s.RotationThreshold
	cfg.RotationPolicy = s.RotationPolicy
	cfg.TapThreshold = s.TapThreshold
	cfg.RaiseHeight = s.RaiseHeight
	return cfg
}

// PacerConfig returns the frame pacing settings.
func (s Settings) PacerConfig() capture.PacerConfig {
	cfg := capture.DefaultPacerConfig()
	cfg.IdleFPS = s.IdleFPS
	cfg.ActiveFPS = s.ActiveFPS
	cfg.MotionThreshold = s.MotionThreshold
	return cfg
}

// toMap renders s as setting rows.
func (s Settings) toMap() map[string]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return map[string]string{
		KeyRotationThreshold: f(s.RotationThreshold),
		KeyRotationPolicy:    string(s.RotationPolicy),
		KeyTapThreshold:      f(s.TapThreshold),
		KeyRaiseHeight:       f(s.RaiseHeight),
		KeyGraceFrames:       strconv.Itoa(s.GraceFrames),
		KeyQueueDepth:        strconv.Itoa(s.QueueDepth),
		KeyMirror:            strconv.FormatBool(s.Mirror),
		KeyIdleFPS:           strconv.Itoa(s.IdleFPS),
		KeyActiveFPS:         strconv.Itoa(s.ActiveFPS),
		KeyMotionThreshold:   f(s.MotionThreshold),
		KeySessionSeconds:    strconv.Itoa(s.SessionSeconds),
	}
}

// applyMap overlays stored rows on s. Unknown keys are ignored.
func (s *Settings) applyMap(m map[string]string) error {
	for k, v := range m {
		var err error
		switch k {
		case KeyRotationThreshold:
			s.RotationThreshold, err = strconv.ParseFloat(v, 64)
		case KeyRotationPolicy:
			s.RotationPolicy = gesture.ArmPolicy(v)
		case KeyTapThreshold:
			s.TapThreshold, err = strconv.ParseFloat(v, 64)
		case KeyRaiseHeight:
			s.RaiseHeight, err = strconv.ParseFloat(v, 64)
		case KeyGraceFrames:
			s.GraceFrames, err = strconv.Atoi(v)
		case KeyQueueDepth:
			s.QueueDepth, err = strconv.Atoi(v)
		case KeyMirror:
			s.Mirror, err = strconv.ParseBool(v)
		case KeyIdleFPS:
			s.IdleFPS, err = strconv.Atoi(v)
		case KeyActiveFPS:
			s.ActiveFPS, err = strconv.Atoi(v)
		case KeyMotionThreshold:
			s.MotionThreshold, err = strconv.ParseFloat(v, 64)
		case KeySessionSeconds:
			s.SessionSeconds, err = strconv.Atoi(v)
		}
		if err != nil {
			return fmt.Errorf("setting %s=%q: %w", k, v, err)
		}
	}
	return nil
}

// LoadSettings reads the stored overrides on top of DefaultSettings. A nil store
// yields the defaults.
func LoadSettings(s *store.Store) (Settings, error) {
	settings := DefaultSettings()
	if s == nil {
		return settings, nil
	}

	rows, err := s.Settings().All()
	if err != nil {
		return settings, fmt.Errorf("load settings: %w", err)
	}
	if err := settings.applyMap(rows); err != nil {
		return DefaultSettings(), err
	}
	if err := settings.Validate(); err != nil {
		return DefaultSettings(), fmt.Errorf("stored settings: %w", err)
	}
	return settings, nil
}

// SaveSettings validates and writes every tunable.
func SaveSettings(s *store.Store, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	return s.Settings().SetAll(settings.toMap())
}

// Package app runs exercise sessions: each session owns a capture source, a landmark
// detector, a gesture engine and a broadcaster, driven by one producer goroutine.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ayusman/handrehab/internal/annotate"
	"github.com/ayusman/handrehab/internal/broadcast"
	"github.com/ayusman/handrehab/internal/capture"
	"github.com/ayusman/handrehab/internal/detector"
	"github.com/ayusman/handrehab/internal/engine"
	"github.com/ayusman/handrehab/internal/gesture"
	"github.com/ayusman/handrehab/internal/store"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCameraBusy is returned when another running session owns the device.
	ErrCameraBusy = errors.New("camera is in use by another session")
	// ErrSessionEnded is returned when commanding a session that is no longer running.
	ErrSessionEnded = errors.New("session has ended")
	// ErrStopTimeout is returned when a producer does not exit within the grace period.
	ErrStopTimeout = errors.New("session did not stop in time")
)

// DefaultStopGrace bounds how long Stop waits for a producer.
const DefaultStopGrace = 2 * time.Second

// CameraFactory opens capture sources.
type CameraFactory func(capture.Config) capture.Camera

// DetectorFactory creates landmark detectors.
type DetectorFactory func(detector.Config) (detector.Detector, error)

// Config holds configuration options for the Manager.
type Config struct {
	Store       *store.Store
	Hooks       Notifier
	NewCamera   CameraFactory
	NewDetector DetectorFactory
	StopGrace   time.Duration
}

// Manager owns every session of the process.
type Manager struct {
	config   Config
	settings Settings

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	devices  map[string]uuid.UUID
}

// NewManager creates a Manager and loads stored settings. Invalid stored settings are
// logged and replaced by the defaults.
func NewManager(config Config) *Manager {
	if config.NewCamera == nil {
		config.NewCamera = capture.New
	}
	if config.NewDetector == nil {
		config.NewDetector = DefaultDetector
	}
	if config.StopGrace <= 0 {
		config.StopGrace = DefaultStopGrace
	}

	settings, err := LoadSettings(config.Store)
	if err != nil {
		log.Printf("Using default settings: %v", err)
	}

	return &Manager{
		config:   config,
		settings: settings,
		sessions: make(map[uuid.UUID]*Session),
		devices:  make(map[string]uuid.UUID),
	}
}

// DefaultDetector uses MediaPipe when its service is installed and falls back to an
// idle mock detector otherwise.
func DefaultDetector(cfg detector.Config) (detector.Detector, error) {
	mp, err := detector.NewMediaPipeDetector(cfg)
	if err == nil {
		log.Printf("Using MediaPipe %s detection", cfg.Taxonomy)
		return mp, nil
	}
	log.Printf("MediaPipe not available (%v), using mock detector", err)
	return detector.NewMockDetector(), nil
}

// Settings returns the tunables applied to new sessions.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// UpdateSettings validates, persists and applies settings. Running sessions keep the
// settings they were started with.
func (m *Manager) UpdateSettings(settings Settings) error {
	if err := SaveSettings(m.config.Store, settings); err != nil {
		return err
	}
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()
	return nil
}

// taxonomyFor picks the landmark model the kinds need. Mixing hand and pose gestures
// in one session is rejected since a detector runs one model.
func taxonomyFor(kinds []gesture.Kind, cfg gesture.Config) (detector.Taxonomy, error) {
	var taxonomy detector.Taxonomy
	for _, k := range kinds {
		d, err := gesture.New(k, cfg)
		if err != nil {
			return "", err
		}
		if taxonomy != "" && taxonomy != d.Taxonomy() {
			return "", fmt.Errorf("gesture kinds need different landmark models (%s and %s)", taxonomy, d.Taxonomy())
		}
		taxonomy = d.Taxonomy()
	}
	return taxonomy, nil
}

// Start creates and launches a session.
func (m *Manager) Start(sc SessionConfig) (*Session, error) {
	settings := m.Settings()

	if len(sc.Kinds) == 0 {
		sc.Kinds = []gesture.Kind{gesture.KindOpenClose}
	}
	gcfg := settings.GestureConfig()
	taxonomy, err := taxonomyFor(sc.Kinds, gcfg)
	if err != nil {
		return nil, err
	}

	def := detector.DefaultConfig()
	if sc.Detector.MaxSubjects <= 0 {
		sc.Detector.MaxSubjects = def.MaxSubjects
	}
	if sc.Detector.MinConfidence <= 0 {
		sc.Detector.MinConfidence = def.MinConfidence
	}
	if sc.Detector.MinTrackingConf <= 0 {
		sc.Detector.MinTrackingConf = def.MinTrackingConf
	}
	sc.Detector.Taxonomy = taxonomy

	eng, err := engine.New(engine.Config{
		Kinds:       sc.Kinds,
		Gesture:     gcfg,
		GraceFrames: settings.GraceFrames,
	})
	if err != nil {
		return nil, err
	}

	key := sc.Capture.Key()
	m.mu.Lock()
	defer m.mu.Unlock()

	if owner, busy := m.devices[key]; busy {
		return nil, fmt.Errorf("%w: %s (session %s)", ErrCameraBusy, key, owner)
	}

	det, err := m.config.NewDetector(sc.Detector)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}

	seconds := settings.SessionSeconds
	if sc.Seconds > 0 {
		seconds = sc.Seconds
	}

	annCfg := annotate.DefaultConfig()
	annCfg.Mirror = settings.Mirror

	s := &Session{
		ID:        uuid.New(),
		config:    sc,
		camera:    m.config.NewCamera(sc.Capture),
		detector:  det,
		engine:    eng,
		annotator: annotate.New(annCfg),
		pacer:     capture.NewPacer(settings.PacerConfig()),
		bc:        broadcast.New(settings.QueueDepth),
		hooks:     m.config.Hooks,
		duration:  time.Duration(seconds) * time.Second,
		resetCh:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		onExit:    m.release,
	}

	m.sessions[s.ID] = s
	m.devices[key] = s.ID
	s.start()

	log.Printf("session %s: started on %s (%v)", s.ID, key, sc.Kinds)
	return s, nil
}

// StartPreset starts a session from a stored preset.
func (m *Manager) StartPreset(name string) (*Session, error) {
	if m.config.Store == nil {
		return nil, store.ErrNotFound
	}
	p, err := m.config.Store.Presets().GetByName(name)
	if err != nil {
		return nil, err
	}

	var sc SessionConfig
	if err := json.Unmarshal(p.Config, &sc); err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	if sc.Name == "" {
		sc.Name = p.Name
	}
	return m.Start(sc)
}

// release frees the device of an exited session.
func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := s.config.Capture.Key()
	if m.devices[key] == s.ID {
		delete(m.devices, key)
	}
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[uid]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns every session, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].started.Before(out[j].started)
	})
	return out
}

// Active returns the most recently started running session, if any.
func (m *Manager) Active() (*Session, bool) {
	sessions := m.List()
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].Status() == StatusRunning {
			return sessions[i], true
		}
	}
	return nil, false
}

// Stop stops a session and keeps it listed with its final state.
func (m *Manager) Stop(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Stop(m.config.StopGrace)
}

// Remove stops a session and forgets it.
func (m *Manager) Remove(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	stopErr := s.Stop(m.config.StopGrace)

	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	return stopErr
}

// StopAll stops every session concurrently.
func (m *Manager) StopAll() {
	var wg sync.WaitGroup
	for _, s := range m.List() {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			if err := s.Stop(m.config.StopGrace); err != nil {
				log.Printf("Error stopping session: %v", err)
			}
		}(s)
	}
	wg.Wait()
}

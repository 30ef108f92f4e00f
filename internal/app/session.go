package app

import (
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ayusman/handrehab/internal/annotate"
	"github.com/ayusman/handrehab/internal/broadcast"
	"github.com/ayusman/handrehab/internal/capture"
	"github.com/ayusman/handrehab/internal/detector"
	"github.com/ayusman/handrehab/internal/engine"
	"github.com/ayusman/handrehab/internal/gesture"
	"github.com/ayusman/handrehab/internal/plugin"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusRunning Status = "running"
	// StatusFinished means the session ran out of time or frames.
	StatusFinished Status = "finished"
	StatusStopped  Status = "stopped"
	StatusFailed   Status = "failed"
)

// SessionConfig selects the source and gestures of a session.
type SessionConfig struct {
	Name     string          `json:"name,omitempty"`
	Kinds    []gesture.Kind  `json:"kinds"`
	Capture  capture.Config  `json:"capture"`
	Detector detector.Config `json:"detector"`
	// Seconds overrides the configured session length when positive.
	Seconds int `json:"seconds,omitempty"`
}

// Notifier receives exercise milestones. *plugin.Dispatcher implements it.
type Notifier interface {
	Notify(req plugin.Request) bool
}

// Info is the externally visible state of a session.
type Info struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Status      Status          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Kinds       []gesture.Kind  `json:"kinds"`
	Device      string          `json:"device"`
	StartedAt   time.Time       `json:"started_at"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
	Frames      uint64          `json:"frames"`
	Subscribers int             `json:"subscribers"`
	Snapshot    engine.Snapshot `json:"snapshot"`
}

// Session is one capture stream with its own engine and broadcaster. A single
// producer goroutine owns the camera, detector and engine.
type Session struct {
	ID     uuid.UUID
	config SessionConfig

	camera    capture.Camera
	detector  detector.Detector
	engine    *engine.Engine
	annotator *annotate.Annotator
	pacer     *capture.Pacer
	bc        *broadcast.Broadcaster
	hooks     Notifier
	duration  time.Duration

	resetCh  chan struct{}
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	onExit   func(*Session)

	mu      sync.RWMutex
	status  Status
	err     error
	started time.Time
	ended   time.Time
	frames  uint64
	latest  engine.Snapshot
}

// start launches the producer.
func (s *Session) start() {
	s.started = time.Now()
	s.status = StatusRunning
	s.latest = s.engine.Last()
	s.notifySession(StatusRunning)
	go s.run()
}

// run is the producer loop: capture, detect, engine, annotate, publish.
func (s *Session) run() {
	defer close(s.done)
	defer s.teardown()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("session %s: panic: %v\n%s", s.ID, r, debug.Stack())
			s.finish(StatusFailed, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := s.camera.Open(); err != nil {
		s.finish(StatusFailed, err)
		return
	}

	var deadline <-chan time.Time
	if s.duration > 0 {
		t := time.NewTimer(s.duration)
		defer t.Stop()
		deadline = t.C
	}

	next := time.NewTimer(0)
	defer next.Stop()

	var seq uint64
	for {
		select {
		case <-s.stopCh:
			s.finish(StatusStopped, nil)
			return
		case <-deadline:
			s.finish(StatusFinished, nil)
			return
		case <-s.resetCh:
			s.engine.Reset()
			log.Printf("session %s: counters reset", s.ID)
			continue
		case <-next.C:
		}

		seq++
		interval, err := s.step(seq)
		if errors.Is(err, capture.ErrExhausted) {
			s.finish(StatusFinished, nil)
			return
		}
		if err != nil {
			s.finish(StatusFailed, err)
			return
		}
		next.Reset(interval)
	}
}

// step processes one frame and returns the delay before the next one.
func (s *Session) step(seq uint64) (time.Duration, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		return 0, err
	}
	defer frame.Close()

	subjects, err := s.detector.Detect(frame)
	if err != nil {
		return 0, fmt.Errorf("detect: %w", err)
	}

	now := time.Now()
	previous := s.Latest()
	snap, err := s.engine.Process(detector.Frame{Seq: seq, Timestamp: now, Subjects: subjects})
	if err != nil {
		return 0, err
	}

	// Motion is measured on the raw frame, before anything is drawn on it.
	interval := s.pacer.Observe(frame, len(subjects) > 0, now)

	s.annotator.Draw(frame, subjects, snap)
	jpeg, err := s.annotator.Encode(frame)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.latest = snap
	s.frames++
	s.mu.Unlock()

	s.bc.Publish(broadcast.Message{Frame: jpeg, Snapshot: snap})
	s.notifyMilestones(previous, snap)

	return interval, nil
}

// notifyMilestones reports counter increases and completed sequences.
func (s *Session) notifyMilestones(previous, current engine.Snapshot) {
	if s.hooks == nil {
		return
	}
	for _, ev := range current.Events {
		old, _ := previous.Event(ev.Subject, ev.Kind)
		for name, value := range ev.Counters {
			if value > old.Counters[name] {
				s.hooks.Notify(plugin.Request{
					Event:     plugin.EventCounter,
					Session:   s.ID.String(),
					Kind:      ev.Kind,
					Subject:   ev.Subject,
					Counter:   name,
					Value:     value,
					Timestamp: current.Timestamp,
				})
			}
		}
		if len(ev.Sequence) > 0 {
			s.hooks.Notify(plugin.Request{
				Event:     plugin.EventSequence,
				Session:   s.ID.String(),
				Kind:      ev.Kind,
				Subject:   ev.Subject,
				Counter:   gesture.CounterSequences,
				Value:     ev.Counters[gesture.CounterSequences],
				Sequence:  ev.Sequence,
				Timestamp: current.Timestamp,
			})
		}
	}
}

func (s *Session) notifySession(status Status) {
	if s.hooks == nil {
		return
	}
	s.hooks.Notify(plugin.Request{
		Event:     plugin.EventSession,
		Session:   s.ID.String(),
		Status:    string(status),
		Timestamp: time.Now(),
	})
}

func (s *Session) finish(status Status, err error) {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.err = err
	s.ended = time.Now()
	s.mu.Unlock()

	if err != nil {
		log.Printf("session %s: %s: %v", s.ID, status, err)
	} else {
		log.Printf("session %s: %s after %d frames", s.ID, status, s.Frames())
	}
	s.notifySession(status)
}

// teardown releases everything the producer owned. Subscribers see broadcast.ErrClosed.
func (s *Session) teardown() {
	s.bc.Close()
	s.pacer.Close()
	if err := s.camera.Close(); err != nil {
		log.Printf("session %s: error closing camera: %v", s.ID, err)
	}
	if err := s.detector.Close(); err != nil {
		log.Printf("session %s: error closing detector: %v", s.ID, err)
	}
	if s.onExit != nil {
		s.onExit(s)
	}
}

// Reset asks the producer to clear every counter. It never blocks; repeated requests
// before the producer picks one up collapse into one.
func (s *Session) Reset() error {
	if s.Status() != StatusRunning {
		return ErrSessionEnded
	}
	select {
	case s.resetCh <- struct{}{}:
	default:
	}
	return nil
}

// Stop signals the producer and waits up to grace for it to exit.
func (s *Session) Stop(grace time.Duration) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.done:
		return nil
	case <-time.After(grace):
		return fmt.Errorf("session %s: %w", s.ID, ErrStopTimeout)
	}
}

// Done is closed once the producer has exited and released its resources.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Subscribe attaches a new frame subscriber. Subscribing to an ended session returns
// a closed subscription.
func (s *Session) Subscribe() *broadcast.Subscription {
	return s.bc.Subscribe()
}

// Unsubscribe detaches a subscriber.
func (s *Session) Unsubscribe(id uuid.UUID) {
	s.bc.Unsubscribe(id)
}

// Latest returns the snapshot of the most recent frame.
func (s *Session) Latest() engine.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the error that ended a failed session.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Frames returns the number of processed frames.
func (s *Session) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// Config returns the session configuration.
func (s *Session) Config() SessionConfig {
	return s.config
}

// Info returns a point-in-time view of the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		ID:          s.ID.String(),
		Name:        s.config.Name,
		Status:      s.status,
		Kinds:       s.config.Kinds,
		Device:      s.config.Capture.Key(),
		StartedAt:   s.started,
		Frames:      s.frames,
		Subscribers: s.bc.Len(),
		Snapshot:    s.latest,
	}
	if s.err != nil {
		info.Error = s.err.Error()
	}
	if !s.ended.IsZero() {
		ended := s.ended
		info.EndedAt = &ended
	}
	return info
}

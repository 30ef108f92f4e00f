// Package engine drives the gesture detectors of every tracked subject and assembles
// one immutable Snapshot per processed frame.
//
// The Engine is the only owner of detector state. It is not safe for concurrent use:
// frames must be fed from a single goroutine in arrival order.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ayusman/handrehab/internal/detector"
	"github.com/ayusman/handrehab/internal/gesture"
)

// ErrOutOfOrder is returned when a frame arrives with a sequence number that is not
// newer than the last processed frame.
var ErrOutOfOrder = errors.New("frame out of order")

// DefaultGraceFrames is the number of consecutive missed frames before a subject is
// treated as lost.
const DefaultGraceFrames = 1

// Config holds configuration options for the engine.
type Config struct {
	Kinds       []gesture.Kind
	Gesture     gesture.Config
	GraceFrames int
}

// DefaultConfig returns a Config running the open/close detector.
func DefaultConfig() Config {
	return Config{
		Kinds:       []gesture.Kind{gesture.KindOpenClose},
		Gesture:     gesture.DefaultConfig(),
		GraceFrames: DefaultGraceFrames,
	}
}

// Event is the state of one detector of one subject.
type Event struct {
	Subject  int            `json:"subject"`
	Kind     gesture.Kind   `json:"detector_kind"`
	Label    string         `json:"current_label"`
	Counters map[string]int `json:"counters"`
	Sequence []gesture.Tap  `json:"completed_sequence,omitempty"`
	Present  bool           `json:"present"`
}

// Snapshot is everything the engine knows after one frame.
type Snapshot struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Events    []Event   `json:"events"`
}

// Counter sums a counter of the given kind over every subject.
func (s Snapshot) Counter(kind gesture.Kind, name string) int {
	total := 0
	for _, e := range s.Events {
		if e.Kind == kind {
			total += e.Counters[name]
		}
	}
	return total
}

// Event returns the event of a subject and kind.
func (s Snapshot) Event(subject int, kind gesture.Kind) (Event, bool) {
	for _, e := range s.Events {
		if e.Subject == subject && e.Kind == kind {
			return e, true
		}
	}
	return Event{}, false
}

// subjectState holds the detectors of one subject slot.
type subjectState struct {
	detectors []gesture.Detector
	// updated marks the detectors fed on the current frame.
	updated []bool
	misses  int
	present bool
}

// Engine owns all detector state of one stream session.
type Engine struct {
	config   Config
	subjects map[int]*subjectState
	lastSeq  uint64
	started  bool
	last     Snapshot
}

// New creates an engine. It fails if the config names an unknown gesture kind.
func New(config Config) (*Engine, error) {
	if len(config.Kinds) == 0 {
		return nil, errors.New("no gesture kinds configured")
	}
	for _, k := range config.Kinds {
		if _, err := gesture.New(k, config.Gesture); err != nil {
			return nil, err
		}
	}
	if config.GraceFrames <= 0 {
		config.GraceFrames = DefaultGraceFrames
	}

	e := &Engine{
		config:   config,
		subjects: make(map[int]*subjectState),
	}
	// Slot 0 always exists so an idle stream still reports labels and zero counters.
	e.subjects[0] = e.newSubject()
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Process feeds one frame to every detector and returns the resulting snapshot.
func (e *Engine) Process(frame detector.Frame) (Snapshot, error) {
	if e.started && frame.Seq <= e.lastSeq {
		return e.last, fmt.Errorf("%w: seq %d after %d", ErrOutOfOrder, frame.Seq, e.lastSeq)
	}
	e.started = true
	e.lastSeq = frame.Seq

	for _, st := range e.subjects {
		clear(st.updated)
	}

	seen := make(map[int]bool, len(frame.Subjects))
	for i := range frame.Subjects {
		snap := &frame.Subjects[i]
		st := e.subjects[snap.Subject]
		if st == nil {
			st = e.newSubject()
			e.subjects[snap.Subject] = st
		}
		seen[snap.Subject] = true
		st.misses = 0
		st.present = true

		for j, d := range st.detectors {
			if d.Taxonomy() != snap.Taxonomy || !snap.Has(d.Required()...) {
				continue
			}
			d.Update(snap)
			st.updated[j] = true
		}
	}

	for id, st := range e.subjects {
		if seen[id] {
			continue
		}
		st.misses++
		if st.present && st.misses >= e.config.GraceFrames {
			st.present = false
			for _, d := range st.detectors {
				d.Lost()
			}
		}
	}

	e.last = e.snapshot(frame)
	return e.last, nil
}

// Reset clears every counter and hysteresis state. It is the restart command.
func (e *Engine) Reset() {
	for _, st := range e.subjects {
		for _, d := range st.detectors {
			d.Reset()
		}
		clear(st.updated)
		st.misses = 0
		st.present = false
	}
}

// Last returns the snapshot of the most recent frame.
func (e *Engine) Last() Snapshot {
	return e.last
}

func (e *Engine) newSubject() *subjectState {
	st := &subjectState{}
	for _, k := range e.config.Kinds {
		// Kinds were validated in New.
		d, _ := gesture.New(k, e.config.Gesture)
		st.detectors = append(st.detectors, d)
	}
	st.updated = make([]bool, len(st.detectors))
	return st
}

func (e *Engine) snapshot(frame detector.Frame) Snapshot {
	ids := make([]int, 0, len(e.subjects))
	for id := range e.subjects {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	snap := Snapshot{
		Seq:       frame.Seq,
		Timestamp: frame.Timestamp,
		Events:    make([]Event, 0, len(ids)*len(e.config.Kinds)),
	}

	for _, id := range ids {
		st := e.subjects[id]
		for j, d := range st.detectors {
			r := d.Result()
			ev := Event{
				Subject:  id,
				Kind:     r.Kind,
				Label:    r.Label,
				Counters: make(map[string]int, len(r.Counters)),
				Present:  st.present,
			}
			for k, v := range r.Counters {
				ev.Counters[k] = v
			}
			// A completed sequence belongs to the frame that completed it only.
			if st.updated[j] && len(r.Sequence) > 0 {
				ev.Sequence = make([]gesture.Tap, len(r.Sequence))
				copy(ev.Sequence, r.Sequence)
			}
			snap.Events = append(snap.Events, ev)
		}
	}

	return snap
}

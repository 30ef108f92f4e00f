// Package plugin runs external executables when exercise milestones happen.
//
// Each plugin lives in its own directory with a plugin.json manifest. The manifest
// lists the events the plugin wants; the plugin receives one Request as JSON on
// stdin per event and answers with one Response on stdout.
package plugin

import (
	"encoding/json"
	"time"

	"github.com/ayusman/handrehab/internal/gesture"
)

// EventType names a milestone a plugin can subscribe to.
type EventType string

const (
	// EventCounter fires when a counter of a detector increases.
	EventCounter EventType = "counter"
	// EventSequence fires when a finger-tap sequence completes.
	EventSequence EventType = "sequence"
	// EventSession fires when a session starts or ends.
	EventSession EventType = "session"
)

// Manifest describes a plugin.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []EventType     `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Wants reports whether the manifest subscribes to the event.
func (m Manifest) Wants(event EventType) bool {
	for _, e := range m.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Request is the milestone passed to a plugin.
type Request struct {
	Event     EventType       `json:"event"`
	Session   string          `json:"session"`
	Kind      gesture.Kind    `json:"detector_kind,omitempty"`
	Subject   int             `json:"subject"`
	Counter   string          `json:"counter,omitempty"`
	Value     int             `json:"value"`
	Sequence  []gesture.Tap   `json:"completed_sequence,omitempty"`
	Status    string          `json:"status,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is what a plugin prints on stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Package testdata holds recorded landmark sequences for end-to-end tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/ayusman/handrehab/internal/detector"
)

//go:embed landmarks/*.jsonl
var landmarksFS embed.FS

// Recordings and the counters a full playback must reach.
const (
	OpenClose = "open_close" // 3 cycles, one hand loss between cycles 2 and 3
	Rotation  = "rotation"   // 3 rotations over two hand losses
	FingerTap = "finger_tap" // 4 taps of 200ms, one completed sequence
	ArmRaise  = "arm_raise"  // 2 side raises
)

// LoadFrames loads a recorded landmark sequence by name.
func LoadFrames(name string) ([]detector.Frame, error) {
	data, err := landmarksFS.ReadFile("landmarks/" + name + ".jsonl")
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}

	frames, err := detector.ReadFrames(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode recording %s: %w", name, err)
	}
	return frames, nil
}

// Names lists the embedded recordings.
func Names() []string {
	entries, _ := landmarksFS.ReadDir("landmarks")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".jsonl"))
	}
	sort.Strings(names)
	return names
}

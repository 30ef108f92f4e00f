// Package main provides an audible feedback plugin.
// It plays a short sound each time a repetition is counted.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the milestone sent by the plugin dispatcher.
type Request struct {
	Event   string          `json:"event"`
	Kind    string          `json:"detector_kind"`
	Counter string          `json:"counter"`
	Value   int             `json:"value"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the plugin dispatcher.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config is the manifest configuration.
type Config struct {
	Sound         string `json:"sound"`
	SequenceSound string `json:"sequence_sound"`
	// Every plays the counter sound on every Nth repetition.
	Every int `json:"every"`
}

// Default sounds per platform.
var defaultSounds = map[string]Config{
	"darwin": {Sound: "/System/Library/Sounds/Tink.aiff", SequenceSound: "/System/Library/Sounds/Glass.aiff"},
	"linux": {
		Sound:         "/usr/share/sounds/freedesktop/stereo/message.oga",
		SequenceSound: "/usr/share/sounds/freedesktop/stereo/complete.oga",
	},
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	cfg := defaultSounds[runtime.GOOS]
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(fmt.Errorf("invalid config: %w", err))
			return
		}
	}

	sound, ok := soundFor(req, cfg)
	if !ok {
		writeResponse(nil)
		return
	}
	writeResponse(play(sound))
}

// soundFor picks the sound of a milestone. ok is false when it should stay silent.
func soundFor(req Request, cfg Config) (string, bool) {
	switch req.Event {
	case "sequence":
		if cfg.SequenceSound != "" {
			return cfg.SequenceSound, true
		}
		return cfg.Sound, true
	case "counter":
		// Sequence completions are chimed through their own event.
		if req.Counter == "sequences" {
			return "", false
		}
		if cfg.Every > 1 && req.Value%cfg.Every != 0 {
			return "", false
		}
		return cfg.Sound, true
	}
	return "", false
}

// play plays a sound file, or rings the terminal bell when there is none.
func play(sound string) error {
	if sound == "" {
		return bell()
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("afplay", sound)
	default:
		cmd = exec.Command("paplay", sound)
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func bell() error {
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer tty.Close()
	_, err = tty.Write([]byte("\a"))
	return err
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// Package main provides a desktop notification plugin.
// It announces completed tap sequences, counter targets and session results.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the milestone sent by the plugin dispatcher.
type Request struct {
	Event    string          `json:"event"`
	Session  string          `json:"session"`
	Kind     string          `json:"detector_kind"`
	Subject  int             `json:"subject"`
	Counter  string          `json:"counter"`
	Value    int             `json:"value"`
	Sequence []Tap           `json:"completed_sequence"`
	Status   string          `json:"status"`
	Config   json.RawMessage `json:"config"`
}

// Tap is one tap of a completed sequence.
type Tap struct {
	Target  string  `json:"target"`
	Seconds float64 `json:"duration_seconds"`
}

// Response represents the output to the plugin dispatcher.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the manifest configuration.
type Config struct {
	// Target announces every multiple of this counter value. Zero disables counter
	// notifications.
	Target int `json:"target"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	title, body, ok := message(req, cfg)
	if !ok {
		writeSuccessResponse()
		return
	}
	if err := notify(title, body); err != nil {
		writeErrorResponse(fmt.Sprintf("notification failed: %v", err))
		return
	}
	writeSuccessResponse()
}

// message builds the notification for a milestone. ok is false when the milestone
// is not worth announcing.
func message(req Request, cfg Config) (title, body string, ok bool) {
	switch req.Event {
	case "sequence":
		parts := make([]string, len(req.Sequence))
		for i, tap := range req.Sequence {
			parts[i] = fmt.Sprintf("%s %.1fs", tap.Target, tap.Seconds)
		}
		return fmt.Sprintf("Tap sequence %d complete", req.Value), strings.Join(parts, ", "), true
	case "counter":
		if cfg.Target <= 0 || req.Value%cfg.Target != 0 {
			return "", "", false
		}
		return "Target reached", fmt.Sprintf("%s: %d %s", req.Kind, req.Value, req.Counter), true
	case "session":
		switch req.Status {
		case "finished":
			return "Exercise finished", "Session complete. Well done!", true
		case "failed":
			return "Exercise stopped", "The session ended with an error.", true
		}
	}
	return "", "", false
}

// notify shows a desktop notification.
func notify(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, body, title)
		cmd = exec.Command("osascript", "-e", script)
	default:
		cmd = exec.Command("notify-send", title, body)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// Package tray provides a system tray menu for starting exercise sessions and
// following their progress.
package tray

import (
	"strings"
	"sync"

	"github.com/ayusman/handrehab/internal/annotate"
	"github.com/ayusman/handrehab/internal/engine"
	"github.com/getlantern/systray"
)

// idleStatus is shown while no session runs.
const idleStatus = "No session"

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(running bool)
	onSettings func()
	onQuit     func()
	running    bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray with no session running.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback invoked when the user starts or stops a session.
func (t *Tray) OnToggle(fn func(running bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("Hand Rehab")
	systray.SetTooltip("Hand Rehab exercise tracker")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.running), "Start or stop an exercise session")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(idleStatus, "Current exercise state")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Hand Rehab")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(running bool) string {
	if running {
		return "■ Stop Exercise"
	}
	return "▶ Start Exercise"
}

// handleToggle flips the running state and reports the requested state.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.running = !t.running
	running := t.running
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(running))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(running)
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetRunning syncs the toggle with a session that started or ended elsewhere.
func (t *Tray) SetRunning(running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = running
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(running))
	}
	if !running && t.menuStatus != nil {
		t.menuStatus.SetTitle(idleStatus)
	}
}

// SetSnapshot shows the state of the running session.
func (t *Tray) SetSnapshot(snap engine.Snapshot) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		t.menuStatus.SetTitle(Status(snap))
	}
}

// IsRunning reports whether the tray believes a session is running.
func (t *Tray) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// Status condenses a snapshot into one menu line.
func Status(snap engine.Snapshot) string {
	lines := annotate.StatusLines(snap)
	if len(lines) == 0 {
		return idleStatus
	}
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, " | ")
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

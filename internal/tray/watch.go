package tray

import (
	"context"
	"time"

	"github.com/ayusman/handrehab/internal/app"
)

// WatchInterval is how often Watch polls the active session.
const WatchInterval = 500 * time.Millisecond

// Watch mirrors the most recent running session into the tray until ctx is done.
func (t *Tray) Watch(ctx context.Context, m *app.Manager) {
	ticker := time.NewTicker(WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			session, ok := m.Active()
			if ok != t.IsRunning() {
				t.SetRunning(ok)
			}
			if ok {
				t.SetSnapshot(session.Latest())
			}
		}
	}
}

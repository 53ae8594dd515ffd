package agent

import (
	"context"
	"time"

	"github.com/bytedance/gopkg/lang/fastrand"
)

const (
	heartbeatInterval  = 30 * time.Second
	heartbeatJitterMax = 5000 // milliseconds
)

// StartHeartbeat begins probing the CLI in the background so Available and
// CachedVersion stay fresh. The first probe runs synchronously; Close stops
// the loop.
func (a *Agent) StartHeartbeat(ctx context.Context) {
	a.checkAvailability(ctx)
	go a.heartbeatLoop()
}

func (a *Agent) heartbeatLoop() {
	// Jitter the interval so several slipway processes on one host do not
	// probe in lockstep.
	jitter := time.Duration(fastrand.Uint32n(heartbeatJitterMax)) * time.Millisecond
	ticker := time.NewTicker(heartbeatInterval + jitter)
	defer ticker.Stop()

	for {
		ctx := context.Background()
		select {
		case <-a.closeCh:
			return
		case <-ticker.C:
			a.checkAvailability(ctx)
		}
	}
}

func (a *Agent) checkAvailability(ctx context.Context) {
	v, err := a.Version(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.available = false
		return
	}
	a.available = true
	a.version = v
}

// Available reports the result of the most recent heartbeat probe.
func (a *Agent) Available() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.available
}

// CachedVersion returns the CLI version seen by the most recent successful
// probe; empty when none has succeeded yet.
func (a *Agent) CachedVersion() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.version
}

package relay

import (
	"context"
	"time"
)

// Reap drops orphaned results that arrived more than maxAge ago and returns
// how many were dropped.
func (r *Relay) Reap(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxAge)
	dropped := 0
	for id, o := range r.orphans {
		if o.arrived.Before(cutoff) {
			delete(r.orphans, id)
			dropped++
		}
	}
	return dropped
}

// RunReaper calls Reap every interval until ctx is done.
func (r *Relay) RunReaper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Reap(maxAge); n > 0 {
				r.logger.Debug("reaped orphaned results", "count", n)
			}
		}
	}
}

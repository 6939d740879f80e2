package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Sweep deletes every expired block record and returns how many were
// removed. The lazy per-lookup check keeps decisions correct on its own;
// the sweep bounds memory for senders that are never looked up again.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	removed := 0
	for sender, rec := range l.blocks {
		if rec.expired(now) {
			delete(l.blocks, sender)
			removed++
		}
	}

	// Activity logs are pruned on access; senders gone quiet would
	// otherwise retain up to a day of timestamps forever.
	for key, entries := range l.activity {
		kept := pruned(entries, now.Add(-retentionHorizon))
		if kept == nil {
			delete(l.activity, key)
		} else {
			l.activity[key] = kept
		}
	}

	return removed
}

// RunSweeper runs Sweep on the configured interval until ctx is done.
func (l *Limiter) RunSweeper(ctx context.Context) {
	interval := l.cfg.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.Sweep(); removed > 0 {
				slog.Debug("expired block records swept", "removed", removed)
			}
		}
	}
}

// Package ratelimit implements per-sender sliding-window rate limiting and
// coarse spam escalation. All state is in-memory and owned by the Limiter;
// it resets on restart; persistence of limiter state is out of scope.
package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Limits configures one category's sliding-window ceilings. WarnFraction is
// the share of the per-minute limit at which an early warning is issued.
type Limits struct {
	PerMinute    int
	PerHour      int
	PerDay       int
	WarnFraction float64
}

// Config holds all limiter tunables.
type Config struct {
	Message Limits
	Media   Limits
	Command Limits

	WarningCooldown time.Duration // min gap between usage warnings per sender
	SpamWindow      time.Duration // trailing window for spam escalation
	SpamThreshold   int           // flagged when window count exceeds this
	SweepInterval   time.Duration // cadence of the expired-block sweep
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		Message:         Limits{PerMinute: 20, PerHour: 100, PerDay: 500, WarnFraction: 0.8},
		Media:           Limits{PerMinute: 5, PerHour: 30, PerDay: 100, WarnFraction: 0.7},
		Command:         Limits{PerMinute: 10, PerHour: 50, PerDay: 200, WarnFraction: 0.9},
		WarningCooldown: 5 * time.Minute,
		SpamWindow:      5 * time.Minute,
		SpamThreshold:   5,
		SweepInterval:   10 * time.Minute,
	}
}

func (c Config) limitsFor(cat Category) Limits {
	switch cat {
	case CategoryMedia:
		return c.Media
	case CategoryCommand:
		return c.Command
	default:
		return c.Message
	}
}

// retentionHorizon bounds how long activity timestamps are kept. Matches the
// widest window (1 day).
const retentionHorizon = 24 * time.Hour

type activityKey struct {
	sender   string
	category Category
}

// Limiter tracks per-sender activity, issues admission decisions, and keeps
// the blocked-sender registry. Safe for concurrent use: every
// check-then-update sequence runs under one mutex so two in-flight messages
// for the same sender cannot both pass an admission only one should.
type Limiter struct {
	cfg Config

	mu       sync.Mutex
	activity map[activityKey][]time.Time
	blocks   map[string]*BlockRecord
	warnedAt map[string]time.Time

	clock func() time.Time // test hook
}

// NewLimiter creates a Limiter with the given config.
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{
		cfg:      cfg,
		activity: make(map[activityKey][]time.Time),
		blocks:   make(map[string]*BlockRecord),
		warnedAt: make(map[string]time.Time),
		clock:    time.Now,
	}
}

// CanProceed decides whether the sender may perform one more action of the
// given category. It does not record the action; callers record only after
// the action actually happens.
func (l *Limiter) CanProceed(sender string, cat Category) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()

	if rec := l.activeBlock(sender, now); rec != nil {
		return Decision{
			Reason:     rec.Reason,
			Remaining:  rec.ExpiresAt().Sub(now),
			Severity:   rec.Severity,
			Violations: rec.Violations,
		}
	}

	limits := l.cfg.limitsFor(cat)
	counts := l.windowCounts(sender, cat, now)

	// Every window that breached its limit raises a violation; a single
	// burst can trip several at once.
	var violations []Violation
	for _, w := range []struct {
		name  string
		count int
		limit int
	}{
		{"day", counts.Day, limits.PerDay},
		{"hour", counts.Hour, limits.PerHour},
		{"minute", counts.Minute, limits.PerMinute},
	} {
		if w.limit > 0 && w.count >= w.limit {
			violations = append(violations, Violation{Window: w.name, Count: w.count, Limit: w.limit})
		}
	}

	if len(violations) > 0 {
		// Highest severity wins; violations are ordered day > hour >
		// minute so on a severity tie the longer window prevails.
		top := violations[0]
		topSev := severityFor(top.Count, top.Limit)
		for _, v := range violations[1:] {
			if sev := severityFor(v.Count, v.Limit); sev > topSev {
				top, topSev = v, sev
			}
		}

		dur := blockDuration(topSev)
		rec := &BlockRecord{
			Sender:    sender,
			BlockedAt: now,
			Duration:  dur,
			Reason: fmt.Sprintf("%s rate limit exceeded: %d/%d per %s",
				cat, top.Count, top.Limit, top.Window),
			Severity:   topSev,
			Violations: violations,
		}
		l.blocks[sender] = rec

		slog.Warn("sender blocked",
			"sender", sender,
			"category", string(cat),
			"severity", topSev.String(),
			"duration", dur,
			"violations", len(violations),
		)

		return Decision{
			Reason:     rec.Reason,
			Remaining:  dur,
			Severity:   topSev,
			Violations: violations,
		}
	}

	// Early warning when this attempt brings the per-minute usage to the
	// warn threshold, at most once per cooldown. Compared in float so a
	// fractional threshold (0.7 of 5) is not floored below the line.
	if limits.WarnFraction > 0 && limits.PerMinute > 0 {
		if float64(counts.Minute+1) >= limits.WarnFraction*float64(limits.PerMinute) {
			last, warned := l.warnedAt[sender]
			if !warned || now.Sub(last) >= l.cfg.WarningCooldown {
				l.warnedAt[sender] = now
				return Decision{
					Allowed: true,
					Warning: fmt.Sprintf("You are sending %s too quickly (%d of %d per minute). Slow down to avoid a temporary block.",
						cat.unit(), counts.Minute+1, limits.PerMinute),
				}
			}
		}
	}

	return Decision{Allowed: true}
}

// Record appends the current instant to the sender's activity log for the
// category. Distinct from CanProceed: a rejected action must never be
// recorded, an admitted one always is.
func (l *Limiter) Record(sender string, cat Category) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	key := activityKey{sender, cat}
	l.activity[key] = append(pruned(l.activity[key], now.Add(-retentionHorizon)), now)
}

// IsBlocked reports whether the sender has an unexpired block, deleting an
// expired record lazily.
func (l *Limiter) IsBlocked(sender string) (bool, *BlockRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.activeBlock(sender, l.clock())
	if rec == nil {
		return false, nil
	}
	cp := *rec
	return true, &cp
}

// activeBlock returns the sender's block if unexpired, deleting it when the
// expiry predicate says it has lapsed. Caller holds l.mu.
func (l *Limiter) activeBlock(sender string, now time.Time) *BlockRecord {
	rec, ok := l.blocks[sender]
	if !ok {
		return nil
	}
	if rec.expired(now) {
		delete(l.blocks, sender)
		return nil
	}
	return rec
}

// CheckSpam runs the category-agnostic escalation check: total recorded
// activity across all categories inside the trailing spam window, plus the
// in-flight message, compared against the threshold. Returns the observed
// count alongside the verdict.
func (l *Limiter) CheckSpam(sender string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	cutoff := now.Add(-l.cfg.SpamWindow)

	count := 1 // the message being processed
	for _, cat := range []Category{CategoryMessage, CategoryMedia, CategoryCommand} {
		key := activityKey{sender, cat}
		l.activity[key] = pruned(l.activity[key], now.Add(-retentionHorizon))
		count += countSince(l.activity[key], cutoff)
	}

	return count > l.cfg.SpamThreshold, count
}

// SpamWindow returns the configured spam escalation window.
func (l *Limiter) SpamWindow() time.Duration { return l.cfg.SpamWindow }

// Stats returns a snapshot of the sender's window counts and block state.
func (l *Limiter) Stats(sender string) SenderStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	stats := SenderStats{
		Sender:  sender,
		Windows: make(map[Category]WindowCounts, 3),
	}
	for _, cat := range []Category{CategoryMessage, CategoryMedia, CategoryCommand} {
		stats.Windows[cat] = l.windowCounts(sender, cat, now)
	}
	if rec := l.activeBlock(sender, now); rec != nil {
		stats.Blocked = true
		stats.Block = blockInfo(rec, now)
	}
	return stats
}

// BlockedSenders enumerates all currently blocked senders, dropping expired
// records as it goes.
func (l *Limiter) BlockedSenders() []BlockInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	var out []BlockInfo
	for sender, rec := range l.blocks {
		if rec.expired(now) {
			delete(l.blocks, sender)
			continue
		}
		out = append(out, *blockInfo(rec, now))
	}
	return out
}

// Reset clears all tracked state for a sender: activity logs, block record,
// and warning timestamps. Administrative use only; blocks otherwise expire
// purely by time.
func (l *Limiter) Reset(sender string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, cat := range []Category{CategoryMessage, CategoryMedia, CategoryCommand} {
		delete(l.activity, activityKey{sender, cat})
	}
	delete(l.blocks, sender)
	delete(l.warnedAt, sender)
}

// windowCounts computes the sender's current minute/hour/day counts, pruning
// entries older than the retention horizon. Caller holds l.mu.
func (l *Limiter) windowCounts(sender string, cat Category, now time.Time) WindowCounts {
	key := activityKey{sender, cat}
	entries := pruned(l.activity[key], now.Add(-retentionHorizon))
	if entries == nil {
		delete(l.activity, key)
	} else {
		l.activity[key] = entries
	}
	return WindowCounts{
		Minute: countSince(entries, now.Add(-time.Minute)),
		Hour:   countSince(entries, now.Add(-time.Hour)),
		Day:    len(entries), // horizon == day window
	}
}

func blockInfo(rec *BlockRecord, now time.Time) *BlockInfo {
	return &BlockInfo{
		Sender:    rec.Sender,
		Reason:    rec.Reason,
		Severity:  rec.Severity.String(),
		BlockedAt: rec.BlockedAt,
		ExpiresAt: rec.ExpiresAt(),
		Remaining: rec.ExpiresAt().Sub(now).Round(time.Second).String(),
	}
}

// pruned drops entries at or before cutoff. Entries are appended in time
// order, so the survivors are a suffix.
func pruned(entries []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(entries) && !entries[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return entries
	}
	if i == len(entries) {
		return nil
	}
	out := make([]time.Time, len(entries)-i)
	copy(out, entries[i:])
	return out
}

// countSince counts entries strictly newer than cutoff.
func countSince(entries []time.Time, cutoff time.Time) int {
	n := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].After(cutoff) {
			break
		}
		n++
	}
	return n
}

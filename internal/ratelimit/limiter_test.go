package ratelimit

import (
	"strings"
	"testing"
	"time"
)

// fakeClock drives the limiter deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.clock = clock.Now
	return l, clock
}

func TestCanProceed_BlocksOnlyPastTheLimit(t *testing.T) {
	l, clock := newTestLimiter(DefaultConfig())
	const sender = "alice"

	// 21 messages inside one minute against a 20/min limit: 1-20 allowed,
	// 16 carries the one warning, 21 blocked soft for 5 minutes.
	for i := 1; i <= 20; i++ {
		dec := l.CanProceed(sender, CategoryMessage)
		if !dec.Allowed {
			t.Fatalf("message %d: blocked early: %+v", i, dec)
		}
		if i == 16 && dec.Warning == "" {
			t.Errorf("message 16: want usage warning at 80%% threshold")
		}
		if i != 16 && dec.Warning != "" {
			t.Errorf("message %d: unexpected warning %q", i, dec.Warning)
		}
		l.Record(sender, CategoryMessage)
		clock.Advance(time.Second)
	}

	dec := l.CanProceed(sender, CategoryMessage)
	if dec.Allowed {
		t.Fatal("message 21: want Blocked")
	}
	if dec.Severity != SeveritySoft {
		t.Errorf("message 21: severity = %s, want soft", dec.Severity)
	}
	if dec.Remaining != 5*time.Minute {
		t.Errorf("message 21: remaining = %v, want 5m", dec.Remaining)
	}
}

func TestCanProceed_NthAttemptAtLimitStillAllowed(t *testing.T) {
	l, _ := newTestLimiter(DefaultConfig())
	const sender = "bob"

	// Record exactly limit-1 events, then the Nth attempt must pass.
	for i := 0; i < 19; i++ {
		l.Record(sender, CategoryMessage)
	}
	if dec := l.CanProceed(sender, CategoryMessage); !dec.Allowed {
		t.Fatalf("attempt at count=19: blocked: %+v", dec)
	}
	l.Record(sender, CategoryMessage)
	if dec := l.CanProceed(sender, CategoryMessage); dec.Allowed {
		t.Fatal("attempt at count=20: want Blocked")
	}
}

func TestCanProceed_RejectedNotRecorded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Message.PerMinute = 2
	cfg.Message.WarnFraction = 0 // disable warnings for this test
	l, clock := newTestLimiter(cfg)
	const sender = "carol"

	l.Record(sender, CategoryMessage)
	l.Record(sender, CategoryMessage)

	// Blocked attempts do not add activity, so once the block and the
	// minute elapse the sender is clean again.
	if dec := l.CanProceed(sender, CategoryMessage); dec.Allowed {
		t.Fatal("want Blocked at limit")
	}
	clock.Advance(6 * time.Minute) // past the soft block and the minute window
	if dec := l.CanProceed(sender, CategoryMessage); !dec.Allowed {
		t.Fatalf("after block expiry: %+v", dec)
	}
}

func TestWarning_CooldownIsIdempotent(t *testing.T) {
	l, clock := newTestLimiter(DefaultConfig())
	const sender = "dave"

	for i := 0; i < 15; i++ {
		l.Record(sender, CategoryMessage)
	}

	warnings := 0
	for i := 0; i < 2; i++ {
		dec := l.CanProceed(sender, CategoryMessage)
		if !dec.Allowed {
			t.Fatalf("attempt %d blocked: %+v", i, dec)
		}
		if dec.Warning != "" {
			warnings++
		}
		clock.Advance(time.Second)
	}
	if warnings != 1 {
		t.Errorf("two qualifying attempts 1s apart produced %d warnings, want 1", warnings)
	}

	clock.Advance(5 * time.Minute)
	// Window rolled over; refill to the threshold to qualify again.
	for i := 0; i < 15; i++ {
		l.Record(sender, CategoryMessage)
	}
	if dec := l.CanProceed(sender, CategoryMessage); dec.Warning == "" {
		t.Error("warning not re-armed after cooldown")
	}
}

func TestWarning_ThresholdBoundaries(t *testing.T) {
	// First warned attempt is the first one at or past WarnFraction of the
	// per-minute limit. Fractional thresholds (0.7 of 5 = 3.5) must round
	// up, not down: attempt 3 of 5 is 60% usage and under the line.
	tests := []struct {
		cat      Category
		warnAt   int // 1-based attempt that carries the warning
		wantUnit string
	}{
		{CategoryMessage, 16, "messages"}, // 0.8 * 20
		{CategoryMedia, 4, "media"},       // 0.7 * 5 = 3.5
		{CategoryCommand, 9, "commands"},  // 0.9 * 10
	}
	for _, tt := range tests {
		l, _ := newTestLimiter(DefaultConfig())
		sender := "warn-" + string(tt.cat)

		for i := 0; i < tt.warnAt-2; i++ {
			l.Record(sender, tt.cat)
		}
		if dec := l.CanProceed(sender, tt.cat); dec.Warning != "" {
			t.Errorf("%s: attempt %d warned below the threshold: %q", tt.cat, tt.warnAt-1, dec.Warning)
		}
		l.Record(sender, tt.cat)

		dec := l.CanProceed(sender, tt.cat)
		if dec.Warning == "" {
			t.Errorf("%s: attempt %d carried no warning", tt.cat, tt.warnAt)
			continue
		}
		if !strings.Contains(dec.Warning, "sending "+tt.wantUnit+" too quickly") {
			t.Errorf("%s: warning %q, want unit %q", tt.cat, dec.Warning, tt.wantUnit)
		}
	}
}

func TestSeverity_Mapping(t *testing.T) {
	tests := []struct {
		count, limit int
		want         Severity
	}{
		{40, 20, SeveritySevere},
		{30, 20, SeverityHard},
		{20, 20, SeveritySoft},
		{10, 20, SeverityWarning},
	}
	for _, tt := range tests {
		if got := severityFor(tt.count, tt.limit); got != tt.want {
			t.Errorf("severityFor(%d, %d) = %s, want %s", tt.count, tt.limit, got, tt.want)
		}
	}
}

func TestViolations_MultiWindowHighestSeverityWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Message = Limits{PerMinute: 5, PerHour: 8, PerDay: 100, WarnFraction: 0}
	l, _ := newTestLimiter(cfg)
	const sender = "eve"

	// 10 events in one minute: minute 10/5 (ratio 2.0, severe) and hour
	// 10/8 (ratio 1.25, soft) breach together; severe wins.
	for i := 0; i < 10; i++ {
		l.Record(sender, CategoryMessage)
	}

	dec := l.CanProceed(sender, CategoryMessage)
	if dec.Allowed {
		t.Fatal("want Blocked")
	}
	if dec.Severity != SeveritySevere {
		t.Errorf("severity = %s, want severe", dec.Severity)
	}
	if len(dec.Violations) != 2 {
		t.Errorf("violations = %d, want 2 (hour and minute)", len(dec.Violations))
	}
	if !strings.Contains(dec.Reason, "minute") {
		t.Errorf("reason %q should name the winning minute window", dec.Reason)
	}
}

func TestViolations_TieBreakPrefersLongerWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Message = Limits{PerMinute: 10, PerHour: 10, PerDay: 1000, WarnFraction: 0}
	l, _ := newTestLimiter(cfg)
	const sender = "frank"

	// Equal ratios in minute and hour; the hour violation must determine
	// the reported reason.
	for i := 0; i < 10; i++ {
		l.Record(sender, CategoryMessage)
	}

	dec := l.CanProceed(sender, CategoryMessage)
	if dec.Allowed {
		t.Fatal("want Blocked")
	}
	if !strings.Contains(dec.Reason, "hour") {
		t.Errorf("reason %q, want the hour window to win the tie", dec.Reason)
	}
}

func TestBlock_ExpiryBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Message = Limits{PerMinute: 2, PerHour: 3, PerDay: 1000, WarnFraction: 0}
	l, clock := newTestLimiter(cfg)
	const sender = "grace"

	// hour 3/3 and minute 3/2 (ratio 1.5): hard, 30 minutes.
	for i := 0; i < 3; i++ {
		l.Record(sender, CategoryMessage)
	}
	if dec := l.CanProceed(sender, CategoryMessage); dec.Allowed || dec.Severity != SeverityHard {
		t.Fatalf("want hard block, got %+v", dec)
	}

	clock.Advance(29*time.Minute + 59*time.Second)
	if blocked, _ := l.IsBlocked(sender); !blocked {
		t.Error("IsBlocked at T+29m59s = false, want true")
	}

	clock.Advance(2 * time.Second) // T+30m1s
	if blocked, _ := l.IsBlocked(sender); blocked {
		t.Error("IsBlocked at T+30m1s = true, want false")
	}
	if list := l.BlockedSenders(); len(list) != 0 {
		t.Errorf("expired record still enumerated: %+v", list)
	}
}

func TestSweep_RemovesExpiredBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Message = Limits{PerMinute: 1, PerHour: 100, PerDay: 1000, WarnFraction: 0}
	l, clock := newTestLimiter(cfg)

	l.Record("henry", CategoryMessage)
	if dec := l.CanProceed("henry", CategoryMessage); dec.Allowed {
		t.Fatal("want Blocked")
	}

	if removed := l.Sweep(); removed != 0 {
		t.Errorf("Sweep removed %d fresh blocks, want 0", removed)
	}
	clock.Advance(6 * time.Minute)
	if removed := l.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
}

func TestReset_ClearsAllSenderState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Message = Limits{PerMinute: 1, PerHour: 100, PerDay: 1000, WarnFraction: 0}
	l, _ := newTestLimiter(cfg)
	const sender = "iris"

	l.Record(sender, CategoryMessage)
	if dec := l.CanProceed(sender, CategoryMessage); dec.Allowed {
		t.Fatal("want Blocked")
	}

	l.Reset(sender)
	if dec := l.CanProceed(sender, CategoryMessage); !dec.Allowed {
		t.Fatalf("after Reset: %+v", dec)
	}
	stats := l.Stats(sender)
	if stats.Windows[CategoryMessage].Day != 0 {
		t.Errorf("activity survives Reset: %+v", stats)
	}
}

func TestCategories_TrackedIndependently(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Media = Limits{PerMinute: 1, PerHour: 100, PerDay: 1000, WarnFraction: 0}
	l, _ := newTestLimiter(cfg)
	const sender = "judy"

	l.Record(sender, CategoryMedia)
	if dec := l.CanProceed(sender, CategoryMedia); dec.Allowed {
		t.Fatal("media at limit: want Blocked")
	}

	// The media block applies to the sender as a whole; after it expires
	// the message category is untouched by media activity.
	l.Reset(sender)
	l.Record(sender, CategoryMedia)
	if dec := l.CanProceed(sender, CategoryMessage); !dec.Allowed {
		t.Fatalf("message category affected by media activity: %+v", dec)
	}
}

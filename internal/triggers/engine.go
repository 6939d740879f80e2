// Package triggers implements the auto-response rule engine. Rules live in an
// immutable in-memory snapshot swapped atomically on every mutation, so
// matching is lock-free and a reload never blocks in-flight matches.
package triggers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bamit99/whatsapp-bot/internal/message"
	"github.com/bamit99/whatsapp-bot/internal/store"
)

// MatchKind selects the matching strategy for a rule keyword.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchContains MatchKind = "contains"
	MatchRegex    MatchKind = "regex"
)

// ValidMatchKind reports whether s names a known match kind.
func ValidMatchKind(s string) bool {
	switch MatchKind(s) {
	case MatchExact, MatchContains, MatchRegex:
		return true
	}
	return false
}

var (
	// ErrDuplicateKeyword is returned by Add when the keyword already exists.
	ErrDuplicateKeyword = errors.New("trigger keyword already exists")
	// ErrNotFound is returned by Remove for an unknown keyword.
	ErrNotFound = errors.New("trigger keyword not found")
)

// Rule is one keyword to auto-response mapping.
type Rule struct {
	Keyword       string
	Response      string
	Match         MatchKind
	CaseSensitive bool
}

// compiledRule pairs a rule with its prepared matcher state. For regex rules
// with an invalid pattern, re stays nil and the rule is skipped at match time.
type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Engine evaluates messages against the current rule snapshot and writes rule
// mutations through to the trigger store.
type Engine struct {
	triggers store.TriggerStore

	mu       sync.Mutex // serializes mutations and snapshot swaps
	snapshot atomic.Pointer[[]compiledRule]
}

// NewEngine loads the active rules from the store and returns a ready engine.
func NewEngine(ctx context.Context, triggers store.TriggerStore) (*Engine, error) {
	e := &Engine{triggers: triggers}
	if err := e.Reload(ctx); err != nil {
		return nil, fmt.Errorf("load triggers: %w", err)
	}
	return e, nil
}

// Reload replaces the rule snapshot from the store. The swap is atomic: a
// concurrent Match sees either the old or the new snapshot, never a partial
// one.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	recs, err := e.triggers.ActiveTriggers(ctx)
	if err != nil {
		return fmt.Errorf("read active triggers: %w", err)
	}
	snap := compile(recs)
	e.snapshot.Store(&snap)
	return nil
}

func compile(recs []store.TriggerRecord) []compiledRule {
	out := make([]compiledRule, 0, len(recs))
	for _, rec := range recs {
		cr := compiledRule{Rule: Rule{
			Keyword:       rec.Keyword,
			Response:      rec.Response,
			Match:         MatchKind(rec.Match),
			CaseSensitive: rec.CaseSensitive,
		}}
		if cr.Match == MatchRegex {
			pattern := rec.Keyword
			if !rec.CaseSensitive {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				slog.Warn("invalid trigger regex, rule will be skipped",
					"keyword", rec.Keyword, "error", err)
			} else {
				cr.re = re
			}
		}
		out = append(out, cr)
	}
	return out
}

// Rules returns a copy of the current snapshot in evaluation order.
func (e *Engine) Rules() []Rule {
	snap := *e.snapshot.Load()
	out := make([]Rule, 0, len(snap))
	for _, cr := range snap {
		out = append(out, cr.Rule)
	}
	return out
}

// Match returns every rule that fires for the message, in snapshot order.
// A message with empty text matches nothing.
func (e *Engine) Match(msg *message.NormalizedMessage) []Rule {
	if msg == nil || msg.Text == "" {
		return nil
	}

	snap := *e.snapshot.Load()
	var matched []Rule
	for _, cr := range snap {
		if cr.matches(msg.Text) {
			matched = append(matched, cr.Rule)
		}
	}
	return matched
}

func (cr *compiledRule) matches(text string) bool {
	switch cr.Match {
	case MatchExact:
		if cr.CaseSensitive {
			return text == cr.Keyword
		}
		return strings.EqualFold(text, cr.Keyword)
	case MatchContains:
		if cr.CaseSensitive {
			return strings.Contains(text, cr.Keyword)
		}
		return strings.Contains(strings.ToLower(text), strings.ToLower(cr.Keyword))
	case MatchRegex:
		if cr.re == nil {
			slog.Debug("skipping trigger with invalid regex", "keyword", cr.Keyword)
			return false
		}
		return cr.re.MatchString(text)
	}
	return false
}

// Add creates a new rule, persists it, and makes it visible to the next
// Match call. Returns ErrDuplicateKeyword when the keyword already exists.
func (e *Engine) Add(ctx context.Context, keyword, response string, match MatchKind, caseSensitive bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := *e.snapshot.Load()
	for _, cr := range snap {
		if cr.Keyword == keyword {
			return ErrDuplicateKeyword
		}
	}

	rec := store.TriggerRecord{
		Keyword:       keyword,
		Response:      response,
		Match:         string(match),
		CaseSensitive: caseSensitive,
		Active:        true,
		CreatedAt:     time.Now(),
	}
	if err := e.triggers.AddTrigger(ctx, rec); err != nil {
		// The snapshot only holds active rules; an inactive row with the
		// same keyword still owns the primary key.
		if errors.Is(err, store.ErrDuplicateTrigger) {
			return ErrDuplicateKeyword
		}
		return fmt.Errorf("persist trigger %q: %w", keyword, err)
	}

	next := make([]compiledRule, len(snap), len(snap)+1)
	copy(next, snap)
	next = append(next, compile([]store.TriggerRecord{rec})...)
	e.snapshot.Store(&next)
	return nil
}

// Remove deletes a rule by keyword. Returns ErrNotFound for an unknown
// keyword.
func (e *Engine) Remove(ctx context.Context, keyword string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := *e.snapshot.Load()
	idx := -1
	for i, cr := range snap {
		if cr.Keyword == keyword {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	if err := e.triggers.RemoveTrigger(ctx, keyword); err != nil {
		return fmt.Errorf("delete trigger %q: %w", keyword, err)
	}

	next := make([]compiledRule, 0, len(snap)-1)
	next = append(next, snap[:idx]...)
	next = append(next, snap[idx+1:]...)
	e.snapshot.Store(&next)
	return nil
}

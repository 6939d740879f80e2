package triggers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/bamit99/whatsapp-bot/internal/message"
	"github.com/bamit99/whatsapp-bot/internal/store"
)

// memTriggerStore is an in-memory TriggerStore preserving insertion order.
type memTriggerStore struct {
	mu   sync.Mutex
	recs []store.TriggerRecord
}

func (m *memTriggerStore) ActiveTriggers(_ context.Context) ([]store.TriggerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.TriggerRecord
	for _, rec := range m.recs {
		if rec.Active {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memTriggerStore) AddTrigger(_ context.Context, rec store.TriggerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Keyword is the primary key regardless of active state.
	for _, existing := range m.recs {
		if existing.Keyword == rec.Keyword {
			return store.ErrDuplicateTrigger
		}
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memTriggerStore) RemoveTrigger(_ context.Context, keyword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.recs {
		if rec.Keyword == keyword {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("trigger %q not found", keyword)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(context.Background(), &memTriggerStore{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func textMsg(text string) *message.NormalizedMessage {
	return &message.NormalizedMessage{ID: "m1", SenderID: "s1", Text: text, Kind: message.KindText}
}

func TestMatch_AllRulesFireInOrder(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	if err := e.Add(ctx, "help", "Hi", MatchExact, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := e.Add(ctx, "he.*", "Regex!", MatchRegex, false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	matched := e.Match(textMsg("help"))
	if len(matched) != 2 {
		t.Fatalf("Match() fired %d rules, want 2", len(matched))
	}
	if matched[0].Keyword != "help" || matched[1].Keyword != "he.*" {
		t.Errorf("Match() order = [%s, %s], want [help, he.*]", matched[0].Keyword, matched[1].Keyword)
	}
}

func TestMatch_Kinds(t *testing.T) {
	tests := []struct {
		name          string
		keyword       string
		match         MatchKind
		caseSensitive bool
		text          string
		want          bool
	}{
		{"exact case-folded", "Hello", MatchExact, false, "hello", true},
		{"exact case-sensitive miss", "Hello", MatchExact, true, "hello", false},
		{"exact no substring", "hello", MatchExact, false, "hello there", false},
		{"contains folded", "PIZZA", MatchContains, false, "I love pizza!", true},
		{"contains case-sensitive", "pizza", MatchContains, true, "PIZZA", false},
		{"regex case-insensitive", "^ord[0-9]+", MatchRegex, false, "ORD42 ready", true},
		{"regex case-sensitive miss", "^ord[0-9]+", MatchRegex, true, "ORD42", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			if err := e.Add(context.Background(), tt.keyword, "resp", tt.match, tt.caseSensitive); err != nil {
				t.Fatalf("Add: %v", err)
			}
			got := len(e.Match(textMsg(tt.text))) > 0
			if got != tt.want {
				t.Errorf("Match(%q) fired = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMatch_InvalidRegexSkippedOthersStillFire(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	if err := e.Add(ctx, "[invalid", "never", MatchRegex, false); err != nil {
		t.Fatalf("Add invalid regex rule: %v", err)
	}
	if err := e.Add(ctx, "ping", "pong", MatchExact, false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	matched := e.Match(textMsg("ping"))
	if len(matched) != 1 || matched[0].Response != "pong" {
		t.Errorf("Match() = %+v, want only the valid rule", matched)
	}
}

func TestMatch_EmptyTextMatchesNothing(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	if err := e.Add(ctx, ".*", "all", MatchRegex, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if matched := e.Match(textMsg("")); matched != nil {
		t.Errorf("Match(empty) = %+v, want nil", matched)
	}
}

func TestAddRemove_Errors(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	if err := e.Add(ctx, "help", "Hi", MatchExact, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := e.Add(ctx, "help", "again", MatchContains, false); !errors.Is(err, ErrDuplicateKeyword) {
		t.Errorf("duplicate Add error = %v, want ErrDuplicateKeyword", err)
	}
	if err := e.Remove(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAdd_InactiveRowStillOwnsKeyword(t *testing.T) {
	ctx := context.Background()
	mem := &memTriggerStore{recs: []store.TriggerRecord{
		{Keyword: "promo", Response: "old", Match: "exact", Active: false},
	}}
	e, err := NewEngine(ctx, mem)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// Invisible to matching, but the row still owns the primary key, so
	// Add must surface the duplicate sentinel rather than a raw DB error.
	if e.Match(textMsg("promo")) != nil {
		t.Fatal("inactive rule matched")
	}
	if err := e.Add(ctx, "promo", "new", MatchExact, false); !errors.Is(err, ErrDuplicateKeyword) {
		t.Errorf("Add over inactive row = %v, want ErrDuplicateKeyword", err)
	}
}

func TestAddRemove_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	if err := e.Add(ctx, "keep", "kept", MatchExact, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	before := e.Rules()

	if err := e.Add(ctx, "temp", "gone soon", MatchContains, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := e.Remove(ctx, "temp"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	after := e.Rules()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("snapshot after add+remove = %+v, want %+v", after, before)
	}
}

func TestMutation_VisibleToNextMatch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	if e.Match(textMsg("hello")) != nil {
		t.Fatal("unexpected match before Add")
	}
	if err := e.Add(ctx, "hello", "hey", MatchExact, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(e.Match(textMsg("hello"))) != 1 {
		t.Error("rule not visible immediately after Add")
	}
	if err := e.Remove(ctx, "hello"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if e.Match(textMsg("hello")) != nil {
		t.Error("rule still matching after Remove")
	}
}

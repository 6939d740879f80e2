// Package store defines the persistence interfaces and record types shared by
// the sqlite (standalone) and Postgres (managed) backends.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateTrigger is returned by AddTrigger when the keyword already has
// a row, active or not. Backends map their driver's unique-constraint error
// to this sentinel.
var ErrDuplicateTrigger = errors.New("trigger keyword already exists")

// MessageRecord is the persisted copy of a normalized message.
type MessageRecord struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	Kind           string
	Text           string
	MediaURL       string
	MediaMime      string
	IsGroup        bool
	ReplyToID      string
	Timestamp      time.Time
}

// TriggerRecord is a configured keyword auto-response rule.
type TriggerRecord struct {
	Keyword       string
	Response      string
	Match         string // "exact", "contains", "regex"
	CaseSensitive bool
	Active        bool
	CreatedAt     time.Time
}

// DataPoint is a piece of content extracted from a message (url, email,
// phone).
type DataPoint struct {
	Kind      string
	Value     string
	SourceID  string
	MessageID string
}

// SpamEvent records a spam-escalation detection for a sender.
type SpamEvent struct {
	SourceID   string
	MessageID  string
	Reason     string
	Severity   string
	Action     string
	Violations []string // "window:count/limit" entries, empty for threshold-only flags
}

// MessageStore persists inbound messages. SaveMessage uses insert-or-ignore
// semantics on the message id so at-least-once delivery never duplicates rows.
type MessageStore interface {
	SaveMessage(ctx context.Context, rec MessageRecord) error
	CountMessages(ctx context.Context) (int, error)
}

// UserStore tracks known senders and their last activity.
type UserStore interface {
	UpsertUser(ctx context.Context, id, name string) error
	TouchActivity(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
}

// TriggerStore persists trigger rules. ActiveTriggers returns rules in
// creation order, which is also the evaluation order of the trigger engine.
// AddTrigger returns ErrDuplicateTrigger for an already-stored keyword.
type TriggerStore interface {
	ActiveTriggers(ctx context.Context) ([]TriggerRecord, error)
	AddTrigger(ctx context.Context, rec TriggerRecord) error
	RemoveTrigger(ctx context.Context, keyword string) error
}

// LogStore appends structured application log rows for the dashboard.
type LogStore interface {
	AppendLog(ctx context.Context, level, msg string, context map[string]string) error
}

// DataStore persists extracted data points.
type DataStore interface {
	SaveDataPoint(ctx context.Context, dp DataPoint) error
	CountDataPoints(ctx context.Context) (int, error)
}

// SpamStore persists spam-escalation events.
type SpamStore interface {
	SaveSpamEvent(ctx context.Context, ev SpamEvent) error
	CountSpamEvents(ctx context.Context) (int, error)
}

// Stores is the top-level container for all storage backends.
type Stores struct {
	Messages MessageStore
	Users    UserStore
	Triggers TriggerStore
	Logs     LogStore
	Data     DataStore
	Spam     SpamStore

	closer func() error
}

// SetCloser registers the function invoked by Close (the shared DB handle).
func (s *Stores) SetCloser(fn func() error) { s.closer = fn }

// Close releases the underlying database handle.
func (s *Stores) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

package ratelimit

import (
	"fmt"
	"time"
)

// Category splits rate accounting by what the sender did.
type Category string

const (
	CategoryMessage Category = "message"
	CategoryMedia   Category = "media"
	CategoryCommand Category = "command"
)

// unit is the noun used when talking to the sender about this category.
func (c Category) unit() string {
	switch c {
	case CategoryMedia:
		return "media"
	case CategoryCommand:
		return "commands"
	default:
		return "messages"
	}
}

// Severity grades a rate-limit violation by how far past the limit the
// sender is.
type Severity int

const (
	SeverityWarning Severity = iota
	SeveritySoft
	SeverityHard
	SeveritySevere
)

func (s Severity) String() string {
	switch s {
	case SeveritySoft:
		return "soft"
	case SeverityHard:
		return "hard"
	case SeveritySevere:
		return "severe"
	default:
		return "warning"
	}
}

// severityFor maps the count/limit ratio to a severity grade.
func severityFor(count, limit int) Severity {
	ratio := float64(count) / float64(limit)
	switch {
	case ratio >= 2.0:
		return SeveritySevere
	case ratio >= 1.5:
		return SeverityHard
	case ratio >= 1.0:
		return SeveritySoft
	default:
		return SeverityWarning
	}
}

// blockDuration returns how long a violation of the given severity blocks
// the sender.
func blockDuration(s Severity) time.Duration {
	switch s {
	case SeveritySoft:
		return 5 * time.Minute
	case SeverityHard:
		return 30 * time.Minute
	case SeveritySevere:
		return 2 * time.Hour
	default:
		return 0
	}
}

// Violation describes one window that breached its limit.
type Violation struct {
	Window string // "minute", "hour", "day"
	Count  int
	Limit  int
}

func (v Violation) String() string {
	return fmt.Sprintf("%s:%d/%d", v.Window, v.Count, v.Limit)
}

// BlockRecord is the active admission denial for a sender. A sender is
// blocked iff now < BlockedAt + Duration. A new violation overwrites the
// prior record.
type BlockRecord struct {
	Sender     string
	BlockedAt  time.Time
	Duration   time.Duration
	Reason     string
	Severity   Severity
	Violations []Violation
}

// ExpiresAt returns the instant the block lapses.
func (b *BlockRecord) ExpiresAt() time.Time { return b.BlockedAt.Add(b.Duration) }

// expired is the single expiry predicate shared by the lazy lookup path and
// the periodic sweep.
func (b *BlockRecord) expired(now time.Time) bool {
	return !now.Before(b.ExpiresAt())
}

// Decision is the outcome of an admission check. Not an error: policy
// rejections are first-class results.
type Decision struct {
	Allowed    bool
	Warning    string        // non-empty when allowed with a usage warning
	Reason     string        // populated when blocked
	Remaining  time.Duration // time left on the block
	Severity   Severity
	Violations []Violation
}

// SenderStats is a read-only snapshot of one sender's rate-limit state.
type SenderStats struct {
	Sender  string                    `json:"sender"`
	Windows map[Category]WindowCounts `json:"windows"`
	Blocked bool                      `json:"blocked"`
	Block   *BlockInfo                `json:"block,omitempty"`
}

// WindowCounts holds the current sliding-window counts for one category.
type WindowCounts struct {
	Minute int `json:"minute"`
	Hour   int `json:"hour"`
	Day    int `json:"day"`
}

// BlockInfo is the externally visible form of a BlockRecord.
type BlockInfo struct {
	Sender    string    `json:"sender"`
	Reason    string    `json:"reason"`
	Severity  string    `json:"severity"`
	BlockedAt time.Time `json:"blocked_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Remaining string    `json:"remaining"`
}

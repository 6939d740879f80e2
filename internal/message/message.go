// Package message defines the canonical inbound message record and the
// normalizer that produces it from raw bridge frames.
package message

import (
	"time"
)

// ContentKind classifies what a message carries.
type ContentKind string

const (
	KindText     ContentKind = "text"
	KindImage    ContentKind = "image"
	KindVideo    ContentKind = "video"
	KindAudio    ContentKind = "audio"
	KindDocument ContentKind = "document"
	KindSticker  ContentKind = "sticker"
)

// MediaRef points at media content delivered alongside a message.
type MediaRef struct {
	URL      string
	MimeType string
}

// NormalizedMessage is the canonical record for one inbound event. It is
// created once per event and never mutated; consumers that need to retain it
// take a copy.
type NormalizedMessage struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	Kind           ContentKind
	Text           string
	Media          *MediaRef
	Timestamp      time.Time
	IsGroup        bool
	ReplyToID      string
}

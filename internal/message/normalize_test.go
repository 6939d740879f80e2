package message

import (
	"testing"
	"time"

	"github.com/bamit99/whatsapp-bot/pkg/protocol"
)

func TestNormalize_ContentKindPrecedence(t *testing.T) {
	media := &protocol.MediaPayload{URL: "https://cdn.example/abc", MimeType: "image/jpeg"}

	tests := []struct {
		name     string
		frame    protocol.InboundFrame
		wantKind ContentKind
		wantText string
	}{
		{
			name:     "plain text",
			frame:    protocol.InboundFrame{Text: "hello"},
			wantKind: KindText,
			wantText: "hello",
		},
		{
			name:     "plain text wins over media",
			frame:    protocol.InboundFrame{Text: "hello", Image: media},
			wantKind: KindText,
			wantText: "hello",
		},
		{
			name:     "extended text",
			frame:    protocol.InboundFrame{Extended: &protocol.ExtendedText{Body: "check this"}},
			wantKind: KindText,
			wantText: "check this",
		},
		{
			name:     "image before video",
			frame:    protocol.InboundFrame{Image: media, Video: &protocol.MediaPayload{URL: "v"}},
			wantKind: KindImage,
		},
		{
			name:     "video",
			frame:    protocol.InboundFrame{Video: media},
			wantKind: KindVideo,
		},
		{
			name:     "audio",
			frame:    protocol.InboundFrame{Audio: media},
			wantKind: KindAudio,
		},
		{
			name:     "document",
			frame:    protocol.InboundFrame{Document: media},
			wantKind: KindDocument,
		},
		{
			name:     "sticker",
			frame:    protocol.InboundFrame{Sticker: media},
			wantKind: KindSticker,
		},
		{
			name:     "empty frame normalizes to empty text",
			frame:    protocol.InboundFrame{},
			wantKind: KindText,
			wantText: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := Normalize(tt.frame)
			if !ok {
				t.Fatal("Normalize() skipped, want record")
			}
			if msg.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", msg.Kind, tt.wantKind)
			}
			if msg.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", msg.Text, tt.wantText)
			}
		})
	}
}

func TestNormalize_SkipsOwnEchoes(t *testing.T) {
	msg, ok := Normalize(protocol.InboundFrame{FromMe: true, Text: "echo"})
	if ok || msg != nil {
		t.Errorf("Normalize(from_me frame) = (%v, %v), want skip", msg, ok)
	}
}

func TestNormalize_MediaCaptionPopulatesText(t *testing.T) {
	frame := protocol.InboundFrame{
		Image: &protocol.MediaPayload{URL: "https://cdn.example/x", MimeType: "image/png", Caption: "look"},
	}
	msg, ok := Normalize(frame)
	if !ok {
		t.Fatal("Normalize() skipped, want record")
	}
	if msg.Kind != KindImage {
		t.Errorf("Kind = %q, want image", msg.Kind)
	}
	if msg.Media == nil || msg.Media.URL != "https://cdn.example/x" || msg.Media.MimeType != "image/png" {
		t.Errorf("Media = %+v, want url+mime populated", msg.Media)
	}
	if msg.Text != "look" {
		t.Errorf("Text = %q, want caption", msg.Text)
	}
}

func TestNormalize_BestEffortDefaults(t *testing.T) {
	msg, ok := Normalize(protocol.InboundFrame{From: "123@s.whatsapp.net"})
	if !ok {
		t.Fatal("Normalize() skipped, want record")
	}
	if msg.ID == "" {
		t.Error("missing frame id should be replaced with a generated one")
	}
	if msg.ConversationID != "123@s.whatsapp.net" {
		t.Errorf("ConversationID = %q, want sender fallback", msg.ConversationID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("missing timestamp should fall back to now")
	}
	if msg.IsGroup {
		t.Error("direct chat flagged as group")
	}
}

func TestNormalize_GroupDetectionAndTimestamp(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	frame := protocol.InboundFrame{
		ID:        "m1",
		From:      "123@s.whatsapp.net",
		Chat:      "456-789@g.us",
		Timestamp: ts.Unix(),
		Text:      "hi all",
		ReplyTo:   "m0",
	}
	msg, ok := Normalize(frame)
	if !ok {
		t.Fatal("Normalize() skipped, want record")
	}
	if !msg.IsGroup {
		t.Error("group chat not detected")
	}
	if !msg.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", msg.Timestamp, ts)
	}
	if msg.ReplyToID != "m0" {
		t.Errorf("ReplyToID = %q, want m0", msg.ReplyToID)
	}
}

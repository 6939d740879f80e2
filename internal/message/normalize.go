package message

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bamit99/whatsapp-bot/pkg/protocol"
)

// Normalize converts a raw bridge frame into a NormalizedMessage. The second
// return is false when the event should be skipped entirely (an echo of the
// account's own sent message).
//
// Normalization is best-effort: a partially populated frame still yields a
// record. Absent fields become zero values, a missing id gets a generated
// one, and a missing timestamp falls back to the current time. Never fails.
func Normalize(frame protocol.InboundFrame) (*NormalizedMessage, bool) {
	if frame.FromMe {
		return nil, false
	}

	msg := &NormalizedMessage{
		ID:             frame.ID,
		ConversationID: frame.Chat,
		SenderID:       frame.From,
		SenderName:     frame.FromName,
		ReplyToID:      frame.ReplyTo,
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.ConversationID == "" {
		msg.ConversationID = frame.From
	}

	// WhatsApp group conversations end in "@g.us".
	msg.IsGroup = strings.HasSuffix(msg.ConversationID, "@g.us")

	if frame.Timestamp > 0 {
		msg.Timestamp = time.Unix(frame.Timestamp, 0)
	} else {
		msg.Timestamp = time.Now()
	}

	// Content-kind detection: first matching payload wins, in fixed
	// precedence. A caption on a media payload populates Text in addition
	// to Media.
	switch {
	case frame.Text != "":
		msg.Kind = KindText
		msg.Text = frame.Text
	case frame.Extended != nil:
		msg.Kind = KindText
		msg.Text = frame.Extended.Body
	case frame.Image != nil:
		msg.Kind = KindImage
		msg.Media = mediaRef(frame.Image)
		msg.Text = frame.Image.Caption
	case frame.Video != nil:
		msg.Kind = KindVideo
		msg.Media = mediaRef(frame.Video)
		msg.Text = frame.Video.Caption
	case frame.Audio != nil:
		msg.Kind = KindAudio
		msg.Media = mediaRef(frame.Audio)
	case frame.Document != nil:
		msg.Kind = KindDocument
		msg.Media = mediaRef(frame.Document)
		msg.Text = frame.Document.Caption
	case frame.Sticker != nil:
		msg.Kind = KindSticker
		msg.Media = mediaRef(frame.Sticker)
	default:
		// Unrecognized or empty payload: keep it as an empty text
		// message rather than rejecting the event.
		msg.Kind = KindText
	}

	return msg, true
}

func mediaRef(p *protocol.MediaPayload) *MediaRef {
	return &MediaRef{URL: p.URL, MimeType: p.MimeType}
}

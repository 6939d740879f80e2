// Package protocol defines the JSON wire frames exchanged with the WhatsApp
// bridge process over WebSocket. The bridge (whatsapp-web.js based) speaks the
// actual WhatsApp protocol; the bot only sees these frames.
package protocol

// Frame type discriminators.
const (
	FrameMessage = "message"
	FrameStatus  = "status"
)

// MediaPayload describes one media attachment on an inbound frame.
type MediaPayload struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// ExtendedText is a text body with link preview / formatting metadata.
// Only the body matters to the bot.
type ExtendedText struct {
	Body string `json:"body"`
}

// InboundFrame is a raw inbound event from the bridge. Exactly one of the
// payload fields (Text, Extended, Image, Video, Audio, Document, Sticker) is
// normally set, but the bridge gives no hard guarantee; consumers must
// tolerate partially populated frames.
type InboundFrame struct {
	Type      string        `json:"type"`
	ID        string        `json:"id,omitempty"`
	From      string        `json:"from,omitempty"`
	FromName  string        `json:"from_name,omitempty"`
	Chat      string        `json:"chat,omitempty"`
	FromMe    bool          `json:"from_me,omitempty"`
	Timestamp int64         `json:"timestamp,omitempty"` // unix seconds
	ReplyTo   string        `json:"reply_to,omitempty"`
	Text      string        `json:"text,omitempty"`
	Extended  *ExtendedText `json:"extended_text,omitempty"`
	Image     *MediaPayload `json:"image,omitempty"`
	Video     *MediaPayload `json:"video,omitempty"`
	Audio     *MediaPayload `json:"audio,omitempty"`
	Document  *MediaPayload `json:"document,omitempty"`
	Sticker   *MediaPayload `json:"sticker,omitempty"`
}

// OutboundFrame is a send request toward the bridge.
type OutboundFrame struct {
	Type     string   `json:"type"`
	To       string   `json:"to"`
	Text     string   `json:"text"`
	Mentions []string `json:"mentions,omitempty"`
}

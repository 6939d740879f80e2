package bus

import (
	"github.com/bamit99/whatsapp-bot/pkg/protocol"
)

// InboundEvent is a raw event received from a channel, queued for the
// processing pipeline. The frame is carried untouched; normalization happens
// in the pipeline, not at the transport edge.
type InboundEvent struct {
	Channel string
	Frame   protocol.InboundFrame
}

// OutboundMessage is a message to be delivered to a conversation.
type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	Mentions []string
}

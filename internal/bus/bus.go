// Package bus provides the bounded queues between the transport channel and
// the processing pipeline. Channels publish raw inbound frames; the pipeline
// consumes them in arrival order and publishes outbound messages that a
// dispatcher drains toward the transport. Bounded capacity gives backpressure
// instead of unbounded memory growth when downstream stalls.
package bus

import (
	"context"
)

const (
	defaultInboundCapacity  = 256
	defaultOutboundCapacity = 256
)

// MessageBus carries inbound events and outbound messages between the
// transport layer and the pipeline. Safe for concurrent use.
type MessageBus struct {
	inbound  chan InboundEvent
	outbound chan OutboundMessage
}

// New creates a MessageBus with default queue capacities.
func New() *MessageBus {
	return NewWithCapacity(defaultInboundCapacity, defaultOutboundCapacity)
}

// NewWithCapacity creates a MessageBus with explicit queue capacities.
func NewWithCapacity(inbound, outbound int) *MessageBus {
	if inbound <= 0 {
		inbound = defaultInboundCapacity
	}
	if outbound <= 0 {
		outbound = defaultOutboundCapacity
	}
	return &MessageBus{
		inbound:  make(chan InboundEvent, inbound),
		outbound: make(chan OutboundMessage, outbound),
	}
}

// PublishInbound enqueues a raw inbound event. Blocks when the queue is full
// so slow processing backpressures the transport read loop rather than
// dropping events (at-least-once, in-arrival-order delivery).
func (b *MessageBus) PublishInbound(evt InboundEvent) {
	b.inbound <- evt
}

// ConsumeInbound blocks until an event is available or ctx is done.
// The second return is false when ctx was cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundEvent, bool) {
	select {
	case <-ctx.Done():
		return InboundEvent{}, false
	case evt := <-b.inbound:
		return evt, true
	}
}

// PublishOutbound enqueues a message for delivery. Blocks when the queue is
// full; outbound send latency must not be absorbed by unbounded buffering.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.outbound <- msg
}

// ConsumeOutbound blocks until a message is available or ctx is done.
func (b *MessageBus) ConsumeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case <-ctx.Done():
		return OutboundMessage{}, false
	case msg := <-b.outbound:
		return msg, true
	}
}

// InboundDepth reports the number of queued inbound events.
func (b *MessageBus) InboundDepth() int { return len(b.inbound) }

// OutboundDepth reports the number of queued outbound messages.
func (b *MessageBus) OutboundDepth() int { return len(b.outbound) }

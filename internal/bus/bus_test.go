package bus

import (
	"context"
	"testing"
	"time"

	"github.com/bamit99/whatsapp-bot/pkg/protocol"
)

func TestInbound_FIFOOrder(t *testing.T) {
	b := NewWithCapacity(8, 8)
	for _, id := range []string{"a", "b", "c"} {
		b.PublishInbound(InboundEvent{Channel: "whatsapp", Frame: protocol.InboundFrame{ID: id}})
	}
	if depth := b.InboundDepth(); depth != 3 {
		t.Fatalf("InboundDepth = %d, want 3", depth)
	}

	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		evt, ok := b.ConsumeInbound(ctx)
		if !ok {
			t.Fatal("consume returned false with events queued")
		}
		if evt.Frame.ID != want {
			t.Errorf("consumed %q, want %q", evt.Frame.ID, want)
		}
	}
}

func TestConsume_ReturnsFalseOnCancel(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := b.ConsumeInbound(ctx); ok {
		t.Error("ConsumeInbound on cancelled context returned true")
	}
	if _, ok := b.ConsumeOutbound(ctx); ok {
		t.Error("ConsumeOutbound on cancelled context returned true")
	}
}

func TestOutbound_RoundTrip(t *testing.T) {
	b := NewWithCapacity(1, 1)
	b.PublishOutbound(OutboundMessage{Channel: "whatsapp", ChatID: "chat", Content: "hi"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, ok := b.ConsumeOutbound(ctx)
	if !ok || msg.Content != "hi" || msg.ChatID != "chat" {
		t.Errorf("round trip gave ok=%v msg=%+v", ok, msg)
	}
	if depth := b.OutboundDepth(); depth != 0 {
		t.Errorf("OutboundDepth after drain = %d", depth)
	}
}

func TestNewWithCapacity_ClampsNonPositive(t *testing.T) {
	b := NewWithCapacity(0, -1)
	// Defaults apply; a publish must not block the test goroutine.
	b.PublishInbound(InboundEvent{})
	b.PublishOutbound(OutboundMessage{})
}

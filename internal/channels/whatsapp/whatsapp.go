// Package whatsapp connects to a WhatsApp bridge via WebSocket. The bridge
// (whatsapp-web.js based) handles the actual WhatsApp protocol; this channel
// just exchanges JSON frames over WS and feeds the message bus.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/bamit99/whatsapp-bot/internal/bus"
	"github.com/bamit99/whatsapp-bot/internal/channels"
	"github.com/bamit99/whatsapp-bot/internal/config"
	"github.com/bamit99/whatsapp-bot/pkg/protocol"
)

// Channel is the WhatsApp bridge transport.
type Channel struct {
	bus      *bus.MessageBus
	config   config.WhatsAppConfig
	sendRate *rate.Limiter

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a WhatsApp channel from config.
func New(cfg config.WhatsAppConfig, msgBus *bus.MessageBus) (*Channel, error) {
	if cfg.BridgeURL == "" {
		return nil, fmt.Errorf("whatsapp bridge_url is required")
	}

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}

	return &Channel{
		bus:      msgBus,
		config:   cfg,
		sendRate: rate.NewLimiter(limit, 3),
	}, nil
}

// Name returns "whatsapp".
func (c *Channel) Name() string { return "whatsapp" }

// IsConnected reports bridge connectivity.
func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Start connects to the bridge WebSocket and begins listening.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting whatsapp channel", "bridge_url", c.config.BridgeURL)

	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(); err != nil {
		// Don't fail hard; the reconnect loop will keep trying
		slog.Warn("initial whatsapp bridge connection failed, will retry", "error", err)
	}

	go c.listenLoop()
	return nil
}

// Stop gracefully shuts down the channel.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping whatsapp channel")

	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	return nil
}

// Send delivers an outbound message to the bridge, paced by the configured
// send rate.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if err := c.sendRate.Wait(ctx); err != nil {
		return fmt.Errorf("send rate wait: %w", err)
	}

	frame := protocol.OutboundFrame{
		Type:     protocol.FrameMessage,
		To:       msg.ChatID,
		Text:     msg.Content,
		Mentions: msg.Mentions,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal whatsapp message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("whatsapp bridge not connected")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	return nil
}

// connect establishes the WebSocket connection to the bridge.
func (c *Channel) connect() error {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.config.BridgeURL, nil)
	if err != nil {
		return fmt.Errorf("dial whatsapp bridge %s: %w", c.config.BridgeURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	slog.Info("whatsapp bridge connected", "url", c.config.BridgeURL)
	return nil
}

// listenLoop reads frames from the bridge with automatic reconnection.
func (c *Channel) listenLoop() {
	backoff := time.Second

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			// Not connected, attempt reconnect with backoff
			slog.Info("attempting whatsapp bridge reconnect", "backoff", backoff)

			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}

			if err := c.connect(); err != nil {
				slog.Warn("whatsapp bridge reconnect failed", "error", err)
				backoff = min(backoff*2, 30*time.Second)
				continue
			}

			backoff = time.Second // reset on success
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("whatsapp read error, will reconnect", "error", err)

			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.connected = false
			c.mu.Unlock()

			continue
		}

		var frame protocol.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("invalid whatsapp frame JSON", "error", err)
			continue
		}

		if frame.Type != protocol.FrameMessage {
			continue
		}

		slog.Debug("whatsapp frame received",
			"sender_id", frame.From,
			"chat_id", frame.Chat,
			"preview", channels.Truncate(frame.Text, 50),
		)

		c.bus.PublishInbound(bus.InboundEvent{Channel: c.Name(), Frame: frame})
	}
}

// Package pipeline drives inbound events through normalization, admission,
// trigger matching, and persistence. One failing stage never aborts the rest
// of the current event nor any later event.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bamit99/whatsapp-bot/internal/bus"
	"github.com/bamit99/whatsapp-bot/internal/message"
	"github.com/bamit99/whatsapp-bot/internal/ratelimit"
	"github.com/bamit99/whatsapp-bot/internal/store"
	"github.com/bamit99/whatsapp-bot/internal/triggers"
)

// Config tunes pipeline behavior.
type Config struct {
	// CommandPrefix marks a text message as a command for rate accounting
	// (default "!").
	CommandPrefix string
}

// Coordinator consumes raw events from the bus and runs each through the
// processing stages in fixed order.
type Coordinator struct {
	cfg     Config
	bus     *bus.MessageBus
	engine  *triggers.Engine
	limiter *ratelimit.Limiter
	stores  *store.Stores
}

// New creates a Coordinator.
func New(cfg Config, msgBus *bus.MessageBus, engine *triggers.Engine, limiter *ratelimit.Limiter, stores *store.Stores) *Coordinator {
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!"
	}
	return &Coordinator{
		cfg:     cfg,
		bus:     msgBus,
		engine:  engine,
		limiter: limiter,
		stores:  stores,
	}
}

// Run consumes inbound events until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	slog.Info("pipeline coordinator started")
	for {
		evt, ok := c.bus.ConsumeInbound(ctx)
		if !ok {
			slog.Info("pipeline coordinator stopped")
			return
		}
		c.Process(ctx, evt)
	}
}

// Process runs one raw event through the full pipeline. Panics from rule
// evaluation or storage are recovered so a malformed event cannot stop the
// stream.
func (c *Coordinator) Process(ctx context.Context, evt bus.InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panic recovered", "err", r, "channel", evt.Channel)
		}
	}()

	msg, ok := message.Normalize(evt.Frame)
	if !ok {
		return // self-originated echo
	}

	cat := c.categorize(msg)

	dec := c.limiter.CanProceed(msg.SenderID, cat)
	if !dec.Allowed {
		slog.Info("message rejected by rate limiter",
			"sender", msg.SenderID,
			"category", string(cat),
			"severity", dec.Severity.String(),
			"remaining", dec.Remaining,
		)
		c.logEvent(ctx, "warn", "rate limited", map[string]string{
			"sender":   msg.SenderID,
			"category": string(cat),
			"severity": dec.Severity.String(),
			"reason":   dec.Reason,
		})
		return
	}

	if dec.Warning != "" {
		c.dispatch(evt.Channel, msg.ConversationID, dec.Warning, nil)
	}

	c.runTriggers(evt.Channel, msg)
	c.persistMessage(ctx, msg)
	c.collectData(ctx, msg)
	c.checkSpam(ctx, evt.Channel, msg)

	// Record only after the action went through: rejected actions must
	// never count as having occurred.
	c.limiter.Record(msg.SenderID, cat)
}

// categorize maps a normalized message to its rate-limit category. Any media
// payload counts as media; text starting with the command prefix counts as a
// command.
func (c *Coordinator) categorize(msg *message.NormalizedMessage) ratelimit.Category {
	if msg.Media != nil {
		return ratelimit.CategoryMedia
	}
	if strings.HasPrefix(msg.Text, c.cfg.CommandPrefix) {
		return ratelimit.CategoryCommand
	}
	return ratelimit.CategoryMessage
}

// runTriggers evaluates the rule snapshot and dispatches every matching
// response in rule order.
func (c *Coordinator) runTriggers(channel string, msg *message.NormalizedMessage) {
	for _, rule := range c.engine.Match(msg) {
		slog.Debug("trigger fired",
			"keyword", rule.Keyword,
			"match", string(rule.Match),
			"sender", msg.SenderID,
		)
		c.dispatch(channel, msg.ConversationID, rule.Response, nil)
	}
}

// persistMessage stores the message copy and touches the sender's user row.
func (c *Coordinator) persistMessage(ctx context.Context, msg *message.NormalizedMessage) {
	rec := store.MessageRecord{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		Kind:           string(msg.Kind),
		Text:           msg.Text,
		IsGroup:        msg.IsGroup,
		ReplyToID:      msg.ReplyToID,
		Timestamp:      msg.Timestamp,
	}
	if msg.Media != nil {
		rec.MediaURL = msg.Media.URL
		rec.MediaMime = msg.Media.MimeType
	}

	if err := c.stores.Messages.SaveMessage(ctx, rec); err != nil {
		slog.Error("save message failed", "id", msg.ID, "error", err)
	}
	if err := c.stores.Users.UpsertUser(ctx, msg.SenderID, msg.SenderName); err != nil {
		slog.Error("upsert user failed", "sender", msg.SenderID, "error", err)
	}
	if err := c.stores.Users.TouchActivity(ctx, msg.SenderID); err != nil {
		slog.Error("touch user activity failed", "sender", msg.SenderID, "error", err)
	}
}

// checkSpam runs the coarse escalation check and, for group conversations,
// warns into the conversation. The warning itself is not throttled.
func (c *Coordinator) checkSpam(ctx context.Context, channel string, msg *message.NormalizedMessage) {
	flagged, count := c.limiter.CheckSpam(msg.SenderID)
	if !flagged {
		return
	}

	slog.Warn("spam detected", "sender", msg.SenderID, "count", count)

	ev := store.SpamEvent{
		SourceID:  msg.SenderID,
		MessageID: msg.ID,
		Reason:    fmt.Sprintf("%d messages in %s", count, c.limiter.SpamWindow()),
		Severity:  "medium",
		Action:    "flagged",
	}
	if err := c.stores.Spam.SaveSpamEvent(ctx, ev); err != nil {
		slog.Error("save spam event failed", "sender", msg.SenderID, "error", err)
	}
	c.logEvent(ctx, "warn", "spam detected", map[string]string{
		"sender": msg.SenderID,
		"count":  fmt.Sprintf("%d", count),
	})

	if msg.IsGroup {
		warning := fmt.Sprintf("@%s please slow down, you are sending messages too quickly.", bareID(msg.SenderID))
		c.dispatch(channel, msg.ConversationID, warning, []string{msg.SenderID})
	}
}

// dispatch queues an outbound message; delivery failures surface in the
// dispatcher, never here.
func (c *Coordinator) dispatch(channel, chatID, content string, mentions []string) {
	c.bus.PublishOutbound(bus.OutboundMessage{
		Channel:  channel,
		ChatID:   chatID,
		Content:  content,
		Mentions: mentions,
	})
}

func (c *Coordinator) logEvent(ctx context.Context, level, msg string, kv map[string]string) {
	if err := c.stores.Logs.AppendLog(ctx, level, msg, kv); err != nil {
		slog.Error("append log failed", "error", err)
	}
}

// bareID strips the WhatsApp JID suffix for display ("123@s.whatsapp.net"
// becomes "123").
func bareID(jid string) string {
	if idx := strings.IndexByte(jid, '@'); idx > 0 {
		return jid[:idx]
	}
	return jid
}

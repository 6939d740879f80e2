package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/bamit99/whatsapp-bot/internal/bus"
	"github.com/bamit99/whatsapp-bot/internal/channels"
	"github.com/bamit99/whatsapp-bot/internal/ratelimit"
	"github.com/bamit99/whatsapp-bot/internal/store"
)

// StatusHandler serves status, stats, rate-limit inspection, and manual send
// endpoints.
type StatusHandler struct {
	startedAt time.Time
	channel   channels.Channel
	bus       *bus.MessageBus
	limiter   *ratelimit.Limiter
	stores    *store.Stores
}

// NewStatusHandler creates the status/stats handler.
func NewStatusHandler(channel channels.Channel, msgBus *bus.MessageBus, limiter *ratelimit.Limiter, stores *store.Stores) *StatusHandler {
	return &StatusHandler{
		startedAt: time.Now(),
		channel:   channel,
		bus:       msgBus,
		limiter:   limiter,
		stores:    stores,
	}
}

// RegisterRoutes registers status routes on the server.
func (h *StatusHandler) RegisterRoutes(s *Server) {
	mux := s.Mux()
	mux.HandleFunc("GET /v1/status", s.Auth(h.handleStatus))
	mux.HandleFunc("GET /v1/stats", s.Auth(h.handleStats))
	mux.HandleFunc("GET /v1/blocked", s.Auth(h.handleBlocked))
	mux.HandleFunc("GET /v1/ratelimit/{sender}", s.Auth(h.handleSenderStats))
	mux.HandleFunc("DELETE /v1/ratelimit/{sender}", s.Auth(h.handleReset))
	mux.HandleFunc("POST /v1/send", s.Auth(h.handleSend))
}

func (h *StatusHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":           time.Since(h.startedAt).Round(time.Second).String(),
		"bridge_connected": h.channel.IsConnected(),
		"inbound_queue":    h.bus.InboundDepth(),
		"outbound_queue":   h.bus.OutboundDepth(),
	})
}

func (h *StatusHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := map[string]int{}

	counts := []struct {
		name string
		fn   func() (int, error)
	}{
		{"messages", func() (int, error) { return h.stores.Messages.CountMessages(ctx) }},
		{"users", func() (int, error) { return h.stores.Users.CountUsers(ctx) }},
		{"data_points", func() (int, error) { return h.stores.Data.CountDataPoints(ctx) }},
		{"spam_events", func() (int, error) { return h.stores.Spam.CountSpamEvents(ctx) }},
	}
	for _, c := range counts {
		n, err := c.fn()
		if err != nil {
			slog.Error("stats query failed", "stat", c.name, "error", err)
			writeError(w, http.StatusInternalServerError, "stats query failed")
			return
		}
		stats[c.name] = n
	}

	triggers, err := h.stores.Triggers.ActiveTriggers(ctx)
	if err != nil {
		slog.Error("stats query failed", "stat", "triggers", "error", err)
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}
	stats["triggers"] = len(triggers)

	writeJSON(w, http.StatusOK, stats)
}

func (h *StatusHandler) handleBlocked(w http.ResponseWriter, r *http.Request) {
	blocked := h.limiter.BlockedSenders()
	if blocked == nil {
		blocked = []ratelimit.BlockInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"blocked": blocked})
}

func (h *StatusHandler) handleSenderStats(w http.ResponseWriter, r *http.Request) {
	sender := r.PathValue("sender")
	writeJSON(w, http.StatusOK, h.limiter.Stats(sender))
}

func (h *StatusHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	sender := r.PathValue("sender")
	h.limiter.Reset(sender)
	slog.Info("sender rate-limit state reset", "sender", sender)
	writeJSON(w, http.StatusOK, map[string]string{"reset": sender})
}

type sendPayload struct {
	ChatID   string   `json:"chat_id"`
	Text     string   `json:"text"`
	Mentions []string `json:"mentions,omitempty"`
}

func (h *StatusHandler) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ChatID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "chat_id and text are required")
		return
	}

	h.bus.PublishOutbound(bus.OutboundMessage{
		Channel:  h.channel.Name(),
		ChatID:   req.ChatID,
		Content:  req.Text,
		Mentions: req.Mentions,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"queued": req.ChatID})
}

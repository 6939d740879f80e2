package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bamit99/whatsapp-bot/internal/triggers"
)

// TriggersHandler handles trigger rule CRUD endpoints.
type TriggersHandler struct {
	engine *triggers.Engine
}

// NewTriggersHandler creates a handler bound to the trigger engine.
func NewTriggersHandler(engine *triggers.Engine) *TriggersHandler {
	return &TriggersHandler{engine: engine}
}

// RegisterRoutes registers trigger routes on the server.
func (h *TriggersHandler) RegisterRoutes(s *Server) {
	mux := s.Mux()
	mux.HandleFunc("GET /v1/triggers", s.Auth(h.handleList))
	mux.HandleFunc("POST /v1/triggers", s.Auth(h.handleAdd))
	mux.HandleFunc("DELETE /v1/triggers/{keyword}", s.Auth(h.handleRemove))
}

type triggerPayload struct {
	Keyword       string `json:"keyword"`
	Response      string `json:"response"`
	Match         string `json:"match"`
	CaseSensitive bool   `json:"case_sensitive"`
}

func (h *TriggersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	rules := h.engine.Rules()
	out := make([]triggerPayload, 0, len(rules))
	for _, rule := range rules {
		out = append(out, triggerPayload{
			Keyword:       rule.Keyword,
			Response:      rule.Response,
			Match:         string(rule.Match),
			CaseSensitive: rule.CaseSensitive,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"triggers": out})
}

func (h *TriggersHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req triggerPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Keyword == "" || req.Response == "" {
		writeError(w, http.StatusBadRequest, "keyword and response are required")
		return
	}
	if req.Match == "" {
		req.Match = string(triggers.MatchExact)
	}
	if !triggers.ValidMatchKind(req.Match) {
		writeError(w, http.StatusBadRequest, "match must be exact, contains, or regex")
		return
	}

	err := h.engine.Add(r.Context(), req.Keyword, req.Response, triggers.MatchKind(req.Match), req.CaseSensitive)
	switch {
	case errors.Is(err, triggers.ErrDuplicateKeyword):
		writeError(w, http.StatusConflict, "trigger keyword already exists")
	case err != nil:
		slog.Error("add trigger failed", "keyword", req.Keyword, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add trigger")
	default:
		writeJSON(w, http.StatusCreated, req)
	}
}

func (h *TriggersHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	keyword := r.PathValue("keyword")

	err := h.engine.Remove(r.Context(), keyword)
	switch {
	case errors.Is(err, triggers.ErrNotFound):
		writeError(w, http.StatusNotFound, "trigger keyword not found")
	case err != nil:
		slog.Error("remove trigger failed", "keyword", keyword, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove trigger")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"removed": keyword})
	}
}

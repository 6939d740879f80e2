// Package http exposes the admin API: trigger CRUD, status, stats,
// rate-limit inspection, and manual sends. Thin handlers over the stores and
// limiter; no business logic lives here.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Server hosts the admin API.
type Server struct {
	host  string
	port  int
	token string

	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer creates the admin API server. An empty token disables auth.
func NewServer(host string, port int, token string) *Server {
	return &Server{
		host:  host,
		port:  port,
		token: token,
		mux:   http.NewServeMux(),
	}
}

// Mux returns the underlying mux for handler registration.
func (s *Server) Mux() *http.ServeMux { return s.mux }

// Start begins serving. Blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("admin API listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin API serve: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Auth wraps a handler with bearer-token auth. Empty token = open.
func (s *Server) Auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && extractBearerToken(r) != s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(auth, prefix) {
		return auth[len(prefix):]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

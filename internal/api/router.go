package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/zwave-core/internal/bridges/ozw"
	"github.com/nerrad567/zwave-core/internal/process"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Get("/stats", s.handleStats)
			r.Get("/commands", s.handleListCommands)

			r.Route("/nodes", func(r chi.Router) {
				r.Get("/", s.handleListNodes)
				r.Get("/history", s.handleListNodeHistory)
				r.Get("/{homeID}/{nodeID}", s.handleGetNode)
				r.Get("/{homeID}/{nodeID}/history", s.handleGetNodeHistory)
			})

			r.Route("/scenes", func(r chi.Router) {
				r.Get("/", s.handleListScenes)
				r.Get("/{id}", s.handleGetScene)

				r.With(s.requireScope(ScopeControl)).Post("/", s.handleCreateScene)
				r.With(s.requireScope(ScopeControl)).Delete("/{id}", s.handleDeleteScene)
				r.With(s.requireScope(ScopeControl)).Post("/{id}/values", s.handleAddSceneValue)
				r.With(s.requireScope(ScopeControl)).Delete("/{id}/values", s.handleRemoveSceneValue)
			})

			r.Route("/controller", func(r chi.Router) {
				r.Get("/", s.handleGetController)
				r.With(s.requireScope(ScopeControl)).Post("/command", s.handleBeginCommand)
				r.With(s.requireScope(ScopeControl)).Delete("/command", s.handleCancelCommand)
			})
		})
	})

	return r
}

// healthResponse is the body of GET /api/v1/health.
type healthResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	HomeID        string         `json:"home_id,omitempty"`
	Driver        *process.Stats `json:"driver_process,omitempty"`
}

// handleHealth returns the server health status. A supervised driver daemon
// that is not running reports "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}
	if id := s.core.HomeID(); id != 0 {
		resp.HomeID = ozw.FormatHomeID(id)
	}
	if s.driver != nil {
		ps := s.driver.Stats()
		resp.Driver = &ps
		if ps.State != process.StateRunning {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

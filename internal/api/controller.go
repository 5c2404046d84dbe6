package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nerrad567/zwave-core/internal/zwave"
)

type beginCommandRequest struct {
	Command string `json:"command" validate:"required,max=64"`
	NodeID  uint8  `json:"node_id,omitempty"`
}

type beginCommandResponse struct {
	CommandID uuid.UUID `json:"command_id"`
	Command   string    `json:"command"`
	NodeID    uint8     `json:"node_id,omitempty"`
}

// controllerResponse is the body of GET /controller.
type controllerResponse struct {
	Busy   bool                 `json:"busy"`
	Active *zwave.ActiveCommand `json:"active,omitempty"`
}

// statsResponse is the body of GET /stats.
type statsResponse struct {
	zwave.Stats
	WebSocketClients int `json:"websocket_clients"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{Stats: s.core.Stats(), WebSocketClients: s.hub.ClientCount()})
}

func (s *Server) handleListCommands(w http.ResponseWriter, _ *http.Request) {
	names := s.core.CommandNames()
	writeJSON(w, http.StatusOK, map[string]any{"commands": names, "count": len(names)})
}

func (s *Server) handleGetController(w http.ResponseWriter, _ *http.Request) {
	var resp controllerResponse
	if active, ok := s.core.ActiveCommand(); ok {
		resp.Busy = true
		resp.Active = &active
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBeginCommand starts a controller command. Progress arrives later as
// "controller command" events on the WebSocket stream and on MQTT.
func (s *Server) handleBeginCommand(w http.ResponseWriter, r *http.Request) {
	var req beginCommandRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	id, err := s.core.BeginControllerCommand(r.Context(), req.Command, req.NodeID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	s.logger.Info("controller command started via API",
		"command", req.Command,
		"node_id", req.NodeID,
		"command_id", id,
		"subject", claimsFromContext(r.Context()).Subject,
	)
	writeJSON(w, http.StatusAccepted, beginCommandResponse{CommandID: id, Command: req.Command, NodeID: req.NodeID})
}

// handleCancelCommand cancels the controller command in flight. Cancelling
// while idle is not an error.
func (s *Server) handleCancelCommand(w http.ResponseWriter, r *http.Request) {
	err := s.core.CancelControllerCommand(r.Context())
	if errors.Is(err, zwave.ErrNoCommandInProgress) {
		writeJSON(w, http.StatusOK, map[string]any{"cancelled": false, "reason": "no command in progress"})
		return
	}
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

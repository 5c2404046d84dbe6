package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/zwave-core/internal/bridges/ozw"
	"github.com/nerrad567/zwave-core/internal/nodestore"
)

// parseHomeID accepts "current", a 0x-prefixed hex or a decimal home ID.
// "current" and 0 both resolve to the home of the attached driver.
func (s *Server) parseHomeID(raw string) (uint32, error) {
	if raw == "" || raw == "current" {
		return s.core.HomeID(), nil
	}
	id, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid home id %q", raw)
	}
	if id == 0 {
		return s.core.HomeID(), nil
	}
	// #nosec G115 -- bounded by ParseUint bit size
	return uint32(id), nil
}

// parseUint8 parses a node or scene ID path parameter.
func parseUint8(raw, what string) (uint8, error) {
	id, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, raw)
	}
	// #nosec G115 -- bounded by ParseUint bit size
	return uint8(id), nil
}

// handleListNodes returns every tracked node.
func (s *Server) handleListNodes(w http.ResponseWriter, _ *http.Request) {
	nodes := s.core.ListNodes()
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "count": len(nodes)})
}

// handleGetNode returns one tracked node.
func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	homeID, err := s.parseHomeID(chi.URLParam(r, "homeID"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	nodeID, err := parseUint8(chi.URLParam(r, "nodeID"), "node id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	node, ok := s.core.LookupNode(homeID, nodeID)
	if !ok {
		writeNotFound(w, fmt.Sprintf("node %d in home %s not tracked", nodeID, ozw.FormatHomeID(homeID)))
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// handleListNodeHistory returns the persisted history of every node in a
// home. Query parameter home_id selects the home; default is the current one.
func (s *Server) handleListNodeHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "node history is disabled")
		return
	}
	homeID, err := s.parseHomeID(r.URL.Query().Get("home_id"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	records, err := s.history.List(r.Context(), homeID)
	if err != nil {
		s.logger.Error("listing node history failed", "error", err)
		writeInternalError(w, "failed to list node history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": records, "count": len(records)})
}

// handleGetNodeHistory returns the persisted history of one node.
func (s *Server) handleGetNodeHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "node history is disabled")
		return
	}
	homeID, err := s.parseHomeID(chi.URLParam(r, "homeID"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	nodeID, err := parseUint8(chi.URLParam(r, "nodeID"), "node id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	rec, err := s.history.Get(r.Context(), homeID, nodeID)
	if errors.Is(err, nodestore.ErrNodeNotFound) {
		writeNotFound(w, fmt.Sprintf("no history for node %d", nodeID))
		return
	}
	if err != nil {
		s.logger.Error("reading node history failed", "node_id", nodeID, "error", err)
		writeInternalError(w, "failed to read node history")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

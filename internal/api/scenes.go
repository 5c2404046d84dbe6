package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/zwave-core/internal/zwave"
)

type createSceneRequest struct {
	Label string `json:"label" validate:"max=100"`
}

func (s *Server) handleListScenes(w http.ResponseWriter, _ *http.Request) {
	scenes := s.core.ListScenes()
	writeJSON(w, http.StatusOK, map[string]any{"scenes": scenes, "count": len(scenes)})
}

func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	sceneID, ok := sceneIDParam(w, r)
	if !ok {
		return
	}
	scene, found := s.core.LookupScene(sceneID)
	if !found {
		writeNotFound(w, fmt.Sprintf("scene %d not found", sceneID))
		return
	}
	writeJSON(w, http.StatusOK, scene)
}

// handleCreateScene creates a scene with the lowest free ID.
func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	var req createSceneRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	id, err := s.core.CreateScene(req.Label)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	s.logger.Info("scene created", "scene_id", id, "label", req.Label)

	scene, _ := s.core.LookupScene(id)
	writeJSON(w, http.StatusCreated, scene)
}

func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	sceneID, ok := sceneIDParam(w, r)
	if !ok {
		return
	}
	if !s.core.RemoveScene(sceneID) {
		writeNotFound(w, fmt.Sprintf("scene %d not found", sceneID))
		return
	}
	s.logger.Info("scene removed", "scene_id", sceneID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddSceneValue(w http.ResponseWriter, r *http.Request) {
	s.updateSceneValue(w, r, s.core.AddSceneValue)
}

func (s *Server) handleRemoveSceneValue(w http.ResponseWriter, r *http.Request) {
	s.updateSceneValue(w, r, s.core.RemoveSceneValue)
}

// updateSceneValue decodes a ValueID body and applies it to the scene.
func (s *Server) updateSceneValue(w http.ResponseWriter, r *http.Request, apply func(uint8, zwave.ValueID) bool) {
	sceneID, ok := sceneIDParam(w, r)
	if !ok {
		return
	}
	var v zwave.ValueID
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeBadRequest(w, "invalid value id")
		return
	}
	if !apply(sceneID, v) {
		writeNotFound(w, fmt.Sprintf("scene %d not found", sceneID))
		return
	}

	scene, _ := s.core.LookupScene(sceneID)
	writeJSON(w, http.StatusOK, scene)
}

// sceneIDParam parses {id}, writing a 400 on failure.
func sceneIDParam(w http.ResponseWriter, r *http.Request) (uint8, bool) {
	id, err := parseUint8(chi.URLParam(r, "id"), "scene id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return 0, false
	}
	return id, true
}

package server

import (
	"aidigest/internal/core"
	"aidigest/internal/icp"
	"aidigest/internal/persistence"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type icpRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	SourceType  string         `json:"source_type"`
	Text        string         `json:"text"`
	Data        map[string]any `json:"data"`
	IsActive    *bool          `json:"is_active"`
	IsDefault   bool           `json:"is_default"`
}

func (s *Server) handleListICPs(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Store.ICPProfiles().List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"profiles": list, "count": len(list)})
}

func (s *Server) handleGetICP(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Store.ICPProfiles().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err, "ICP profile not found")
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

// handleCreateICP stores a profile given either structured data or free text,
// which is parsed into the same shape.
func (s *Server) handleCreateICP(w http.ResponseWriter, r *http.Request) {
	var req icpRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = persistence.SourceJSON
	}

	var data map[string]any
	switch sourceType {
	case persistence.SourceText:
		if strings.TrimSpace(req.Text) == "" {
			s.respondError(w, http.StatusBadRequest, "Text content is required for text source type")
			return
		}
		parsed, err := icp.Parse(req.Text).Map()
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		data = parsed
	case persistence.SourceJSON:
		if req.Data == nil {
			s.respondError(w, http.StatusBadRequest, "ICP data is required")
			return
		}
		data = req.Data
	default:
		s.respondError(w, http.StatusBadRequest, "Invalid source_type: "+sourceType)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p := core.ICPProfile{
		Name:        req.Name,
		Description: req.Description,
		Data:        data,
		SourceType:  sourceType,
		IsActive:    active,
		IsDefault:   req.IsDefault,
	}
	if err := s.deps.Store.ICPProfiles().Create(r.Context(), &p); err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	s.respondJSON(w, http.StatusCreated, p)
}

// handleParseICP previews what a text profile would be stored as.
func (s *Server) handleParseICP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "Text is required")
		return
	}

	parsed := icp.Parse(req.Text)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"parsed":            true,
		"data":              parsed,
		"pain_points_found": len(parsed.PainPoints.TopPains),
		"keywords_found":    len(parsed.LanguagePatterns.KeywordsUsed),
	})
}

func (s *Server) handleUpdateICP(w http.ResponseWriter, r *http.Request) {
	var patch persistence.ICPPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if patch.Empty() {
		s.respondError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	p, err := s.deps.Store.ICPProfiles().Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.respondStoreError(w, err, "ICP profile not found")
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleSetDefaultICP(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Store.ICPProfiles().SetDefault(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err, "ICP profile not found")
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteICP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Store.ICPProfiles().Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "ICP profile not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

// handleListSettings returns every setting as key -> decoded value.
func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.deps.Store.Settings().All(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "")
		return
	}

	out := make(map[string]json.RawMessage, len(all))
	for _, setting := range all {
		out[setting.Key] = json.RawMessage(setting.Value)
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	setting, err := s.deps.Store.Settings().Get(r.Context(), key)
	if err != nil {
		s.respondStoreError(w, err, "Setting not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"key":   setting.Key,
		"value": json.RawMessage(setting.Value),
	})
}

func (s *Server) handleUpdateSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value json.RawMessage `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if len(req.Value) == 0 {
		s.respondError(w, http.StatusBadRequest, "Value is required")
		return
	}

	key := chi.URLParam(r, "key")
	if err := s.deps.Store.Settings().Set(r.Context(), key, string(req.Value)); err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"key": key, "value": req.Value})
}

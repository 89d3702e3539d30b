package server

import (
	"aidigest/internal/core"
	"aidigest/internal/persistence"
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// requireAdminToken checks the bearer token against server.admin_token. A
// bearer header is always required; with no token configured any value is
// accepted.
func (s *Server) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			s.respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if s.config.AdminToken != "" &&
			subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AdminToken)) != 1 {
			s.log.Warn("Invalid admin token attempt", "remote_addr", r.RemoteAddr)
			s.respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Store == nil {
			s.respondError(w, http.StatusServiceUnavailable, "Database not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type feedRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
	FeedType    string `json:"feed_type"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (f feedRequest) feed() core.Feed {
	active := true
	if f.IsActive != nil {
		active = *f.IsActive
	}
	return core.Feed{
		Name:        f.Name,
		URL:         f.URL,
		Category:    f.Category,
		Priority:    f.Priority,
		FeedType:    f.FeedType,
		Description: f.Description,
		IsActive:    active,
	}
}

func (s *Server) handleAdminListFeeds(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Store.Feeds().List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"feeds": list, "count": len(list)})
}

func (s *Server) handleAdminGetFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := s.deps.Store.Feeds().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err, "Feed not found")
		return
	}
	s.respondJSON(w, http.StatusOK, feed)
}

func (s *Server) handleAdminCreateFeed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.URL) == "" {
		s.respondError(w, http.StatusBadRequest, "Name and URL are required")
		return
	}

	feed := req.feed()
	if err := s.deps.Store.Feeds().Create(r.Context(), &feed); err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	s.respondJSON(w, http.StatusCreated, feed)
}

func (s *Server) handleAdminValidateFeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.respondError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if s.deps.Validator == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Feed validation not configured")
		return
	}
	s.respondJSON(w, http.StatusOK, s.deps.Validator.Validate(r.Context(), req.URL))
}

type bulkFeedError struct {
	Feed  string `json:"feed"`
	Error string `json:"error"`
}

// handleAdminBulkFeeds creates every feed it can and reports the rest.
// createFeeds inserts each feed on its own; a failure is reported per feed
// and does not stop the rest.
func (s *Server) createFeeds(ctx context.Context, items []feedRequest) ([]core.Feed, []bulkFeedError) {
	created := []core.Feed{}
	errs := []bulkFeedError{}
	for _, item := range items {
		feed := item.feed()
		if err := s.deps.Store.Feeds().Create(ctx, &feed); err != nil {
			name := item.Name
			if name == "" {
				name = "Unknown"
			}
			errs = append(errs, bulkFeedError{Feed: name, Error: err.Error()})
			continue
		}
		created = append(created, feed)
	}
	return created, errs
}

func (s *Server) handleAdminBulkFeeds(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Feeds []feedRequest `json:"feeds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if len(req.Feeds) == 0 {
		s.respondError(w, http.StatusBadRequest, "No feeds provided")
		return
	}

	created, errs := s.createFeeds(r.Context(), req.Feeds)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"created": len(created),
		"errors":  errs,
		"feeds":   created,
	})
}

func (s *Server) handleAdminUpdateFeed(w http.ResponseWriter, r *http.Request) {
	var patch persistence.FeedPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if patch.Empty() {
		s.respondError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	feed, err := s.deps.Store.Feeds().Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.respondStoreError(w, err, "Feed not found")
		return
	}
	s.respondJSON(w, http.StatusOK, feed)
}

func (s *Server) handleAdminToggleFeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	feed, err := s.deps.Store.Feeds().SetActive(r.Context(), chi.URLParam(r, "id"), active)
	if err != nil {
		s.respondStoreError(w, err, "Feed not found")
		return
	}
	s.respondJSON(w, http.StatusOK, feed)
}

func (s *Server) handleAdminDeleteFeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Store.Feeds().Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "Feed not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Store.Categories().List(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"categories": list, "count": len(list)})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeJSON(r, &c); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if strings.TrimSpace(c.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	c.ID = ""

	if err := s.deps.Store.Categories().Create(r.Context(), &c); err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	s.respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var patch persistence.CategoryPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if patch.Empty() {
		s.respondError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	c, err := s.deps.Store.Categories().Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.respondStoreError(w, err, "Category not found")
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Store.Categories().Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "Category not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

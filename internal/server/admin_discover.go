package server

import (
	"aidigest/internal/core"
	"aidigest/internal/feeds"
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	nicheSuggestionLimit  = 15
	nicheStoredLimit      = 10
	searchSuggestionLimit = 20
)

type nicheSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleListNiches(w http.ResponseWriter, r *http.Request) {
	list := feeds.Niches()
	out := make([]nicheSummary, 0, len(list))
	for _, n := range list {
		out = append(out, nicheSummary{ID: n.ID, Name: n.Name(), Description: n.Description})
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"niches":         out,
		"available_tags": feeds.DiscoveryTags,
	})
}

func (s *Server) handleNicheSuggestions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "niche")
	niche, ok := feeds.FindNiche(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Unknown niche: "+id)
		return
	}

	all := append([]feeds.Recommendation{}, niche.Feeds...)
	all = append(all, s.storedSuggestions(r.Context(), func(ctx context.Context) ([]core.FeedSuggestion, error) {
		return s.deps.Store.Suggestions().List(ctx, niche.Tags, nicheStoredLimit)
	})...)
	unique := feeds.DedupeByURL(all)

	s.respondJSON(w, http.StatusOK, map[string]any{
		"niche":       niche.ID,
		"description": niche.Description,
		"suggestions": head(unique, nicheSuggestionLimit),
		"count":       len(unique),
	})
}

func (s *Server) handleSearchSuggestions(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		s.respondError(w, http.StatusBadRequest, "Search term (q) is required")
		return
	}

	all := s.storedSuggestions(r.Context(), func(ctx context.Context) ([]core.FeedSuggestion, error) {
		return s.deps.Store.Suggestions().Search(ctx, term, searchSuggestionLimit)
	})
	all = append(all, feeds.SearchCurated(term)...)
	unique := feeds.DedupeByURL(all)

	s.respondJSON(w, http.StatusOK, map[string]any{
		"query":   term,
		"results": head(unique, searchSuggestionLimit),
		"count":   len(unique),
	})
}

// storedSuggestions runs a suggestion lookup against the store. Without a
// store, or when the lookup fails, discovery falls back to the curated lists.
func (s *Server) storedSuggestions(ctx context.Context, lookup func(context.Context) ([]core.FeedSuggestion, error)) []feeds.Recommendation {
	if s.deps.Store == nil {
		return nil
	}
	stored, err := lookup(ctx)
	if err != nil {
		s.log.Warn("Feed suggestion lookup failed", "error", err.Error())
		return nil
	}

	recs := make([]feeds.Recommendation, 0, len(stored))
	for _, sg := range stored {
		recs = append(recs, feeds.Recommendation{
			Name:         sg.Name,
			URL:          sg.URL,
			Description:  sg.Description,
			Category:     sg.Category,
			FromDatabase: true,
		})
	}
	return recs
}

func (s *Server) handleAddDiscoveredFeeds(w http.ResponseWriter, r *http.Request) {
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

	active := true
	for i := range req.Feeds {
		f := &req.Feeds[i]
		if f.Category == "" {
			f.Category = "Newsletter"
		}
		if f.FeedType == "" {
			f.FeedType = "newsletter"
		}
		f.IsActive = &active
	}

	added, errs := s.createFeeds(r.Context(), req.Feeds)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"added":  len(added),
		"feeds":  added,
		"errors": errs,
	})
}

func (s *Server) handleCreateSuggestion(w http.ResponseWriter, r *http.Request) {
	var sg core.FeedSuggestion
	if err := decodeJSON(r, &sg); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	if strings.TrimSpace(sg.Name) == "" || strings.TrimSpace(sg.URL) == "" {
		s.respondError(w, http.StatusBadRequest, "Name and URL are required")
		return
	}

	sg.ID = ""
	if err := s.deps.Store.Suggestions().Create(r.Context(), &sg); err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	s.respondJSON(w, http.StatusCreated, sg)
}

func head[T any](list []T, n int) []T {
	if len(list) > n {
		return list[:n]
	}
	return list
}

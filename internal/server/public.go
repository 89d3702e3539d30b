package server

import (
	"aidigest/internal/core"
	"aidigest/internal/digest"
	"aidigest/internal/feeds"
	"aidigest/internal/render"
	"aidigest/internal/summarize"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			checks["database"] = "error"
			s.respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Checks: checks})
			return
		}
		checks["database"] = "ok"
	}
	checks["summarize"] = "disabled"
	if s.deps.Summarizer != nil {
		checks["summarize"] = "ok"
	}

	s.respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Checks: checks})
}

type feedListEntry struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
	Type     string `json:"type,omitempty"`
}

// handleListFeeds returns the feed catalog keyed by feed name.
func (s *Server) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Feeds(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make(map[string]feedListEntry, len(list))
	for _, f := range list {
		out[f.Name] = feedListEntry{URL: f.URL, Category: f.Category, Priority: f.Priority, Type: f.Type}
	}
	s.respondJSON(w, http.StatusOK, out)
}

type fetchFeedRequest struct {
	Name string `json:"name"`
	Days *int   `json:"days"`
}

type fetchFeedResponse struct {
	Success  bool           `json:"success"`
	Articles []core.Article `json:"articles"`
	Error    *string        `json:"error"`
}

// handleFetchFeed fetches and enriches one feed. Failures are reported in
// the envelope with status 200.
func (s *Server) handleFetchFeed(w http.ResponseWriter, r *http.Request) {
	fail := func(msg string) {
		s.respondJSON(w, http.StatusOK, fetchFeedResponse{Articles: []core.Article{}, Error: &msg})
	}

	var req fetchFeedRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(errInvalidJSON.Error())
		return
	}

	catalog, err := s.deps.Feeds(r.Context())
	if err != nil {
		fail(err.Error())
		return
	}

	articles, err := s.deps.Generator.GenerateFeed(r.Context(), catalog, req.Name, s.days(req.Days))
	if err != nil {
		var ferr *digest.FetchError
		switch {
		case errors.As(err, &ferr):
			fail(ferr.Reason)
		case errors.Is(err, digest.ErrUnknownFeed):
			fail("Unknown feed: " + req.Name)
		default:
			fail(err.Error())
		}
		return
	}

	if articles == nil {
		articles = []core.Article{}
	}
	s.respondJSON(w, http.StatusOK, fetchFeedResponse{Success: true, Articles: articles})
}

type digestRequest struct {
	Days  *int     `json:"days"`
	Feeds []string `json:"feeds"`
}

// resolveFeeds returns the catalog, or the named subset of it in request order.
func (s *Server) resolveFeeds(r *http.Request, names []string) ([]core.FeedConfig, error) {
	catalog, err := s.deps.Feeds(r.Context())
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return catalog, nil
	}

	selected := make([]core.FeedConfig, 0, len(names))
	for _, name := range names {
		f, ok := feeds.Find(catalog, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", digest.ErrUnknownFeed, name)
		}
		selected = append(selected, f)
	}
	return selected, nil
}

func (s *Server) handleGenerateDigest(w http.ResponseWriter, r *http.Request) {
	var req digestRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}

	list, err := s.resolveFeeds(r, req.Feeds)
	if err != nil {
		s.respondDigestError(w, err)
		return
	}

	d, err := s.deps.Generator.Generate(r.Context(), list, s.days(req.Days), nil)
	if err != nil {
		s.respondDigestError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, d)
}

func (s *Server) respondDigestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, digest.ErrInvalidDays), errors.Is(err, digest.ErrNoFeeds), errors.Is(err, digest.ErrUnknownFeed):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("Digest generation failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleExport renders a posted digest as a markdown download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var d core.Digest
	if err := decodeJSON(r, &d); err != nil {
		s.respondError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}

	w.Header().Set("Content-Type", "text/markdown")
	w.Header().Set("Content-Disposition", "attachment; filename=ai_digest.md")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(render.Markdown(d, time.Now())))
}

type summarizeResponse struct {
	Success bool    `json:"success"`
	Summary *string `json:"summary"`
	Error   *string `json:"error"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	fail := func(msg string) {
		s.respondJSON(w, http.StatusOK, summarizeResponse{Error: &msg})
	}

	var req summarize.Request
	if err := decodeJSON(r, &req); err != nil {
		fail(errInvalidJSON.Error())
		return
	}
	if req.URL == "" {
		fail(summarize.ErrURLRequired.Error())
		return
	}
	if s.deps.Summarizer == nil {
		fail(summarize.ErrNotConfigured.Error())
		return
	}

	summary, err := s.deps.Summarizer.Summarize(r.Context(), req)
	if err != nil {
		fail(err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summarizeResponse{Success: true, Summary: &summary})
}

// handleDigestPage renders a fresh digest as an HTML page.
func (s *Server) handleDigestPage(w http.ResponseWriter, r *http.Request) {
	days := s.deps.Days
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "days must be an integer", http.StatusBadRequest)
			return
		}
		days = n
	}

	list, err := s.deps.Feeds(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	d, err := s.deps.Generator.Generate(r.Context(), list, days, nil)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, digest.ErrInvalidDays) || errors.Is(err, digest.ErrNoFeeds) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	page, err := render.Page("AI News Digest", render.Markdown(d, d.GeneratedAt))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) days(requested *int) int {
	if requested == nil {
		return s.deps.Days
	}
	return *requested
}

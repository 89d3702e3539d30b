package server

import (
	"aidigest/internal/config"
	"aidigest/internal/core"
	"aidigest/internal/digest"
	"aidigest/internal/enrich"
	"aidigest/internal/feeds"
	"aidigest/internal/metrics"
	"aidigest/internal/persistence"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type stubFetcher struct {
	entries map[string][]core.RawEntry
	errs    map[string]error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]core.RawEntry, error) {
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.entries[url], nil
}

type stubValidator struct{}

func (stubValidator) Validate(_ context.Context, url string) feeds.Validation {
	return feeds.Validation{Valid: true, Title: "Stub " + url, EntryCount: 3}
}

var testFeeds = []core.FeedConfig{
	{Name: "Alpha", URL: "https://alpha.example/rss", Category: "AI News", Priority: 1},
	{Name: "Beta", URL: "https://beta.example/rss", Category: "Business", Priority: 2},
}

func newTestServer(t *testing.T, token string) (*Server, *persistence.DB) {
	t.Helper()

	recent := core.DatePartsOf(time.Now().Add(-2 * time.Hour))
	fetcher := &stubFetcher{
		entries: map[string][]core.RawEntry{
			"https://alpha.example/rss": {
				{Title: "OpenAI ships a new GPT model for small business owners", Link: "https://alpha.example/1",
					Summary: "The model automates customer service. It is cheaper than before.", PublishedParsed: recent},
				{Title: "Gardening tips for spring", Link: "https://alpha.example/2", PublishedParsed: recent},
			},
		},
		errs: map[string]error{"https://beta.example/rss": errors.New("connection refused")},
	}

	m := metrics.New()
	gen := digest.NewGenerator(fetcher, enrich.New(nil), digest.GeneratorOptions{
		Timeout: time.Second,
		Metrics: m,
	})

	db, err := persistence.OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := New(Deps{
		Generator: gen,
		Feeds:     StaticFeeds(testFeeds),
		Validator: stubValidator{},
		Store:     db,
		Metrics:   m,
		Days:      7,
	}, config.Server{Host: "127.0.0.1", Port: 0, AdminToken: token})
	t.Cleanup(func() { s.cancel() })

	return s, db
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	got := decode[healthResponse](t, rec)
	if got.Status != "ok" || got.Checks["database"] != "ok" || got.Checks["summarize"] != "disabled" {
		t.Errorf("Unexpected health response: %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, "")
	do(t, s, http.MethodPost, "/api/digest", "", map[string]any{"days": 7})

	rec := do(t, s, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "aidigest_") {
		t.Errorf("Expected aidigest metrics in output")
	}
}

func TestListFeeds(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodGet, "/api/feeds", "", nil)
	got := decode[map[string]feedListEntry](t, rec)
	if len(got) != 2 {
		t.Fatalf("Expected 2 feeds, got %d", len(got))
	}
	if got["Alpha"].URL != "https://alpha.example/rss" || got["Alpha"].Priority != 1 {
		t.Errorf("Unexpected entry for Alpha: %+v", got["Alpha"])
	}
}

func TestFetchFeed(t *testing.T) {
	s, _ := newTestServer(t, "")

	tests := []struct {
		name        string
		feed        string
		wantSuccess bool
		wantErr     string
	}{
		{"known feed", "Alpha", true, ""},
		{"unknown feed", "Nope", false, "Unknown feed: Nope"},
		{"failing feed", "Beta", false, "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/fetch-feed", "", map[string]any{"name": tt.feed})
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			got := decode[fetchFeedResponse](t, rec)
			if got.Success != tt.wantSuccess {
				t.Errorf("Expected success=%v, got %v", tt.wantSuccess, got.Success)
			}
			if tt.wantErr != "" && (got.Error == nil || *got.Error != tt.wantErr) {
				t.Errorf("Expected error %q, got %v", tt.wantErr, got.Error)
			}
			if tt.wantSuccess && len(got.Articles) != 1 {
				t.Errorf("Expected 1 relevant article, got %d", len(got.Articles))
			}
		})
	}
}

func TestGenerateDigest(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/digest", "", map[string]any{"days": 7})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	d := decode[core.Digest](t, rec)
	if len(d.Articles) != 1 {
		t.Errorf("Expected 1 article, got %d", len(d.Articles))
	}
	if len(d.Errors) != 1 || d.Errors[0].Feed != "Beta" {
		t.Errorf("Expected a Beta feed error, got %+v", d.Errors)
	}
	if len(d.SourcesChecked) != 2 {
		t.Errorf("Expected 2 sources checked, got %v", d.SourcesChecked)
	}
}

func TestGenerateDigest_BadRequests(t *testing.T) {
	s, _ := newTestServer(t, "")

	tests := []struct {
		name string
		body any
	}{
		{"zero days", map[string]any{"days": 0}},
		{"unknown feed", map[string]any{"feeds": []string{"Nope"}}},
		{"invalid json", "{not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/digest", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestDigestJob(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/digest/jobs/", "", map[string]any{"feeds": []string{"Alpha"}})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	started := decode[jobView](t, rec)
	if rec.Header().Get("Location") != "/api/digest/jobs/"+started.ID {
		t.Errorf("Unexpected Location header %q", rec.Header().Get("Location"))
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = do(t, s, http.MethodGet, "/api/digest/jobs/"+started.ID, "", nil)
		view := decode[jobView](t, rec)
		if view.Digest != nil || view.Error != "" {
			if view.Error != "" {
				t.Fatalf("Job failed: %s", view.Error)
			}
			if view.Progress.Status != digest.StatusDone {
				t.Errorf("Expected status done, got %s", view.Progress.Status)
			}
			if len(view.Digest.Articles) != 1 {
				t.Errorf("Expected 1 article, got %d", len(view.Digest.Articles))
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Job did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = do(t, s, http.MethodGet, "/api/digest/jobs/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestJobRegistry_Prune(t *testing.T) {
	r := newJobRegistry(time.Minute)
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	j := r.create()
	now = now.Add(2 * time.Minute)
	if _, ok := r.get(j.id); ok {
		t.Error("Expected expired job to be pruned")
	}
	if r.len() != 0 {
		t.Errorf("Expected empty registry, got %d", r.len())
	}
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t, "")

	d := core.Digest{
		GeneratedAt: time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		Days:        7,
		TopStories:  []core.Article{{Title: "Top story", Link: "https://x.example", Source: "Alpha"}},
	}
	rec := do(t, s, http.MethodPost, "/api/export", "", d)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/markdown" {
		t.Errorf("Expected text/markdown, got %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "ai_digest.md") {
		t.Errorf("Expected attachment filename, got %q", rec.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rec.Body.String(), "Top story") {
		t.Errorf("Expected story title in export, got %q", rec.Body.String())
	}
}

func TestSummarize_Envelope(t *testing.T) {
	s, _ := newTestServer(t, "")

	tests := []struct {
		name    string
		body    any
		wantErr string
	}{
		{"missing url", map[string]any{"title": "x"}, "URL is required"},
		{"not configured", map[string]any{"url": "https://x.example"}, "not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/summarize", "", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			got := decode[summarizeResponse](t, rec)
			if got.Success || got.Error == nil {
				t.Fatalf("Expected failure envelope, got %+v", got)
			}
			if !strings.Contains(*got.Error, tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, *got.Error)
			}
		})
	}
}

func TestDigestPage(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodGet, "/digest?days=7", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<html") {
		t.Error("Expected an HTML page")
	}

	rec = do(t, s, http.MethodGet, "/digest?days=abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad days, got %d", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		want       int
	}{
		{"dev mode without header", "", "", http.StatusUnauthorized},
		{"dev mode any token", "", "anything", http.StatusOK},
		{"wrong token", "secret", "guess", http.StatusUnauthorized},
		{"right token", "secret", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.configured)
			rec := do(t, s, http.MethodGet, "/api/admin/feeds/", tt.sent, nil)
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestAdminRequiresStore(t *testing.T) {
	s := New(Deps{Feeds: StaticFeeds(nil)}, config.Server{})
	defer s.cancel()

	rec := do(t, s, http.MethodGet, "/api/admin/feeds/", "x", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a store, got %d", rec.Code)
	}
}

func TestAdminFeeds(t *testing.T) {
	s, _ := newTestServer(t, "")
	const tok = "dev"

	rec := do(t, s, http.MethodPost, "/api/admin/feeds/", tok, map[string]any{"name": "Alpha"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without url, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/admin/feeds/", tok, map[string]any{
		"name": "Alpha", "url": "https://alpha.example/rss",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	feed := decode[core.Feed](t, rec)
	if feed.Category != persistence.DefaultCategory || feed.Priority != persistence.DefaultPriority || !feed.IsActive {
		t.Errorf("Expected defaults to be filled, got %+v", feed)
	}

	rec = do(t, s, http.MethodPut, "/api/admin/feeds/"+feed.ID, tok, map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty update, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPut, "/api/admin/feeds/"+feed.ID, tok, map[string]any{"priority": 1})
	if got := decode[core.Feed](t, rec); got.Priority != 1 {
		t.Errorf("Expected priority 1, got %d", got.Priority)
	}

	rec = do(t, s, http.MethodPut, "/api/admin/feeds/"+feed.ID+"/toggle", tok, map[string]any{"is_active": false})
	if got := decode[core.Feed](t, rec); got.IsActive {
		t.Error("Expected feed to be inactive")
	}

	rec = do(t, s, http.MethodGet, "/api/admin/feeds/", tok, nil)
	list := decode[struct {
		Feeds []core.Feed `json:"feeds"`
		Count int         `json:"count"`
	}](t, rec)
	if list.Count != 1 || len(list.Feeds) != 1 {
		t.Errorf("Expected 1 feed, got %+v", list)
	}

	rec = do(t, s, http.MethodDelete, "/api/admin/feeds/"+feed.ID, tok, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 on delete, got %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/admin/feeds/"+feed.ID, tok, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["error"] != "Feed not found" {
		t.Errorf("Expected 'Feed not found', got %q", got["error"])
	}
}

func TestAdminBulkFeeds(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/admin/feeds/bulk", "dev", map[string]any{"feeds": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty bulk, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/admin/feeds/bulk", "dev", map[string]any{"feeds": []any{
		map[string]any{"name": "One", "url": "https://one.example/rss"},
		map[string]any{"url": "https://two.example/rss"},
		map[string]any{"name": "Dup", "url": "https://one.example/rss"},
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	got := decode[struct {
		Created int             `json:"created"`
		Errors  []bulkFeedError `json:"errors"`
	}](t, rec)
	if got.Created != 1 {
		t.Errorf("Expected 1 created, got %d", got.Created)
	}
	if len(got.Errors) != 2 || got.Errors[0].Feed != "Unknown" || got.Errors[1].Feed != "Dup" {
		t.Errorf("Unexpected bulk errors: %+v", got.Errors)
	}
}

func TestAdminValidateFeed(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/admin/feeds/validate", "dev", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without url, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/admin/feeds/validate", "dev", map[string]any{"url": "https://x.example/rss"})
	got := decode[feeds.Validation](t, rec)
	if !got.Valid || got.EntryCount != 3 {
		t.Errorf("Unexpected validation: %+v", got)
	}
}

func TestAdminCategories(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/admin/categories/", "dev", map[string]any{"name": "Research"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	c := decode[core.Category](t, rec)
	if c.Color != persistence.DefaultCategoryColor {
		t.Errorf("Expected default color, got %q", c.Color)
	}

	rec = do(t, s, http.MethodPut, "/api/admin/categories/"+c.ID, "dev", map[string]any{"color": "#000000"})
	if got := decode[core.Category](t, rec); got.Color != "#000000" {
		t.Errorf("Expected updated color, got %q", got.Color)
	}

	rec = do(t, s, http.MethodPut, "/api/admin/categories/missing", "dev", map[string]any{"color": "#000000"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestAdminICPs(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/admin/icps/", "dev", map[string]any{
		"name": "Owners", "source_type": "text",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for text source without text, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/admin/icps/", "dev", map[string]any{
		"name": "Owners", "source_type": "yaml", "data": map[string]any{},
	})
	if got := decode[map[string]string](t, rec); got["error"] != "Invalid source_type: yaml" {
		t.Errorf("Unexpected error %q", got["error"])
	}

	text := "Our customers are small business owners.\n- They struggle with hiring and cash flow problems\nThey want to save time."
	rec = do(t, s, http.MethodPost, "/api/admin/icps/", "dev", map[string]any{
		"name": "Owners", "source_type": "text", "text": text, "is_default": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decode[core.ICPProfile](t, rec)
	if first.Data["parsed_from_text"] != true {
		t.Errorf("Expected parsed text data, got %+v", first.Data)
	}

	rec = do(t, s, http.MethodPost, "/api/admin/icps/", "dev", map[string]any{
		"name": "Agencies", "data": map[string]any{"segment": "agency"},
	})
	second := decode[core.ICPProfile](t, rec)

	rec = do(t, s, http.MethodPut, "/api/admin/icps/"+second.ID+"/default", "dev", nil)
	if got := decode[core.ICPProfile](t, rec); !got.IsDefault {
		t.Error("Expected second profile to be default")
	}
	rec = do(t, s, http.MethodGet, "/api/admin/icps/"+first.ID, "dev", nil)
	if got := decode[core.ICPProfile](t, rec); got.IsDefault {
		t.Error("Expected first profile to lose default")
	}

	rec = do(t, s, http.MethodDelete, "/api/admin/icps/"+first.ID, "dev", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 on delete, got %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/admin/icps/", "dev", nil)
	list := decode[struct {
		Count int `json:"count"`
	}](t, rec)
	if list.Count != 1 {
		t.Errorf("Expected 1 profile, got %d", list.Count)
	}
}

func TestAdminParseICP(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/admin/icps/parse", "dev", map[string]any{"text": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty text, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/admin/icps/parse", "dev", map[string]any{
		"text": "Marketing and sales for small business owners.\n- Struggle with hiring good staff quickly",
	})
	got := decode[struct {
		Parsed          bool `json:"parsed"`
		PainPointsFound int  `json:"pain_points_found"`
		KeywordsFound   int  `json:"keywords_found"`
	}](t, rec)
	if !got.Parsed || got.PainPointsFound != 1 || got.KeywordsFound == 0 {
		t.Errorf("Unexpected parse response: %+v", got)
	}
}

func TestAdminSettings(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := do(t, s, http.MethodGet, "/api/admin/settings/digest_days", "dev", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing setting, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPut, "/api/admin/settings/digest_days", "dev", map[string]any{"value": 14})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	do(t, s, http.MethodPut, "/api/admin/settings/theme", "dev", map[string]any{"value": map[string]any{"dark": true}})

	rec = do(t, s, http.MethodGet, "/api/admin/settings/digest_days", "dev", nil)
	one := decode[struct {
		Key   string `json:"key"`
		Value int    `json:"value"`
	}](t, rec)
	if one.Key != "digest_days" || one.Value != 14 {
		t.Errorf("Unexpected setting: %+v", one)
	}

	rec = do(t, s, http.MethodGet, "/api/admin/settings/", "dev", nil)
	all := decode[map[string]any](t, rec)
	if len(all) != 2 || all["digest_days"] != float64(14) {
		t.Errorf("Unexpected settings map: %+v", all)
	}

	rec = do(t, s, http.MethodPut, "/api/admin/settings/x", "dev", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without value, got %d", rec.Code)
	}
}

func TestAdminDiscover(t *testing.T) {
	s, _ := newTestServer(t, "")
	const tok = "dev"

	if rec := do(t, s, http.MethodGet, "/api/admin/discover/", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a bearer token, got %d", rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/api/admin/discover/", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	listing := decode[struct {
		Niches        []nicheSummary `json:"niches"`
		AvailableTags []string       `json:"available_tags"`
	}](t, rec)
	if len(listing.Niches) != 8 || listing.Niches[0].ID != "coaching" {
		t.Fatalf("Unexpected niches: %+v", listing.Niches)
	}
	if listing.Niches[4].Name != "Professional Services" {
		t.Errorf("Expected display name for professional_services, got %q", listing.Niches[4].Name)
	}
	if len(listing.AvailableTags) == 0 {
		t.Error("Expected available tags")
	}

	clinicTags := []string{"healthcare", "healthtech", "compliance"}
	for _, sg := range []map[string]any{
		{"name": "Clinic AI Brief", "url": "https://clinic.example/rss", "description": "AI for private practices",
			"relevance_tags": clinicTags, "popularity_score": 5},
		{"name": "HIPAA Journal", "url": "https://www.hipaajournal.com/feed/", "description": "Mirror",
			"relevance_tags": clinicTags, "popularity_score": 3},
	} {
		if rec := do(t, s, http.MethodPost, "/api/admin/discover/suggestions", tok, sg); rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201 creating suggestion, got %d: %s", rec.Code, rec.Body.String())
		}
	}
	if rec := do(t, s, http.MethodPost, "/api/admin/discover/suggestions", tok, map[string]any{"name": "x"}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without url, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/admin/discover/niche/healthcare", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	niche := decode[struct {
		Niche       string                 `json:"niche"`
		Suggestions []feeds.Recommendation `json:"suggestions"`
		Count       int                    `json:"count"`
	}](t, rec)
	if niche.Count != 3 || len(niche.Suggestions) != 3 {
		t.Fatalf("Expected curated and stored feeds merged by URL, got %+v", niche)
	}
	if niche.Suggestions[1].URL != "https://www.hipaajournal.com/feed/" || niche.Suggestions[1].FromDatabase {
		t.Errorf("Expected the curated entry to win the duplicate URL, got %+v", niche.Suggestions[1])
	}
	if niche.Suggestions[2].Name != "Clinic AI Brief" || !niche.Suggestions[2].FromDatabase {
		t.Errorf("Expected stored suggestion last, got %+v", niche.Suggestions[2])
	}

	rec = do(t, s, http.MethodGet, "/api/admin/discover/niche/astrology", tok, nil)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Unknown niche: astrology") {
		t.Errorf("Expected 404 for unknown niche, got %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, s, http.MethodGet, "/api/admin/discover/search", tok, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without q, got %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/admin/discover/search?q=hipaa", tok, nil)
	search := decode[struct {
		Query   string                 `json:"query"`
		Results []feeds.Recommendation `json:"results"`
		Count   int                    `json:"count"`
	}](t, rec)
	if search.Query != "hipaa" || search.Count != 1 || !search.Results[0].FromDatabase {
		t.Errorf("Expected the stored match first and the curated duplicate dropped, got %+v", search)
	}
}

func TestAdminDiscoverAdd(t *testing.T) {
	s, db := newTestServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/admin/discover/add", "dev", map[string]any{"feeds": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for no feeds, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/admin/discover/add", "dev", map[string]any{"feeds": []any{
		map[string]any{"name": "Seth Godin", "url": "https://seths.blog/feed/", "is_active": false},
		map[string]any{"url": "https://nameless.example/rss"},
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	got := decode[struct {
		Added  int             `json:"added"`
		Feeds  []core.Feed     `json:"feeds"`
		Errors []bulkFeedError `json:"errors"`
	}](t, rec)
	if got.Added != 1 || len(got.Errors) != 1 || got.Errors[0].Feed != "Unknown" {
		t.Fatalf("Unexpected add result: %+v", got)
	}
	added := got.Feeds[0]
	if added.Category != "Newsletter" || added.FeedType != "newsletter" || !added.IsActive || added.Priority != 2 {
		t.Errorf("Expected discovery defaults, got %+v", added)
	}

	stored, err := db.Feeds().ListActive(context.Background())
	if err != nil || len(stored) != 1 {
		t.Errorf("Expected the added feed to be active in the store, got %v (%v)", stored, err)
	}
}

func TestAdminDiscoverWithoutStore(t *testing.T) {
	s := New(Deps{Feeds: StaticFeeds(nil)}, config.Server{})
	defer s.cancel()

	rec := do(t, s, http.MethodGet, "/api/admin/discover/niche/saas", "x", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected curated suggestions without a store, got %d", rec.Code)
	}
	got := decode[struct {
		Count int `json:"count"`
	}](t, rec)
	if got.Count != 3 {
		t.Errorf("Expected 3 curated saas feeds, got %d", got.Count)
	}

	rec = do(t, s, http.MethodPost, "/api/admin/discover/add", "x", map[string]any{"feeds": []any{
		map[string]any{"name": "SaaStr", "url": "https://www.saastr.com/feed/"},
	}})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 adding without a store, got %d", rec.Code)
	}
}

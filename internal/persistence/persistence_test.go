package persistence

import (
	"aidigest/internal/core"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenSQLite(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := OpenSQLite(tmpDir)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(filepath.Join(tmpDir, DefaultDBFile)); os.IsNotExist(err) {
		t.Error("Database file should be created")
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	// Opening again must not fail on the existing schema.
	again, err := OpenSQLite(tmpDir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	_ = again.Close()
}

func TestOpen_InvalidInput(t *testing.T) {
	if _, err := Open("mysql", "x"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for unknown driver, got %v", err)
	}
	if _, err := Open(DriverSQLite, ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for empty dsn, got %v", err)
	}
}

func TestFeeds_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t).Feeds()

	if err := repo.Create(ctx, &core.Feed{Name: "", URL: "https://x"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for missing name, got %v", err)
	}

	feed := &core.Feed{Name: "TechCrunch AI", URL: "https://techcrunch.com/feed/", IsActive: true}
	if err := repo.Create(ctx, feed); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if feed.ID == "" || feed.Category != DefaultCategory || feed.Priority != DefaultPriority || feed.FeedType != DefaultFeedType {
		t.Errorf("Expected defaults to be filled, got %+v", feed)
	}

	got, err := repo.Get(ctx, feed.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != feed.Name || !got.IsActive || got.CreatedAt.IsZero() {
		t.Errorf("Unexpected feed %+v", got)
	}

	priority := 1
	name := "TechCrunch"
	updated, err := repo.Update(ctx, feed.ID, FeedPatch{Name: &name, Priority: &priority})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "TechCrunch" || updated.Priority != 1 || updated.URL != feed.URL {
		t.Errorf("Unexpected updated feed %+v", updated)
	}

	if _, err := repo.Update(ctx, feed.ID, FeedPatch{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for empty patch, got %v", err)
	}
	if _, err := repo.Update(ctx, "missing", FeedPatch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	toggled, err := repo.SetActive(ctx, feed.ID, false)
	if err != nil || toggled.IsActive {
		t.Errorf("Expected inactive feed, got %+v (%v)", toggled, err)
	}

	if err := repo.Delete(ctx, feed.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, feed.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, feed.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestFeeds_ListOrderAndActive(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t).Feeds()

	for _, f := range []core.Feed{
		{Name: "Zeta", URL: "https://z/feed", Category: "Research", IsActive: true},
		{Name: "Alpha", URL: "https://a/feed", Category: "Research", IsActive: false},
		{Name: "Beta", URL: "https://b/feed", Category: "AI News", IsActive: true},
	} {
		f := f
		if err := repo.Create(ctx, &f); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"Beta", "Alpha", "Zeta"}
	if len(all) != len(want) {
		t.Fatalf("Expected %d feeds, got %d", len(want), len(all))
	}
	for i, name := range want {
		if all[i].Name != name {
			t.Errorf("Expected feed %d to be %s, got %s", i, name, all[i].Name)
		}
	}

	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("Expected 2 active feeds, got %d", len(active))
	}

	dup := core.Feed{Name: "Dup", URL: "https://z/feed"}
	if err := repo.Create(ctx, &dup); err == nil {
		t.Error("Expected duplicate URL to fail")
	}
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t).Categories()

	if err := repo.Create(ctx, &core.Category{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}

	second := &core.Category{Name: "Research", DisplayOrder: 2}
	first := &core.Category{Name: "AI News", DisplayOrder: 1, Color: "#000000"}
	for _, c := range []*core.Category{second, first} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if second.Color != DefaultCategoryColor {
		t.Errorf("Expected default color, got %s", second.Color)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "AI News" {
		t.Errorf("Expected display order, got %+v", list)
	}

	color := "#ff0000"
	updated, err := repo.Update(ctx, second.ID, CategoryPatch{Color: &color})
	if err != nil || updated.Color != color {
		t.Errorf("Unexpected update result %+v (%v)", updated, err)
	}
	if _, err := repo.Update(ctx, "missing", CategoryPatch{Color: &color}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
}

func TestICPProfiles_DefaultIsExclusive(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t).ICPProfiles()

	a := &core.ICPProfile{Name: "Coaches", IsActive: true, IsDefault: true, Data: map[string]any{"segment": "coaching"}}
	b := &core.ICPProfile{Name: "Agencies", IsActive: true}
	for _, p := range []*core.ICPProfile{a, b} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if a.SourceType != SourceJSON {
		t.Errorf("Expected json source type, got %s", a.SourceType)
	}

	def, err := repo.GetDefault(ctx)
	if err != nil || def.ID != a.ID {
		t.Fatalf("Expected %s as default, got %+v (%v)", a.ID, def, err)
	}
	if def.Data["segment"] != "coaching" {
		t.Errorf("Expected data round trip, got %v", def.Data)
	}

	if _, err := repo.SetDefault(ctx, b.ID); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	got, _ := repo.Get(ctx, a.ID)
	if got.IsDefault {
		t.Error("Previous default should be unset")
	}

	c := &core.ICPProfile{Name: "Clinics", IsDefault: true}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	all, _ := repo.List(ctx)
	defaults := 0
	for _, p := range all {
		if p.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Errorf("Expected exactly one default, got %d", defaults)
	}
	if all[0].Name != "Agencies" {
		t.Errorf("Expected name order, got %s first", all[0].Name)
	}

	active, _ := repo.ListActive(ctx)
	if len(active) != 2 {
		t.Errorf("Expected 2 active profiles, got %d", len(active))
	}

	if _, err := repo.SetDefault(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if def, _ := repo.GetDefault(ctx); def == nil || def.ID != c.ID {
		t.Error("Failed SetDefault must not clear the existing default")
	}
}

func TestICPProfiles_Validation(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t).ICPProfiles()

	if err := repo.Create(ctx, &core.ICPProfile{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for missing name, got %v", err)
	}
	if err := repo.Create(ctx, &core.ICPProfile{Name: "x", SourceType: "pdf"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for bad source type, got %v", err)
	}
	if _, err := repo.GetDefault(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound with no default, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t).Settings()

	if _, err := repo.Get(ctx, "digest_days"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := repo.Set(ctx, "digest_days", "7"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := repo.Set(ctx, "digest_days", "14"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Set(ctx, "bad", "{not json"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}

	got, err := repo.Get(ctx, "digest_days")
	if err != nil || got.Value != "14" {
		t.Errorf("Expected upserted value 14, got %+v (%v)", got, err)
	}

	_ = repo.Set(ctx, "alpha", `"x"`)
	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 2 || all[0].Key != "alpha" {
		t.Errorf("Unexpected settings %+v", all)
	}
}

func TestSummaries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := db.Summaries()

	if got, err := repo.Get(ctx, "https://x.example", "tldr", "h1", time.Hour); err != nil || got != nil {
		t.Fatalf("Expected a miss, got %+v (%v)", got, err)
	}

	s := &core.Summary{URL: "https://x.example", Mode: "tldr", ContentHash: "h1", Content: "<p>one</p>"}
	if err := repo.Put(ctx, s); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.Get(ctx, "https://x.example", "tldr", "h1", time.Hour)
	if err != nil || got == nil || got.Content != "<p>one</p>" {
		t.Fatalf("Expected cached summary, got %+v (%v)", got, err)
	}
	if got, _ := repo.Get(ctx, "https://x.example", "tldr", "h2", time.Hour); got != nil {
		t.Error("Expected a miss for changed content")
	}

	s.ContentHash, s.Content = "h2", "<p>two</p>"
	if err := repo.Put(ctx, s); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	stats, err := repo.Stats(ctx)
	if err != nil || stats.Count != 1 {
		t.Errorf("Expected 1 cached summary after replace, got %+v (%v)", stats, err)
	}

	old := &core.Summary{URL: "https://old.example", Mode: "tldr", ContentHash: "h", Content: "x",
		CreatedAt: time.Now().Add(-48 * time.Hour)}
	if err := repo.Put(ctx, old); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got, _ := repo.Get(ctx, old.URL, "tldr", "h", 24*time.Hour); got != nil {
		t.Error("Expected stale summary to miss")
	}
	n, err := repo.Cleanup(ctx, 24*time.Hour)
	if err != nil || n != 1 {
		t.Errorf("Expected 1 stale summary removed, got %d (%v)", n, err)
	}

	if err := repo.Put(ctx, &core.Summary{Mode: "tldr"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid without url, got %v", err)
	}

	n, err = repo.Clear(ctx)
	if err != nil || n != 1 {
		t.Errorf("Expected 1 summary cleared, got %d (%v)", n, err)
	}
}

func TestSuggestions(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t).Suggestions()

	seed := []core.FeedSuggestion{
		{Name: "Clinic Ops", URL: "https://clinic.example/rss", Description: "Running a modern practice",
			RelevanceTags: []string{"healthcare", "compliance"}, PopularityScore: 5},
		{Name: "HIPAA Weekly", URL: "https://hipaa.example/rss", Description: "Compliance news for clinics",
			RelevanceTags: []string{"healthcare", "compliance", "legal"}, PopularityScore: 9},
		{Name: "Growth Notes", URL: "https://growth.example/rss", Description: "Marketing experiments",
			RelevanceTags: []string{"marketing"}, PopularityScore: 7},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if seed[0].ID == "" || seed[0].Category != DefaultSuggestionCategory {
		t.Errorf("Expected ID and default category, got %+v", seed[0])
	}
	if err := repo.Create(ctx, &core.FeedSuggestion{Name: "No URL"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}

	all, err := repo.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].Name != "HIPAA Weekly" || all[2].Name != "Clinic Ops" {
		t.Errorf("Expected popularity order, got %+v", all)
	}

	tagged, err := repo.List(ctx, []string{"healthcare", "compliance"}, 10)
	if err != nil {
		t.Fatalf("List by tags failed: %v", err)
	}
	if len(tagged) != 2 || len(tagged[0].RelevanceTags) != 3 {
		t.Errorf("Expected two suggestions carrying both tags, got %+v", tagged)
	}
	tagged, _ = repo.List(ctx, []string{"healthcare", "marketing"}, 10)
	if len(tagged) != 0 {
		t.Errorf("Expected no suggestion with both tags, got %+v", tagged)
	}
	limited, _ := repo.List(ctx, []string{"healthcare"}, 1)
	if len(limited) != 1 || limited[0].Name != "HIPAA Weekly" {
		t.Errorf("Expected limit to keep the most popular, got %+v", limited)
	}

	found, err := repo.Search(ctx, "COMPLIANCE", 20)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 1 || found[0].Name != "HIPAA Weekly" {
		t.Errorf("Expected case-insensitive description match, got %+v", found)
	}
	found, _ = repo.Search(ctx, "growth", 20)
	if len(found) != 1 || found[0].URL != "https://growth.example/rss" {
		t.Errorf("Expected name match, got %+v", found)
	}
}

package handlers

import (
	"aidigest/internal/config"
	"aidigest/internal/core"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("APP_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("AIDIGEST_DATABASE_DSN", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_AI_API_KEY", "")
	config.Reset()
	t.Cleanup(config.Reset)
	return dir
}

func rssServer(t *testing.T) *httptest.Server {
	t.Helper()
	pub := time.Now().Add(-3 * time.Hour).UTC().Format(time.RFC1123Z)
	body := fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Test Feed</title>
<item><title>Startup raises Series A to bring AI agents to small business</title>
<link>https://example.com/a</link><description>The funding round targets SMB automation.</description>
<pubDate>%s</pubDate></item>
<item><title>Local bakery opens second shop</title>
<link>https://example.com/b</link><pubDate>%s</pubDate></item>
</channel></rss>`, pub, pub)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeFeedsFile(t *testing.T, dir, url string) string {
	t.Helper()
	path := filepath.Join(dir, "feeds.yaml")
	content := fmt.Sprintf("- name: Test Feed\n  url: %s\n  category: AI News\n  priority: 1\n", url)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write feeds file: %v", err)
	}
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDigestCommand_JSON(t *testing.T) {
	dir := setupConfig(t)
	srv := rssServer(t)
	feedsFile := writeFeedsFile(t, dir, srv.URL)

	out, err := execute(t, "", "digest", "--feeds-file", feedsFile, "--format", "json")
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}

	var d core.Digest
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", out, err)
	}
	if len(d.Articles) != 1 {
		t.Fatalf("Expected 1 relevant article, got %d", len(d.Articles))
	}
	if d.Articles[0].Topic != core.TopicFunding {
		t.Errorf("Expected funding topic, got %q", d.Articles[0].Topic)
	}
}

func TestDigestCommand_ReportToFile(t *testing.T) {
	dir := setupConfig(t)
	srv := rssServer(t)
	feedsFile := writeFeedsFile(t, dir, srv.URL)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "", "digest", "--feeds-file", feedsFile, "--output", outDir)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if !strings.Contains(out, "Digest saved to") {
		t.Errorf("Expected save confirmation, got %q", out)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Expected one digest file, got %v (%v)", entries, err)
	}
	if !strings.HasSuffix(entries[0].Name(), ".txt") {
		t.Errorf("Expected a .txt report, got %s", entries[0].Name())
	}
}

func TestDigestCommand_Verbose(t *testing.T) {
	dir := setupConfig(t)
	srv := rssServer(t)
	feedsFile := writeFeedsFile(t, dir, srv.URL)

	out, err := execute(t, "", "digest", "--feeds-file", feedsFile, "--verbose")
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if !strings.Contains(out, "KEYWORD MATCHES") || !strings.Contains(out, "small business") {
		t.Errorf("Expected keyword matches in verbose output, got %q", out)
	}
}

func TestDigestCommand_BadFormat(t *testing.T) {
	setupConfig(t)

	if _, err := execute(t, "", "digest", "--format", "pdf"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestFeedsListCommand(t *testing.T) {
	dir := setupConfig(t)
	feedsFile := writeFeedsFile(t, dir, "https://example.com/rss")

	out, err := execute(t, "", "feeds", "list", "--feeds-file", feedsFile)
	if err != nil {
		t.Fatalf("feeds list failed: %v", err)
	}
	if !strings.Contains(out, "Test Feed") || !strings.Contains(out, "1 feeds") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestFeedsImportCommand(t *testing.T) {
	dir := setupConfig(t)
	feedsFile := writeFeedsFile(t, dir, "https://example.com/rss")
	t.Setenv("AIDIGEST_DATABASE_DSN", filepath.Join(dir, "test.db"))

	out, err := execute(t, "", "feeds", "import", feedsFile)
	if err != nil {
		t.Fatalf("feeds import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 1 of 1 feeds") {
		t.Errorf("Unexpected output %q", out)
	}

	config.Reset()
	out, err = execute(t, "", "feeds", "list", "--source", "store")
	if err != nil {
		t.Fatalf("feeds list failed: %v", err)
	}
	if !strings.Contains(out, "Test Feed") {
		t.Errorf("Expected imported feed in store listing, got %q", out)
	}
}

func TestFeedsValidateCommand(t *testing.T) {
	setupConfig(t)
	srv := rssServer(t)

	out, err := execute(t, "", "feeds", "validate", srv.URL)
	if err != nil {
		t.Fatalf("feeds validate failed: %v", err)
	}
	if !strings.Contains(out, "Test Feed (2 entries)") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestICPParseCommand(t *testing.T) {
	setupConfig(t)

	out, err := execute(t, "We are marketing agencies.\n- Struggle with finding new leads every month\n", "icp", "parse")
	if err != nil {
		t.Fatalf("icp parse failed: %v", err)
	}
	if !strings.Contains(out, `"primary_identity": "Marketing Agencies"`) {
		t.Errorf("Expected parsed identity, got %q", out)
	}
}

func TestSummarizeCommand_NotConfigured(t *testing.T) {
	setupConfig(t)

	_, err := execute(t, "", "summarize", "--no-cache", "https://example.com/post")
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("Expected not configured error, got %v", err)
	}
}

func TestCacheCommands(t *testing.T) {
	setupConfig(t)

	out, err := execute(t, "", "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats failed: %v", err)
	}
	if !strings.Contains(out, "Summaries cached: 0") {
		t.Errorf("Unexpected stats output %q", out)
	}

	out, err = execute(t, "n\n", "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if !strings.Contains(out, "cancelled") {
		t.Errorf("Expected clear to be cancelled, got %q", out)
	}

	out, err = execute(t, "", "cache", "clear", "--confirm")
	if err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if !strings.Contains(out, "Cleared 0 cached summaries") {
		t.Errorf("Unexpected clear output %q", out)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aidigest.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	Reset()
	defer Reset()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_AI_API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AIDIGEST_DATABASE_DSN", "")

	dataDir := t.TempDir()
	cfg, err := Load(writeConfig(t, "app:\n  data_dir: "+dataDir+"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Digest.Days != 7 || cfg.Digest.TopStories != 5 || cfg.Digest.Spotlight != 3 || cfg.Digest.SpotlightMinScore != 4 {
		t.Errorf("Unexpected digest defaults %+v", cfg.Digest)
	}
	if cfg.Feeds.Timeout != "8s" || cfg.Feeds.Concurrency != 8 || cfg.Feeds.Source != SourceBuiltin {
		t.Errorf("Unexpected feed defaults %+v", cfg.Feeds)
	}
	if cfg.Server.Port != 8080 || cfg.Server.JobTTL != "1h" {
		t.Errorf("Unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Database.Driver != "sqlite3" || cfg.Database.DSN != filepath.Join(dataDir, "aidigest.db") {
		t.Errorf("Expected sqlite DSN under data dir, got %+v", cfg.Database)
	}
	if cfg.AI.Gemini.APIKey != "" {
		t.Error("Missing Gemini key should not be an error")
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	Reset()
	defer Reset()
	t.Setenv("ADMIN_API_TOKEN", "secret")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_AI_API_KEY", "gkey")
	t.Setenv("PORT", "9090")

	path := writeConfig(t, `
digest:
  days: 3
feeds:
  source: file
  file: feeds.yaml
logging:
  format: text
server:
  cors:
    allowed_origins: ["https://example.com"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Digest.Days != 3 {
		t.Errorf("Expected 3 days, got %d", cfg.Digest.Days)
	}
	if cfg.Feeds.Source != SourceFile || cfg.Feeds.File != "feeds.yaml" {
		t.Errorf("Unexpected feeds %+v", cfg.Feeds)
	}
	if cfg.Server.AdminToken != "secret" {
		t.Errorf("Expected admin token from env, got %q", cfg.Server.AdminToken)
	}
	if cfg.AI.Gemini.APIKey != "gkey" {
		t.Errorf("Expected fallback Gemini env name, got %q", cfg.AI.Gemini.APIKey)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Addr() != "0.0.0.0:9090" {
		t.Errorf("Expected port from env, got %d", cfg.Server.Port)
	}
	if len(cfg.Server.CORS.AllowedOrigins) != 1 || cfg.Server.CORS.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("Unexpected origins %v", cfg.Server.CORS.AllowedOrigins)
	}

	// Cached until Reset.
	if again, _ := Load(""); again != cfg {
		t.Error("Expected cached configuration")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero days", "digest:\n  days: 0\n", "digest.days"},
		{"bad duration", "feeds:\n  timeout: soon\n", "invalid duration for feeds.timeout"},
		{"unknown source", "feeds:\n  source: ftp\n", "Unknown feed source"},
		{"file source without file", "feeds:\n  source: file\n", "feeds.file is required"},
		{"postgres without dsn", "database:\n  driver: postgres\n", "database.dsn is required"},
		{"bad score", "digest:\n  spotlight_min_score: 11\n", "spotlight_min_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			defer Reset()
			t.Setenv("DATABASE_URL", "")
			t.Setenv("AIDIGEST_DATABASE_DSN", "")

			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("8s", time.Second); got != 8*time.Second {
		t.Errorf("Expected 8s, got %v", got)
	}
	if got := Duration("", time.Minute); got != time.Minute {
		t.Errorf("Expected fallback, got %v", got)
	}
	if got := Duration("-1s", time.Minute); got != time.Minute {
		t.Errorf("Expected fallback for negative duration, got %v", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/digests"); got != filepath.Join(home, "digests") {
		t.Errorf("Unexpected expansion %s", got)
	}
	if expandPath("") != "" {
		t.Error("Empty path should stay empty")
	}
}

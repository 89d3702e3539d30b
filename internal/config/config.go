package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Logging   Logging   `mapstructure:"logging"`
	Digest    Digest    `mapstructure:"digest"`
	Feeds     Feeds     `mapstructure:"feeds"`
	Lexicon   Lexicon   `mapstructure:"lexicon"`
	Database  Database  `mapstructure:"database"`
	AI        AI        `mapstructure:"ai"`
	Summarize Summarize `mapstructure:"summarize"`
	Server    Server    `mapstructure:"server"`
	Output    Output    `mapstructure:"output"`
}

// App holds general application configuration
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Digest holds digest assembly settings
type Digest struct {
	Days              int `mapstructure:"days"`
	TopStories        int `mapstructure:"top_stories"`
	Spotlight         int `mapstructure:"spotlight"`
	SpotlightMinScore int `mapstructure:"spotlight_min_score"`
}

// Feeds holds feed fetching configuration. Source selects where the feed
// list comes from: the built-in catalog, the database or a YAML file.
type Feeds struct {
	Timeout     string `mapstructure:"timeout"`
	UserAgent   string `mapstructure:"user_agent"`
	Concurrency int    `mapstructure:"concurrency"`
	File        string `mapstructure:"file"`
	Source      string `mapstructure:"source"`
}

// Lexicon points at an optional keyword override file
type Lexicon struct {
	File string `mapstructure:"file"`
}

// Database holds the admin store connection
type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// AI holds text-generation configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	Timeout   string `mapstructure:"timeout"`
	MaxTokens int32  `mapstructure:"max_tokens"`
}

// Summarize holds article summary settings
type Summarize struct {
	FetchTimeout string `mapstructure:"fetch_timeout"`
	MaxWords     int    `mapstructure:"max_words"`
	CacheTTL     string `mapstructure:"cache_ttl"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	CORS         CORS   `mapstructure:"cors"`
	AdminToken   string `mapstructure:"admin_token"`
	JobTTL       string `mapstructure:"job_ttl"`
}

// CORS holds cross-origin settings
type CORS struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// Output holds output configuration
type Output struct {
	Directory string `mapstructure:"directory"`
}

const (
	SourceBuiltin = "builtin"
	SourceStore   = "store"
	SourceFile    = "file"
)

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".aidigest")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".aidigest")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("digest.days", 7)
	viper.SetDefault("digest.top_stories", 5)
	viper.SetDefault("digest.spotlight", 3)
	viper.SetDefault("digest.spotlight_min_score", 4)

	viper.SetDefault("feeds.timeout", "8s")
	viper.SetDefault("feeds.user_agent", "Mozilla/5.0 (compatible; AIDigest/1.0)")
	viper.SetDefault("feeds.concurrency", 8)
	viper.SetDefault("feeds.source", SourceBuiltin)

	viper.SetDefault("database.driver", "sqlite3")

	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "60s")
	viper.SetDefault("ai.gemini.max_tokens", 2048)

	viper.SetDefault("summarize.fetch_timeout", "10s")
	viper.SetDefault("summarize.max_words", 4000)
	viper.SetDefault("summarize.cache_ttl", "168h")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.cors.allow_credentials", false)
	viper.SetDefault("server.cors.max_age", 300)
	viper.SetDefault("server.job_ttl", "1h")

	viper.SetDefault("output.directory", "digests")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("server.admin_token", []string{
		"ADMIN_API_TOKEN",
	})

	bindEnvKeys("database.dsn", []string{
		"DATABASE_URL",
		"AIDIGEST_DATABASE_DSN",
	})

	bindEnvKeys("server.port", []string{
		"PORT",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"AIDIGEST_DEBUG",
	})

	bindEnvKeys("logging.level", []string{
		"LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

func postProcessConfig(config *Config) error {
	config.App.DataDir = expandPath(config.App.DataDir)
	config.Output.Directory = expandPath(config.Output.Directory)
	config.Feeds.File = expandPath(config.Feeds.File)
	config.Lexicon.File = expandPath(config.Lexicon.File)

	if config.Database.DSN == "" && config.Database.Driver == "sqlite3" {
		config.Database.DSN = filepath.Join(config.App.DataDir, "aidigest.db")
	}
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"feeds.timeout":           config.Feeds.Timeout,
		"ai.gemini.timeout":       config.AI.Gemini.Timeout,
		"summarize.fetch_timeout": config.Summarize.FetchTimeout,
		"summarize.cache_ttl":     config.Summarize.CacheTTL,
		"server.read_timeout":     config.Server.ReadTimeout,
		"server.write_timeout":    config.Server.WriteTimeout,
		"server.job_ttl":          config.Server.JobTTL,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig checks value ranges. The Gemini key is optional: only the
// summarize operation needs it.
func validateConfig(config *Config) error {
	var errors []string

	if config.Digest.Days < 1 {
		errors = append(errors, fmt.Sprintf("digest.days must be at least 1, got %d", config.Digest.Days))
	}
	if config.Digest.TopStories < 1 {
		errors = append(errors, "digest.top_stories must be at least 1")
	}
	if config.Digest.Spotlight < 0 {
		errors = append(errors, "digest.spotlight must not be negative")
	}
	if s := config.Digest.SpotlightMinScore; s < 0 || s > 10 {
		errors = append(errors, fmt.Sprintf("digest.spotlight_min_score must be between 0 and 10, got %d", s))
	}
	if config.Feeds.Concurrency < 1 {
		errors = append(errors, "feeds.concurrency must be at least 1")
	}

	switch config.Feeds.Source {
	case SourceBuiltin, SourceStore:
	case SourceFile:
		if config.Feeds.File == "" {
			errors = append(errors, "feeds.file is required when feeds.source is \"file\"")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown feed source: %s. Supported: builtin, store, file", config.Feeds.Source))
	}

	switch config.Database.Driver {
	case "sqlite3":
	case "postgres":
		if config.Database.DSN == "" {
			errors = append(errors, "database.dsn is required for postgres. Set DATABASE_URL environment variable")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown database driver: %s. Supported: sqlite3, postgres", config.Database.Driver))
	}

	switch config.Logging.Format {
	case "json", "text":
	default:
		errors = append(errors, fmt.Sprintf("Unknown logging format: %s. Supported: json, text", config.Logging.Format))
	}

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("server.port must be between 1 and 65535, got %d", config.Server.Port))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Duration parses a validated duration string, falling back when it is empty.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Addr returns the host:port the server listens on.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Convenience getters for commonly used configuration values
func GetDigest() Digest       { return Get().Digest }
func GetFeeds() Feeds         { return Get().Feeds }
func GetServer() Server       { return Get().Server }
func GetLogging() Logging     { return Get().Logging }
func GetGeminiAPIKey() string { return Get().AI.Gemini.APIKey }
func IsDebugMode() bool       { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}

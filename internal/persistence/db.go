package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	// DefaultDBFile is the sqlite file created under the data directory.
	DefaultDBFile = "aidigest.db"
)

// DB implements Store on database/sql for sqlite3 and postgres.
type DB struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType

	feeds       *feedRepo
	categories  *categoryRepo
	icps        *icpRepo
	settings    *settingsRepo
	suggestions *suggestionRepo
	summaries   *summaryRepo
}

type runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open connects to the database and creates the schema if needed. An empty
// driver means sqlite3.
func Open(driver, dsn string) (*DB, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: database dsn is required", ErrInvalid)
	}

	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverSQLite:
		placeholder = sq.Question
	case DriverPostgres:
		placeholder = sq.Dollar
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", ErrInvalid, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// A single connection avoids "database is locked" under concurrent handlers.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
	if err := d.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	d.feeds = &feedRepo{d}
	d.categories = &categoryRepo{d}
	d.icps = &icpRepo{d}
	d.settings = &settingsRepo{d}
	d.suggestions = &suggestionRepo{d}
	d.summaries = &summaryRepo{d}
	return d, nil
}

// OpenSQLite opens (creating if needed) the sqlite database under dataDir.
func OpenSQLite(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return Open(DriverSQLite, filepath.Join(dataDir, DefaultDBFile))
}

func (d *DB) Feeds() FeedRepository             { return d.feeds }
func (d *DB) Categories() CategoryRepository     { return d.categories }
func (d *DB) ICPProfiles() ICPProfileRepository { return d.icps }
func (d *DB) Settings() SettingsRepository       { return d.settings }
func (d *DB) Suggestions() SuggestionRepository { return d.suggestions }
func (d *DB) Summaries() SummaryRepository       { return d.summaries }

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS feeds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 2,
		feed_type TEXT NOT NULL DEFAULT 'news',
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		display_order INTEGER NOT NULL DEFAULT 0,
		color TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS icp_profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL,
		source_type TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS admin_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	// relevance_tags is a JSON array.
	`CREATE TABLE IF NOT EXISTS feed_suggestions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		relevance_tags TEXT NOT NULL,
		popularity_score INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	// created_at is unix seconds so age filters compare numerically.
	`CREATE TABLE IF NOT EXISTS summaries (
		url TEXT NOT NULL,
		mode TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (url, mode)
	)`,
}

func (d *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func execBuilder(ctx context.Context, r runner, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.ExecContext(ctx, query, args...)
}

func queryBuilder(ctx context.Context, r runner, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.QueryContext(ctx, query, args...)
}

func queryRowBuilder(ctx context.Context, r runner, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.QueryRowContext(ctx, query, args...), nil
}

// affected maps zero affected rows to ErrNotFound.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Timestamps are stored as RFC 3339 text so both drivers share one schema.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

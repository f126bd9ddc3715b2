package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultPath = "data/oddsradar.db"

// Store wraps a SQLite DB connection holding the canonical entities.
type Store struct {
	path string
	db   *sql.DB
}

// Open creates (if needed) and opens the SQLite database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureWAL(db); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the connection; used by the health surface.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateTables ensures the full canonical schema exists.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropTables removes all canonical tables.
func (s *Store) DropTables(ctx context.Context) error {
	tables := []string{
		"bankroll_entries", "notifications", "alert_rules",
		"arbitrage_opportunities", "odds_quotes", "events", "teams",
		"leagues", "sports", "bookmakers", "markets",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+t+";"); err != nil {
			return err
		}
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sports (
	key TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	icon TEXT
);
CREATE TABLE IF NOT EXISTS leagues (
	id TEXT PRIMARY KEY,
	sport_key TEXT NOT NULL,
	name TEXT,
	country TEXT,
	tier INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS teams (
	id TEXT PRIMARY KEY,
	league_id TEXT NOT NULL,
	name TEXT NOT NULL,
	short_code TEXT,
	country TEXT
);
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	sport_key TEXT NOT NULL,
	league_id TEXT NOT NULL,
	home_team_id TEXT NOT NULL,
	away_team_id TEXT NOT NULL,
	home_team TEXT NOT NULL,
	away_team TEXT NOT NULL,
	start_time TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'upcoming',
	venue TEXT
);
CREATE INDEX IF NOT EXISTS events_sport_idx ON events(sport_key, start_time);
CREATE TABLE IF NOT EXISTS bookmakers (
	key TEXT PRIMARY KEY,
	brand TEXT NOT NULL,
	regions_json TEXT,
	jurisdictions_json TEXT,
	deep_link_template TEXT
);
CREATE TABLE IF NOT EXISTS markets (
	key TEXT PRIMARY KEY,
	display_name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS odds_quotes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	bookmaker_key TEXT NOT NULL,
	market_key TEXT NOT NULL,
	outcome_key TEXT NOT NULL,
	odds REAL NOT NULL,
	observed_at TEXT NOT NULL,
	source TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS odds_quotes_event_idx ON odds_quotes(event_id, market_key, observed_at);
CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	market_key TEXT NOT NULL,
	profit_margin REAL NOT NULL,
	confidence REAL NOT NULL,
	legs_json TEXT NOT NULL,
	detected_at TEXT NOT NULL,
	winning_tip INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS arb_event_idx ON arbitrage_opportunities(event_id, detected_at);
CREATE TABLE IF NOT EXISTS alert_rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	condition_json TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	triggered_count INTEGER NOT NULL DEFAULT 0,
	last_triggered_at TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS alert_rules_type_idx ON alert_rules(type, active);
CREATE TABLE IF NOT EXISTS notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT,
	kind TEXT NOT NULL,
	severity TEXT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	event_id TEXT,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bankroll_entries (
	user_id TEXT NOT NULL,
	balance REAL NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS bankroll_user_idx ON bankroll_entries(user_id, recorded_at);
`

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

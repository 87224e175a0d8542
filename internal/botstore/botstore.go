// Package botstore provides the SQLite-backed bot registry. It is the read
// model the query engine loads bot configurations from, and the write side
// of the `plugmind bot` commands.
package botstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/plugmind-go/internal/bot"
)

// ErrNotFound is returned when no bot has the requested ID.
var ErrNotFound = errors.New("botstore: bot not found")

// SQLiteStore is a bot registry backed by a local SQLite database. It is
// safe for concurrent use.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the registry database.
// It resolves to ~/.plugmind/bots.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("botstore: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".plugmind")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("botstore: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "bots.db"), nil
}

// Open opens (or creates) a registry at path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("botstore: open %s: %w", path, err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS bots (
    id               TEXT    PRIMARY KEY,
    kind             TEXT    NOT NULL CHECK(kind IN ('chatbot','searchbot')),
    greeting_message TEXT    NOT NULL DEFAULT '',
    website_url      TEXT    NOT NULL DEFAULT '',
    model_name       TEXT    NOT NULL DEFAULT '',
    temperature      REAL    NOT NULL DEFAULT 0,
    max_tokens       INTEGER NOT NULL DEFAULT 0,
    allowed_tables   TEXT    NOT NULL DEFAULT '[]',  -- JSON array, order preserved
    db_driver        TEXT    NOT NULL DEFAULT '',
    db_host          TEXT    NOT NULL DEFAULT '',
    db_port          INTEGER NOT NULL DEFAULT 0,
    db_user          TEXT    NOT NULL DEFAULT '',
    db_password      TEXT    NOT NULL DEFAULT '',
    db_name          TEXT    NOT NULL DEFAULT '',
    updated_at       INTEGER NOT NULL              -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_bots_kind ON bots (kind);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("botstore: migrate: %w", err)
	}
	return nil
}

// Put inserts or replaces the bot with cfg.ID.
func (s *SQLiteStore) Put(ctx context.Context, cfg *bot.Config) error {
	if cfg.ID == "" {
		return fmt.Errorf("botstore: bot id must not be empty")
	}
	kind := cfg.Kind
	if kind == "" {
		kind = bot.KindChatbot
	}
	if kind != bot.KindChatbot && kind != bot.KindSearchbot {
		return fmt.Errorf("botstore: unknown bot kind %q", kind)
	}
	tables := cfg.AllowedTables
	if tables == nil {
		tables = []string{}
	}
	tablesJSON, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("botstore: encode allowed tables: %w", err)
	}

	const q = `
INSERT INTO bots (id, kind, greeting_message, website_url, model_name, temperature, max_tokens,
                  allowed_tables, db_driver, db_host, db_port, db_user, db_password, db_name, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    kind = excluded.kind,
    greeting_message = excluded.greeting_message,
    website_url = excluded.website_url,
    model_name = excluded.model_name,
    temperature = excluded.temperature,
    max_tokens = excluded.max_tokens,
    allowed_tables = excluded.allowed_tables,
    db_driver = excluded.db_driver,
    db_host = excluded.db_host,
    db_port = excluded.db_port,
    db_user = excluded.db_user,
    db_password = excluded.db_password,
    db_name = excluded.db_name,
    updated_at = excluded.updated_at`

	d := cfg.Database
	_, err = s.db.ExecContext(ctx, q,
		cfg.ID, string(kind), cfg.GreetingMessage, cfg.WebsiteURL, cfg.ModelName, cfg.Temperature, cfg.MaxTokens,
		string(tablesJSON), d.Driver, d.Host, d.Port, d.User, d.Password, d.Name, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("botstore: put %q: %w", cfg.ID, err)
	}
	return nil
}

const selectColumns = `id, kind, greeting_message, website_url, model_name, temperature, max_tokens,
       allowed_tables, db_driver, db_host, db_port, db_user, db_password, db_name`

// Get returns the bot with id, with defaults applied to empty fields.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*bot.Config, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM bots WHERE id = ?`, id)
	cfg, err := scanBot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("botstore: get %q: %w", id, err)
	}
	return cfg, nil
}

// List returns every bot of the given kind ordered by ID. An empty kind
// lists all bots.
func (s *SQLiteStore) List(ctx context.Context, kind bot.Kind) ([]*bot.Config, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM bots WHERE (? = '' OR kind = ?) ORDER BY id`, string(kind), string(kind))
	if err != nil {
		return nil, fmt.Errorf("botstore: list: %w", err)
	}
	defer rows.Close()

	var out []*bot.Config
	for rows.Next() {
		cfg, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("botstore: list scan: %w", err)
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("botstore: list rows: %w", err)
	}
	return out, nil
}

// Delete removes the bot with id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("botstore: delete %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("botstore: delete %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return nil
}

// Ping verifies the database is reachable. Used by the readiness probe.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("botstore: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("botstore: close: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBot(sc scanner) (*bot.Config, error) {
	var cfg bot.Config
	var kind, tablesJSON string
	d := &cfg.Database
	if err := sc.Scan(&cfg.ID, &kind, &cfg.GreetingMessage, &cfg.WebsiteURL, &cfg.ModelName, &cfg.Temperature,
		&cfg.MaxTokens, &tablesJSON, &d.Driver, &d.Host, &d.Port, &d.User, &d.Password, &d.Name); err != nil {
		return nil, err
	}
	cfg.Kind = bot.Kind(kind)
	if err := json.Unmarshal([]byte(tablesJSON), &cfg.AllowedTables); err != nil {
		return nil, fmt.Errorf("decode allowed tables: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

package storage

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_url TEXT NOT NULL UNIQUE,
	source_name TEXT NOT NULL DEFAULT '',
	source_title TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	published_at DATETIME,
	fetched_at DATETIME NOT NULL,
	raw_content TEXT NOT NULL DEFAULT '',
	ai_title TEXT NOT NULL DEFAULT '',
	ai_body TEXT NOT NULL DEFAULT '',
	ai_model TEXT NOT NULL DEFAULT '',
	ai_generated_at DATETIME,
	is_published INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_articles_fetched_at ON articles(fetched_at);

CREATE TABLE IF NOT EXISTS weather_reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	location TEXT NOT NULL,
	latitude REAL,
	longitude REAL,
	fetched_at DATETIME NOT NULL,
	forecast_json TEXT NOT NULL DEFAULT '',
	ai_report TEXT NOT NULL DEFAULT '',
	ai_model TEXT NOT NULL DEFAULT '',
	ai_generated_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_weather_fetched_at ON weather_reports(fetched_at);

CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	ai_base_url TEXT NOT NULL DEFAULT '',
	ai_model TEXT NOT NULL DEFAULT '',
	temp_unit TEXT NOT NULL DEFAULT '',
	wind_unit TEXT NOT NULL DEFAULT '',
	updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS location_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	name TEXT NOT NULL DEFAULT '',
	latitude REAL,
	longitude REAL,
	timezone TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	resolved_at DATETIME
);
`

// Store wraps the SQLite database. Each harvest phase opens short-lived
// statements against the shared pool rather than holding a transaction for a
// whole run.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open opens (or creates) the database at dsn and applies the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, sb: sq.StatementBuilder.RunWith(db)}, nil
}

// OpenMemory opens a throwaway in-memory database, used by tests.
func OpenMemory() (*Store, error) {
	s, err := Open(":memory:")
	if err != nil {
		return nil, err
	}
	// The pool must not spawn a second connection: each in-memory
	// connection is its own database.
	s.db.SetMaxOpenConns(1)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// Package store persists templates, curriculum rules, instances and
// session combination sets in SQLite. It implements the repository
// interfaces the pipeline and maintenance service consume.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the database handle and provides access to repositories.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS templates (
	id          TEXT PRIMARY KEY,
	prompt      TEXT NOT NULL,
	solution    TEXT NOT NULL,
	distractors TEXT NOT NULL DEFAULT '[]',
	items       TEXT NOT NULL DEFAULT '[]',
	explanation TEXT NOT NULL DEFAULT '',
	qtype       TEXT NOT NULL,
	domain      TEXT NOT NULL,
	subcategory TEXT NOT NULL DEFAULT '',
	grade       INTEGER NOT NULL,
	quarter     TEXT NOT NULL,
	difficulty  TEXT NOT NULL DEFAULT 'medium',
	params      TEXT NOT NULL DEFAULT '{}',
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS curriculum_rules (
	grade      INTEGER NOT NULL,
	quarter    TEXT NOT NULL,
	domain     TEXT NOT NULL,
	min_number INTEGER NOT NULL,
	max_number INTEGER NOT NULL,
	operations TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (grade, quarter, domain)
);

CREATE TABLE IF NOT EXISTS instances (
	id           TEXT PRIMARY KEY,
	template_id  TEXT NOT NULL,
	prompt       TEXT NOT NULL,
	solution     TEXT NOT NULL,
	distractors  TEXT NOT NULL DEFAULT '[]',
	items        TEXT NOT NULL DEFAULT '[]',
	explanation  TEXT NOT NULL DEFAULT '',
	qtype        TEXT NOT NULL,
	domain       TEXT NOT NULL,
	subcategory  TEXT NOT NULL DEFAULT '',
	grade        INTEGER NOT NULL,
	quarter      TEXT NOT NULL,
	difficulty   TEXT NOT NULL DEFAULT 'medium',
	params       TEXT NOT NULL DEFAULT '{}',
	status       TEXT NOT NULL DEFAULT 'active',
	usage_count  INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	rating_sum   REAL NOT NULL DEFAULT 0,
	rating_count INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_instances_scope
	ON instances (grade, domain, subcategory, status, created_at);

CREATE TABLE IF NOT EXISTS session_combinations (
	user_id   TEXT NOT NULL,
	grade     INTEGER NOT NULL,
	category  TEXT NOT NULL,
	combo_key TEXT NOT NULL,
	PRIMARY KEY (user_id, grade, category, combo_key)
);
`

// Open creates a Store connected to the SQLite database at dsn. It
// applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying handle for raw queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Templates returns a TemplateRepo backed by this store.
func (s *Store) Templates() TemplateRepo {
	return &templateRepo{db: s.db}
}

// Rules returns a RuleRepo backed by this store.
func (s *Store) Rules() RuleRepo {
	return &ruleRepo{db: s.db}
}

// Instances returns an InstanceRepo backed by this store.
func (s *Store) Instances() InstanceRepo {
	return &instanceRepo{db: s.db}
}

// Sessions returns a SessionRepo backed by this store.
func (s *Store) Sessions() SessionRepo {
	return &sessionRepo{db: s.db}
}

// applyPragmas configures SQLite for single-writer performance.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. LERNZEIT_DB environment variable
// 2. $XDG_DATA_HOME/lernzeit/templatebank.db
// 3. ~/.local/share/lernzeit/templatebank.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("LERNZEIT_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "lernzeit", "templatebank.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

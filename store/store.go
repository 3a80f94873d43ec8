package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/Mohamed711/customer-support-agent/logging"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options configure a Store.
type Options struct {
	Logger logging.Logger
	// Now supplies timestamps for new rows; tests pin it.
	Now func() time.Time
}

// Store is the ticket and CultPass account database behind the tool gateway.
// Queries are written with ? placeholders and rebound for the driver.
type Store struct {
	db     *sqlx.DB
	logger logging.Logger
	now    func() time.Time
}

// Open connects to driver/dsn and runs migrations.
func Open(ctx context.Context, driver, dsn string, optFns ...func(o *Options)) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	if driver == DriverSQLite {
		// A single connection keeps :memory: databases coherent and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: wal: %w", err)
		}
	}

	s := NewWithDB(db, optFns...)
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection without running migrations.
func NewWithDB(db *sqlx.DB, optFns ...func(o *Options)) *Store {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{db: db, logger: opts.Logger, now: opts.Now}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id    TEXT PRIMARY KEY,
		user_name  TEXT NOT NULL,
		full_name  TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL DEFAULT '',
		is_blocked INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		ticket_id  TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(user_id),
		channel    TEXT NOT NULL DEFAULT 'chat',
		created_at TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'open',
		issue_type TEXT NOT NULL DEFAULT '',
		tags       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS ticket_messages (
		message_id TEXT PRIMARY KEY,
		ticket_id  TEXT NOT NULL REFERENCES tickets(ticket_id),
		seq        INTEGER NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id           TEXT PRIMARY KEY REFERENCES users(user_id),
		language          TEXT NOT NULL DEFAULT 'en',
		preferred_channel TEXT NOT NULL DEFAULT 'chat',
		notes             TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		user_id    TEXT PRIMARY KEY REFERENCES users(user_id),
		status     TEXT NOT NULL,
		tier       TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at   TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS experiences (
		experience_id   TEXT PRIMARY KEY,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		location        TEXT NOT NULL DEFAULT '',
		starts_at       TEXT NOT NULL DEFAULT '',
		is_premium      INTEGER NOT NULL DEFAULT 0,
		slots_available INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		reservation_id TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL REFERENCES users(user_id),
		experience_id  TEXT NOT NULL REFERENCES experiences(experience_id),
		status         TEXT NOT NULL,
		created_at     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		article_id TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL,
		tags       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_ticket ON ticket_messages(ticket_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_user ON tickets(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations(user_id)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

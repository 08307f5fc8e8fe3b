package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"           // Postgres driver
	"github.com/mattn/go-sqlite3" // SQLite driver (cgo)
	"github.com/pkg/errors"
	"modernc.org/sqlite" // SQLite driver (pure Go)
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/LukasGX/Untis-App-API/internal/store"
)

// timeLayout matches SQLite's datetime('now') so databases written by older
// deployments stay readable.
const timeLayout = "2006-01-02 15:04:05"

type SQLStore struct {
	db         *sql.DB
	driverName string
	now        func() time.Time
}

var _ store.Store = (*SQLStore)(nil)

// New opens the database and creates missing tables. Supported drivers are
// "sqlite3" (mattn), "sqlite" (modernc) and "postgres".
func New(driverName, dataSourceName string) (*SQLStore, error) {
	switch driverName {
	case "sqlite3", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", driverName)
	}
	if driverName != "postgres" {
		// SQLite has a single writer; one connection serializes all access
		// and keeps ":memory:" databases shared between queries.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	s := &SQLStore{db: db, driverName: driverName, now: time.Now}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL,
		school TEXT NOT NULL,
		username TEXT UNIQUE NOT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL,
		school TEXT NOT NULL,
		username TEXT UNIQUE NOT NULL,
		contact_infos TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sent_at TEXT NOT NULL,
		school TEXT NOT NULL,
		username TEXT NOT NULL,
		message TEXT NOT NULL,
		deleted BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_school ON messages(school, sent_at);

	CREATE TABLE IF NOT EXISTS chat_bans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL,
		school TEXT NOT NULL,
		username TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE(school, username)
	);
	`

	if s.driverName == "postgres" {
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
	}

	_, err := s.db.Exec(query)
	return errors.Wrap(err, "create tables")
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func (s *SQLStore) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func parseTimestamp(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		// RFC 3339 values written by hand or by other tools
		t, _ = time.Parse(time.RFC3339, v)
	}
	return t
}

// translate maps driver errors onto the store sentinels and wraps the rest.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return errors.Wrap(err, op)
}

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pureErr *sqlite.Error
	if errors.As(err, &pureErr) {
		switch pureErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3lib.SQLITE_CONSTRAINT:
			return strings.Contains(pureErr.Error(), "UNIQUE")
		}
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

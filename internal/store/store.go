package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Schema version tracking (SQLite only):
// 0 - Initial schema (pre-migration)
// 1 - Added index on order_log(order_id, seq)
const currentSchemaVersion = 1

// Dialect names the database backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// DialectFor picks the backend for a DSN.
func DialectFor(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Store is the order log.
//
// Thread-safety: all methods are safe for concurrent use; database/sql pools
// connections and SQLite is limited to a single one.
type Store struct {
	db      *sql.DB
	dialect Dialect
	runID   string
	newID   func() string

	mirrorMu sync.Mutex
	mirror   string
}

// Option configures a Store.
type Option func(*Store)

// WithRunID sets the run id stamped on every entry this Store appends.
func WithRunID(id string) Option {
	return func(s *Store) { s.runID = id }
}

// WithMirror rewrites path with the whole log (as ExportJSON does) after
// every append. An empty path disables the mirror.
func WithMirror(path string) Option {
	return func(s *Store) { s.mirror = path }
}

// WithIDGenerator replaces UUIDv7 entry ids. Used by tests for stable ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Open creates or opens the order log at dsn and applies the schema.
//
// This function is idempotent - safe to call multiple times.
func Open(dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("order log dsn is empty")
	}
	dialect := DialectFor(dsn)

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:      db,
		dialect: dialect,
		runID:   newUUID(),
		newID:   newUUID,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch dialect {
	case DialectSQLite:
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
		if err := applySQLiteSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	case DialectPostgres:
		if _, err := db.Exec(postgresSchema); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return s, nil
}

func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Dialect returns the backend in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// RunID returns the id stamped on entries appended by this Store.
func (s *Store) RunID() string {
	return s.runID
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySQLiteSchema creates tables if they don't exist and runs migrations.
func applySQLiteSchema(db *sql.DB) error {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 indexes entries by order for the per-order log view.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_order_log_order
		ON order_log(order_id, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported history drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps the run history database connection.
type DB struct {
	conn   *sql.DB
	path   string
	driver string
}

// DefaultDBPath returns ~/.lintgate/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".lintgate")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// OpenDriver opens the history database for the named driver. For sqlite the
// dsn is a file path; for postgres it is a connection string.
func OpenDriver(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, "":
		return Open(dsn)
	case DriverPostgres:
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &DB{conn: conn, path: path, driver: DriverSQLite}, nil
}

// OpenPostgres connects to a PostgreSQL database through pgx.
func OpenPostgres(dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{conn: conn, path: dsn, driver: DriverPostgres}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB for advanced queries.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Driver returns the driver name the database was opened with.
func (d *DB) Driver() string {
	return d.driver
}

// rebind rewrites ? placeholders to $n for postgres.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
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

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id                TEXT PRIMARY KEY,
    outcome           TEXT NOT NULL CHECK(outcome IN ('all_clean','issues_forced','issues_failed')),
    checked           INTEGER NOT NULL,
    files_with_issues INTEGER NOT NULL,
    total_errors      INTEGER NOT NULL,
    missing           INTEGER NOT NULL DEFAULT 0,
    format            TEXT NOT NULL,
    duration_ms       INTEGER,
    created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

CREATE TABLE IF NOT EXISTS file_reports (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    file_path   TEXT NOT NULL,
    error_count INTEGER NOT NULL,
    findings    TEXT
);
CREATE INDEX IF NOT EXISTS idx_file_reports_run ON file_reports(run_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id                TEXT PRIMARY KEY,
    outcome           TEXT NOT NULL CHECK(outcome IN ('all_clean','issues_forced','issues_failed')),
    checked           INTEGER NOT NULL,
    files_with_issues INTEGER NOT NULL,
    total_errors      INTEGER NOT NULL,
    missing           INTEGER NOT NULL DEFAULT 0,
    format            TEXT NOT NULL,
    duration_ms       BIGINT,
    created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

CREATE TABLE IF NOT EXISTS file_reports (
    id          BIGSERIAL PRIMARY KEY,
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    file_path   TEXT NOT NULL,
    error_count INTEGER NOT NULL,
    findings    TEXT
);
CREATE INDEX IF NOT EXISTS idx_file_reports_run ON file_reports(run_id);
`

// Migrate applies the database schema.
func (d *DB) Migrate() error {
	var count int
	err := d.conn.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	schema := schemaSQLite
	if d.driver == DriverPostgres {
		schema = schemaPostgres
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("apply schema v1: %w", err)
	}
	if _, err := tx.Exec(d.rebind("INSERT INTO schema_version (version, applied_at) VALUES (1, ?)"), now()); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Reset drops all tables and re-applies the schema.
func (d *DB) Reset() error {
	tables := []string{"file_reports", "runs", "schema_version"}
	for _, t := range tables {
		if _, err := d.conn.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return d.Migrate()
}

// Package storage keeps installer state in a local SQLite database: the
// artifact snapshot of the last successful install per device and variant,
// and a log of install runs.
package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	defaultDBDirName  = ".installagent"
	defaultDBFileName = "state.sqlite"
	snapshotTable     = "artifact_snapshots"
	installRunTable   = "install_runs"
)

// Store wraps the SQLite state database.
type Store struct {
	db    *sql.DB
	path  string
	clock func() time.Time
}

// ResolveDatabasePath returns custom when set, otherwise ~/.installagent/state.sqlite.
// The parent directory is created when missing.
func ResolveDatabasePath(custom string) (string, error) {
	if custom = strings.TrimSpace(custom); custom != "" {
		if err := ensureDir(filepath.Dir(custom)); err != nil {
			return "", err
		}
		return custom, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "storage: locate user home failed")
	}
	dir := filepath.Join(home, defaultDBDirName)
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultDBFileName), nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "storage: create dir %s failed", dir)
	}
	return nil
}

// Open opens (and migrates) the database at path; see ResolveDatabasePath.
func Open(path string) (*Store, error) {
	dbPath, err := ResolveDatabasePath(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "storage: open sqlite database failed")
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := prepareSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("db", dbPath).Msg("storage: state database ready")
	return &Store{db: db, path: dbPath, clock: time.Now}, nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=10000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "storage: execute %s failed", pragma)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return nil
}

func prepareSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + snapshotTable + ` (
			device_serial TEXT NOT NULL,
			variant TEXT NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (device_serial, variant, path)
		);`,
		`CREATE TABLE IF NOT EXISTS ` + installRunTable + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_serial TEXT NOT NULL,
			project TEXT,
			variant TEXT,
			package TEXT,
			mode TEXT NOT NULL,
			state TEXT NOT NULL,
			artifacts TEXT,
			declared_version TEXT,
			installed_version TEXT,
			error_message TEXT,
			started_at INTEGER,
			finished_at INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_install_runs_serial ON ` + installRunTable + ` (device_serial, id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "storage: prepare schema failed")
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now()
}

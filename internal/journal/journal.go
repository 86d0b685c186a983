// Package journal records pick-and-place runs in sqlite: the task geometry,
// every state transition, the markers that were shown or hidden, and a
// throttled trail of the poses the node consumed.
package journal

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Options tunes what the journal keeps.
type Options struct {
	// PoseSpacing is the minimum time between two stored trail poses.
	// Zero stores every pose.
	PoseSpacing time.Duration

	// Clock stamps runs and trail poses. Defaults to the wall clock.
	Clock timeutil.Clock
}

// DefaultOptions returns the options used by the node binary.
func DefaultOptions() Options {
	return Options{PoseSpacing: 100 * time.Millisecond}
}

// Journal is a sqlite-backed run recorder. The recording methods are safe
// for concurrent use.
type Journal struct {
	db    *sql.DB
	path  string
	opts  Options
	clock timeutil.Clock

	mu         sync.Mutex
	runID      string
	lastMarker *markerKey
	lastPoseAt time.Time
	havePose   bool

	errs monitoring.Once
}

type markerKey struct {
	action string
	x, y   float64
}

// Open opens (or creates) the journal database at path and brings its
// schema up to date.
func Open(path string, opts Options) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// sqlite allows a single writer, and an in-memory database exists per
	// connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Journal{db: db, path: path, opts: opts, clock: clock}, nil
}

// migrateUp applies all embedded migrations. ErrNoChange is not an error.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: that would close db as well.
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[Journal] migrate: "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// DB exposes the underlying database for debug tooling.
func (j *Journal) DB() *sql.DB {
	return j.db
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// logErr reports a failed background write once per operation so a broken
// disk does not flood the log.
func (j *Journal) logErr(op string, err error) {
	j.errs.Logf(op, "[Journal] %s failed: %v", op, err)
}

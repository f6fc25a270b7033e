// Package store persists sessions and notes in a per-project SQLite file
// together with the FTS5 index over them.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/iksnae/claude-memory/internal"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Options tunes the store's locking behaviour
type Options struct {
	BusyTimeout     time.Duration // per-statement SQLite busy handler
	InitialInterval time.Duration // first retry delay
	MaxInterval     time.Duration // cap on a single retry delay
	MaxElapsed      time.Duration // give up with StorageTimeoutError after this
	Now             func() time.Time
}

// OptionsFromConfig maps the storage config section onto Options
func OptionsFromConfig(cfg internal.StorageConfig) Options {
	return Options{
		BusyTimeout:     cfg.BusyTimeout,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		MaxElapsed:      cfg.MaxElapsed,
	}
}

func (o Options) withDefaults() Options {
	def := OptionsFromConfig(internal.DefaultConfig().Storage)
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = def.BusyTimeout
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = def.InitialInterval
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = def.MaxInterval
	}
	if o.MaxElapsed <= 0 {
		o.MaxElapsed = def.MaxElapsed
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Store is a handle on one project's memory database
type Store struct {
	db   *sql.DB
	path string
	opts Options
}

// Open opens (creating if needed) the store at path and makes sure its
// schema exists. Several processes may open the same path concurrently.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	opts = opts.withDefaults()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &internal.SchemaInitError{Path: path, Err: fmt.Errorf("create state dir: %w", err)}
	}

	db, err := sql.Open("sqlite", dsn(path, opts.BusyTimeout))
	if err != nil {
		return nil, &internal.SchemaInitError{Path: path, Err: err}
	}

	s := &Store{db: db, path: path, opts: opts}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	internal.Logger().Debug("store opened", "path", path)
	return s, nil
}

func dsn(path string, busy time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return path + "?" + q.Encode()
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by *sql.DB and *sql.Conn
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// write runs fn inside BEGIN IMMEDIATE on a dedicated connection, so the
// write lock is taken up front and busy errors surface at BEGIN rather than
// midway through. The whole attempt is retried while the store is busy.
func (s *Store) write(ctx context.Context, op string, fn func(q querier) error) error {
	return s.retry(ctx, op, func() error {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
			return err
		}
		if err := fn(conn); err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
			return err
		}
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
			return err
		}
		return nil
	})
}

// read runs fn against the pool, retrying while the store is busy
func (s *Store) read(ctx context.Context, op string, fn func(q querier) error) error {
	return s.retry(ctx, op, func() error {
		return fn(s.db)
	})
}

// readSnapshot runs fn inside one read transaction so that every statement
// sees the same WAL snapshot.
func (s *Store) readSnapshot(ctx context.Context, op string, fn func(q querier) error) error {
	return s.retry(ctx, op, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		return fn(tx)
	})
}

func (s *Store) now() string {
	return formatTime(s.opts.Now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by other tools may carry plain RFC 3339
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

// Package repo implements the note repository: a lock-serialized SQLite
// store with a shadow full-text index, a hierarchical category tree, a
// denormalized tag index, and faceted search over all of it.
package repo

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/halvard/munin/internal/apperr"
)

// Repository owns the store file. Every public operation serializes on a
// single lock; reads take it too, since shadow-index maintenance interleaves
// with writes. Public methods lock once and delegate to unexported *Locked
// helpers, which assume the lock is already held.
type Repository struct {
	mu     sync.Mutex
	conn   *sql.DB
	logger *slog.Logger
	clock  func() time.Time

	notifier Notifier
	queue    *insertQueue
	closed   bool
}

// Option configures a Repository at open time.
type Option func(*Repository, *openSettings)

type openSettings struct {
	seedWelcome bool
}

// WithLogger sets the repository logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository, _ *openSettings) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Repository, _ *openSettings) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithNotifier sets the change-notification sink.
func WithNotifier(n Notifier) Option {
	return func(r *Repository, _ *openSettings) { r.notifier = n }
}

// WithWelcomeNote controls whether an empty store is seeded with the
// introductory note. Defaults to on.
func WithWelcomeNote(enabled bool) Option {
	return func(_ *Repository, s *openSettings) { s.seedWelcome = enabled }
}

// Open opens or creates the store at path. An existing file is first copied
// to a timestamped backup so a failed migration can be recovered from. The
// schema is created idempotently and missing columns are added in place.
func Open(path string, opts ...Option) (*Repository, error) {
	r := &Repository{
		logger: slog.Default(),
		clock:  time.Now,
	}
	settings := &openSettings{seedWelcome: true}
	for _, opt := range opts {
		opt(r, settings)
	}

	backupExisting(path, r.clock(), r.logger)

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrOpenFailed, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", apperr.ErrOpenFailed, err)
	}
	if err := createSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", apperr.ErrOpenFailed, err)
	}
	applyColumnMigrations(conn, r.logger)

	if err := initSearchIndex(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: search index: %v", apperr.ErrOpenFailed, err)
	}
	r.conn = conn

	r.rebuildSearchIndexIfStale()

	if settings.seedWelcome {
		r.seedWelcomeNote()
	}

	r.queue = newInsertQueue(r, 128)

	r.logger.Info("store opened", slog.String("path", path))
	return r, nil
}

// SetNotifier wires the change-notification sink after open. Useful when
// the sink itself needs the repository to exist first.
func (r *Repository) SetNotifier(n Notifier) {
	r.mu.Lock()
	r.notifier = n
	r.mu.Unlock()
}

// Close drains the async insert queue and closes the store.
func (r *Repository) Close() error {
	if r.queue != nil {
		r.queue.close()
	}
	r.mu.Lock()
	r.closed = true
	conn := r.conn
	r.mu.Unlock()
	return conn.Close()
}

// rebuildSearchIndexIfStale re-derives the shadow index from the note rows
// when the two have drifted, e.g. after switching between the FTS5 and
// fallback builds.
func (r *Repository) rebuildSearchIndexIfStale() {
	var want int
	if err := r.conn.QueryRow(`SELECT count(*) FROM notes WHERE is_deleted = 0`).Scan(&want); err != nil {
		return
	}
	have, err := searchIndexCount(r.conn)
	if err != nil || have == want {
		return
	}
	r.logger.Info("rebuilding search index",
		slog.Int("indexed", have), slog.Int("notes", want))

	if err := searchIndexClear(r.conn); err != nil {
		r.logger.Warn("search index clear failed", slog.String("error", err.Error()))
		return
	}
	rows, err := r.conn.Query(`SELECT id, title, content FROM notes WHERE is_deleted = 0`)
	if err != nil {
		return
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var title, content string
		if err := rows.Scan(&id, &title, &content); err != nil {
			continue
		}
		if err := searchIndexUpsert(r.conn, id, title, content); err != nil {
			r.logger.Warn("search index rebuild failed",
				slog.Int64("id", id), slog.String("error", err.Error()))
		}
	}
}

func (r *Repository) seedWelcomeNote() {
	var n int
	if err := r.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&n); err != nil || n > 0 {
		return
	}
	r.mu.Lock()
	_, err := r.addNoteLocked(NoteInput{
		Title:   "Welcome to Munin",
		Content: "This note was created automatically. Capture anything here and find it again instantly with search, tags and categories.",
		Tags:    []string{"getting-started"},
		Source:  "seed",
	})
	r.mu.Unlock()
	if err != nil {
		r.logger.Warn("seed note failed", slog.String("error", err.Error()))
	}
}

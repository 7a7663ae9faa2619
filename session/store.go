// CLAUDE:SUMMARY SQLite-backed edit-session store: token → tagged markup with sliding TTL expiry and per-token locking.
// Package session stores the tagged markup of documents being edited,
// keyed by an opaque capability token.
//
// Sessions expire after a sliding TTL (refreshed on every write) and are
// removed by Sweep. The default database is in-memory, so nothing survives
// the process.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/htmledit/dbopen"
)

// Schema is the DDL of the session table.
const Schema = `
CREATE TABLE IF NOT EXISTS edit_sessions (
    token       TEXT PRIMARY KEY,
    markup      TEXT NOT NULL,
    filename    TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,
    expires_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edit_sessions_expiry ON edit_sessions(expires_at);
`

// DefaultTTL is how long an untouched session lives.
const DefaultTTL = 2 * time.Hour

// Session is one stored document.
type Session struct {
	Token     string    `json:"token"`
	Markup    string    `json:"-"`
	Filename  string    `json:"filename,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists sessions in SQLite.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	locks  *keyedMutex
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the sliding session lifetime.
func WithTTL(d time.Duration) Option { return func(s *Store) { s.ttl = d } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithLogger sets the logger used by the sweeper.
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// NewStore wraps db. Call Init before use.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
		locks:  newKeyedMutex(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open opens the database at path (dbopen.Memory for a process-local store)
// and initialises the schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return NewStore(db, opts...), nil
}

// Init creates the session table if needed.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("session: init schema: %w", err)
	}
	return nil
}

// DB returns the underlying database, shared with the event log.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Create inserts a new session.
func (s *Store) Create(ctx context.Context, token, markup, filename string) error {
	now := s.now()
	_, err := dbopen.Exec(ctx, s.db,
		`INSERT INTO edit_sessions (token, markup, filename, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		token, markup, filename, now.UnixMilli(), now.UnixMilli(), now.Add(s.ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	return nil
}

// Get returns the session for token, or nil if it does not exist or expired.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	var (
		sess                  Session
		created, updated, exp int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, markup, filename, created_at, updated_at, expires_at
		FROM edit_sessions WHERE token = ? AND expires_at > ?`,
		token, s.now().UnixMilli(),
	).Scan(&sess.Token, &sess.Markup, &sess.Filename, &created, &updated, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}
	sess.CreatedAt = time.UnixMilli(created)
	sess.UpdatedAt = time.UnixMilli(updated)
	sess.ExpiresAt = time.UnixMilli(exp)
	return &sess, nil
}

// Put replaces the markup of a live session and refreshes its expiry.
// It reports whether a live session was updated.
func (s *Store) Put(ctx context.Context, token, markup string) (bool, error) {
	now := s.now()
	res, err := dbopen.Exec(ctx, s.db,
		`UPDATE edit_sessions SET markup = ?, updated_at = ?, expires_at = ?
		WHERE token = ? AND expires_at > ?`,
		markup, now.UnixMilli(), now.Add(s.ttl).UnixMilli(), token, now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("session: put: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("session: put: %w", err)
	}
	return n > 0, nil
}

// Delete removes a session. Deleting a missing token is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if _, err := dbopen.Exec(ctx, s.db, `DELETE FROM edit_sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// Count returns the number of live sessions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edit_sessions WHERE expires_at > ?`, s.now().UnixMilli()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("session: count: %w", err)
	}
	return n, nil
}

// Sweep deletes expired sessions and returns how many were removed.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	res, err := dbopen.Exec(ctx, s.db,
		`DELETE FROM edit_sessions WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}
	return res.RowsAffected()
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.Sweep(ctx)
				if err != nil {
					s.logger.Warn("session sweep failed", "error", err)
					continue
				}
				if n > 0 {
					s.logger.Debug("session sweep", "expired", n)
				}
			}
		}
	}()
}

// Lock serialises edit passes on one token. The returned function releases
// the lock.
func (s *Store) Lock(token string) (unlock func()) {
	return s.locks.lock(token)
}

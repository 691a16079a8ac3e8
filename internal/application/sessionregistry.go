package application

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/uvcsweb/internal/domain/port/driven"
)

// Session is the state of one browser session: its credential-bound API and
// the two stores built on it. Handlers receive it explicitly per request.
type Session struct {
	ID         string
	API        *API
	Auth       *AuthStore
	Repository *RepositoryStore

	lastSeen atomic.Int64 // unix nanoseconds
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen returns when the session was last fetched from the registry.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// SessionRegistry creates sessions lazily and keeps them in memory until
// they go idle. Dropping a session does not delete its stored keys, so a
// returning browser is still signed in.
type SessionRegistry struct {
	client driven.VCSClient
	keys   driven.SessionKeyStore
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(client driven.VCSClient, keys driven.SessionKeyStore, logger *slog.Logger) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		keys:     keys,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, creating it on first use. The same id
// always yields the same *Session while it stays in memory.
func (r *SessionRegistry) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		sess.touch(r.now())
		return sess, nil
	}

	// Build outside the lock; the auth store reads the key store.
	api := NewAPI(r.client, r.keys, id)
	auth, err := NewAuthStore(ctx, api, r.logger.With("session", shortID(id)))
	if err != nil {
		return nil, err
	}
	created := &Session{
		ID:         id,
		API:        api,
		Auth:       auth,
		Repository: NewRepositoryStore(api, r.logger.With("session", shortID(id))),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		existing.touch(r.now())
		return existing, nil
	}
	created.touch(r.now())
	r.sessions[id] = created
	return created, nil
}

// Len returns the number of sessions held in memory.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions not fetched within idle and returns how many were dropped.
func (r *SessionRegistry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, sess := range r.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Run sweeps idle sessions every interval until ctx is canceled.
func (r *SessionRegistry) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.logger.Info("swept idle sessions", "dropped", n, "remaining", r.Len())
			}
		}
	}
}

// shortID keeps session ids out of logs beyond a short prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

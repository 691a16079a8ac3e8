// Package redis stores browser session keys in Redis (or a compatible server
// such as KeyDB), one hash per session.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/uvcsweb/internal/adapter/driven/sealbox"
	"github.com/ericfisherdev/uvcsweb/internal/domain/port/driven"
)

const sessionKeyPrefix = "uvcsweb:session:"

// Compile-time interface satisfaction check.
var _ driven.SessionKeyStore = (*SessionKeyRepo)(nil)

// Config defines connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL expires an idle session hash. It is refreshed on every write.
	// Zero keeps hashes forever.
	TTL time.Duration
}

// SessionKeyRepo is the Redis implementation of the SessionKeyStore port.
type SessionKeyRepo struct {
	client *goredis.Client
	box    *sealbox.Box
	ttl    time.Duration
}

// NewSessionKeyRepo connects to Redis and verifies the connection with PING.
func NewSessionKeyRepo(ctx context.Context, cfg Config, box *sealbox.Box) (*SessionKeyRepo, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &SessionKeyRepo{client: client, box: box, ttl: cfg.TTL}, nil
}

// Close releases the underlying connection pool.
func (r *SessionKeyRepo) Close() error {
	return r.client.Close()
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Set stores or replaces one value of a session and refreshes its TTL.
func (r *SessionKeyRepo) Set(ctx context.Context, sessionID, key, value string) error {
	sealed, err := r.box.Seal(value)
	if err != nil {
		return fmt.Errorf("seal session key %q: %w", key, err)
	}

	hash := sessionKey(sessionID)
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, hash, key, sealed)
		if r.ttl > 0 {
			pipe.Expire(ctx, hash, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set session key %q: %w", key, err)
	}
	return nil
}

// Get returns one value of a session, or "" when it is absent.
func (r *SessionKeyRepo) Get(ctx context.Context, sessionID, key string) (string, error) {
	stored, err := r.client.HGet(ctx, sessionKey(sessionID), key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session key %q: %w", key, err)
	}

	value, err := r.box.Open(stored)
	if err != nil {
		return "", fmt.Errorf("open session key %q: %w", key, err)
	}
	return value, nil
}

// GetAll returns every value of a session keyed by name.
func (r *SessionKeyRepo) GetAll(ctx context.Context, sessionID string) (map[string]string, error) {
	stored, err := r.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list session keys: %w", err)
	}

	values := make(map[string]string, len(stored))
	for key, s := range stored {
		value, err := r.box.Open(s)
		if err != nil {
			return nil, fmt.Errorf("open session key %q: %w", key, err)
		}
		values[key] = value
	}
	return values, nil
}

// Delete removes one value of a session. Deleting a missing value is not an error.
func (r *SessionKeyRepo) Delete(ctx context.Context, sessionID, key string) error {
	if err := r.client.HDel(ctx, sessionKey(sessionID), key).Err(); err != nil {
		return fmt.Errorf("delete session key %q: %w", key, err)
	}
	return nil
}

package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

// AuthStore tracks whether the browser session is signed in. The flag is
// local: it is set by Login, cleared by Logout, and never revalidated
// against the server.
type AuthStore struct {
	api    *API
	logger *slog.Logger

	mu              sync.RWMutex
	user            *model.User
	isAuthenticated bool
}

// NewAuthStore creates an AuthStore whose flag starts from the stored keys.
func NewAuthStore(ctx context.Context, api *API, logger *slog.Logger) (*AuthStore, error) {
	authenticated, err := api.IsAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	return &AuthStore{
		api:             api,
		logger:          logger,
		isAuthenticated: authenticated,
	}, nil
}

// IsAuthenticated returns the local signed-in flag.
func (s *AuthStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAuthenticated
}

// User returns a copy of the signed-in profile, or nil when the server did
// not return one.
func (s *AuthStore) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Login signs in. On failure the state is left unchanged and the error is
// returned as-is.
func (s *AuthStore) Login(ctx context.Context, identifier, password string) error {
	resp, err := s.api.Login(ctx, identifier, password)
	if err != nil {
		s.logger.Error("login failed", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isAuthenticated = true
	if resp.User != nil {
		u := *resp.User
		s.user = &u
	}
	return nil
}

// Register creates an account without signing in.
func (s *AuthStore) Register(ctx context.Context, req model.RegisterRequest) error {
	if err := s.api.Register(ctx, req); err != nil {
		s.logger.Error("registration failed", "username", req.Username, "error", err)
		return err
	}
	return nil
}

// Logout deletes the stored keys and clears the local state even when the
// deletion fails.
func (s *AuthStore) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	if err != nil {
		s.logger.Error("logout failed to delete session keys", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.isAuthenticated = false
	return err
}

package application_test

import (
	"context"
	"errors"
	"sync"

	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

// --- Mock implementations ---

type call struct {
	Op    string
	Keys  model.SessionKeys
	Repo  string
	Arg   string
	Level model.AccessLevel
}

type mockVCSClient struct {
	mu    sync.Mutex
	calls []call

	loginResp   *model.AuthResponse
	loginErr    error
	registerErr error
	snapshot    *model.RepositorySnapshot
	getRepoErr  error
	mutateErr   error

	// getRepo, when set, replaces the snapshot/getRepoErr behaviour.
	getRepo func(ctx context.Context, name string) (*model.RepositorySnapshot, error)
	// mutate, when set, runs inside every mutation before mutateErr applies.
	mutate func(ctx context.Context, op string)
}

func (m *mockVCSClient) record(c call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockVCSClient) Calls() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

func (m *mockVCSClient) CountOp(op string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (m *mockVCSClient) Register(_ context.Context, req model.RegisterRequest) error {
	m.record(call{Op: "register", Arg: req.Username})
	return m.registerErr
}

func (m *mockVCSClient) Login(_ context.Context, identifier, _ string) (*model.AuthResponse, error) {
	m.record(call{Op: "login", Arg: identifier})
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginResp, nil
}

func (m *mockVCSClient) GetRepository(ctx context.Context, keys model.SessionKeys, name, description string) (*model.RepositorySnapshot, error) {
	m.record(call{Op: "get-repository", Keys: keys, Repo: name, Arg: description})
	if m.getRepo != nil {
		return m.getRepo(ctx, name)
	}
	if m.getRepoErr != nil {
		return nil, m.getRepoErr
	}
	return m.snapshot, nil
}

func (m *mockVCSClient) runMutation(ctx context.Context, c call) error {
	m.record(c)
	if m.mutate != nil {
		m.mutate(ctx, c.Op)
	}
	return m.mutateErr
}

func (m *mockVCSClient) CreateCommit(ctx context.Context, keys model.SessionKeys, name, message string, _ []model.FileUpload, _ []string) (*model.CommitResult, error) {
	if err := m.runMutation(ctx, call{Op: "create-commit", Keys: keys, Repo: name, Arg: message}); err != nil {
		return nil, err
	}
	return &model.CommitResult{CommitID: 99, CommitHash: "cafe"}, nil
}

func (m *mockVCSClient) ListBranches(_ context.Context, keys model.SessionKeys, repoName string) ([]model.Branch, error) {
	m.record(call{Op: "list-branches", Keys: keys, Repo: repoName})
	return nil, nil
}

func (m *mockVCSClient) CreateBranch(ctx context.Context, keys model.SessionKeys, repoName, branchName string) error {
	return m.runMutation(ctx, call{Op: "create-branch", Keys: keys, Repo: repoName, Arg: branchName})
}

func (m *mockVCSClient) DeleteBranch(ctx context.Context, keys model.SessionKeys, repoName, branchName string) error {
	return m.runMutation(ctx, call{Op: "delete-branch", Keys: keys, Repo: repoName, Arg: branchName})
}

func (m *mockVCSClient) GrantAccess(ctx context.Context, keys model.SessionKeys, repoName, username string, level model.AccessLevel) error {
	return m.runMutation(ctx, call{Op: "grant-access", Keys: keys, Repo: repoName, Arg: username, Level: level})
}

func (m *mockVCSClient) RevokeAccess(ctx context.Context, keys model.SessionKeys, repoName, username string) error {
	return m.runMutation(ctx, call{Op: "revoke-access", Keys: keys, Repo: repoName, Arg: username})
}

func (m *mockVCSClient) ListAccess(_ context.Context, keys model.SessionKeys, repoName string) ([]model.RepositoryAccess, error) {
	m.record(call{Op: "list-access", Keys: keys, Repo: repoName})
	return nil, nil
}

// memKeyStore is an in-memory SessionKeyStore.
type memKeyStore struct {
	mu        sync.Mutex
	values    map[string]map[string]string
	deleteErr error
	getErr    error
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{values: make(map[string]map[string]string)}
}

func (s *memKeyStore) Set(_ context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[sessionID] == nil {
		s.values[sessionID] = make(map[string]string)
	}
	s.values[sessionID][key] = value
	return nil
}

func (s *memKeyStore) Get(_ context.Context, sessionID, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.values[sessionID][key], nil
}

func (s *memKeyStore) GetAll(_ context.Context, sessionID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	out := make(map[string]string)
	for k, v := range s.values[sessionID] {
		out[k] = v
	}
	return out, nil
}

func (s *memKeyStore) Delete(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.values[sessionID], key)
	return nil
}

var errNetwork = errors.New("network unreachable")

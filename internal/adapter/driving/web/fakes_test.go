package web

import (
	"context"
	"sync"

	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

// upstreamError mimics a server rejection carrying a message.
type upstreamError struct{ msg string }

func (e *upstreamError) Error() string         { return "server: " + e.msg }
func (e *upstreamError) ServerMessage() string { return e.msg }

type fakeVCSClient struct {
	mu    sync.Mutex
	ops   []string
	args  map[string][]string
	files []model.FileUpload
	tags  []string

	// onMutate, when set, runs inside every mutation before mutateErr applies.
	onMutate func(op string)

	snapshot  *model.RepositorySnapshot
	getErr    error
	mutateErr error
	loginErr  error
	user      *model.User
}

func (f *fakeVCSClient) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

// mutation records op with its argument and runs the onMutate hook.
func (f *fakeVCSClient) mutation(op, arg string) error {
	f.record(op)
	f.mu.Lock()
	if f.args == nil {
		f.args = make(map[string][]string)
	}
	f.args[op] = append(f.args[op], arg)
	hook := f.onMutate
	f.mu.Unlock()
	if hook != nil {
		hook(op)
	}
	return f.mutateErr
}

func (f *fakeVCSClient) setOnMutate(hook func(op string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onMutate = hook
}

// lastCommit returns the files and tags of the most recent commit upload.
func (f *fakeVCSClient) lastCommit() ([]model.FileUpload, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files, f.tags
}

func (f *fakeVCSClient) argsOf(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.args[op]...)
}

func (f *fakeVCSClient) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.ops {
		if o == op {
			n++
		}
	}
	return n
}

func (f *fakeVCSClient) Register(_ context.Context, _ model.RegisterRequest) error {
	f.record("register")
	return nil
}

func (f *fakeVCSClient) Login(_ context.Context, _, _ string) (*model.AuthResponse, error) {
	f.record("login")
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &model.AuthResponse{
		Keys: model.SessionKeys{SKey1: "k1", SKey2: "k2"},
		User: f.user,
	}, nil
}

func (f *fakeVCSClient) GetRepository(_ context.Context, _ model.SessionKeys, _, _ string) (*model.RepositorySnapshot, error) {
	f.record("get-repository")
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.snapshot == nil {
		return &model.RepositorySnapshot{}, nil
	}
	return f.snapshot, nil
}

func (f *fakeVCSClient) CreateCommit(_ context.Context, _ model.SessionKeys, _, message string, files []model.FileUpload, tags []string) (*model.CommitResult, error) {
	f.mu.Lock()
	f.files = append([]model.FileUpload(nil), files...)
	f.tags = append([]string(nil), tags...)
	f.mu.Unlock()
	if err := f.mutation("create-commit", message); err != nil {
		return nil, err
	}
	return &model.CommitResult{CommitID: 1, CommitHash: "abcdef0123"}, nil
}

func (f *fakeVCSClient) ListBranches(_ context.Context, _ model.SessionKeys, _ string) ([]model.Branch, error) {
	f.record("list-branches")
	return nil, nil
}

func (f *fakeVCSClient) CreateBranch(_ context.Context, _ model.SessionKeys, _, branchName string) error {
	return f.mutation("create-branch", branchName)
}

func (f *fakeVCSClient) DeleteBranch(_ context.Context, _ model.SessionKeys, _, branchName string) error {
	return f.mutation("delete-branch", branchName)
}

func (f *fakeVCSClient) GrantAccess(_ context.Context, _ model.SessionKeys, _, username string, level model.AccessLevel) error {
	return f.mutation("grant-access", username+":"+string(level))
}

func (f *fakeVCSClient) RevokeAccess(_ context.Context, _ model.SessionKeys, _, username string) error {
	return f.mutation("revoke-access", username)
}

func (f *fakeVCSClient) ListAccess(_ context.Context, _ model.SessionKeys, _ string) ([]model.RepositoryAccess, error) {
	f.record("list-access")
	return nil, nil
}

type memKeyStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{data: make(map[string]map[string]string)}
}

func (m *memKeyStore) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[sessionID] == nil {
		m.data[sessionID] = make(map[string]string)
	}
	m.data[sessionID][key] = value
	return nil
}

func (m *memKeyStore) Get(_ context.Context, sessionID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[sessionID][key], nil
}

func (m *memKeyStore) GetAll(_ context.Context, sessionID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data[sessionID]))
	for k, v := range m.data[sessionID] {
		out[k] = v
	}
	return out, nil
}

func (m *memKeyStore) Delete(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[sessionID], key)
	return nil
}

// sessions returns the number of browser sessions holding keys.
func (m *memKeyStore) sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, keys := range m.data {
		if len(keys) > 0 {
			n++
		}
	}
	return n
}

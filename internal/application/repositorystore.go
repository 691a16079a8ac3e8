package application

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

// Sentinel errors returned by RepositoryStore.
var (
	// ErrNoRepositorySelected is returned by repository-scoped actions when
	// no repository has been loaded.
	ErrNoRepositorySelected = errors.New("no repository selected")

	// ErrDuplicateRequest is returned when the same mutation on the same
	// repository and resource is already in flight.
	ErrDuplicateRequest = errors.New("duplicate request already in flight")
)

// User-facing error messages recorded in RepositoryState.Error.
const (
	msgLoadFailed         = "Failed to load repository"
	msgCreateCommitFailed = "Failed to create commit"
	msgCreateBranchFailed = "Failed to create branch"
	msgDeleteBranchFailed = "Failed to delete branch"
	msgGrantAccessFailed  = "Failed to grant access"
	msgRevokeAccessFailed = "Failed to revoke access"
)

// RepositoryState is a point-in-time copy of the store for rendering.
type RepositoryState struct {
	CurrentRepository string
	Branches          []model.Branch
	Commits           []model.Commit
	Content           map[string]string
	Access            []model.RepositoryAccess
	Loading           bool
	Error             string
}

// RepositoryStore holds the snapshot of the repository the session is
// viewing. Mutations never patch the snapshot; each successful mutation
// reloads it from the server.
type RepositoryStore struct {
	api    *API
	logger *slog.Logger

	loads singleflight.Group

	mu         sync.Mutex
	state      RepositoryState
	inFlight   int
	pending    map[string]struct{}
	generation uint64
	loadSeq    uint64
	appliedSeq uint64
}

// NewRepositoryStore creates an empty RepositoryStore.
func NewRepositoryStore(api *API, logger *slog.Logger) *RepositoryStore {
	return &RepositoryStore{
		api:     api,
		logger:  logger,
		state:   emptyRepositoryState(),
		pending: make(map[string]struct{}),
	}
}

func emptyRepositoryState() RepositoryState {
	return RepositoryState{
		Branches: []model.Branch{},
		Commits:  []model.Commit{},
		Content:  map[string]string{},
		Access:   []model.RepositoryAccess{},
	}
}

// State returns a deep copy of the current state.
func (s *RepositoryStore) State() RepositoryState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Branches = slices.Clone(s.state.Branches)
	st.Commits = make([]model.Commit, len(s.state.Commits))
	for i, c := range s.state.Commits {
		c.Tags = slices.Clone(c.Tags)
		c.Changes = slices.Clone(c.Changes)
		st.Commits[i] = c
	}
	st.Content = maps.Clone(s.state.Content)
	st.Access = slices.Clone(s.state.Access)
	st.Loading = s.inFlight > 0
	return st
}

// CurrentRepository returns the loaded repository name, or "" when none is.
func (s *RepositoryStore) CurrentRepository() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentRepository
}

// Loading reports whether at least one action is in flight.
func (s *RepositoryStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Error returns the message of the last failed action, or "".
func (s *RepositoryStore) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Error
}

// HasWriteAccess reports whether any grant on the repository is a write
// grant, regardless of whom it belongs to.
func (s *RepositoryStore) HasWriteAccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.state.Access, func(a model.RepositoryAccess) bool {
		return a.AccessLevel == model.AccessWrite
	})
}

// HasWriteAccessFor reports whether userID holds a write grant.
func (s *RepositoryStore) HasWriteAccessFor(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.state.Access, func(a model.RepositoryAccess) bool {
		return a.UserID == userID && a.AccessLevel == model.AccessWrite
	})
}

// ClearRepository resets the snapshot, the current repository and the error.
// Loads still in flight for the previous repository are discarded when they
// complete.
func (s *RepositoryStore) ClearRepository() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = emptyRepositoryState()
	s.generation++
}

// LoadRepository fetches the snapshot of name and replaces all four
// collections from that single response.
func (s *RepositoryStore) LoadRepository(ctx context.Context, name string) error {
	return s.OpenRepository(ctx, name, "")
}

// OpenRepository is LoadRepository with a description, which servers that
// create repositories on first fetch record on the new repository.
//
// Concurrent loads of the same repository share one round-trip. The shared
// request runs detached from any single caller's cancellation; each caller
// stops waiting when its own context is done.
func (s *RepositoryStore) OpenRepository(ctx context.Context, name, description string) error {
	gen := s.begin()
	defer s.end()

	detached := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(name+"\x00"+description, func() (any, error) {
		res, err := s.fetch(detached, name, description)
		return res, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		s.fail(msgLoadFailed, "load repository", name, ctx.Err())
		return ctx.Err()
	}
	if res.Err != nil {
		s.fail(msgLoadFailed, "load repository", name, res.Err)
		return res.Err
	}
	s.apply(gen, name, res.Val.(loadResult), res.Shared)
	return nil
}

// loadResult is a fetched snapshot tagged with the order its request started.
type loadResult struct {
	snap *model.RepositorySnapshot
	seq  uint64
}

func (s *RepositoryStore) fetch(ctx context.Context, name, description string) (loadResult, error) {
	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.mu.Unlock()

	snap, err := s.api.GetRepository(ctx, name, description)
	if err != nil {
		return loadResult{}, err
	}
	return loadResult{snap: snap, seq: seq}, nil
}

// apply installs a fetched snapshot unless the repository was cleared since
// gen, or a snapshot requested later has already been applied.
func (s *RepositoryStore) apply(gen uint64, name string, res loadResult, shared bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Debug("discarding stale repository load", "repo", name)
		return
	}
	if res.seq < s.appliedSeq {
		s.logger.Debug("discarding superseded repository load", "repo", name)
		return
	}
	snap := res.snap
	s.appliedSeq = res.seq
	s.state.CurrentRepository = name
	s.state.Branches = nonNilSlice(snap.Branches)
	s.state.Commits = nonNilSlice(snap.Commits)
	s.state.Content = maps.Clone(snap.Content)
	if s.state.Content == nil {
		s.state.Content = map[string]string{}
	}
	s.state.Access = nonNilSlice(snap.Access)
	s.logger.Debug("repository loaded", "repo", name, "shared", shared,
		"branches", len(snap.Branches), "commits", len(snap.Commits))
}

// CreateCommit uploads files as a commit on the current repository.
func (s *RepositoryStore) CreateCommit(ctx context.Context, message string, files []model.FileUpload, tags []string) (*model.CommitResult, error) {
	var result *model.CommitResult
	err := s.mutate(ctx, "create-commit", "", msgCreateCommitFailed, func(ctx context.Context, repo string) error {
		var err error
		result, err = s.api.CreateCommit(ctx, repo, message, files, tags)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateBranch creates a branch on the current repository.
func (s *RepositoryStore) CreateBranch(ctx context.Context, branchName string) error {
	return s.mutate(ctx, "create-branch", branchName, msgCreateBranchFailed, func(ctx context.Context, repo string) error {
		return s.api.CreateBranch(ctx, repo, branchName)
	})
}

// DeleteBranch deletes a branch of the current repository.
func (s *RepositoryStore) DeleteBranch(ctx context.Context, branchName string) error {
	return s.mutate(ctx, "delete-branch", branchName, msgDeleteBranchFailed, func(ctx context.Context, repo string) error {
		return s.api.DeleteBranch(ctx, repo, branchName)
	})
}

// GrantAccess grants username access to the current repository.
func (s *RepositoryStore) GrantAccess(ctx context.Context, username string, level model.AccessLevel) error {
	return s.mutate(ctx, "grant-access", username, msgGrantAccessFailed, func(ctx context.Context, repo string) error {
		return s.api.GrantAccess(ctx, repo, username, level)
	})
}

// RevokeAccess removes username's grant on the current repository.
func (s *RepositoryStore) RevokeAccess(ctx context.Context, username string) error {
	return s.mutate(ctx, "revoke-access", username, msgRevokeAccessFailed, func(ctx context.Context, repo string) error {
		return s.api.RevokeAccess(ctx, repo, username)
	})
}

// mutate runs call against the current repository, then reloads it. A
// missing repository or a duplicate in-flight request fails before any
// network call and leaves loading untouched.
func (s *RepositoryStore) mutate(ctx context.Context, op, resource, failMsg string, call func(ctx context.Context, repo string) error) error {
	s.mu.Lock()
	repo := s.state.CurrentRepository
	if repo == "" {
		s.mu.Unlock()
		return ErrNoRepositorySelected
	}
	key := op + "\x00" + repo + "\x00" + resource
	if _, dup := s.pending[key]; dup {
		s.mu.Unlock()
		s.logger.Warn("rejected duplicate request", "op", op, "repo", repo, "resource", resource)
		return ErrDuplicateRequest
	}
	s.pending[key] = struct{}{}
	s.inFlight++
	s.state.Error = ""
	gen := s.generation
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
		s.end()
	}()

	if err := call(ctx, repo); err != nil {
		s.fail(failMsg, op, repo, err)
		return err
	}
	// The refresh is a request of its own: a load already in flight may have
	// been answered before the mutation reached the server.
	res, err := s.fetch(ctx, repo, "")
	if err != nil {
		s.fail(failMsg, op, repo, err)
		return err
	}
	s.apply(gen, repo, res, false)
	return nil
}

// begin marks an action in flight, clears the error and returns the current
// generation.
func (s *RepositoryStore) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	s.state.Error = ""
	return s.generation
}

func (s *RepositoryStore) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
}

func (s *RepositoryStore) fail(msg, op, repo string, err error) {
	s.logger.Error(msg, "op", op, "repo", repo, "error", err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = msg
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

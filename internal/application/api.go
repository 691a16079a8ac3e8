// Package application holds the per-browser-session state and the use cases
// that drive the VCS server on the user's behalf.
package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
	"github.com/ericfisherdev/uvcsweb/internal/domain/port/driven"
)

// API binds the VCS client to one browser session's stored credentials. It
// reads both session keys right before every authenticated request and
// writes them only on Login and Logout.
type API struct {
	client    driven.VCSClient
	store     driven.SessionKeyStore
	sessionID string
}

// NewAPI creates an API for the browser session identified by sessionID.
func NewAPI(client driven.VCSClient, store driven.SessionKeyStore, sessionID string) *API {
	return &API{client: client, store: store, sessionID: sessionID}
}

// Keys returns the stored session keys. Missing values are returned empty.
func (a *API) Keys(ctx context.Context) (model.SessionKeys, error) {
	values, err := a.store.GetAll(ctx, a.sessionID)
	if err != nil {
		return model.SessionKeys{}, fmt.Errorf("read session keys: %w", err)
	}
	return model.SessionKeys{
		SKey1: values[model.KeySKey1],
		SKey2: values[model.KeySKey2],
	}, nil
}

// IsAuthenticated reports whether both keys are stored. It does not check
// that the server still accepts them.
func (a *API) IsAuthenticated(ctx context.Context) (bool, error) {
	keys, err := a.Keys(ctx)
	if err != nil {
		return false, err
	}
	return keys.Complete(), nil
}

// Register creates an account. It never touches the stored keys.
func (a *API) Register(ctx context.Context, req model.RegisterRequest) error {
	return a.client.Register(ctx, req)
}

// Login signs in and stores the returned keys, overwriting any prior ones.
func (a *API) Login(ctx context.Context, identifier, password string) (*model.AuthResponse, error) {
	resp, err := a.client.Login(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	if err := a.store.Set(ctx, a.sessionID, model.KeySKey1, resp.Keys.SKey1); err != nil {
		return nil, fmt.Errorf("store %s: %w", model.KeySKey1, err)
	}
	if err := a.store.Set(ctx, a.sessionID, model.KeySKey2, resp.Keys.SKey2); err != nil {
		return nil, fmt.Errorf("store %s: %w", model.KeySKey2, err)
	}
	return resp, nil
}

// Logout deletes both stored keys. The server is not notified.
func (a *API) Logout(ctx context.Context) error {
	return errors.Join(
		a.store.Delete(ctx, a.sessionID, model.KeySKey1),
		a.store.Delete(ctx, a.sessionID, model.KeySKey2),
	)
}

// GetRepository fetches the snapshot of the named repository, creating it on
// servers that treat the call as get-or-create.
func (a *API) GetRepository(ctx context.Context, name, description string) (*model.RepositorySnapshot, error) {
	keys, err := a.Keys(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.GetRepository(ctx, keys, name, description)
}

// CreateCommit uploads files as a new commit.
func (a *API) CreateCommit(ctx context.Context, name, message string, files []model.FileUpload, tags []string) (*model.CommitResult, error) {
	keys, err := a.Keys(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.CreateCommit(ctx, keys, name, message, files, tags)
}

// ListBranches lists the branches of a repository.
func (a *API) ListBranches(ctx context.Context, repoName string) ([]model.Branch, error) {
	keys, err := a.Keys(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.ListBranches(ctx, keys, repoName)
}

// CreateBranch creates a branch.
func (a *API) CreateBranch(ctx context.Context, repoName, branchName string) error {
	keys, err := a.Keys(ctx)
	if err != nil {
		return err
	}
	return a.client.CreateBranch(ctx, keys, repoName, branchName)
}

// DeleteBranch deletes a branch.
func (a *API) DeleteBranch(ctx context.Context, repoName, branchName string) error {
	keys, err := a.Keys(ctx)
	if err != nil {
		return err
	}
	return a.client.DeleteBranch(ctx, keys, repoName, branchName)
}

// GrantAccess grants a user access to a repository.
func (a *API) GrantAccess(ctx context.Context, repoName, username string, level model.AccessLevel) error {
	keys, err := a.Keys(ctx)
	if err != nil {
		return err
	}
	return a.client.GrantAccess(ctx, keys, repoName, username, level)
}

// RevokeAccess removes a user's grant on a repository.
func (a *API) RevokeAccess(ctx context.Context, repoName, username string) error {
	keys, err := a.Keys(ctx)
	if err != nil {
		return err
	}
	return a.client.RevokeAccess(ctx, keys, repoName, username)
}

// ListAccess lists the grants of a repository.
func (a *API) ListAccess(ctx context.Context, repoName string) ([]model.RepositoryAccess, error) {
	keys, err := a.Keys(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.ListAccess(ctx, keys, repoName)
}

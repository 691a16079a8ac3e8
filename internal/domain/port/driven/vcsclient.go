package driven

import (
	"context"

	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

// VCSClient defines the driven port for the VCS hosting API. Authenticated
// methods take the caller's session keys explicitly; incomplete keys send the
// request unauthenticated and leave rejection to the server.
type VCSClient interface {
	// Account methods

	Register(ctx context.Context, req model.RegisterRequest) error
	Login(ctx context.Context, identifier, password string) (*model.AuthResponse, error)

	// Repository methods

	// GetRepository fetches the full snapshot of the named repository. The
	// server creates the repository when it does not exist yet; description is
	// only used in that case and may be empty.
	GetRepository(ctx context.Context, keys model.SessionKeys, name, description string) (*model.RepositorySnapshot, error)
	CreateCommit(ctx context.Context, keys model.SessionKeys, name, message string, files []model.FileUpload, tags []string) (*model.CommitResult, error)

	// Branch methods

	ListBranches(ctx context.Context, keys model.SessionKeys, repoName string) ([]model.Branch, error)
	CreateBranch(ctx context.Context, keys model.SessionKeys, repoName, branchName string) error
	DeleteBranch(ctx context.Context, keys model.SessionKeys, repoName, branchName string) error

	// Access control methods

	GrantAccess(ctx context.Context, keys model.SessionKeys, repoName, username string, level model.AccessLevel) error
	RevokeAccess(ctx context.Context, keys model.SessionKeys, repoName, username string) error
	ListAccess(ctx context.Context, keys model.SessionKeys, repoName string) ([]model.RepositoryAccess, error)
}

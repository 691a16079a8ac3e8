package model

import "time"

// Commit is an immutable change set recorded in a repository.
type Commit struct {
	ID           int64
	Hash         string
	Message      string
	RepositoryID int64
	UserID       int64
	DateTime     time.Time
	Tags         []string
	Author       string
	Changes      []CommitDetail
}

// ShortHash returns the first seven characters of the commit hash.
func (c Commit) ShortHash() string {
	const shortHashLength = 7
	if len(c.Hash) > shortHashLength {
		return c.Hash[:shortHashLength]
	}
	return c.Hash
}

// CommitDetail describes one changed file in a commit. When IsDiff is set,
// ContentChange holds patch text against the previous version of the file
// rather than its full content.
type CommitDetail struct {
	ID            int64
	CommitID      int64
	FilePath      string
	ChangeType    ChangeType
	ContentChange string
	IsBinary      bool
	IsDiff        bool
}

// CommitResult is returned by the server after a commit is created.
type CommitResult struct {
	CommitID   int64
	CommitHash string
}

// FileUpload is a file submitted as part of a new commit. Path is the
// repository-relative path the server records it under.
type FileUpload struct {
	Path    string
	Content []byte
}

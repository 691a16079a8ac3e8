package model

import "time"

// Branch is a mutable pointer to a commit within a repository.
type Branch struct {
	ID           int64
	Name         string
	RepositoryID int64
	HeadCommitID int64

	// Populated only by servers that return the extended branch listing.
	Description string
	CreatedAt   time.Time
	CommitIDs   []int64
	IsActive    bool
}

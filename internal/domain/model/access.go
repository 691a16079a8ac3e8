package model

import "time"

// RepositoryAccess is a (repository, user) grant. A repository has at most one
// grant per user.
type RepositoryAccess struct {
	RepositoryID int64
	UserID       int64
	Username     string
	AccessLevel  AccessLevel
	GrantedBy    int64
	GrantedAt    time.Time
}

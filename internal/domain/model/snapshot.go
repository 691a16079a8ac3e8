package model

// RepositorySnapshot is the combined payload returned by the repository fetch
// endpoint. It is the only source of truth after every mutation.
type RepositorySnapshot struct {
	Branches []Branch
	Commits  []Commit
	Content  map[string]string // file path -> current content
	Access   []RepositoryAccess
}

// AuthResponse is the result of a successful login. User is nil when the
// server does not return a profile alongside the session keys.
type AuthResponse struct {
	Keys SessionKeys
	User *User
}

// APIError is the error envelope returned by the VCS server.
type APIError struct {
	Error string `json:"error"`
}

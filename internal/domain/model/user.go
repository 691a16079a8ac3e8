package model

import "strings"

// User is an identity record on the VCS server. FirstName and LastName are
// optional and may be empty.
type User struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// DisplayName returns the full name when known, falling back to the username
// and then the email address.
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	switch {
	case full != "":
		return full
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// RegisterRequest holds the fields submitted when creating an account.
type RegisterRequest struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

package model

// ChangeType is the kind of change recorded for a file in a commit.
type ChangeType string

const (
	ChangeAdded    ChangeType = "A"
	ChangeModified ChangeType = "M"
	ChangeDeleted  ChangeType = "D"
)

// Label returns the human-readable name of the change type.
func (c ChangeType) Label() string {
	switch c {
	case ChangeAdded:
		return "Added"
	case ChangeModified:
		return "Modified"
	case ChangeDeleted:
		return "Deleted"
	default:
		return string(c)
	}
}

// AccessLevel is the permission granted to a user on a repository.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

// Valid reports whether the level is one of the two levels the server accepts.
func (a AccessLevel) Valid() bool {
	return a == AccessRead || a == AccessWrite
}

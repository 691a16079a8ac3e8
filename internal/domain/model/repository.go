package model

import "time"

// Repository is the top-level container hosted by the VCS server.
type Repository struct {
	ID          int64
	Name        string
	Description string
	OwnerID     int64
	CreatedAt   time.Time
}

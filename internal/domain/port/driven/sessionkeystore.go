package driven

import "context"

// SessionKeyStore defines the driven port for persisting the session
// credential values of each browser session. It plays the role of the
// browser's local storage: values survive page reloads and process restarts
// until they are explicitly deleted.
type SessionKeyStore interface {
	// Set stores or replaces the value of key for the given browser session.
	Set(ctx context.Context, sessionID, key, value string) error

	// Get returns the value of key for the given browser session.
	// Returns ("", nil) if the key is not stored.
	Get(ctx context.Context, sessionID, key string) (string, error)

	// GetAll returns every stored key of the browser session. Returns an empty
	// map when nothing is stored.
	GetAll(ctx context.Context, sessionID string) (map[string]string, error)

	// Delete removes key for the given browser session. Deleting a key that is
	// not stored is not an error.
	Delete(ctx context.Context, sessionID, key string) error
}

package model

// Storage key names under which the two session credential values are kept.
const (
	KeySKey1 = "skey1"
	KeySKey2 = "skey2"
)

// SessionKeys holds the two opaque credential values issued at login. Their
// structure and expiry are owned by the server.
type SessionKeys struct {
	SKey1 string
	SKey2 string
}

// Complete reports whether both values are present. Requests are only
// authenticated when the keys are complete.
func (k SessionKeys) Complete() bool {
	return k.SKey1 != "" && k.SKey2 != ""
}

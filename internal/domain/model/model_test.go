package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionKeys_Complete(t *testing.T) {
	assert.True(t, SessionKeys{SKey1: "a", SKey2: "b"}.Complete())
	assert.False(t, SessionKeys{SKey1: "a"}.Complete())
	assert.False(t, SessionKeys{SKey2: "b"}.Complete())
	assert.False(t, SessionKeys{}.Complete())
}

func TestAccessLevel_Valid(t *testing.T) {
	assert.True(t, AccessRead.Valid())
	assert.True(t, AccessWrite.Valid())
	assert.False(t, AccessLevel("admin").Valid())
	assert.False(t, AccessLevel("").Valid())
}

func TestChangeType_Label(t *testing.T) {
	assert.Equal(t, "Added", ChangeAdded.Label())
	assert.Equal(t, "Modified", ChangeModified.Label())
	assert.Equal(t, "Deleted", ChangeDeleted.Label())
	assert.Equal(t, "X", ChangeType("X").Label())
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}.DisplayName())
	assert.Equal(t, "ada", User{Username: "ada", Email: "ada@example.com"}.DisplayName())
	assert.Equal(t, "ada@example.com", User{Email: "ada@example.com"}.DisplayName())
}

func TestCommit_ShortHash(t *testing.T) {
	assert.Equal(t, "abc1234", Commit{Hash: "abc1234def"}.ShortHash())
	assert.Equal(t, "abc", Commit{Hash: "abc"}.ShortHash())
}

package application_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/uvcsweb/internal/application"
	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

func newAuthStore(t *testing.T, client *mockVCSClient, store *memKeyStore) *application.AuthStore {
	t.Helper()
	auth, err := application.NewAuthStore(context.Background(), application.NewAPI(client, store, "sess"), slog.Default())
	require.NoError(t, err)
	return auth
}

func TestAuthStore_InitialisedFromStoredKeys(t *testing.T) {
	store := newMemKeyStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "sess", model.KeySKey1, "a"))
	require.NoError(t, store.Set(ctx, "sess", model.KeySKey2, "b"))

	auth := newAuthStore(t, &mockVCSClient{}, store)
	assert.True(t, auth.IsAuthenticated())
	assert.Nil(t, auth.User())
}

func TestAuthStore_LoginSetsFlagAndProfile(t *testing.T) {
	client := &mockVCSClient{loginResp: &model.AuthResponse{
		Keys: model.SessionKeys{SKey1: "a", SKey2: "b"},
		User: &model.User{FirstName: "Ada", Email: "ada@example.com"},
	}}
	auth := newAuthStore(t, client, newMemKeyStore())

	require.NoError(t, auth.Login(context.Background(), "ada@example.com", "pw"))
	assert.True(t, auth.IsAuthenticated())
	require.NotNil(t, auth.User())
	assert.Equal(t, "Ada", auth.User().FirstName)
}

func TestAuthStore_LoginWithoutProfileLeavesUserNil(t *testing.T) {
	client := &mockVCSClient{loginResp: &model.AuthResponse{Keys: model.SessionKeys{SKey1: "a", SKey2: "b"}}}
	auth := newAuthStore(t, client, newMemKeyStore())

	require.NoError(t, auth.Login(context.Background(), "ada", "pw"))
	assert.True(t, auth.IsAuthenticated())
	assert.Nil(t, auth.User())
}

func TestAuthStore_LoginFailureLeavesStateAndPropagates(t *testing.T) {
	auth := newAuthStore(t, &mockVCSClient{loginErr: errNetwork}, newMemKeyStore())

	err := auth.Login(context.Background(), "ada", "pw")
	assert.ErrorIs(t, err, errNetwork)
	assert.False(t, auth.IsAuthenticated())
}

func TestAuthStore_RegisterFailureLeavesStateAndPropagates(t *testing.T) {
	auth := newAuthStore(t, &mockVCSClient{registerErr: errNetwork}, newMemKeyStore())

	err := auth.Register(context.Background(), model.RegisterRequest{Username: "ada"})
	assert.ErrorIs(t, err, errNetwork)
	assert.False(t, auth.IsAuthenticated())
}

func TestAuthStore_RegisterDoesNotSignIn(t *testing.T) {
	client := &mockVCSClient{}
	auth := newAuthStore(t, client, newMemKeyStore())

	require.NoError(t, auth.Register(context.Background(), model.RegisterRequest{Username: "ada"}))
	assert.False(t, auth.IsAuthenticated())
	assert.Equal(t, 1, client.CountOp("register"))
}

func TestAuthStore_LogoutClearsEvenWhenDeleteFails(t *testing.T) {
	client := &mockVCSClient{loginResp: &model.AuthResponse{
		Keys: model.SessionKeys{SKey1: "a", SKey2: "b"},
		User: &model.User{Username: "ada"},
	}}
	store := newMemKeyStore()
	auth := newAuthStore(t, client, store)
	require.NoError(t, auth.Login(context.Background(), "ada", "pw"))

	store.deleteErr = errors.New("read-only")
	err := auth.Logout(context.Background())
	assert.Error(t, err)
	assert.False(t, auth.IsAuthenticated())
	assert.Nil(t, auth.User())
}

func TestAuthStore_LogoutRemovesKeys(t *testing.T) {
	client := &mockVCSClient{loginResp: &model.AuthResponse{Keys: model.SessionKeys{SKey1: "a", SKey2: "b"}}}
	store := newMemKeyStore()
	auth := newAuthStore(t, client, store)
	ctx := context.Background()

	require.NoError(t, auth.Login(ctx, "ada", "pw"))
	v1, _ := store.Get(ctx, "sess", model.KeySKey1)
	v2, _ := store.Get(ctx, "sess", model.KeySKey2)
	assert.Equal(t, "a", v1)
	assert.Equal(t, "b", v2)

	require.NoError(t, auth.Logout(ctx))
	v1, _ = store.Get(ctx, "sess", model.KeySKey1)
	v2, _ = store.Get(ctx, "sess", model.KeySKey2)
	assert.Empty(t, v1)
	assert.Empty(t, v2)
}

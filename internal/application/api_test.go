package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/uvcsweb/internal/application"
	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

func TestAPI_IsAuthenticatedRequiresBothKeys(t *testing.T) {
	store := newMemKeyStore()
	api := application.NewAPI(&mockVCSClient{}, store, "sess")
	ctx := context.Background()

	ok, err := api.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "sess", model.KeySKey1, "a"))
	ok, _ = api.IsAuthenticated(ctx)
	assert.False(t, ok, "one key is not enough")

	require.NoError(t, store.Set(ctx, "sess", model.KeySKey2, "b"))
	ok, _ = api.IsAuthenticated(ctx)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "sess", model.KeySKey1))
	ok, _ = api.IsAuthenticated(ctx)
	assert.False(t, ok, "removing either key flips the flag")
}

func TestAPI_LoginStoresKeysOverwritingPrior(t *testing.T) {
	store := newMemKeyStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "sess", model.KeySKey1, "old-1"))
	require.NoError(t, store.Set(ctx, "sess", model.KeySKey2, "old-2"))

	client := &mockVCSClient{loginResp: &model.AuthResponse{Keys: model.SessionKeys{SKey1: "new-1", SKey2: "new-2"}}}
	api := application.NewAPI(client, store, "sess")

	_, err := api.Login(ctx, "ada", "pw")
	require.NoError(t, err)

	keys, err := api.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SessionKeys{SKey1: "new-1", SKey2: "new-2"}, keys)
}

func TestAPI_LoginFailureLeavesKeys(t *testing.T) {
	store := newMemKeyStore()
	client := &mockVCSClient{loginErr: errNetwork}
	api := application.NewAPI(client, store, "sess")

	_, err := api.Login(context.Background(), "ada", "pw")
	require.ErrorIs(t, err, errNetwork)

	keys, err := api.Keys(context.Background())
	require.NoError(t, err)
	assert.False(t, keys.Complete())
}

func TestAPI_LogoutDeletesBothKeysWithoutNetwork(t *testing.T) {
	store := newMemKeyStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "sess", model.KeySKey1, "a"))
	require.NoError(t, store.Set(ctx, "sess", model.KeySKey2, "b"))

	client := &mockVCSClient{}
	api := application.NewAPI(client, store, "sess")

	require.NoError(t, api.Logout(ctx))

	all, err := store.GetAll(ctx, "sess")
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, client.Calls())
}

func TestAPI_AttachesStoredKeys(t *testing.T) {
	store := newMemKeyStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "sess", model.KeySKey1, "a"))
	require.NoError(t, store.Set(ctx, "sess", model.KeySKey2, "b"))

	client := &mockVCSClient{}
	api := application.NewAPI(client, store, "sess")

	require.NoError(t, api.CreateBranch(ctx, "demo", "feature"))
	_, err := api.ListAccess(ctx, "demo")
	require.NoError(t, err)

	for _, c := range client.Calls() {
		assert.Equal(t, model.SessionKeys{SKey1: "a", SKey2: "b"}, c.Keys, c.Op)
	}
}

func TestAPI_KeysFromOtherSessionsNotUsed(t *testing.T) {
	store := newMemKeyStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "other", model.KeySKey1, "a"))
	require.NoError(t, store.Set(ctx, "other", model.KeySKey2, "b"))

	client := &mockVCSClient{}
	api := application.NewAPI(client, store, "sess")

	_, err := api.ListBranches(ctx, "demo")
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Keys.Complete())
}

func TestAPI_KeyStoreFailureStopsRequest(t *testing.T) {
	store := newMemKeyStore()
	store.getErr = errors.New("disk gone")
	client := &mockVCSClient{}
	api := application.NewAPI(client, store, "sess")

	err := api.DeleteBranch(context.Background(), "demo", "x")
	require.Error(t, err)
	assert.Empty(t, client.Calls())
}

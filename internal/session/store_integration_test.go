package session

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhmdrezaafshar11/public-site/internal/api"
	"github.com/mhmdrezaafshar11/public-site/internal/devserver"
	"github.com/mhmdrezaafshar11/public-site/internal/domain"
	"github.com/mhmdrezaafshar11/public-site/internal/storage"
)

// End-to-end over the wire: session store -> HTTP client -> dev auth server.
func setupIntegration(t *testing.T) (*Store, storage.Storage) {
	dev := devserver.NewServer([]byte("test-secret"), testLogger())
	dev.SeedUser(domain.User{Name: "Alice", Email: "alice@example.com"}, "secret1")

	srv := httptest.NewServer(dev.Router())
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, 2*time.Second)
	store := storage.NewMemoryStorage()
	return NewStore(client, store, nil, testLogger()), store
}

func TestIntegration_LoginThenCheckAuth(t *testing.T) {
	sut, _ := setupIntegration(t)
	ctx := context.Background()

	result := sut.Login(ctx, "alice@example.com", "secret1")
	require.True(t, result.Success, "login failed: %s", result.Message)

	state := sut.Snapshot()
	require.True(t, state.IsAuthenticated)
	token := state.Token
	require.NotEmpty(t, token)

	// CheckAuth must accept the freshly issued token.
	sut.CheckAuth(ctx)
	state = sut.Snapshot()
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "alice@example.com", state.User.Email)
}

func TestIntegration_WrongPasswordSurfacesServerMessage(t *testing.T) {
	sut, _ := setupIntegration(t)

	result := sut.Login(context.Background(), "alice@example.com", "nope")

	assert.False(t, result.Success)
	assert.Equal(t, "invalid email or password", result.Message)
	assert.False(t, sut.Snapshot().IsAuthenticated)
}

func TestIntegration_RestoredSessionSurvivesRestart(t *testing.T) {
	first, store := setupIntegration(t)
	ctx := context.Background()

	require.True(t, first.Login(ctx, "alice@example.com", "secret1").Success)

	require.Eventually(t, func() bool {
		_, err := store.Load(ctx, snapshotName)
		return err == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "session snapshot was not persisted")

	// A second process restores from the same storage but talks to a dead
	// endpoint; restore alone must bring the session back.
	client := api.NewClient("http://127.0.0.1:0", time.Second)
	second := NewStore(client, store, nil, testLogger())
	require.NoError(t, second.Restore(ctx))

	state := second.Snapshot()
	assert.True(t, state.IsAuthenticated)
	assert.NotEmpty(t, state.Token)
}

func TestIntegration_StaleTokenSelfHeals(t *testing.T) {
	dev := devserver.NewServer([]byte("test-secret"), testLogger())
	srv := httptest.NewServer(dev.Router())
	t.Cleanup(srv.Close)

	store := storage.NewMemoryStorage()
	seedSnapshot(t, store, snapshot{Token: "issued-by-old-secret", User: testUser(), IsAuthenticated: true})

	client := api.NewClient(srv.URL, 2*time.Second)
	sut := NewStore(client, store, nil, testLogger())
	ctx := context.Background()
	require.NoError(t, sut.Restore(ctx))

	sut.CheckAuth(ctx)

	state := sut.Snapshot()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Token)
}

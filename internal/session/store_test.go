package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhmdrezaafshar11/public-site/internal/api"
	"github.com/mhmdrezaafshar11/public-site/internal/domain"
	"github.com/mhmdrezaafshar11/public-site/internal/storage"
)

type mockAuthAPI struct {
	mu    sync.Mutex
	token string

	user       *domain.User
	loginToken string
	err        error

	meCalls int
}

func (m *mockAuthAPI) Login(context.Context, string, string) (*domain.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, "", m.err
	}
	return m.user, m.loginToken, nil
}

func (m *mockAuthAPI) Register(context.Context, domain.RegisterData) (*domain.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, "", m.err
	}
	return m.user, m.loginToken, nil
}

func (m *mockAuthAPI) Me(context.Context) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockAuthAPI) UpdateProfile(context.Context, domain.ProfileUpdate) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockAuthAPI) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

func (m *mockAuthAPI) ClearToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
}

func (m *mockAuthAPI) currentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

type fakeNavigator struct {
	path       string
	redirected string
}

func (n *fakeNavigator) Path() string        { return n.path }
func (n *fakeNavigator) Redirect(url string) { n.redirected = url }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUser() *domain.User {
	return &domain.User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: domain.RoleCustomer}
}

func TestLogin_Success(t *testing.T) {
	mockA := &mockAuthAPI{user: testUser(), loginToken: "tok-123"}
	store := storage.NewMemoryStorage()
	sut := NewStore(mockA, store, nil, testLogger())

	result := sut.Login(context.Background(), "alice@example.com", "secret")

	require.True(t, result.Success)
	state := sut.Snapshot()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	assert.Equal(t, "tok-123", state.Token)
	require.NotNil(t, state.User)
	assert.Equal(t, "u1", state.User.ID)
	assert.Equal(t, "tok-123", mockA.currentToken())

	require.Eventually(t, func() bool {
		_, err := store.Load(context.Background(), snapshotName)
		return err == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "session snapshot was not persisted")
}

func TestLogin_FailureUsesAPIMessage(t *testing.T) {
	mockA := &mockAuthAPI{err: &api.APIError{StatusCode: 401, Message: "invalid email or password"}}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())

	result := sut.Login(context.Background(), "alice@example.com", "wrong")

	assert.False(t, result.Success)
	assert.Equal(t, "invalid email or password", result.Message)

	state := sut.Snapshot()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Token)
}

func TestLogin_NetworkFailureUsesDefaultMessage(t *testing.T) {
	mockA := &mockAuthAPI{err: errors.New("connection refused")}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())

	result := sut.Login(context.Background(), "alice@example.com", "secret")

	assert.False(t, result.Success)
	assert.Equal(t, "login error", result.Message)
}

func TestLogin_LoadingVisibleWhileInFlight(t *testing.T) {
	mockA := &mockAuthAPI{user: testUser(), loginToken: "tok-123"}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())

	var loadingSeen []bool
	sut.Subscribe(func(s domain.Session) {
		loadingSeen = append(loadingSeen, s.Loading)
	})

	sut.Login(context.Background(), "alice@example.com", "secret")

	require.NotEmpty(t, loadingSeen)
	assert.True(t, loadingSeen[0], "first notification should carry loading=true")
	assert.False(t, loadingSeen[len(loadingSeen)-1], "loading must be cleared when the command settles")
}

func TestRegister_Success(t *testing.T) {
	mockA := &mockAuthAPI{user: testUser(), loginToken: "tok-456"}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())

	result := sut.Register(context.Background(), domain.RegisterData{
		Name: "Alice", Email: "alice@example.com", Password: "secret",
	})

	require.True(t, result.Success)
	state := sut.Snapshot()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, "tok-456", state.Token)
	assert.Equal(t, "tok-456", mockA.currentToken())
}

func TestRegister_FailureUsesDefaultMessage(t *testing.T) {
	mockA := &mockAuthAPI{err: errors.New("connection refused")}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())

	result := sut.Register(context.Background(), domain.RegisterData{
		Name: "Alice", Email: "alice@example.com", Password: "secret",
	})

	assert.False(t, result.Success)
	assert.Equal(t, "registration error", result.Message)
	assert.False(t, sut.Snapshot().Loading)
}

func TestLogout_ClearsStateAndHeader(t *testing.T) {
	mockA := &mockAuthAPI{user: testUser(), loginToken: "tok-123"}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())
	sut.Login(context.Background(), "alice@example.com", "secret")

	sut.Logout()

	state := sut.Snapshot()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Token)
	assert.Empty(t, mockA.currentToken())
}

func TestLogout_RedirectsFromProtectedPath(t *testing.T) {
	nav := &fakeNavigator{path: "/profile/orders"}
	mockA := &mockAuthAPI{user: testUser(), loginToken: "tok-123"}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nav, testLogger())
	sut.Login(context.Background(), "alice@example.com", "secret")

	sut.Logout()

	assert.Equal(t, "/auth/login", nav.redirected)
}

func TestLogout_NoRedirectFromPublicPath(t *testing.T) {
	nav := &fakeNavigator{path: "/products/shoes"}
	mockA := &mockAuthAPI{user: testUser(), loginToken: "tok-123"}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nav, testLogger())
	sut.Login(context.Background(), "alice@example.com", "secret")

	sut.Logout()

	assert.Empty(t, nav.redirected)
}

func TestCheckAuth_NoTokenIsNoOp(t *testing.T) {
	mockA := &mockAuthAPI{user: testUser()}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())

	sut.CheckAuth(context.Background())

	assert.Equal(t, 0, mockA.meCalls)
	assert.False(t, sut.Snapshot().IsAuthenticated)
}

func TestCheckAuth_RefreshesUser(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedSnapshot(t, store, snapshot{Token: "tok-123", User: testUser(), IsAuthenticated: true})

	refreshed := testUser()
	refreshed.Name = "Alice Updated"
	mockA := &mockAuthAPI{user: refreshed}
	sut := NewStore(mockA, store, nil, testLogger())
	require.NoError(t, sut.Restore(context.Background()))

	sut.CheckAuth(context.Background())

	state := sut.Snapshot()
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "Alice Updated", state.User.Name)
	assert.Equal(t, "tok-123", mockA.currentToken())
}

func TestCheckAuth_RejectedTokenLogsOut(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedSnapshot(t, store, snapshot{Token: "tok-stale", User: testUser(), IsAuthenticated: true})

	mockA := &mockAuthAPI{err: &api.APIError{StatusCode: 401, Message: "invalid or expired token"}}
	sut := NewStore(mockA, store, nil, testLogger())
	require.NoError(t, sut.Restore(context.Background()))

	sut.CheckAuth(context.Background())

	state := sut.Snapshot()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Token)
	assert.Empty(t, mockA.currentToken())
}

func TestUpdateProfile_Success(t *testing.T) {
	mockA := &mockAuthAPI{user: testUser(), loginToken: "tok-123"}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())
	sut.Login(context.Background(), "alice@example.com", "secret")

	updated := testUser()
	updated.Name = "Alice Renamed"
	mockA.mu.Lock()
	mockA.user = updated
	mockA.mu.Unlock()

	name := "Alice Renamed"
	result := sut.UpdateProfile(context.Background(), domain.ProfileUpdate{Name: &name})

	require.True(t, result.Success)
	state := sut.Snapshot()
	require.NotNil(t, state.User)
	assert.Equal(t, "Alice Renamed", state.User.Name)
	assert.False(t, state.Loading)
}

func TestUpdateProfile_FailureKeepsUser(t *testing.T) {
	mockA := &mockAuthAPI{user: testUser(), loginToken: "tok-123"}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())
	sut.Login(context.Background(), "alice@example.com", "secret")

	mockA.mu.Lock()
	mockA.err = &api.APIError{StatusCode: 400, Message: "phone number is invalid"}
	mockA.mu.Unlock()

	phone := "not-a-phone"
	result := sut.UpdateProfile(context.Background(), domain.ProfileUpdate{Phone: &phone})

	assert.False(t, result.Success)
	assert.Equal(t, "phone number is invalid", result.Message)

	state := sut.Snapshot()
	require.NotNil(t, state.User)
	assert.Equal(t, "Alice", state.User.Name)
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
}

func TestRestore_RearmsToken(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedSnapshot(t, store, snapshot{Token: "tok-restored", User: testUser(), IsAuthenticated: true})

	mockA := &mockAuthAPI{}
	sut := NewStore(mockA, store, nil, testLogger())
	require.NoError(t, sut.Restore(context.Background()))

	state := sut.Snapshot()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, "tok-restored", state.Token)
	assert.Equal(t, "tok-restored", mockA.currentToken())
}

func TestRestore_MissingSnapshotStaysAnonymous(t *testing.T) {
	mockA := &mockAuthAPI{}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())

	require.NoError(t, sut.Restore(context.Background()))

	state := sut.Snapshot()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, mockA.currentToken())
}

func TestPersist_ProjectionExcludesLoading(t *testing.T) {
	store := storage.NewMemoryStorage()
	mockA := &mockAuthAPI{user: testUser(), loginToken: "tok-123"}
	sut := NewStore(mockA, store, nil, testLogger())

	sut.Login(context.Background(), "alice@example.com", "secret")

	var persisted map[string]json.RawMessage
	require.Eventually(t, func() bool {
		data, err := store.Load(context.Background(), snapshotName)
		if err != nil {
			return false
		}
		return json.Unmarshal(data, &persisted) == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "session snapshot was not persisted")

	assert.Contains(t, persisted, "token")
	assert.Contains(t, persisted, "user")
	assert.Contains(t, persisted, "isAuthenticated")
	assert.NotContains(t, persisted, "loading")
}

func TestSubscribe_Unsubscribes(t *testing.T) {
	mockA := &mockAuthAPI{user: testUser(), loginToken: "tok-123"}
	sut := NewStore(mockA, storage.NewMemoryStorage(), nil, testLogger())

	calls := 0
	unsubscribe := sut.Subscribe(func(domain.Session) { calls++ })

	sut.Login(context.Background(), "alice@example.com", "secret")
	require.Greater(t, calls, 0)

	before := calls
	unsubscribe()
	sut.Logout()
	assert.Equal(t, before, calls)
}

func seedSnapshot(t *testing.T, store storage.Storage, snap snapshot) {
	t.Helper()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), snapshotName, data))
}

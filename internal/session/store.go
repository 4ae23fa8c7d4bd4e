// Package session owns the client-side authentication state: the current
// user, the session token and the authenticated flag. All network commands
// go through the remote API; recoverable failures come back as Result
// values, never as errors.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mhmdrezaafshar11/public-site/internal/api"
	"github.com/mhmdrezaafshar11/public-site/internal/domain"
	"github.com/mhmdrezaafshar11/public-site/internal/storage"
)

const (
	snapshotName   = "auth-storage"
	persistTimeout = time.Second

	loginPath = "/auth/login"
)

// AuthAPI is the slice of the remote API the session store consumes.
// Consumers define this interface, not the HTTP implementation.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Register(ctx context.Context, data domain.RegisterData) (*domain.User, string, error)
	Me(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error)
	SetToken(token string)
	ClearToken()
}

// Navigator abstracts the navigation surface the logout policy needs: where
// the user currently is and how to send them somewhere else.
type Navigator interface {
	Path() string
	Redirect(url string)
}

// NopNavigator satisfies Navigator for headless runs; logout never redirects.
type NopNavigator struct{}

func (NopNavigator) Path() string    { return "" }
func (NopNavigator) Redirect(string) {}

// Result is the outcome of a recoverable command. Failed logins and the like
// are values the caller renders, not errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// snapshot is the persisted projection of the session state. Loading is
// deliberately excluded so a restart never comes back mid-flight.
type snapshot struct {
	Token           string       `json:"token,omitempty"`
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
}

type Store struct {
	api     AuthAPI
	storage storage.Storage
	nav     Navigator
	logger  *slog.Logger
	sfg     singleflight.Group // collapses concurrent CheckAuth calls

	mu        sync.RWMutex
	state     domain.Session
	subs      map[int]func(domain.Session)
	nextSubID int
}

func NewStore(authAPI AuthAPI, store storage.Storage, nav Navigator, logger *slog.Logger) *Store {
	if nav == nil {
		nav = NopNavigator{}
	}
	return &Store{
		api:     authAPI,
		storage: store,
		nav:     nav,
		logger:  logger.With("component", "session_store"),
		subs:    make(map[int]func(domain.Session)),
	}
}

// Snapshot returns the current session state by value.
func (s *Store) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to run after every state change and returns the
// unsubscribe handle.
func (s *Store) Subscribe(fn func(domain.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Restore rehydrates the session from the persisted snapshot. Called once at
// bootstrap before any command; a missing snapshot is not an error.
func (s *Store) Restore(ctx context.Context) error {
	data, err := s.storage.Load(ctx, snapshotName)
	if err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			return nil
		}
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("discarding unreadable session snapshot", "error", err)
		return nil
	}

	s.mu.Lock()
	s.state.User = snap.User
	s.state.Token = snap.Token
	s.state.IsAuthenticated = snap.IsAuthenticated
	s.mu.Unlock()

	if snap.Token != "" {
		s.api.SetToken(snap.Token)
	}
	s.notify()
	return nil
}

// Login exchanges credentials for a user and token. On failure the prior
// state is left untouched and the API's message is returned as a value.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	s.setLoading(true)

	user, token, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.setLoading(false)
		return failure(err, "login error")
	}

	s.api.SetToken(token)

	s.mu.Lock()
	s.state = domain.Session{User: user, Token: token, IsAuthenticated: true}
	s.mu.Unlock()

	s.persist()
	s.notify()
	return Result{Success: true}
}

// Register creates an account; the contract mirrors Login.
func (s *Store) Register(ctx context.Context, data domain.RegisterData) Result {
	s.setLoading(true)

	user, token, err := s.api.Register(ctx, data)
	if err != nil {
		s.setLoading(false)
		return failure(err, "registration error")
	}

	s.api.SetToken(token)

	s.mu.Lock()
	s.state = domain.Session{User: user, Token: token, IsAuthenticated: true}
	s.mu.Unlock()

	s.persist()
	s.notify()
	return Result{Success: true}
}

// Logout clears the session and the API client's authorization header.
// Logging out from a protected area must not strand the user on a page that
// requires auth, so /profile and /dashboard paths redirect to the login page.
func (s *Store) Logout() {
	s.api.ClearToken()

	s.mu.Lock()
	s.state = domain.Session{}
	s.mu.Unlock()

	s.persist()
	s.notify()

	path := s.nav.Path()
	if strings.Contains(path, "/profile") || strings.Contains(path, "/dashboard") {
		s.nav.Redirect(loginPath)
	}
}

// CheckAuth validates a held token against the whoami endpoint. A rejected
// or unreachable token self-heals by logging out; no error is surfaced.
// Concurrent calls collapse into one request.
func (s *Store) CheckAuth(ctx context.Context) {
	token := s.Snapshot().Token
	if token == "" {
		return
	}

	s.sfg.Do("check-auth", func() (interface{}, error) {
		s.api.SetToken(token)

		user, err := s.api.Me(ctx)
		if err != nil {
			s.logger.Info("stored token rejected, logging out", "error", err)
			s.Logout()
			return nil, nil
		}

		s.mu.Lock()
		s.state.User = user
		s.state.IsAuthenticated = true
		s.mu.Unlock()

		s.persist()
		s.notify()
		return nil, nil
	})
}

// UpdateProfile sends a partial update; the server's returned representation
// replaces the local user wholesale.
func (s *Store) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) Result {
	s.setLoading(true)

	user, err := s.api.UpdateProfile(ctx, update)
	if err != nil {
		s.setLoading(false)
		return failure(err, "profile update error")
	}

	s.mu.Lock()
	s.state.User = user
	s.state.Loading = false
	s.mu.Unlock()

	s.persist()
	s.notify()
	return Result{Success: true}
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.state.Loading = loading
	s.mu.Unlock()
	s.notify()
}

// persist writes the session projection fire-and-forget; a lost write costs
// one mutation of durability, never in-memory correctness.
func (s *Store) persist() {
	snap := s.projection()

	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("failed to marshal session snapshot", "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.storage.Save(ctx, snapshotName, data); err != nil {
			s.logger.Error("failed to persist session snapshot", "error", err)
		}
	}()
}

func (s *Store) projection() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		Token:           s.state.Token,
		User:            s.state.User,
		IsAuthenticated: s.state.IsAuthenticated,
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	state := s.state
	fns := make([]func(domain.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}

func failure(err error, fallback string) Result {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return Result{Success: false, Message: apiErr.Message}
	}
	return Result{Success: false, Message: fallback}
}

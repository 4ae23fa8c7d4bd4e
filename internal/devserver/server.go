// Package devserver is a development stand-in for the remote storefront API.
// It implements the four auth endpoints against an in-memory user table so
// the client can be exercised without the production backend.
package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mhmdrezaafshar11/public-site/internal/domain"
)

const tokenTTL = 24 * time.Hour

type userRecord struct {
	user domain.User
	// Plaintext on purpose; this server never sees real credentials.
	password string
}

type Server struct {
	secret   []byte
	validate *validator.Validate
	logger   *slog.Logger

	mu      sync.RWMutex
	byEmail map[string]*userRecord
	byID    map[string]*userRecord
}

func NewServer(secret []byte, logger *slog.Logger) *Server {
	return &Server{
		secret:   secret,
		validate: validator.New(),
		logger:   logger.With("component", "devserver"),
		byEmail:  make(map[string]*userRecord),
		byID:     make(map[string]*userRecord),
	}
}

// SeedUser registers a user directly, bypassing the HTTP surface. Used to
// set up admin accounts and test fixtures.
func (s *Server) SeedUser(user domain.User, password string) domain.User {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = domain.RoleCustomer
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	rec := &userRecord{user: user, password: password}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[strings.ToLower(user.Email)] = rec
	s.byID[user.ID] = rec
	return user
}

// Router builds the HTTP surface matching the production API's auth routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)
	r.Get("/auth/me", s.handleMe)
	r.Put("/auth/profile", s.handleUpdateProfile)

	return r
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty"`
}

type authResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

type userResponse struct {
	User domain.User `json:"user"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.RLock()
	rec, exists := s.byEmail[strings.ToLower(req.Email)]
	s.mu.RUnlock()

	if !exists || rec.password != req.Password {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.issueToken(rec.user.ID)
	if err != nil {
		s.logger.Error("failed to issue token", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, authResponse{User: rec.user, Token: token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	email := strings.ToLower(req.Email)

	s.mu.Lock()
	if _, exists := s.byEmail[email]; exists {
		s.mu.Unlock()
		respondError(w, http.StatusBadRequest, "email already registered")
		return
	}
	now := time.Now()
	user := domain.User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      domain.RoleCustomer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec := &userRecord{user: user, password: req.Password}
	s.byEmail[email] = rec
	s.byID[user.ID] = rec
	s.mu.Unlock()

	token, err := s.issueToken(user.ID)
	if err != nil {
		s.logger.Error("failed to issue token", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	rec, err := s.authenticate(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	respondJSON(w, http.StatusOK, userResponse{User: rec.user})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	rec, err := s.authenticate(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	var update domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	if update.Name != nil {
		rec.user.Name = *update.Name
	}
	if update.Phone != nil {
		rec.user.Phone = *update.Phone
	}
	if update.Avatar != nil {
		rec.user.Avatar = *update.Avatar
	}
	if update.Addresses != nil {
		rec.user.Addresses = *update.Addresses
	}
	rec.user.UpdatedAt = time.Now()
	user := rec.user
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, userResponse{User: user})
}

func (s *Server) issueToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *Server) authenticate(r *http.Request) (*userRecord, error) {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return nil, errors.New("missing bearer token")
	}

	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, errors.New("malformed claims")
	}

	s.mu.RLock()
	rec, exists := s.byID[claims.Subject]
	s.mu.RUnlock()
	if !exists {
		return nil, errors.New("unknown user")
	}
	return rec, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := strings.ToLower(verrs[0].Field())
		switch verrs[0].Tag() {
		case "required":
			return field + " is required"
		case "email":
			return "invalid email address"
		case "min":
			return field + " is too short"
		}
	}
	return "invalid registration data"
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Message: message})
}

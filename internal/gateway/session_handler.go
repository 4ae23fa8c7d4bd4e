package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/mhmdrezaafshar11/public-site/internal/config"
	"github.com/mhmdrezaafshar11/public-site/internal/domain"
	"github.com/mhmdrezaafshar11/public-site/internal/session"
)

type SessionHandler struct {
	sessions *session.Store
	cfg      *config.Config
}

func NewSessionHandler(sessions *session.Store, cfg *config.Config) *SessionHandler {
	return &SessionHandler{sessions: sessions, cfg: cfg}
}

type loginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponseDTO struct {
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	Loading         bool         `json:"loading"`
	PanelURL        string       `json:"panelUrl,omitempty"`
}

type commandResponseDTO struct {
	session.Result
	Session sessionResponseDTO `json:"session"`
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	result := h.sessions.Login(r.Context(), req.Email, req.Password)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnauthorized
	}
	respondJSON(w, status, commandResponseDTO{Result: result, Session: h.sessionDTO()})
}

func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "name, email and password are required")
		return
	}

	result := h.sessions.Register(r.Context(), req)

	status := http.StatusCreated
	if !result.Success {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, commandResponseDTO{Result: result, Session: h.sessionDTO()})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout()
	respondJSON(w, http.StatusOK, h.sessionDTO())
}

func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sessionDTO())
}

func (h *SessionHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result := h.sessions.UpdateProfile(r.Context(), update)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, commandResponseDTO{Result: result, Session: h.sessionDTO()})
}

func (h *SessionHandler) sessionDTO() sessionResponseDTO {
	snap := h.sessions.Snapshot()

	dto := sessionResponseDTO{
		User:            snap.User,
		IsAuthenticated: snap.IsAuthenticated,
		Loading:         snap.Loading,
	}
	if snap.IsAuthenticated && snap.User != nil {
		if snap.User.Role == domain.RoleAdmin {
			dto.PanelURL = h.cfg.AdminPanelURL
		} else {
			dto.PanelURL = h.cfg.CustomerPanelURL
		}
	}
	return dto
}

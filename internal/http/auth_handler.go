package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/DNLCodess/ReezBlank/internal/identity"
	"github.com/DNLCodess/ReezBlank/internal/logger"
	"go.uber.org/zap"
)

type AuthHandler struct {
	identity identity.Service
	sessions AuthSessions
	log      *zap.Logger
}

func NewAuthHandler(svc identity.Service, sessions AuthSessions, log *zap.Logger) *AuthHandler {
	return &AuthHandler{identity: svc, sessions: sessions, log: log}
}

type CredentialsDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordResetDTO struct {
	Email string `json:"email"`
}

type UserResponseDTO struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user"`
}

// POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.readCredentials(w, r)
	if !ok {
		return
	}
	user, err := h.identity.SignUp(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.identityError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, UserResponseDTO{Success: true, User: &user})
}

// POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.readCredentials(w, r)
	if !ok {
		return
	}
	sess, err := h.identity.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.identityError(w, r, err)
		return
	}
	if err := h.sessions.Save(r.Context(), getSessionID(r.Context()), sess); err != nil {
		logger.WithTrace(r.Context(), h.log).Error("save auth session failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	respondJSON(w, http.StatusOK, UserResponseDTO{Success: true, User: &sess.User})
}

// POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	log := logger.WithTrace(r.Context(), h.log)
	if sess, ok := getAuthSession(r.Context()); ok {
		err := h.identity.SignOut(r.Context(), sess.AccessToken)
		if err != nil && !errors.Is(err, identity.ErrUnauthorized) {
			log.Warn("remote sign out failed", zap.Error(err))
		}
	}
	if err := h.sessions.Delete(r.Context(), getSessionID(r.Context())); err != nil {
		log.Error("delete auth session failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not end session")
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{Success: true})
}

// GET /api/v1/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	resp := UserResponseDTO{Success: true}
	if sess, ok := getAuthSession(r.Context()); ok {
		resp.User = &sess.User
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/v1/auth/password-reset
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := h.identity.RequestPasswordReset(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		h.identityError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{Success: true})
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (CredentialsDTO, bool) {
	var creds CredentialsDTO
	if err := decodeJSON(w, r, &creds); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return creds, false
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return creds, false
	}
	return creds, true
}

func (h *AuthHandler) identityError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *identity.APIError
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrDisabled), errors.Is(err, identity.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError:
		respondError(w, apiErr.StatusCode, apiErr.Error())
	default:
		logger.WithTrace(r.Context(), h.log).Error("identity request failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "identity service error")
	}
}

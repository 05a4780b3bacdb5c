package handlers

import (
	"net/http"
	"time"

	"github.com/bybo/bybo-be/internal/auth"
	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/bybo/bybo-be/internal/services"
	"github.com/bybo/bybo-be/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles registration, login and profile requests.
type UserHandler struct {
	users        services.UserServiceProvider
	auth         services.AuthServiceProvider
	validator    *validation.Validator
	secureCookie bool
	tokenTTL     time.Duration
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users services.UserServiceProvider, authSvc services.AuthServiceProvider, v *validation.Validator, secureCookie bool, tokenTTL time.Duration) *UserHandler {
	return &UserHandler{users: users, auth: authSvc, validator: v, secureCookie: secureCookie, tokenTTL: tokenTTL}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username  string  `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email     string  `json:"email" validate:"required,email,max=254"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	FirstName string  `json:"firstName" validate:"required,max=50"`
	LastName  string  `json:"lastName" validate:"required,max=50"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register handles new user registration and signs the user in.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(payload); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), services.RegisterInput{
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Bio:       payload.Bio,
	})
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		writeError(w, r, err)
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setTokenCookie(w, token, time.Now().Add(h.tokenTTL))
	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login handles user authentication and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(payload); err != nil {
		writeError(w, r, err)
		return
	}

	token, user, err := h.auth.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed authentication attempt")
		writeError(w, r, err)
		return
	}

	h.setTokenCookie(w, token, time.Now().Add(h.tokenTTL))
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Logout revokes the caller's token and clears the cookie.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.TokenFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	h.setTokenCookie(w, "", time.Unix(0, 0))
	w.WriteHeader(http.StatusNoContent)
}

// GetMe retrieves the currently authenticated user from the token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) setTokenCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}

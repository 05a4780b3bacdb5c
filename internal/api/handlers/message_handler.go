package handlers

import (
	"net/http"

	"github.com/bybo/bybo-be/internal/auth"
	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/bybo/bybo-be/internal/services"
	"github.com/bybo/bybo-be/internal/validation"
	"github.com/go-chi/chi/v5"
)

// MessageHandler handles direct messages between users.
type MessageHandler struct {
	service   services.MessageServiceProvider
	validator *validation.Validator
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(service services.MessageServiceProvider, v *validation.Validator) *MessageHandler {
	return &MessageHandler{service: service, validator: v}
}

// MessagePayload defines the structure for sending a message.
type MessagePayload struct {
	ToUserID string `json:"toUserId" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

// Send delivers a message from the caller.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrUnauthorized)
		return
	}

	var payload MessagePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(payload); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := h.service.Send(r.Context(), id.UserID, payload.ToUserID, payload.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Inbox lists messages addressed to the caller.
func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrUnauthorized)
		return
	}

	messages, err := h.service.Inbox(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// MarkRead flags one of the caller's messages as read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrUnauthorized)
		return
	}

	if err := h.service.MarkRead(r.Context(), chi.URLParam(r, "id"), id.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

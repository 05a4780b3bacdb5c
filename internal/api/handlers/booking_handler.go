package handlers

import (
	"net/http"

	"github.com/bybo/bybo-be/internal/auth"
	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/bybo/bybo-be/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// BookingHandler exposes the weekly slot ledger of a listing.
// The raw token is handed to the booking service, which verifies it
// before looking at the requested days.
type BookingHandler struct {
	service services.BookingServiceProvider
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service services.BookingServiceProvider) *BookingHandler {
	return &BookingHandler{service: service}
}

// BookingPayload lists the weekdays to reserve, 0=Sunday through 6=Saturday.
type BookingPayload struct {
	Days []int `json:"days"`
}

// Availability returns the seven weekday slots of a listing.
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.service.Availability(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

// Create reserves the requested weekdays and always answers with the per-day report.
// The status is 201 when at least one day was booked, 409 when every day was
// already taken, and otherwise that of the first failed day.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		writeError(w, r, apperrors.Unauthorized("Missing auth token"))
		return
	}

	var payload BookingPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	listingID := chi.URLParam(r, "id")
	report, err := h.service.CreateBookings(r.Context(), token, listingID, payload.Days)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := reportStatus(report)
	log.Debug().Str("listing_id", listingID).Int("booked", report.Booked()).Int("requested", len(report.Outcomes)).Msg("Booking batch processed")
	writeJSON(w, status, report)
}

// Cancel releases a booking held by the caller or on a listing the caller owns.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	err := h.service.CancelBooking(r.Context(), auth.TokenFromRequest(r), chi.URLParam(r, "id"), chi.URLParam(r, "bookingId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Mine lists every booking held by the caller.
func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.MyBookings(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func reportStatus(report models.BookingReport) int {
	if report.Booked() > 0 {
		return http.StatusCreated
	}
	failed := report.Failed()
	if len(failed) == 0 {
		return http.StatusConflict
	}
	return apperrors.Code(failed[0].ErrorCode).HTTPStatus()
}

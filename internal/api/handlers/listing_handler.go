package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bybo/bybo-be/internal/auth"
	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/bybo/bybo-be/internal/services"
	"github.com/bybo/bybo-be/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// maxPhotoSize bounds a multipart listing upload.
const maxPhotoSize = 10 << 20

// ListingHandler handles HTTP requests related to listings.
type ListingHandler struct {
	service   services.ListingServiceProvider
	validator *validation.Validator
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(service services.ListingServiceProvider, v *validation.Validator) *ListingHandler {
	return &ListingHandler{service: service, validator: v}
}

// ListingPayload defines the descriptive fields of a new listing.
type ListingPayload struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=2000"`
	Location    string `json:"location" validate:"required,max=100"`
	Size        string `json:"size" validate:"required,max=50"`
	Price       int    `json:"price" validate:"gte=0"`
	HasPool     bool   `json:"hasPool"`
	IsFenced    bool   `json:"isFenced"`
	HasBarbecue bool   `json:"hasBarbecue"`
	Photo       string `json:"photo" validate:"omitempty,url"`
}

// GetAll lists listings, optionally narrowed by exact location, size or owner.
func (h *ListingHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	listings, err := h.service.ListListings(r.Context(), models.ListingFilter{
		OwnerID:  q.Get("owner"),
		Location: q.Get("location"),
		Size:     q.Get("size"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// Get handles the request to get a single listing by its ID.
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// Create accepts either a JSON body or a multipart form with an optional "photo" file.
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrUnauthorized)
		return
	}

	var (
		payload ListingPayload
		photo   []byte
		err     error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		payload, photo, err = parseListingForm(w, r)
	} else {
		err = decodeJSON(w, r, &payload)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validator.Validate(payload); err != nil {
		writeError(w, r, err)
		return
	}

	listing, err := h.service.CreateListing(r.Context(), id.UserID, services.ListingInput{
		Name:        payload.Name,
		Description: payload.Description,
		Location:    payload.Location,
		Size:        payload.Size,
		Price:       payload.Price,
		HasPool:     payload.HasPool,
		IsFenced:    payload.IsFenced,
		HasBarbecue: payload.HasBarbecue,
		PhotoURL:    payload.Photo,
	}, photo)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.Info().Str("listing_id", listing.ID).Str("owner_id", id.UserID).Msg("Listing created")
	writeJSON(w, http.StatusCreated, listing)
}

// Delete removes a listing. Only its owner may do so.
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteListing(r.Context(), chi.URLParam(r, "id"), id.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListingForm(w http.ResponseWriter, r *http.Request) (ListingPayload, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+maxJSONBody)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		return ListingPayload{}, nil, apperrors.Validation("Invalid multipart form")
	}

	payload := ListingPayload{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Size:        r.FormValue("size"),
	}

	var err error
	if v := r.FormValue("price"); v != "" {
		if payload.Price, err = strconv.Atoi(v); err != nil {
			return ListingPayload{}, nil, apperrors.ValidationWithDetails("validation failed", map[string]string{"price": "must be a whole number"})
		}
	}
	flags := map[string]*bool{"hasPool": &payload.HasPool, "isFenced": &payload.IsFenced, "hasBarbecue": &payload.HasBarbecue}
	for field, dst := range flags {
		if v := r.FormValue(field); v != "" {
			if *dst, err = strconv.ParseBool(v); err != nil {
				return ListingPayload{}, nil, apperrors.ValidationWithDetails("validation failed", map[string]string{field: "must be true or false"})
			}
		}
	}

	file, _, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return payload, nil, nil
	}
	if err != nil {
		return ListingPayload{}, nil, apperrors.Validation("Invalid photo upload")
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, maxPhotoSize+1))
	if err != nil {
		return ListingPayload{}, nil, apperrors.Validation("Invalid photo upload")
	}
	if len(photo) > maxPhotoSize {
		return ListingPayload{}, nil, apperrors.Validation("photo exceeds 10MB")
	}
	return payload, photo, nil
}

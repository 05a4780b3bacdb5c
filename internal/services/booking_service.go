package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bybo/bybo-be/internal/auth"
	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/rs/zerolog/log"
)

// TokenVerifier resolves a raw session token to the caller's identity.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*auth.Identity, error)
}

// AvailabilityNotifier is told about every availability change of a listing.
type AvailabilityNotifier interface {
	PublishAvailability(listingID string, availability models.Availability)
}

// BookingServiceProvider defines the interface for the booking orchestrator.
type BookingServiceProvider interface {
	CreateBookings(ctx context.Context, token, listingID string, days []int) (models.BookingReport, error)
	CancelBooking(ctx context.Context, token, listingID, bookingID string) error
	Availability(ctx context.Context, listingID string) (models.Availability, error)
	MyBookings(ctx context.Context, token string) ([]models.Booking, error)
}

// BookingService verifies the caller, checks the listing and applies
// per-weekday reservations to the ledger.
type BookingService struct {
	tokens   TokenVerifier
	listings ListingReader
	users    UserServiceProvider
	ledger   LedgerProvider
	events   EventServiceProvider
	notifier AvailabilityNotifier
}

// NewBookingService creates a new BookingService. notifier may be nil.
func NewBookingService(tokens TokenVerifier, listings ListingReader, users UserServiceProvider, ledger LedgerProvider, events EventServiceProvider, notifier AvailabilityNotifier) *BookingService {
	return &BookingService{
		tokens:   tokens,
		listings: listings,
		users:    users,
		ledger:   ledger,
		events:   events,
		notifier: notifier,
	}
}

// CreateBookings reserves each requested weekday independently.
// A day that conflicts or fails never affects its siblings; the report lists every day in order.
func (s *BookingService) CreateBookings(ctx context.Context, token, listingID string, days []int) (models.BookingReport, error) {
	id, err := s.tokens.VerifyToken(ctx, token)
	if err != nil {
		return models.BookingReport{}, err
	}

	weekdays, err := normalizeDays(days)
	if err != nil {
		return models.BookingReport{}, err
	}

	if _, err := s.listings.GetListing(ctx, listingID); err != nil {
		return models.BookingReport{}, err
	}

	report := models.BookingReport{ListingID: listingID, Outcomes: make([]models.DayOutcome, 0, len(weekdays))}
	for _, day := range weekdays {
		booking, err := s.ledger.Reserve(ctx, listingID, id.UserID, day)

		var taken *SlotTakenError
		switch {
		case err == nil:
			report.Outcomes = append(report.Outcomes, models.DayOutcome{
				Day: day, Status: models.BookingStatusBooked, Booking: &booking,
			})
		case errors.As(err, &taken):
			held := taken.HeldBy
			report.Outcomes = append(report.Outcomes, models.DayOutcome{
				Day: day, Status: models.BookingStatusConflict, HeldBy: &held,
			})
		default:
			report.Outcomes = append(report.Outcomes, failedOutcome(listingID, day, err))
		}
	}

	if booked := report.Booked(); booked > 0 {
		s.afterChange(ctx, listingID, "booking.created", fmt.Sprintf("%s booked %d day(s)", id.Username, booked))
	}
	log.Info().Str("listing_id", listingID).Str("user_id", id.UserID).
		Int("requested", len(weekdays)).Int("booked", report.Booked()).Int("failed", len(report.Failed())).
		Msg("Processed booking request")
	return report, nil
}

// CancelBooking releases a booking on behalf of its holder or the listing owner.
func (s *BookingService) CancelBooking(ctx context.Context, token, listingID, bookingID string) error {
	id, err := s.tokens.VerifyToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.ledger.Release(ctx, listingID, bookingID, id.UserID); err != nil {
		return err
	}
	s.afterChange(ctx, listingID, "booking.released", fmt.Sprintf("%s released booking %s", id.Username, bookingID))
	return nil
}

// Availability returns the weekly slots of a listing together with its host.
func (s *BookingService) Availability(ctx context.Context, listingID string) (models.Availability, error) {
	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return models.Availability{}, err
	}
	slots, err := s.ledger.Availability(ctx, listingID)
	if err != nil {
		return models.Availability{}, err
	}

	a := models.Availability{ListingID: listingID, Host: models.UserSummary{ID: listing.OwnerID}, Slots: slots}
	if host, err := s.users.GetUserByID(ctx, listing.OwnerID); err == nil {
		a.Host.Username = host.Username
	}
	return a, nil
}

// MyBookings lists the holds of the token's user.
func (s *BookingService) MyBookings(ctx context.Context, token string) ([]models.Booking, error) {
	id, err := s.tokens.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.ledger.BookingsForUser(ctx, id.UserID)
}

// afterChange records the activity and pushes fresh availability to subscribers.
// Failures here are logged; the booking change itself already succeeded.
func (s *BookingService) afterChange(ctx context.Context, listingID, eventType, msg string) {
	if s.events != nil {
		if err := s.events.CreateEvent(ctx, eventType, "info", msg, &listingID); err != nil {
			log.Warn().Err(err).Str("listing_id", listingID).Msg("Failed to record booking event")
		}
	}
	if s.notifier == nil {
		return
	}
	a, err := s.Availability(ctx, listingID)
	if err != nil {
		log.Warn().Err(err).Str("listing_id", listingID).Msg("Failed to load availability for broadcast")
		return
	}
	s.notifier.PublishAvailability(listingID, a)
}

// failedOutcome records a day that neither booked nor conflicted. Domain errors
// keep their code and message; anything else is logged and reported as internal.
func failedOutcome(listingID string, day models.Weekday, err error) models.DayOutcome {
	out := models.DayOutcome{Day: day, Status: models.BookingStatusError}

	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) && domainErr.Code != apperrors.CodeInternal {
		out.ErrorCode = string(domainErr.Code)
		out.Error = domainErr.Message
		return out
	}

	log.Error().Err(err).Str("listing_id", listingID).Int("day", int(day)).Msg("Failed to reserve weekday")
	out.ErrorCode = string(apperrors.CodeInternal)
	out.Error = "day could not be booked, try again"
	return out
}

// normalizeDays validates, de-duplicates and sorts requested weekdays.
func normalizeDays(days []int) ([]models.Weekday, error) {
	if len(days) == 0 {
		return nil, apperrors.Validation("at least one weekday is required")
	}

	seen := make(map[models.Weekday]bool, len(days))
	out := make([]models.Weekday, 0, len(days))
	for _, d := range days {
		day := models.Weekday(d)
		if !day.Valid() {
			return nil, apperrors.ValidationWithDetails("invalid weekday",
				map[string]string{"days": fmt.Sprintf("%d is not a weekday (0=Sunday .. 6=Saturday)", d)})
		}
		if !seen[day] {
			seen[day] = true
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

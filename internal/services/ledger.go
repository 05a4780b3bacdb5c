package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bybo/bybo-be/internal/database"
	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/google/uuid"
)

// ErrBookingNotFound is returned when a booking does not exist under the given listing.
var ErrBookingNotFound = apperrors.NotFound("booking not found")

// ErrHolderNotFound is returned when the reserving user no longer exists,
// e.g. an account deleted while one of its tokens is still valid.
var ErrHolderNotFound = apperrors.Unauthorized("account no longer exists")

// SlotTakenError reports a weekday already held by another booking.
// It matches apperrors.ErrConflict under errors.Is.
type SlotTakenError struct {
	ListingID string
	Day       models.Weekday
	HeldBy    models.Hold
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("day %d of listing %s is already booked by %s", e.Day, e.ListingID, e.HeldBy.Username)
}

// Is makes the error match the CONFLICT code.
func (e *SlotTakenError) Is(target error) bool {
	var t *apperrors.Error
	return errors.As(target, &t) && t.Code == apperrors.CodeConflict
}

// LedgerProvider defines the reservation ledger operations.
type LedgerProvider interface {
	Availability(ctx context.Context, listingID string) ([models.DaysPerWeek]*models.Hold, error)
	Reserve(ctx context.Context, listingID, userID string, day models.Weekday) (models.Booking, error)
	Release(ctx context.Context, listingID, bookingID, requesterID string) error
	BookingsForUser(ctx context.Context, userID string) ([]models.Booking, error)
}

// Ledger is the authoritative record of held weekday slots.
// Uniqueness per (listing, weekday) is enforced by the bookings table, not here.
type Ledger struct {
	db *sql.DB
}

// NewLedger creates a new Ledger.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Availability returns the seven weekday slots of a listing with their holders.
func (l *Ledger) Availability(ctx context.Context, listingID string) ([models.DaysPerWeek]*models.Hold, error) {
	var slots [models.DaysPerWeek]*models.Hold

	rows, err := l.db.QueryContext(ctx, `
		SELECT b.day_of_week, b.id, b.user_id, u.username
		FROM bookings b JOIN users u ON u.id = b.user_id
		WHERE b.listing_id = ?`, listingID)
	if err != nil {
		return slots, fmt.Errorf("query availability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day  models.Weekday
			hold models.Hold
		)
		if err := rows.Scan(&day, &hold.BookingID, &hold.UserID, &hold.Username); err != nil {
			return slots, err
		}
		if day.Valid() {
			slots[day] = &hold
		}
	}
	return slots, rows.Err()
}

// Reserve books a weekday for a user. A single INSERT is the whole check:
// losing the race on the unique index yields a *SlotTakenError.
func (l *Ledger) Reserve(ctx context.Context, listingID, userID string, day models.Weekday) (models.Booking, error) {
	if !day.Valid() {
		return models.Booking{}, apperrors.Validation(fmt.Sprintf("day %d is not a weekday (0-6)", day))
	}

	// The holder can release between our failed insert and the lookup; try again once then.
	for attempt := 0; attempt < 2; attempt++ {
		b := models.Booking{
			ID:        uuid.New().String(),
			ListingID: listingID,
			UserID:    userID,
			Day:       day,
			CreatedAt: time.Now().UTC(),
		}
		_, err := l.db.ExecContext(ctx,
			`INSERT INTO bookings (id, day_of_week, user_id, listing_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			b.ID, int(b.Day), b.UserID, b.ListingID, database.FormatTime(b.CreatedAt))
		switch {
		case err == nil:
			return b, nil
		case database.IsForeignKeyViolation(err):
			return models.Booking{}, l.missingReference(ctx, listingID)
		case !database.IsUniqueViolation(err):
			return models.Booking{}, fmt.Errorf("insert booking: %w", err)
		}

		hold, found, err := l.holder(ctx, listingID, day)
		if err != nil {
			return models.Booking{}, err
		}
		if found {
			return models.Booking{}, &SlotTakenError{ListingID: listingID, Day: day, HeldBy: hold}
		}
	}
	return models.Booking{}, apperrors.Conflict("slot is being modified concurrently, try again")
}

// missingReference tells which side of a failed bookings FK is gone.
func (l *Ledger) missingReference(ctx context.Context, listingID string) error {
	var one int
	err := l.db.QueryRowContext(ctx, `SELECT 1 FROM listings WHERE id = ?`, listingID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrListingNotFound
	case err != nil:
		return fmt.Errorf("lookup listing: %w", err)
	default:
		return ErrHolderNotFound
	}
}

func (l *Ledger) holder(ctx context.Context, listingID string, day models.Weekday) (models.Hold, bool, error) {
	var hold models.Hold
	err := l.db.QueryRowContext(ctx, `
		SELECT b.id, b.user_id, u.username
		FROM bookings b JOIN users u ON u.id = b.user_id
		WHERE b.listing_id = ? AND b.day_of_week = ?`, listingID, int(day)).
		Scan(&hold.BookingID, &hold.UserID, &hold.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Hold{}, false, nil
	}
	if err != nil {
		return models.Hold{}, false, fmt.Errorf("lookup holder: %w", err)
	}
	return hold, true, nil
}

// Release deletes a booking if requesterID holds it or owns the listing.
// Unknown bookings yield ErrBookingNotFound; anyone else gets Forbidden.
func (l *Ledger) Release(ctx context.Context, listingID, bookingID, requesterID string) error {
	var holderID, ownerID string
	err := l.db.QueryRowContext(ctx, `
		SELECT b.user_id, li.user_id
		FROM bookings b JOIN listings li ON li.id = b.listing_id
		WHERE b.id = ? AND b.listing_id = ?`, bookingID, listingID).Scan(&holderID, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup booking: %w", err)
	}

	if requesterID != holderID && requesterID != ownerID {
		return apperrors.Forbidden("only the booking holder or the listing owner can cancel this booking")
	}

	// Conditional on the holder we authorized against.
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM bookings WHERE id = ? AND listing_id = ? AND user_id = ?`, bookingID, listingID, holderID)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// BookingsForUser lists every hold of a user, ordered by listing then weekday.
func (l *Ledger) BookingsForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, listing_id, user_id, day_of_week, created_at
		FROM bookings WHERE user_id = ?
		ORDER BY listing_id, day_of_week`, userID)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		var (
			b         models.Booking
			createdAt database.Timestamp
		)
		if err := rows.Scan(&b.ID, &b.ListingID, &b.UserID, &b.Day, &createdAt); err != nil {
			return nil, err
		}
		b.CreatedAt = createdAt.Time
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

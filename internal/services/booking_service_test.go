package services

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingService_CreateBookings_PartialSuccess(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	early := env.register(t, "early")
	guest := env.register(t, "guest")
	listing := env.listing(t, host)

	_, err := env.ledger.Reserve(ctx, listing.ID, early.ID, 2)
	require.NoError(t, err)

	report, err := env.bookings.CreateBookings(ctx, env.token(t, guest), listing.ID, []int{3, 1, 2})
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 2, report.Booked())

	day1, day2, day3 := report.Outcomes[0], report.Outcomes[1], report.Outcomes[2]

	assert.Equal(t, models.Weekday(1), day1.Day)
	assert.Equal(t, models.BookingStatusBooked, day1.Status)
	require.NotNil(t, day1.Booking)
	assert.Equal(t, guest.ID, day1.Booking.UserID)

	assert.Equal(t, models.Weekday(2), day2.Day)
	assert.Equal(t, models.BookingStatusConflict, day2.Status)
	require.NotNil(t, day2.HeldBy)
	assert.Equal(t, early.ID, day2.HeldBy.UserID)
	assert.Equal(t, "early", day2.HeldBy.Username)
	assert.Nil(t, day2.Booking)

	assert.Equal(t, models.Weekday(3), day3.Day)
	assert.Equal(t, models.BookingStatusBooked, day3.Status)

	// Subscribers saw the new state.
	a, n := env.notifier.last()
	assert.Equal(t, 1, n)
	require.NotNil(t, a.Slots[1])
	assert.Equal(t, guest.ID, a.Slots[1].UserID)
	assert.Equal(t, early.ID, a.Slots[2].UserID)

	events, err := env.events.GetRecentEvents(ctx, 10, listing.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "booking.created", events[0].Type)
}

func TestBookingService_CreateBookings_DuplicateDaysCollapse(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	guest := env.register(t, "guest")
	listing := env.listing(t, host)

	report, err := env.bookings.CreateBookings(ctx, env.token(t, guest), listing.ID, []int{4, 4, 4})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, models.BookingStatusBooked, report.Outcomes[0].Status)
}

func TestBookingService_CreateBookings_Rejects(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	guest := env.register(t, "guest")
	listing := env.listing(t, host)
	token := env.token(t, guest)

	t.Run("missing token", func(t *testing.T) {
		_, err := env.bookings.CreateBookings(ctx, "", listing.ID, []int{1})
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("unknown listing", func(t *testing.T) {
		_, err := env.bookings.CreateBookings(ctx, token, "missing", []int{1})
		assert.ErrorIs(t, err, ErrListingNotFound)
	})

	t.Run("weekday out of range", func(t *testing.T) {
		_, err := env.bookings.CreateBookings(ctx, token, listing.ID, []int{1, 7})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := env.bookings.CreateBookings(ctx, token, listing.ID, nil)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	// Nothing was booked by any rejected batch.
	slots, err := env.ledger.Availability(ctx, listing.ID)
	require.NoError(t, err)
	assert.Nil(t, slots[1])
}

// flakyLedger fails Reserve for selected weekdays and delegates everything else.
type flakyLedger struct {
	*Ledger
	failing map[models.Weekday]error
}

func (f *flakyLedger) Reserve(ctx context.Context, listingID, userID string, day models.Weekday) (models.Booking, error) {
	if err, ok := f.failing[day]; ok {
		return models.Booking{}, err
	}
	return f.Ledger.Reserve(ctx, listingID, userID, day)
}

func TestBookingService_CreateBookings_StoreErrorIsolatedPerDay(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	guest := env.register(t, "guest")
	listing := env.listing(t, host)

	ledger := &flakyLedger{Ledger: env.ledger, failing: map[models.Weekday]error{
		3: errors.New("database is locked"),
	}}
	bookings := NewBookingService(env.auth, env.listings, env.users, ledger, env.events, env.notifier)

	report, err := bookings.CreateBookings(ctx, env.token(t, guest), listing.ID, []int{5, 3, 1})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 2, report.Booked())

	assert.Equal(t, models.BookingStatusBooked, report.Outcomes[0].Status)
	failed := report.Outcomes[1]
	assert.Equal(t, models.Weekday(3), failed.Day)
	assert.Equal(t, models.BookingStatusError, failed.Status)
	assert.Equal(t, string(apperrors.CodeInternal), failed.ErrorCode)
	assert.NotContains(t, failed.Error, "database is locked")
	assert.Equal(t, models.BookingStatusBooked, report.Outcomes[2].Status)
	assert.Len(t, report.Failed(), 1)

	// Days after the failing one were still attempted and persisted.
	slots, err := env.ledger.Availability(ctx, listing.ID)
	require.NoError(t, err)
	require.NotNil(t, slots[1])
	require.NotNil(t, slots[5])
	assert.Nil(t, slots[3])

	published, _ := env.notifier.last()
	assert.NotNil(t, published.Slots[5])
}

func TestBookingService_CreateBookings_DeletedAccount(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	gone := env.register(t, "gone")
	listing := env.listing(t, host)
	token := env.token(t, gone)

	_, err := env.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, gone.ID)
	require.NoError(t, err)

	report, err := env.bookings.CreateBookings(ctx, token, listing.ID, []int{2})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, models.BookingStatusError, report.Outcomes[0].Status)
	assert.Equal(t, string(apperrors.CodeUnauthorized), report.Outcomes[0].ErrorCode)
	assert.Equal(t, ErrHolderNotFound.Message, report.Outcomes[0].Error)
}

func TestBookingService_CancelBooking(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	guest := env.register(t, "guest")
	stranger := env.register(t, "stranger")
	listing := env.listing(t, host)

	report, err := env.bookings.CreateBookings(ctx, env.token(t, guest), listing.ID, []int{0})
	require.NoError(t, err)
	bookingID := report.Outcomes[0].Booking.ID

	err = env.bookings.CancelBooking(ctx, env.token(t, stranger), listing.ID, bookingID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	err = env.bookings.CancelBooking(ctx, "garbage", listing.ID, bookingID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, env.bookings.CancelBooking(ctx, env.token(t, guest), listing.ID, bookingID))

	a, err := env.bookings.Availability(ctx, listing.ID)
	require.NoError(t, err)
	assert.Nil(t, a.Slots[0])
	assert.Equal(t, host.ID, a.Host.ID)
	assert.Equal(t, "host", a.Host.Username)

	last, _ := env.notifier.last()
	assert.Nil(t, last.Slots[0])
}

func TestBookingService_MyBookings(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	guest := env.register(t, "guest")
	listing := env.listing(t, host)
	token := env.token(t, guest)

	_, err := env.bookings.CreateBookings(ctx, token, listing.ID, []int{6, 0})
	require.NoError(t, err)

	bookings, err := env.bookings.MyBookings(ctx, token)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)

	_, err = env.bookings.MyBookings(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestBookingService_Availability_UnknownListing(t *testing.T) {
	env := setupTest(t)

	_, err := env.bookings.Availability(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

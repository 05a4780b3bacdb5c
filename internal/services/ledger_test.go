package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_ReserveReleaseRoundTrip(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	guest := env.register(t, "guest")
	listing := env.listing(t, host)

	booking, err := env.ledger.Reserve(ctx, listing.ID, guest.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, models.Weekday(3), booking.Day)

	slots, err := env.ledger.Availability(ctx, listing.ID)
	require.NoError(t, err)
	require.NotNil(t, slots[3])
	assert.Equal(t, guest.ID, slots[3].UserID)
	assert.Equal(t, "guest", slots[3].Username)
	assert.Equal(t, booking.ID, slots[3].BookingID)

	require.NoError(t, env.ledger.Release(ctx, listing.ID, booking.ID, guest.ID))

	slots, err = env.ledger.Availability(ctx, listing.ID)
	require.NoError(t, err)
	for day, slot := range slots {
		assert.Nil(t, slot, "day %d should be open", day)
	}
}

func TestLedger_Reserve_Conflict(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	first := env.register(t, "first")
	second := env.register(t, "second")
	listing := env.listing(t, host)

	_, err := env.ledger.Reserve(ctx, listing.ID, first.ID, 2)
	require.NoError(t, err)

	_, err = env.ledger.Reserve(ctx, listing.ID, second.ID, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	var taken *SlotTakenError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, first.ID, taken.HeldBy.UserID)
	assert.Equal(t, "first", taken.HeldBy.Username)

	// Same weekday on another listing is independent.
	other := env.listing(t, host)
	_, err = env.ledger.Reserve(ctx, other.ID, second.ID, 2)
	assert.NoError(t, err)
}

func TestLedger_Reserve_InvalidInput(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	guest := env.register(t, "guest")

	_, err := env.ledger.Reserve(ctx, "missing-listing", guest.ID, 1)
	assert.ErrorIs(t, err, ErrListingNotFound)

	_, err = env.ledger.Reserve(ctx, "missing-listing", guest.ID, 7)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLedger_Reserve_DeletedHolder(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	gone := env.register(t, "gone")
	listing := env.listing(t, host)

	_, err := env.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, gone.ID)
	require.NoError(t, err)

	_, err = env.ledger.Reserve(ctx, listing.ID, gone.ID, 1)
	assert.ErrorIs(t, err, ErrHolderNotFound)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrListingNotFound)

	slots, err := env.ledger.Availability(ctx, listing.ID)
	require.NoError(t, err)
	assert.Nil(t, slots[1])
}

func TestLedger_ConcurrentReserve_ExactlyOneWins(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	listing := env.listing(t, host)

	const contenders = 8
	guests := make([]models.User, contenders)
	for i := range guests {
		guests[i] = env.register(t, fmt.Sprintf("guest%d", i))
	}

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]error, contenders)
	)
	for i := range guests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = env.ledger.Reserve(ctx, listing.ID, guests[i].ID, 5)
		}(i)
	}
	close(start)
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range results {
		var taken *SlotTakenError
		switch {
		case err == nil:
			wins++
		case errors.As(err, &taken):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, conflicts)

	var count int
	require.NoError(t, env.db.QueryRow(`SELECT COUNT(*) FROM bookings WHERE listing_id = ? AND day_of_week = 5`, listing.ID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLedger_AvailabilityAfterReservesAndReleases(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	ann := env.register(t, "ann")
	bob := env.register(t, "bob")
	listing := env.listing(t, host)

	holders := map[models.Weekday]models.User{0: ann, 1: bob, 2: ann, 4: bob, 6: ann}
	bookings := map[models.Weekday]models.Booking{}
	for day, user := range holders {
		b, err := env.ledger.Reserve(ctx, listing.ID, user.ID, day)
		require.NoError(t, err)
		bookings[day] = b
	}

	// Release two: one by its holder, one by the listing owner.
	require.NoError(t, env.ledger.Release(ctx, listing.ID, bookings[1].ID, bob.ID))
	require.NoError(t, env.ledger.Release(ctx, listing.ID, bookings[6].ID, host.ID))
	delete(holders, 1)
	delete(holders, 6)

	slots, err := env.ledger.Availability(ctx, listing.ID)
	require.NoError(t, err)
	for day := models.Weekday(0); day < models.DaysPerWeek; day++ {
		want, held := holders[day]
		if !held {
			assert.Nil(t, slots[day], "day %d", day)
			continue
		}
		require.NotNil(t, slots[day], "day %d", day)
		assert.Equal(t, want.ID, slots[day].UserID, "day %d", day)
	}
}

func TestLedger_Release_Authorization(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	guest := env.register(t, "guest")
	stranger := env.register(t, "stranger")
	listing := env.listing(t, host)

	booking, err := env.ledger.Reserve(ctx, listing.ID, guest.ID, 4)
	require.NoError(t, err)

	err = env.ledger.Release(ctx, listing.ID, booking.ID, stranger.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// The booking persists unchanged.
	slots, err := env.ledger.Availability(ctx, listing.ID)
	require.NoError(t, err)
	require.NotNil(t, slots[4])
	assert.Equal(t, booking.ID, slots[4].BookingID)
	assert.Equal(t, guest.ID, slots[4].UserID)

	// Unknown booking and a booking addressed under the wrong listing are both not found.
	assert.ErrorIs(t, env.ledger.Release(ctx, listing.ID, "missing", guest.ID), ErrBookingNotFound)
	other := env.listing(t, host)
	assert.ErrorIs(t, env.ledger.Release(ctx, other.ID, booking.ID, guest.ID), ErrBookingNotFound)

	// The owner may release a guest's booking.
	require.NoError(t, env.ledger.Release(ctx, listing.ID, booking.ID, host.ID))
	assert.ErrorIs(t, env.ledger.Release(ctx, listing.ID, booking.ID, host.ID), ErrBookingNotFound)
}

func TestLedger_BookingsForUser(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()
	host := env.register(t, "host")
	guest := env.register(t, "guest")
	listing := env.listing(t, host)

	for _, day := range []models.Weekday{5, 1} {
		_, err := env.ledger.Reserve(ctx, listing.ID, guest.ID, day)
		require.NoError(t, err)
	}

	bookings, err := env.ledger.BookingsForUser(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, models.Weekday(1), bookings[0].Day)
	assert.Equal(t, models.Weekday(5), bookings[1].Day)
	assert.False(t, bookings[0].CreatedAt.IsZero())

	none, err := env.ledger.BookingsForUser(ctx, host.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

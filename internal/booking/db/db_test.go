package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"ms-booking/internal/booking/db"
	"ms-booking/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(), (*models.Event)(nil), (*models.Booking)(nil)))
	t.Cleanup(func() { bunDB.Close() })

	return &db.DB{Bun: bunDB}
}

func seedEvent(t *testing.T, d *db.DB, available, capacity int) *models.Event {
	t.Helper()
	event := &models.Event{
		ID:               uuid.NewString(),
		Title:            "Test Event",
		Date:             time.Now().Add(48 * time.Hour),
		Price:            20,
		Capacity:         capacity,
		AvailableTickets: available,
		IsActive:         true,
		CreatedAt:        time.Now(),
	}
	_, err := d.Bun.NewInsert().Model(event).Exec(context.Background())
	require.NoError(t, err)
	return event
}

func seedBooking(t *testing.T, d *db.DB, eventID, userID string, qty int, status models.BookingStatus) *models.Booking {
	t.Helper()
	now := time.Now()
	booking := &models.Booking{
		ID:          uuid.NewString(),
		UserID:      userID,
		EventID:     eventID,
		Quantity:    qty,
		TotalPrice:  20 * float64(qty),
		Status:      status,
		BookingDate: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, d.InsertBooking(context.Background(), d.Bun, booking))
	return booking
}

func TestGetEvent(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	event := seedEvent(t, d, 10, 10)

	got, err := d.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, 10, got.AvailableTickets)

	_, err = d.GetEvent(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetBookingByUserAndEvent(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	event := seedEvent(t, d, 10, 10)
	booking := seedBooking(t, d, event.ID, "user-a", 2, models.StatusConfirmed)

	got, err := d.GetBookingByUserAndEvent(ctx, d.Bun, "user-a", event.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, booking.ID, got.ID)

	// No booking for another user is a nil result, not an error.
	got, err = d.GetBookingByUserAndEvent(ctx, d.Bun, "user-b", event.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateBookingPersistsMutableFields(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	event := seedEvent(t, d, 10, 10)
	booking := seedBooking(t, d, event.ID, "user-a", 2, models.StatusConfirmed)

	booking.Quantity = 5
	booking.TotalPrice = 100
	booking.Status = models.StatusCancelled
	booking.UpdatedAt = time.Now()
	require.NoError(t, d.UpdateBooking(ctx, d.Bun, booking))

	got, err := d.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, 100.0, got.TotalPrice)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	event := seedEvent(t, d, 10, 10)

	sentinel := errors.New("boom")
	err := d.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		ev, err := d.GetEventForUpdate(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		ev.AvailableTickets = 0
		if err := d.UpdateEventAvailability(ctx, tx, ev); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	// The write inside the failed transaction must not be observable.
	got, err := d.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AvailableTickets)
}

func TestActiveReservedForEvent(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	event := seedEvent(t, d, 3, 10)
	seedBooking(t, d, event.ID, "user-a", 4, models.StatusConfirmed)
	seedBooking(t, d, event.ID, "user-b", 3, models.StatusPending)
	seedBooking(t, d, event.ID, "user-c", 6, models.StatusCancelled)

	reserved, err := d.ActiveReservedForEvent(ctx, d.Bun, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, reserved)
}

func TestListBookingsByUserNewestFirst(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	event := seedEvent(t, d, 10, 10)

	older := seedBooking(t, d, event.ID, "user-a", 1, models.StatusConfirmed)
	older.BookingDate = time.Now().Add(-time.Hour)
	require.NoError(t, d.UpdateBooking(ctx, d.Bun, older))

	other := seedEvent(t, d, 10, 10)
	newer := seedBooking(t, d, other.ID, "user-a", 2, models.StatusConfirmed)

	bookings, err := d.ListBookingsByUser(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, newer.ID, bookings[0].ID)
	assert.Equal(t, older.ID, bookings[1].ID)

	none, err := d.ListBookingsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteBooking(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	event := seedEvent(t, d, 10, 10)
	booking := seedBooking(t, d, event.ID, "user-a", 2, models.StatusConfirmed)

	require.NoError(t, d.DeleteBooking(ctx, d.Bun, booking.ID))

	_, err := d.GetBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

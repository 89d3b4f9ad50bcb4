package db

import (
	"context"
	"database/sql"
	"errors"
	"ms-booking/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// DB wraps a bun handle with the queries the booking service needs. The
// transactional variants take a bun.IDB so they run against the transaction
// the service opened, never against the bare pool.
type DB struct {
	Bun *bun.DB
}

// RunInTx executes fn inside one database transaction. Everything fn writes
// commits together or not at all; the returned error is fn's own error or
// the commit failure.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, fn)
}

// ---------------- EVENTS ----------------

// GetEvent fetches an event without locking it. Read paths only.
func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetEventForUpdate fetches the event row with a pessimistic row lock, so
// concurrent booking intents for the same event serialize on the store.
// SQLite has a single writer lock and no FOR UPDATE, so the clause is only
// added on Postgres.
func (d *DB) GetEventForUpdate(ctx context.Context, idb bun.IDB, id string) (*models.Event, error) {
	var event models.Event
	q := idb.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1)
	if d.Bun.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateEventAvailability persists the new available_tickets counter. It is
// only ever called inside the transaction that also writes the booking row.
func (d *DB) UpdateEventAvailability(ctx context.Context, idb bun.IDB, event *models.Event) error {
	_, err := idb.NewUpdate().
		Model(event).
		Column("available_tickets").
		Where("id = ?", event.ID).
		Exec(ctx)
	return err
}

// ---------------- BOOKINGS ----------------

// GetBooking fetches one booking outside any transaction. Read paths only.
func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return d.GetBookingByID(ctx, d.Bun, id)
}

// GetBookingByID fetches one booking inside the given transaction scope.
func (d *DB) GetBookingByID(ctx context.Context, idb bun.IDB, id string) (*models.Booking, error) {
	var booking models.Booking
	err := idb.NewSelect().
		Model(&booking).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingByUserAndEvent finds the caller's booking for an event in any
// status, or (nil, nil) when none exists. At most one row can match because
// cancelled bookings are reactivated in place rather than duplicated.
func (d *DB) GetBookingByUserAndEvent(ctx context.Context, idb bun.IDB, userID, eventID string) (*models.Booking, error) {
	var booking models.Booking
	err := idb.NewSelect().
		Model(&booking).
		Where("user_id = ?", userID).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// InsertBooking inserts a new booking row.
func (d *DB) InsertBooking(ctx context.Context, idb bun.IDB, booking *models.Booking) error {
	_, err := idb.NewInsert().Model(booking).Exec(ctx)
	return err
}

// UpdateBooking persists the mutable booking fields.
func (d *DB) UpdateBooking(ctx context.Context, idb bun.IDB, booking *models.Booking) error {
	_, err := idb.NewUpdate().
		Model(booking).
		Column("quantity", "total_price", "status", "booking_date", "updated_at").
		Where("id = ?", booking.ID).
		Exec(ctx)
	return err
}

// DeleteBooking removes a booking row. Admin-only path.
func (d *DB) DeleteBooking(ctx context.Context, idb bun.IDB, id string) error {
	_, err := idb.NewDelete().
		Model((*models.Booking)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ListBookingsByUser returns the caller's bookings, newest first.
func (d *DB) ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("user_id = ?", userID).
		Order("booking_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

// ListBookings returns every booking, newest first. Admin-only path.
func (d *DB) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Order("booking_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

// ActiveReservedForEvent sums the quantities of all non-cancelled bookings
// for an event. Used by the invariant audit and tests, not by the hot path.
func (d *DB) ActiveReservedForEvent(ctx context.Context, idb bun.IDB, eventID string) (int, error) {
	var total sql.NullInt64
	err := idb.NewSelect().
		ColumnExpr("SUM(quantity)").
		Table("bookings").
		Where("event_id = ?", eventID).
		Where("status != ?", models.StatusCancelled).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

package analytics_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"ms-booking/internal/analytics"
	"ms-booking/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:analytics_%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(), (*models.Event)(nil), (*models.Booking)(nil)))
	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

func seedEvent(t *testing.T, db *bun.DB, id, title string) {
	t.Helper()
	event := &models.Event{
		ID:               id,
		Title:            title,
		Date:             time.Now().Add(24 * time.Hour),
		Price:            20,
		Capacity:         50,
		AvailableTickets: 50,
		IsActive:         true,
		CreatedAt:        time.Now(),
	}
	_, err := db.NewInsert().Model(event).Exec(context.Background())
	require.NoError(t, err)
}

func seedBooking(t *testing.T, db *bun.DB, eventID string, qty int, price float64, status models.BookingStatus) {
	t.Helper()
	now := time.Now()
	booking := &models.Booking{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		EventID:     eventID,
		Quantity:    qty,
		TotalPrice:  price,
		Status:      status,
		BookingDate: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := db.NewInsert().Model(booking).Exec(context.Background())
	require.NoError(t, err)
}

func TestGetBookingStatistics(t *testing.T) {
	db := setupTestDB(t)
	svc := analytics.NewService(db)
	ctx := context.Background()

	seedEvent(t, db, "ev-1", "Jazz Night")
	seedEvent(t, db, "ev-2", "Tech Meetup")

	seedBooking(t, db, "ev-1", 2, 40, models.StatusConfirmed)
	seedBooking(t, db, "ev-1", 3, 60, models.StatusConfirmed)
	seedBooking(t, db, "ev-1", 1, 20, models.StatusCancelled)
	seedBooking(t, db, "ev-2", 4, 80, models.StatusPending)

	stats, err := svc.GetBookingStatistics(ctx)
	require.NoError(t, err)

	// Cancelled bookings count toward neither totals nor revenue.
	assert.Equal(t, 3, stats.TotalBookings)
	assert.Equal(t, 180.0, stats.TotalRevenue)

	require.Len(t, stats.Events, 2)
	byID := map[string]analytics.EventBookingMetrics{}
	for _, m := range stats.Events {
		byID[m.EventID] = m
	}

	ev1 := byID["ev-1"]
	assert.Equal(t, "Jazz Night", ev1.Title)
	assert.Equal(t, 2, ev1.ConfirmedBookings)
	assert.Equal(t, 1, ev1.CancelledBookings)
	assert.Equal(t, 5, ev1.TicketsSold)
	assert.Equal(t, 100.0, ev1.Revenue)

	ev2 := byID["ev-2"]
	assert.Equal(t, 0, ev2.ConfirmedBookings)
	assert.Equal(t, 4, ev2.TicketsSold)
	assert.Equal(t, 80.0, ev2.Revenue)
}

func TestGetBookingStatisticsEmpty(t *testing.T) {
	db := setupTestDB(t)
	svc := analytics.NewService(db)

	stats, err := svc.GetBookingStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalBookings)
	assert.Equal(t, 0.0, stats.TotalRevenue)
	assert.Empty(t, stats.Events)
}

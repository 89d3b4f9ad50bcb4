package analytics

import (
	"context"
	"fmt"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// Service answers read-only reporting queries over the persisted event and
// booking records. It never mutates inventory; the booking service is the
// only writer.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// BookingStatistics aggregates totals across all non-cancelled bookings plus
// a per-event breakdown.
type BookingStatistics struct {
	TotalBookings int                   `json:"total_bookings"`
	TotalRevenue  float64               `json:"total_revenue"`
	Events        []EventBookingMetrics `json:"events"`
}

// EventBookingMetrics is the per-event slice of the statistics.
type EventBookingMetrics struct {
	EventID           string  `json:"event_id"`
	Title             string  `json:"title"`
	ConfirmedBookings int     `json:"confirmed_bookings"`
	CancelledBookings int     `json:"cancelled_bookings"`
	TicketsSold       int     `json:"tickets_sold"`
	Revenue           float64 `json:"revenue"`
}

// GetBookingStatistics computes booking counts and revenue sums.
func (s *Service) GetBookingStatistics(ctx context.Context) (*BookingStatistics, error) {
	stats := &BookingStatistics{Events: []EventBookingMetrics{}}

	err := s.db.NewSelect().
		Model((*models.Booking)(nil)).
		ColumnExpr("COUNT(*)").
		ColumnExpr("COALESCE(SUM(total_price), 0)").
		Where("status != ?", models.StatusCancelled).
		Scan(ctx, &stats.TotalBookings, &stats.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("aggregate bookings: %w", err)
	}

	rows, err := s.perEventMetrics(ctx)
	if err != nil {
		return nil, err
	}
	stats.Events = rows
	return stats, nil
}

func (s *Service) perEventMetrics(ctx context.Context) ([]EventBookingMetrics, error) {
	var rows []EventBookingMetrics
	err := s.db.NewSelect().
		TableExpr("events AS e").
		ColumnExpr("e.id AS event_id").
		ColumnExpr("e.title AS title").
		ColumnExpr("COALESCE(SUM(CASE WHEN b.status = ? THEN 1 ELSE 0 END), 0) AS confirmed_bookings", models.StatusConfirmed).
		ColumnExpr("COALESCE(SUM(CASE WHEN b.status = ? THEN 1 ELSE 0 END), 0) AS cancelled_bookings", models.StatusCancelled).
		ColumnExpr("COALESCE(SUM(CASE WHEN b.status != ? THEN b.quantity ELSE 0 END), 0) AS tickets_sold", models.StatusCancelled).
		ColumnExpr("COALESCE(SUM(CASE WHEN b.status != ? THEN b.total_price ELSE 0 END), 0) AS revenue", models.StatusCancelled).
		Join("LEFT JOIN bookings AS b ON b.event_id = e.id").
		GroupExpr("e.id, e.title").
		OrderExpr("e.id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("per-event metrics: %w", err)
	}
	if rows == nil {
		rows = []EventBookingMetrics{}
	}
	return rows, nil
}

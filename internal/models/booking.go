package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BookingStatus is the lifecycle state of a booking. Pending and confirmed
// bookings count against event capacity; cancelled bookings do not.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the status counts against event capacity.
func (s BookingStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Booking is one reservation row. The (user_id, event_id) pair is unique
// among non-cancelled bookings; a cancelled booking is reactivated in place
// rather than duplicated.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID          string        `bun:"id,pk" json:"id"`
	UserID      string        `bun:"user_id,notnull" json:"user_id"`
	EventID     string        `bun:"event_id,notnull" json:"event_id"`
	Quantity    int           `bun:"quantity,notnull" json:"quantity"`
	TotalPrice  float64       `bun:"total_price,notnull" json:"total_price"`
	Status      BookingStatus `bun:"status,notnull" json:"status"`
	BookingDate time.Time     `bun:"booking_date,notnull" json:"booking_date"`
	CreatedAt   time.Time     `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time     `bun:"updated_at,notnull" json:"updated_at"`
}

// EffectiveReserved is the number of tickets this booking holds against the
// event's capacity: the quantity while active, zero once cancelled.
func (b *Booking) EffectiveReserved() int {
	if b.Status.Active() {
		return b.Quantity
	}
	return 0
}

// BookEventRequest is the body of POST /bookings/book-event/{eventId}.
type BookEventRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateMyBookingRequest is the body of PATCH /bookings/my-bookings/{id}.
// Non-admin callers may only change the quantity or cancel; any other
// status value (and any unknown field) is rejected wholesale.
type UpdateMyBookingRequest struct {
	Quantity *int           `json:"quantity,omitempty"`
	Status   *BookingStatus `json:"status,omitempty"`
}

// AdminUpdateBookingRequest is the body of PATCH /admin/bookings/{id}.
// Admins may set any valid status and quantity in a single call.
type AdminUpdateBookingRequest struct {
	Quantity *int           `json:"quantity,omitempty"`
	Status   *BookingStatus `json:"status,omitempty"`
}

// BookingResponse pairs a booking with the human-readable outcome message.
type BookingResponse struct {
	Booking *Booking `json:"booking"`
	Message string   `json:"message,omitempty"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is the inventory record for one bookable event. AvailableTickets is
// the contended counter: only the booking service mutates it, and always in
// the same transaction as the booking row it settles against.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID               string    `bun:"id,pk" json:"id"`
	Title            string    `bun:"title,notnull" json:"title"`
	Description      string    `bun:"description" json:"description,omitempty"`
	Location         string    `bun:"location" json:"location,omitempty"`
	Date             time.Time `bun:"date,notnull" json:"date"`
	Price            float64   `bun:"price,notnull" json:"price"`
	Capacity         int       `bun:"capacity,notnull" json:"capacity"`
	AvailableTickets int       `bun:"available_tickets,notnull" json:"available_tickets"`
	IsActive         bool      `bun:"is_active" json:"is_active"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"created_at"`
}

// IsUpcoming reports whether the event date is still in the future.
// Past events are immutable for booking purposes.
func (e *Event) IsUpcoming(now time.Time) bool {
	return e.Date.After(now)
}

func (e *Event) IsSoldOut() bool {
	return e.AvailableTickets == 0
}

// EventAvailability is the read-side projection served from the Redis cache.
type EventAvailability struct {
	EventID          string `json:"event_id"`
	Capacity         int    `json:"capacity"`
	AvailableTickets int    `json:"available_tickets"`
	SoldOut          bool   `json:"sold_out"`
}

package booking

import "ms-booking/internal/models"

// effectiveReserved returns the number of tickets a (status, quantity) pair
// holds against capacity. A missing booking and a cancelled booking both
// reserve nothing.
func effectiveReserved(status models.BookingStatus, quantity int) int {
	if status.Active() {
		return quantity
	}
	return 0
}

// reservedDelta is the change in reserved tickets caused by moving a booking
// from (oldStatus, oldQty) to (newStatus, newQty). A positive delta takes
// tickets from the pool, a negative one returns them:
//
//	availableTickets' = availableTickets - reservedDelta
//
// The one formula covers every legal transition, including admin edits that
// change status and quantity in the same call, and re-booking after a
// cancellation (the cancelled booking reserved nothing, so the full new
// quantity is taken).
func reservedDelta(oldStatus models.BookingStatus, oldQty int, newStatus models.BookingStatus, newQty int) int {
	return effectiveReserved(newStatus, newQty) - effectiveReserved(oldStatus, oldQty)
}

package booking

import "errors"

// Domain errors raised by the booking service. All of them are detected
// before any write, so a caller seeing one can be sure the transaction was
// rolled back cleanly. Only ErrTransactionFailed is worth retrying without
// changing the request.
var (
	// ErrNotFound means the event or booking id did not resolve.
	ErrNotFound = errors.New("not found")

	// ErrEventClosed means the event date is in the past; bookings against
	// past events are immutable.
	ErrEventClosed = errors.New("event is in the past")

	// ErrEventInactive means the event is not open for new bookings.
	ErrEventInactive = errors.New("event is not active")

	// ErrAlreadyBooked means the caller already holds an active booking for
	// this event.
	ErrAlreadyBooked = errors.New("event already booked")

	// ErrInsufficientTickets means the requested quantity (or the increase)
	// exceeds the available tickets. The wrapped message carries the count.
	ErrInsufficientTickets = errors.New("not enough tickets available")

	// ErrForbidden means the caller does not own the booking, or tried to set
	// a field or status value not permitted for non-admin callers.
	ErrForbidden = errors.New("not permitted")

	// ErrInvalidQuantity means the quantity was below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrInvalidStatus means the status value is not a known booking status.
	ErrInvalidStatus = errors.New("invalid booking status")

	// ErrAlreadyCancelled means a cancel was requested on a booking that is
	// already cancelled.
	ErrAlreadyCancelled = errors.New("booking is already cancelled")

	// ErrTransactionFailed means the atomic commit could not complete (lock
	// timeout, store error). State is unchanged and the call is retryable.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInventoryInvariant means a transition would have pushed available
	// tickets outside [0, capacity]. The guard rejects the whole transaction.
	ErrInventoryInvariant = errors.New("inventory invariant violated")
)

var domainErrors = []error{
	ErrNotFound,
	ErrEventClosed,
	ErrEventInactive,
	ErrAlreadyBooked,
	ErrInsufficientTickets,
	ErrForbidden,
	ErrInvalidQuantity,
	ErrInvalidStatus,
	ErrAlreadyCancelled,
	ErrInventoryInvariant,
}

// isDomainError reports whether err is one of the deterministic business
// errors above, as opposed to a store failure that should surface as
// ErrTransactionFailed.
func isDomainError(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

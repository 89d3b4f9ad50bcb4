package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store is the persistence surface the service drives. The bun.IDB-taking
// methods run inside the transaction the service opened via RunInTx.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetEventForUpdate(ctx context.Context, idb bun.IDB, id string) (*models.Event, error)
	UpdateEventAvailability(ctx context.Context, idb bun.IDB, event *models.Event) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingByID(ctx context.Context, idb bun.IDB, id string) (*models.Booking, error)
	GetBookingByUserAndEvent(ctx context.Context, idb bun.IDB, userID, eventID string) (*models.Booking, error)
	InsertBooking(ctx context.Context, idb bun.IDB, booking *models.Booking) error
	UpdateBooking(ctx context.Context, idb bun.IDB, booking *models.Booking) error
	DeleteBooking(ctx context.Context, idb bun.IDB, id string) error
	ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
}

// Publisher streams booking lifecycle events to Kafka after commit.
type Publisher interface {
	PublishBookingConfirmed(booking models.Booking) error
	PublishBookingUpdated(booking models.Booking) error
	PublishBookingCancelled(booking models.Booking) error
}

// AvailabilityCache is the Redis-backed read cache for event availability.
// GetAvailability returns (nil, nil) on a miss.
type AvailabilityCache interface {
	GetAvailability(ctx context.Context, eventID string) (*models.EventAvailability, error)
	SetAvailability(ctx context.Context, avail models.EventAvailability) error
	InvalidateEvent(ctx context.Context, eventID string) error
}

// Service is the transactional booking engine. Every mutating operation runs
// as one atomic unit of work spanning the event inventory row (locked for
// the duration) and the booking row, so the invariant
//
//	availableTickets + sum(active booking quantities) == capacity
//
// holds at every committed state. Kafka and the cache are touched only after
// a successful commit and never roll a booking back.
type Service struct {
	Store  Store
	Kafka  Publisher
	Cache  AvailabilityCache
	Logger *logger.Logger
}

func NewService(store Store, kafka Publisher, cache AvailabilityCache, log *logger.Logger) *Service {
	return &Service{Store: store, Kafka: kafka, Cache: cache, Logger: log}
}

// BookEvent reserves quantity tickets for userID on eventID. A cancelled
// prior booking is reactivated in place with the new quantity; an active one
// rejects the call with ErrAlreadyBooked.
func (s *Service) BookEvent(ctx context.Context, userID, eventID string, quantity int) (*models.BookingResponse, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var booked *models.Booking
	var title string
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		event, err := s.lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		title = event.Title

		if !event.IsActive {
			return fmt.Errorf("%w: %s", ErrEventInactive, event.ID)
		}
		if !event.IsUpcoming(time.Now()) {
			return fmt.Errorf("%w: %s", ErrEventClosed, event.ID)
		}

		existing, err := s.Store.GetBookingByUserAndEvent(ctx, tx, userID, eventID)
		if err != nil {
			return fmt.Errorf("lookup existing booking: %w", err)
		}
		if existing != nil && existing.Status != models.StatusCancelled {
			return fmt.Errorf("%w: event %s", ErrAlreadyBooked, eventID)
		}

		// A cancelled prior booking reserves nothing, so the delta is the
		// full new quantity in both branches.
		var prior models.BookingStatus
		priorQty := 0
		if existing != nil {
			prior, priorQty = existing.Status, existing.Quantity
		} else {
			prior = models.StatusCancelled
		}
		newAvailable := event.AvailableTickets - reservedDelta(prior, priorQty, models.StatusConfirmed, quantity)
		if err := checkInventory(event, newAvailable); err != nil {
			return err
		}

		now := time.Now()
		if existing == nil {
			booked = &models.Booking{
				ID:          uuid.NewString(),
				UserID:      userID,
				EventID:     eventID,
				Quantity:    quantity,
				TotalPrice:  event.Price * float64(quantity),
				Status:      models.StatusConfirmed,
				BookingDate: now,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.Store.InsertBooking(ctx, tx, booked); err != nil {
				return fmt.Errorf("insert booking: %w", err)
			}
		} else {
			existing.Status = models.StatusConfirmed
			existing.Quantity = quantity
			existing.TotalPrice = event.Price * float64(quantity)
			existing.BookingDate = now
			existing.UpdatedAt = now
			if err := s.Store.UpdateBooking(ctx, tx, existing); err != nil {
				return fmt.Errorf("reactivate booking: %w", err)
			}
			booked = existing
		}

		event.AvailableTickets = newAvailable
		if err := s.Store.UpdateEventAvailability(ctx, tx, event); err != nil {
			return fmt.Errorf("update availability: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.classify(err)
	}

	s.Logger.LogBooking("BOOK", booked.ID, fmt.Sprintf("%d ticket(s) for event %s", booked.Quantity, eventID))
	s.afterCommit(ctx, booked, s.publishConfirmed)

	return &models.BookingResponse{
		Booking: booked,
		Message: fmt.Sprintf("Successfully booked %d ticket(s) for %s", quantity, title),
	}, nil
}

// UpdateMyBooking applies a quantity change and/or a cancellation to the
// caller's own booking. Non-admin callers may only move the status to
// cancelled; any other status value is rejected before the transaction.
func (s *Service) UpdateMyBooking(ctx context.Context, userID, bookingID string, req models.UpdateMyBookingRequest) (*models.Booking, error) {
	if req.Status != nil && *req.Status != models.StatusCancelled {
		return nil, fmt.Errorf("%w: you can only cancel your booking", ErrForbidden)
	}
	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	return s.applyUpdate(ctx, bookingID, req.Quantity, req.Status, &userID)
}

// CancelBooking moves the caller's booking to cancelled and returns its full
// quantity to the pool.
func (s *Service) CancelBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	cancelled := models.StatusCancelled
	return s.applyUpdate(ctx, bookingID, nil, &cancelled, &userID)
}

// AdminUpdateBooking applies an arbitrary (status, quantity) edit without
// ownership checks. The generic reserved-quantity delta covers edits that
// change both in one call. Past-event edits are still rejected.
func (s *Service) AdminUpdateBooking(ctx context.Context, bookingID string, req models.AdminUpdateBookingRequest) (*models.Booking, error) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
	}
	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	return s.applyUpdate(ctx, bookingID, req.Quantity, req.Status, nil)
}

// applyUpdate is the shared transactional core of the three update flows.
// ownerID non-nil enforces ownership; status and quantity are already
// validated for the caller's role.
func (s *Service) applyUpdate(ctx context.Context, bookingID string, quantity *int, status *models.BookingStatus, ownerID *string) (*models.Booking, error) {
	var updated *models.Booking
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		booking, err := s.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if ownerID != nil && booking.UserID != *ownerID {
			return fmt.Errorf("%w: booking %s does not belong to you", ErrForbidden, bookingID)
		}

		event, err := s.lockEvent(ctx, tx, booking.EventID)
		if err != nil {
			return err
		}
		if !event.IsUpcoming(time.Now()) {
			return fmt.Errorf("%w: %s", ErrEventClosed, event.ID)
		}

		newStatus := booking.Status
		if status != nil {
			if *status == models.StatusCancelled && booking.Status == models.StatusCancelled {
				return fmt.Errorf("%w: %s", ErrAlreadyCancelled, bookingID)
			}
			newStatus = *status
		}
		newQty := booking.Quantity
		if quantity != nil {
			newQty = *quantity
		}

		delta := reservedDelta(booking.Status, booking.Quantity, newStatus, newQty)
		newAvailable := event.AvailableTickets - delta
		if err := checkInventory(event, newAvailable); err != nil {
			return err
		}

		if newQty != booking.Quantity {
			booking.TotalPrice = event.Price * float64(newQty)
		}
		booking.Quantity = newQty
		booking.Status = newStatus
		booking.UpdatedAt = time.Now()
		if err := s.Store.UpdateBooking(ctx, tx, booking); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}

		if delta != 0 {
			event.AvailableTickets = newAvailable
			if err := s.Store.UpdateEventAvailability(ctx, tx, event); err != nil {
				return fmt.Errorf("update availability: %w", err)
			}
		}
		updated = booking
		return nil
	})
	if err != nil {
		return nil, s.classify(err)
	}

	s.Logger.LogBooking("UPDATE", updated.ID, fmt.Sprintf("status=%s quantity=%d", updated.Status, updated.Quantity))
	if updated.Status == models.StatusCancelled {
		s.afterCommit(ctx, updated, s.publishCancelled)
	} else {
		s.afterCommit(ctx, updated, s.publishUpdated)
	}
	return updated, nil
}

// AdminDeleteBooking removes the booking row entirely. While the event is
// still upcoming the booking's reserved tickets go back to the pool; a
// cancelled booking reserves nothing, so deleting it returns nothing. Past
// events keep their counters untouched.
func (s *Service) AdminDeleteBooking(ctx context.Context, bookingID string) error {
	var deleted *models.Booking
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		booking, err := s.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		event, err := s.lockEvent(ctx, tx, booking.EventID)
		if err != nil {
			return err
		}

		if event.IsUpcoming(time.Now()) {
			newAvailable := event.AvailableTickets + booking.EffectiveReserved()
			if err := checkInventory(event, newAvailable); err != nil {
				return err
			}
			if newAvailable != event.AvailableTickets {
				event.AvailableTickets = newAvailable
				if err := s.Store.UpdateEventAvailability(ctx, tx, event); err != nil {
					return fmt.Errorf("update availability: %w", err)
				}
			}
		}

		if err := s.Store.DeleteBooking(ctx, tx, bookingID); err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		deleted = booking
		return nil
	})
	if err != nil {
		return s.classify(err)
	}

	s.Logger.LogBooking("DELETE", deleted.ID, fmt.Sprintf("removed, %d ticket(s) settled", deleted.Quantity))
	s.afterCommit(ctx, deleted, s.publishCancelled)
	return nil
}

// ---------------- READ PATHS ----------------

func (s *Service) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.Store.GetBooking(ctx, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *Service) MyBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.Store.ListBookingsByUser(ctx, userID)
}

func (s *Service) AllBookings(ctx context.Context) ([]models.Booking, error) {
	return s.Store.ListBookings(ctx)
}

// EventAvailability serves the availability projection, from the cache when
// possible. Cache failures fall through to the store and are logged only.
func (s *Service) EventAvailability(ctx context.Context, eventID string) (*models.EventAvailability, error) {
	if s.Cache != nil {
		avail, err := s.Cache.GetAvailability(ctx, eventID)
		if err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("availability lookup for %s: %v", eventID, err))
		} else if avail != nil {
			return avail, nil
		}
	}

	event, err := s.Store.GetEvent(ctx, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	if err != nil {
		return nil, err
	}

	avail := models.EventAvailability{
		EventID:          event.ID,
		Capacity:         event.Capacity,
		AvailableTickets: event.AvailableTickets,
		SoldOut:          event.IsSoldOut(),
	}
	if s.Cache != nil {
		if err := s.Cache.SetAvailability(ctx, avail); err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("availability store for %s: %v", eventID, err))
		}
	}
	return &avail, nil
}

// ---------------- HELPERS ----------------

// checkInventory is the invariant guard: a transition commits only if the
// new counter stays within [0, capacity].
func checkInventory(event *models.Event, newAvailable int) error {
	if newAvailable < 0 {
		return fmt.Errorf("%w: only %d tickets available", ErrInsufficientTickets, event.AvailableTickets)
	}
	if newAvailable > event.Capacity {
		return fmt.Errorf("%w: %d exceeds capacity %d for event %s",
			ErrInventoryInvariant, newAvailable, event.Capacity, event.ID)
	}
	return nil
}

func (s *Service) lockEvent(ctx context.Context, tx bun.Tx, eventID string) (*models.Event, error) {
	event, err := s.Store.GetEventForUpdate(ctx, tx, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}
	return event, nil
}

func (s *Service) lockBooking(ctx context.Context, tx bun.Tx, bookingID string) (*models.Booking, error) {
	booking, err := s.Store.GetBookingByID(ctx, tx, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	return booking, nil
}

// classify maps store and commit failures to ErrTransactionFailed while
// passing deterministic business errors through untouched.
func (s *Service) classify(err error) error {
	if isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
}

// afterCommit runs the post-commit side effects: cache invalidation and the
// Kafka lifecycle event. Neither can undo the committed booking; failures
// are logged and dropped.
func (s *Service) afterCommit(ctx context.Context, booking *models.Booking, publish func(models.Booking) error) {
	if s.Cache != nil {
		if err := s.Cache.InvalidateEvent(ctx, booking.EventID); err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("invalidate event %s: %v", booking.EventID, err))
		}
	}
	if publish != nil {
		if err := publish(*booking); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("publish for booking %s: %v", booking.ID, err))
		}
	}
}

func (s *Service) publishConfirmed(b models.Booking) error {
	if s.Kafka == nil {
		return nil
	}
	return s.Kafka.PublishBookingConfirmed(b)
}

func (s *Service) publishUpdated(b models.Booking) error {
	if s.Kafka == nil {
		return nil
	}
	return s.Kafka.PublishBookingUpdated(b)
}

func (s *Service) publishCancelled(b models.Booking) error {
	if s.Kafka == nil {
		return nil
	}
	return s.Kafka.PublishBookingCancelled(b)
}

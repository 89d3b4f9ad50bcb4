package booking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/qr"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *booking.Service
	QR      *qr.Generator
	Logger  *logger.Logger
}

func NewHandler(service *booking.Service, qrGen *qr.Generator, log *logger.Logger) *Handler {
	return &Handler{Service: service, QR: qrGen, Logger: log}
}

// statusFor maps a booking domain error to its HTTP status. Transaction
// failures get 409 so callers know a retry may succeed.
func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrEventClosed),
		errors.Is(err, booking.ErrEventInactive),
		errors.Is(err, booking.ErrAlreadyBooked),
		errors.Is(err, booking.ErrInsufficientTickets),
		errors.Is(err, booking.ErrInvalidQuantity),
		errors.Is(err, booking.ErrInvalidStatus),
		errors.Is(err, booking.ErrAlreadyCancelled):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrTransactionFailed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusConflict {
		h.Logger.Error("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
	utils.WriteJSON(w, status, utils.ErrorResponse("Request failed", err.Error()))
}

// BookEvent handles POST /bookings/book-event/{eventId}.
func (h *Handler) BookEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	userID := auth.UserID(r.Context())

	// Quantity defaults to one ticket when the body omits it.
	req := models.BookEventRequest{Quantity: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
			return
		}
	}

	resp, err := h.Service.BookEvent(r.Context(), userID, eventID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Logger.LogAPI(r.Method, r.URL.Path, "201")
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse(resp.Message, resp))
}

// MyBookings handles GET /bookings/my-bookings.
func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.MyBookings(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Your bookings", bookings))
}

// UpdateMyBooking handles PATCH /bookings/my-bookings/{id}. Unknown fields
// are rejected wholesale; there is no partial success on a mixed payload.
func (h *Handler) UpdateMyBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	userID := auth.UserID(r.Context())

	var req models.UpdateMyBookingRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest,
			utils.ErrorResponse("Invalid request body", "you can only update quantity or cancel the booking"))
		return
	}

	updated, err := h.Service.UpdateMyBooking(r.Context(), userID, bookingID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	message := "Booking updated successfully"
	if updated.Status == models.StatusCancelled {
		message = "Booking cancelled successfully"
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(message, updated))
}

// CancelBooking handles PATCH /bookings/{bookingId}/cancel.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	userID := auth.UserID(r.Context())

	cancelled, err := h.Service.CancelBooking(r.Context(), userID, bookingID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking cancelled successfully", cancelled))
}

// BookingQR handles GET /bookings/my-bookings/{id}/qr and streams the
// encrypted confirmation QR as a PNG.
func (h *Handler) BookingQR(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	userID := auth.UserID(r.Context())

	b, err := h.Service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if b.UserID != userID {
		h.writeError(w, r, fmt.Errorf("%w: booking %s does not belong to you", booking.ErrForbidden, bookingID))
		return
	}
	if b.Status == models.StatusCancelled {
		h.writeError(w, r, fmt.Errorf("%w: no ticket for a cancelled booking", booking.ErrAlreadyCancelled))
		return
	}

	png, err := h.QR.GenerateBookingQR(*b)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("generate QR for booking %s: %v", bookingID, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to generate QR code", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// EventAvailability handles GET /events/{eventId}/availability.
func (h *Handler) EventAvailability(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	avail, err := h.Service.EventAvailability(r.Context(), eventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event availability", avail))
}

// ---------------- ADMIN ----------------

// AdminListBookings handles GET /admin/bookings.
func (h *Handler) AdminListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.AllBookings(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("All bookings", bookings))
}

// AdminGetBooking handles GET /admin/bookings/{id}.
func (h *Handler) AdminGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking", b))
}

// AdminUpdateBooking handles PATCH /admin/bookings/{id}. Any valid status
// value is legal here; the generic delta formula settles the inventory.
func (h *Handler) AdminUpdateBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")

	var req models.AdminUpdateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	updated, err := h.Service.AdminUpdateBooking(r.Context(), bookingID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking updated successfully", updated))
}

// AdminDeleteBooking handles DELETE /admin/bookings/{id}.
func (h *Handler) AdminDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.AdminDeleteBooking(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"fmt"
	"net/http"

	"ms-booking/internal/analytics"
	"ms-booking/internal/logger"
	"ms-booking/internal/utils"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// GetBookingStatistics serves GET /admin/bookings/statistics.
func (h *Handler) GetBookingStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetBookingStatistics(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("booking statistics: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError,
			utils.ErrorResponse("Failed to compute booking statistics", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking statistics", stats))
}

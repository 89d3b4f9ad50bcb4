package booking

import (
	"testing"

	"ms-booking/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveReserved(t *testing.T) {
	assert.Equal(t, 4, effectiveReserved(models.StatusConfirmed, 4))
	assert.Equal(t, 2, effectiveReserved(models.StatusPending, 2))
	assert.Equal(t, 0, effectiveReserved(models.StatusCancelled, 7))
}

func TestReservedDelta(t *testing.T) {
	tests := []struct {
		name      string
		oldStatus models.BookingStatus
		oldQty    int
		newStatus models.BookingStatus
		newQty    int
		want      int
	}{
		{"new confirmed booking", models.StatusCancelled, 0, models.StatusConfirmed, 3, 3},
		{"rebook after cancel takes full amount", models.StatusCancelled, 5, models.StatusConfirmed, 2, 2},
		{"quantity increase", models.StatusConfirmed, 2, models.StatusConfirmed, 5, 3},
		{"quantity decrease refunds pool", models.StatusConfirmed, 5, models.StatusConfirmed, 1, -4},
		{"cancel returns everything", models.StatusConfirmed, 4, models.StatusCancelled, 4, -4},
		{"admin cancel with quantity edit", models.StatusConfirmed, 2, models.StatusCancelled, 5, -2},
		{"admin pending to confirmed same quantity", models.StatusPending, 3, models.StatusConfirmed, 3, 0},
		{"cancelled stays cancelled", models.StatusCancelled, 3, models.StatusCancelled, 9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reservedDelta(tt.oldStatus, tt.oldQty, tt.newStatus, tt.newQty)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckInventory(t *testing.T) {
	event := &models.Event{ID: "ev1", Capacity: 10, AvailableTickets: 3}

	assert.NoError(t, checkInventory(event, 0))
	assert.NoError(t, checkInventory(event, 10))

	err := checkInventory(event, -1)
	assert.ErrorIs(t, err, ErrInsufficientTickets)
	assert.Contains(t, err.Error(), "only 3 tickets available")

	assert.ErrorIs(t, checkInventory(event, 11), ErrInventoryInvariant)
}

package db

import (
	"context"
	"log"
	"time"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// Migrate creates the events and bookings tables if they do not exist and
// seeds a sample event so a fresh environment is immediately bookable.
func Migrate(db *bun.DB) {
	ctx := context.Background()

	if _, err := db.NewCreateTable().Model((*models.Event)(nil)).IfNotExists().Exec(ctx); err != nil {
		log.Fatalf("create events table failed: %v", err)
	}
	if _, err := db.NewCreateTable().Model((*models.Booking)(nil)).IfNotExists().Exec(ctx); err != nil {
		log.Fatalf("create bookings table failed: %v", err)
	}

	exists, err := db.NewSelect().Model((*models.Event)(nil)).Exists(ctx)
	if err != nil {
		log.Fatalf("check seed events failed: %v", err)
	}
	if exists {
		return
	}

	sample := &models.Event{
		ID:               "event-sample-001",
		Title:            "Go Conference",
		Description:      "Two days of talks and workshops",
		Location:         "Berlin",
		Date:             time.Now().AddDate(0, 1, 0),
		Price:            49.90,
		Capacity:         200,
		AvailableTickets: 200,
		IsActive:         true,
		CreatedAt:        time.Now(),
	}
	if _, err := db.NewInsert().Model(sample).Exec(ctx); err != nil {
		log.Fatalf("seed event failed: %v", err)
	}
	log.Println("sample event seeded")
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-booking/internal/analytics"
	analyticsapi "ms-booking/internal/analytics/api"
	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	"ms-booking/internal/booking/db"
	"ms-booking/internal/booking/kafka"
	"ms-booking/internal/booking/qr"
	rediscache "ms-booking/internal/booking/redis"
	"ms-booking/internal/config"
	"ms-booking/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN()))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	db.Migrate(bunDB)

	// --- Redis (availability cache, optional) ---
	var cache booking.AvailabilityCache
	if cfg.Redis.Enabled {
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("CACHE", fmt.Sprintf("Failed to connect to Redis: %v", err))
		}
		cache = rediscache.NewCache(redisClient)
		log.Info("CACHE", "Redis availability cache enabled")
	}

	// --- Kafka ---
	var publisher booking.Publisher
	switch {
	case !cfg.Kafka.Enabled:
		log.Warn("KAFKA", "Kafka disabled, booking events will not be published")
	case cfg.Kafka.MockMode:
		publisher = &kafka.MockProducer{}
		log.Warn("KAFKA", "Kafka running in mock mode")
	default:
		producer := kafka.NewProducer(cfg.Kafka.Brokers, kafka.Topics{
			BookingConfirmed: cfg.Kafka.Topics.BookingConfirmed,
			BookingUpdated:   cfg.Kafka.Topics.BookingUpdated,
			BookingCancelled: cfg.Kafka.Topics.BookingCancelled,
		})
		defer producer.Close()
		publisher = producer
	}

	// --- Services ---
	store := &db.DB{Bun: bunDB}
	service := booking.NewService(store, publisher, cache, log)
	handler := booking_api.NewHandler(service, qr.NewGenerator(cfg.Auth.QRSecret), log)
	statsHandler := analyticsapi.NewHandler(analytics.NewService(bunDB), log)

	// --- Router ---
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events/{eventId}/availability", handler.EventAvailability)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth.JWTSecret))

			r.Post("/bookings/book-event/{eventId}", handler.BookEvent)
			r.Get("/bookings/my-bookings", handler.MyBookings)
			r.Patch("/bookings/my-bookings/{id}", handler.UpdateMyBooking)
			r.Get("/bookings/my-bookings/{id}/qr", handler.BookingQR)
			r.Patch("/bookings/{bookingId}/cancel", handler.CancelBooking)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/bookings", handler.AdminListBookings)
				r.Get("/bookings/statistics", statsHandler.GetBookingStatistics)
				r.Get("/bookings/{id}", handler.AdminGetBooking)
				r.Patch("/bookings/{id}", handler.AdminUpdateBooking)
				r.Delete("/bookings/{id}", handler.AdminDeleteBooking)
			})
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Booking service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received, cleaning up")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}
	log.Info("SERVER", "Server exited gracefully")
}

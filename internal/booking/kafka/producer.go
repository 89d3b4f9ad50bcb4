package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

// Topics carries the three booking lifecycle topics.
type Topics struct {
	BookingConfirmed string
	BookingUpdated   string
	BookingCancelled string
}

func DefaultTopics() Topics {
	return Topics{
		BookingConfirmed: "booking-confirmed",
		BookingUpdated:   "booking-updated",
		BookingCancelled: "booking-cancelled",
	}
}

// Producer streams committed booking transitions to Kafka. Publishing is
// post-commit and best effort; the caller logs failures and moves on.
type Producer struct {
	writer *kafka.Writer
	topics Topics
}

func NewProducer(brokers []string, topics Topics) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer, topics: topics}
}

func (p *Producer) publish(topic string, booking models.Booking) error {
	msgBytes, err := json.Marshal(booking)
	if err != nil {
		return fmt.Errorf("marshal booking %s: %w", booking.ID, err)
	}
	return p.writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Key:   []byte(booking.EventID),
		Value: msgBytes,
	})
}

func (p *Producer) PublishBookingConfirmed(booking models.Booking) error {
	return p.publish(p.topics.BookingConfirmed, booking)
}

func (p *Producer) PublishBookingUpdated(booking models.Booking) error {
	return p.publish(p.topics.BookingUpdated, booking)
}

func (p *Producer) PublishBookingCancelled(booking models.Booking) error {
	return p.publish(p.topics.BookingCancelled, booking)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// MockProducer satisfies the service's Publisher interface when Kafka runs
// in mock mode (local development, tests). It records what it was handed.
type MockProducer struct {
	Confirmed []models.Booking
	Updated   []models.Booking
	Cancelled []models.Booking
}

func (m *MockProducer) PublishBookingConfirmed(booking models.Booking) error {
	m.Confirmed = append(m.Confirmed, booking)
	return nil
}

func (m *MockProducer) PublishBookingUpdated(booking models.Booking) error {
	m.Updated = append(m.Updated, booking)
	return nil
}

func (m *MockProducer) PublishBookingCancelled(booking models.Booking) error {
	m.Cancelled = append(m.Cancelled, booking)
	return nil
}

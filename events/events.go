package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Order lifecycle event types
const (
	OrderCreated   = "order.created"
	OrderAssigned  = "order.assigned"
	OrderConfirmed = "order.confirmed"
	OrderStarted   = "order.started"
	OrderCompleted = "order.completed"
	OrderCancelled = "order.cancelled"
)

// OrderEvent is the payload published after an order mutation commits
type OrderEvent struct {
	Type         string    `json:"type"`
	OrderID      uint      `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	Status       string    `json:"status"`
	UserID       string    `json:"user_id"`
	TechnicianID string    `json:"technician_id,omitempty"`
	ActorID      string    `json:"actor_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers order events to downstream consumers.
// Publishing is best effort: a failure never rolls back the order change.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// PublishTimeout bounds one Publish call, including its single retry
const PublishTimeout = 3 * time.Second

// KafkaPublisher writes events as JSON to a Kafka topic keyed by order number
type KafkaPublisher struct {
	writer  *kafka.Writer
	logger  zerolog.Logger
	timeout time.Duration
}

// NewKafkaPublisher creates a writer for topic on the given brokers. Each
// event is flushed on its own and attempted at most twice.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchSize:              1,
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            2,
			WriteBackoffMax:        250 * time.Millisecond,
			ReadTimeout:            time.Second,
			WriteTimeout:           time.Second,
			RequiredAcks:           kafka.RequireOne,
		},
		logger:  logger,
		timeout: PublishTimeout,
	}
}

// Publish sends one event, giving up after the publisher's timeout
func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: payload,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("event", event.Type).Str("order_number", event.OrderNumber).Msg("failed to publish order event")
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events; used when no brokers are configured
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

// Close does nothing
func (NopPublisher) Close() error { return nil }

// RecordingPublisher keeps every event in memory
type RecordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
}

// NewRecordingPublisher creates an empty recorder
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// Publish records the event
func (r *RecordingPublisher) Publish(_ context.Context, event OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Close does nothing
func (r *RecordingPublisher) Close() error { return nil }

// Events returns a copy of the recorded events
func (r *RecordingPublisher) Events() []OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OrderEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publish order
func (r *RecordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

// New picks the Kafka publisher when brokers are configured
func New(brokers []string, topic string, logger zerolog.Logger) Publisher {
	if len(brokers) == 0 {
		logger.Info().Msg("no Kafka brokers configured, order events are disabled")
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic, logger)
}

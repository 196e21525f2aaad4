package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attendly/ticketing/internal/domain"
	"github.com/attendly/ticketing/pkg/kafka"
	"github.com/attendly/ticketing/pkg/logger"
	"github.com/attendly/ticketing/pkg/retry"
)

// EventPublisher defines the interface for publishing registration events
type EventPublisher interface {
	// PublishRegistrationCreated publishes a registration created event
	PublishRegistrationCreated(ctx context.Context, reg *domain.Registration) error

	// PublishRegistrationConfirmed publishes a registration confirmed event
	PublishRegistrationConfirmed(ctx context.Context, reg *domain.Registration) error

	// PublishRegistrationCancelled publishes a registration cancelled event
	PublishRegistrationCancelled(ctx context.Context, reg *domain.Registration) error

	// PublishRegistrationExpired publishes a registration expired event
	PublishRegistrationExpired(ctx context.Context, reg *domain.Registration) error

	// PublishRegistrationCheckedIn publishes a check-in event
	PublishRegistrationCheckedIn(ctx context.Context, reg *domain.Registration) error

	// Close closes the event publisher
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Kafka. Publish
// failures land on the dead letter topic instead of failing the caller's
// registration flow.
type KafkaEventPublisher struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
	dlq         retry.DLQPublisher
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "registration-events"
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ticketing"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "ticketing-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	dlq := retry.NewKafkaDLQPublisher(
		&retry.KafkaProducerAdapter{Producer: producer},
		&retry.DLQConfig{Source: serviceName},
	)

	return &KafkaEventPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
		dlq:         dlq,
	}, nil
}

// PublishRegistrationCreated publishes a registration created event
func (p *KafkaEventPublisher) PublishRegistrationCreated(ctx context.Context, reg *domain.Registration) error {
	return p.publishEvent(ctx, domain.RegistrationEventCreated, reg)
}

// PublishRegistrationConfirmed publishes a registration confirmed event
func (p *KafkaEventPublisher) PublishRegistrationConfirmed(ctx context.Context, reg *domain.Registration) error {
	return p.publishEvent(ctx, domain.RegistrationEventConfirmed, reg)
}

// PublishRegistrationCancelled publishes a registration cancelled event
func (p *KafkaEventPublisher) PublishRegistrationCancelled(ctx context.Context, reg *domain.Registration) error {
	return p.publishEvent(ctx, domain.RegistrationEventCancelled, reg)
}

// PublishRegistrationExpired publishes a registration expired event
func (p *KafkaEventPublisher) PublishRegistrationExpired(ctx context.Context, reg *domain.Registration) error {
	return p.publishEvent(ctx, domain.RegistrationEventExpired, reg)
}

// PublishRegistrationCheckedIn publishes a check-in event
func (p *KafkaEventPublisher) PublishRegistrationCheckedIn(ctx context.Context, reg *domain.Registration) error {
	return p.publishEvent(ctx, domain.RegistrationEventCheckedIn, reg)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType domain.RegistrationEventType, reg *domain.Registration) error {
	eventID := uuid.New().String()
	event := domain.NewRegistrationEvent(eventType, reg, eventID)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   string(eventType),
		"event_id":     eventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:   p.topic,
		Key:     []byte(event.Key()),
		Value:   value,
		Headers: headers,
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		now := time.Now()
		dlqErr := p.dlq.PublishToDLQ(ctx, &retry.DLQMessage{
			ID:             eventID,
			OriginalTopic:  p.topic,
			OriginalKey:    event.Key(),
			Payload:        value,
			Headers:        headers,
			Error:          err.Error(),
			Attempts:       1,
			FirstAttemptAt: now,
			LastAttemptAt:  now,
			MovedToDLQAt:   now,
			Source:         p.serviceName,
		})
		if dlqErr != nil {
			logger.ErrorCtx(ctx, "event lost: publish and dead letter both failed",
				zap.String("event_id", eventID),
				zap.String("event_type", string(eventType)),
			)
			return fmt.Errorf("failed to publish %s event: %w", eventType, err)
		}
		return nil
	}

	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for
// deployments without a broker and for tests
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

func (p *NoOpEventPublisher) PublishRegistrationCreated(ctx context.Context, reg *domain.Registration) error {
	return nil
}

func (p *NoOpEventPublisher) PublishRegistrationConfirmed(ctx context.Context, reg *domain.Registration) error {
	return nil
}

func (p *NoOpEventPublisher) PublishRegistrationCancelled(ctx context.Context, reg *domain.Registration) error {
	return nil
}

func (p *NoOpEventPublisher) PublishRegistrationExpired(ctx context.Context, reg *domain.Registration) error {
	return nil
}

func (p *NoOpEventPublisher) PublishRegistrationCheckedIn(ctx context.Context, reg *domain.Registration) error {
	return nil
}

func (p *NoOpEventPublisher) Close() error {
	return nil
}

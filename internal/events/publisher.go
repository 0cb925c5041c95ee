package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"citizen-auth/internal/client"
	"citizen-auth/internal/models"
	"citizen-auth/internal/util"
)

// Publisher emits security events to Kafka. Events are advisory: a publish
// failure is logged and swallowed so the request that produced the event
// still succeeds. A nil Publisher is a valid no-op.
type Publisher struct {
	producer *client.KafkaProducer
	logger   *zap.Logger
}

func NewPublisher(producer *client.KafkaProducer, logger *zap.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   logger,
	}
}

// Emit publishes one security event keyed by account id so events for the
// same account land on the same partition.
func (p *Publisher) Emit(ctx context.Context, event *models.SecurityEvent) {
	if p == nil || p.producer == nil {
		return
	}

	if event.EventTime.IsZero() {
		event.EventTime = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		util.Error("Failed to marshal security event",
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.producer.Publish(publishCtx, []byte(event.AccountID), payload); err != nil {
		util.Warn("Failed to publish security event",
			zap.String("event_type", event.EventType),
			zap.String("account_id", event.AccountID),
			zap.Error(err))
	}
}

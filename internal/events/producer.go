package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/econfia/api/internal/model"
)

// StatusEvent is one audit record of a consulta or resultado transition,
// published for downstream compliance systems. Nothing in the dashboard path
// consumes these: client freshness stays polling-only.
type StatusEvent struct {
	ID        string       `json:"id"`
	Kind      string       `json:"kind"` // "consulta" or "resultado"
	EntityID  string       `json:"entityId"`
	Status    model.Status `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}

// Producer publishes status-transition events to Kafka. A nil Producer is
// valid and drops everything, so callers never have to branch on whether the
// audit stream is configured.
type Producer struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

// NewProducer creates a producer, or nil when no brokers are configured.
func NewProducer(brokers []string, topic string, log *logrus.Logger) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer, log: log}
}

// PublishStatusChange emits one audit event. Failures are logged and
// swallowed; the audit stream never blocks a verification.
func (p *Producer) PublishStatusChange(ctx context.Context, kind string, entityID uuid.UUID, status model.Status) {
	if p == nil {
		return
	}

	event := StatusEvent{
		ID:        uuid.New().String(),
		Kind:      kind,
		EntityID:  entityID.String(),
		Status:    status,
		Timestamp: time.Now(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).Error("failed to marshal status event")
		return
	}

	message := kafka.Message{
		Key:   []byte(event.EntityID),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "status", Value: []byte(status)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"kind":      kind,
			"entity_id": event.EntityID,
		}).Error("failed to publish status event")
	}
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}

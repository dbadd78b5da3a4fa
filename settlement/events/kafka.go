package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/fleetgrid/lib-settlement/settlement/log"
	"github.com/fleetgrid/lib-settlement/settlement/record"
)

// Kafka topics for settlement lifecycle events.
const (
	TopicSettlementCompleted  = "settlement.completed"
	TopicSettlementRolledBack = "settlement.rolled_back"
)

const (
	publishMaxAttempts = 3
	publishBackoffBase = 200 * time.Millisecond
)

// SettlementEvent is the wire shape of one settlement lifecycle event.
type SettlementEvent struct {
	EventType   string                    `json:"event_type"`
	CustomerID  string                    `json:"customer_id"`
	AgreementID string                    `json:"agreement_id"`
	Records     []record.SettlementRecord `json:"records,omitempty"`
	Reason      string                    `json:"reason,omitempty"`
	OccurredAt  time.Time                 `json:"occurred_at"`
}

// KafkaPublisher publishes settlement events through a sarama sync producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	logger   log.Logger
}

// NewKafkaPublisher connects a sync producer to the given brokers.
func NewKafkaPublisher(brokers []string, logger log.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: connect kafka producer: %w", err)
	}

	return NewKafkaPublisherWithProducer(producer, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer (tests inject a
// mock here).
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, logger log.Logger) *KafkaPublisher {
	if logger == nil {
		logger = log.NewNop()
	}

	return &KafkaPublisher{producer: producer, logger: logger}
}

// SettlementCompleted publishes the completed event with the persisted
// records.
func (p *KafkaPublisher) SettlementCompleted(ctx context.Context, event SettlementEvent) {
	event.EventType = TopicSettlementCompleted
	p.publish(ctx, TopicSettlementCompleted, event)
}

// SettlementRolledBack publishes the rolled-back event with the failure
// reason.
func (p *KafkaPublisher) SettlementRolledBack(ctx context.Context, event SettlementEvent) {
	event.EventType = TopicSettlementRolledBack
	p.publish(ctx, TopicSettlementRolledBack, event)
}

// publish retries transient failures with exponential backoff before giving
// up and logging.
func (p *KafkaPublisher) publish(ctx context.Context, topic string, event SettlementEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Log(ctx, log.LevelError, "failed to marshal settlement event",
			log.String("topic", topic), log.Err(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.AgreementID),
		Value: sarama.ByteEncoder(payload),
	}

	var lastErr error

	for attempt := 0; attempt < publishMaxAttempts; attempt++ {
		if _, _, lastErr = p.producer.SendMessage(msg); lastErr == nil {
			p.logger.Log(ctx, log.LevelDebug, "published settlement event",
				log.String("topic", topic), log.String("agreement_id", event.AgreementID))
			return
		}

		delay := publishBackoffBase << attempt

		select {
		case <-ctx.Done():
			p.logger.Log(ctx, log.LevelWarn, "settlement event publish cancelled",
				log.String("topic", topic), log.Err(ctx.Err()))
			return
		case <-time.After(delay):
		}
	}

	p.logger.Log(ctx, log.LevelError, "failed to publish settlement event",
		log.String("topic", topic), log.String("agreement_id", event.AgreementID),
		log.Int("attempts", publishMaxAttempts), log.Err(lastErr))
}

// Close shuts down the underlying producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

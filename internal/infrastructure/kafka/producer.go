package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/honeynil/storefront-api/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// AccountEventPublisher announces account changes to other instances.
type AccountEventPublisher interface {
	PublishAccountEvent(ctx context.Context, event models.AccountEvent) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &Producer{writer: writer, topic: topic, logger: logger}
}

// PublishAccountEvent writes the event keyed by user id so that events of
// one account keep their order within a partition.
func (p *Producer) PublishAccountEvent(ctx context.Context, event models.AccountEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal account event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", event.UserID)),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to send Kafka message", zap.String("topic", p.topic), zap.Int32("user_id", event.UserID), zap.Error(err))
		return err
	}
	p.logger.Info("Kafka message sent", zap.String("topic", p.topic), zap.String("type", string(event.Type)), zap.Int32("user_id", event.UserID))
	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		p.logger.Error("failed to close Kafka writer", zap.Error(err))
		return err
	}
	p.logger.Info("Kafka writer closed")
	return nil
}

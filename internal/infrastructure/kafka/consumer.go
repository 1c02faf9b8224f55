package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/honeynil/storefront-api/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// PrincipalInvalidator drops locally cached principal state.
type PrincipalInvalidator interface {
	Invalidate(ctx context.Context, id int32)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer applies account events from other instances to the local
// principal cache.
type Consumer struct {
	reader      messageReader
	invalidator PrincipalInvalidator
	logger      *zap.Logger
	retryDelay  time.Duration
}

const defaultReadRetryDelay = time.Second

func NewConsumer(brokers []string, topic, groupID string, invalidator PrincipalInvalidator, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		invalidator: invalidator,
		logger:      logger,
		retryDelay:  defaultReadRetryDelay,
	}
}

// Consume blocks until ctx is cancelled or the reader is closed.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, io.EOF) {
				c.logger.Info("account event consumer stopped")
				return
			}
			c.logger.Error("failed to read Kafka message", zap.Error(err))
			if !c.wait(ctx) {
				c.logger.Info("account event consumer stopped")
				return
			}
			continue
		}
		if err := c.handle(ctx, msg); err != nil {
			c.logger.Error("failed to handle account event", zap.String("key", string(msg.Key)), zap.Error(err))
		}
	}
}

// wait pauses before the next read after a failure. It reports false when ctx
// ends first.
func (c *Consumer) wait(ctx context.Context) bool {
	delay := c.retryDelay
	if delay <= 0 {
		delay = defaultReadRetryDelay
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var event models.AccountEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal account event: %w", err)
	}
	if event.UserID <= 0 {
		return fmt.Errorf("account event without user_id: %q", event.Type)
	}

	switch event.Type {
	case models.EventUserUpserted, models.EventUserStatusChanged, models.EventPasswordReset:
		c.invalidator.Invalidate(ctx, event.UserID)
		c.logger.Debug("account event applied", zap.String("type", string(event.Type)), zap.Int32("user_id", event.UserID))
		return nil
	default:
		// Unknown types still invalidate.
		c.invalidator.Invalidate(ctx, event.UserID)
		c.logger.Warn("unknown account event type", zap.String("type", string(event.Type)), zap.Int32("user_id", event.UserID))
		return nil
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

package mq

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ledger-core/pkg/logger"
)

// KafkaConsumer consumes one topic per Subscribe call within a consumer
// group. Offsets are committed only after the handler succeeds, giving
// at-least-once delivery.
type KafkaConsumer struct {
	brokers []string
	groupID string
	readers []*kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		brokers: brokers,
		groupID: groupID,
	}
}

func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.brokers,
		GroupID:     c.groupID,
		Topic:       topic,
		MinBytes:    10e3,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	c.readers = append(c.readers, reader)

	logger.Info("kafka consumer subscribed",
		zap.String("topic", topic),
		zap.String("group", c.groupID))

	go c.consumeLoop(ctx, reader, topic, handler)
	return nil
}

func (c *KafkaConsumer) consumeLoop(ctx context.Context, reader *kafka.Reader, topic string, handler func(msg *Message) error) {
	defer reader.Close()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("kafka fetch failed", zap.String("topic", topic), zap.Error(err))
			time.Sleep(1 * time.Second)
			continue
		}

		msg := &Message{
			ID:      string(m.Key),
			Topic:   topic,
			Key:     string(m.Key),
			Payload: m.Value,
		}

		if err := handler(msg); err != nil {
			// The offset is not committed; the message redelivers on the
			// next rebalance or restart. Handlers are idempotent.
			logger.Error("message handler failed",
				zap.String("topic", topic),
				zap.Error(err))
			continue
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			logger.Error("kafka offset commit failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func (c *KafkaConsumer) Close() error {
	var firstErr error
	for _, r := range c.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

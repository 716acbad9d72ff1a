package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ledger-core/internal/model"
	"ledger-core/internal/service/mq"
	"ledger-core/pkg/logger"
)

// RelayService ships pending outbox rows to the MQ. Delivery is
// at-least-once: a row is marked SENT only after the broker accepts it, so
// consumers must tolerate duplicates.
type RelayService struct {
	db       *gorm.DB
	producer mq.Producer
	interval time.Duration
}

func NewRelayService(db *gorm.DB, producer mq.Producer) *RelayService {
	return &RelayService{
		db:       db,
		producer: producer,
		interval: 500 * time.Millisecond,
	}
}

// Start runs the relay loop until ctx is cancelled
func (s *RelayService) Start(ctx context.Context) {
	logger.Info("outbox relay started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *RelayService) processPendingMessages(ctx context.Context) {
	var messages []model.OutboxMessage
	// Batches of 50, oldest first, to keep ordering per partition key
	err := s.db.WithContext(ctx).
		Where("status = ?", "PENDING").
		Order("id ASC").
		Limit(50).
		Find(&messages).Error
	if err != nil {
		logger.Error("outbox query failed", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}

	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			logger.Error("outbox publish failed",
				zap.Uint64("message_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Error(err))
			continue
		}
		if err := s.db.WithContext(ctx).Model(&msg).Update("status", "SENT").Error; err != nil {
			// The row stays PENDING and redelivers next tick
			logger.Error("outbox status update failed",
				zap.Uint64("message_id", msg.ID),
				zap.Error(err))
		}
	}
}

package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ledger-core/pkg/logger"
	"ledger-core/pkg/utils/lock"
)

// CronService schedules the escrow auto-release sweep. A distributed lock
// keeps the sweep to a single instance; the sweep itself is also safe under
// overlap because release is conditional.
type CronService struct {
	cron     *cron.Cron
	locker   lock.DistributedLock
	escrow   *EscrowService
	schedule string
}

func NewCronService(locker lock.DistributedLock, escrow *EscrowService, schedule string) *CronService {
	return &CronService{
		cron:     cron.New(),
		locker:   locker,
		escrow:   escrow,
		schedule: schedule,
	}
}

func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runAutoReleaseSweep); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("cron service started", zap.String("sweep_schedule", s.schedule))
	return nil
}

func (s *CronService) Stop() {
	s.cron.Stop()
	logger.Info("cron service stopped")
}

func (s *CronService) runAutoReleaseSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	const lockKey = "cron:escrow_auto_release"
	locked, err := s.locker.Acquire(ctx, lockKey, 5*time.Minute)
	if err != nil || !locked {
		logger.Debug("auto-release sweep skipped, lock held elsewhere")
		return
	}
	defer s.locker.Release(ctx, lockKey)

	if _, err := s.escrow.AutoReleaseSweep(ctx, time.Now()); err != nil {
		logger.Error("auto-release sweep failed", zap.Error(err))
	}
}

package services

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/config"
)

const holdSweepLockKey = "ledger:hold-sweep:lock"

// HoldSweeper periodically expires holds past their expiration date. A Redis lease keeps
// concurrent instances from sweeping the same tick; without Redis every instance sweeps.
type HoldSweeper struct {
	holds      *HoldService
	redis      *redis.Client
	cfg        config.HoldConfig
	instanceID string
}

func NewHoldSweeper(holds *HoldService, rdb *redis.Client, cfg config.HoldConfig) *HoldSweeper {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 500
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = cfg.SweepInterval / 2
	}
	return &HoldSweeper{
		holds:      holds,
		redis:      rdb,
		cfg:        cfg,
		instanceID: uuid.NewString(),
	}
}

// Run sweeps on every tick until ctx is cancelled
func (s *HoldSweeper) Run(ctx context.Context) {
	log.Printf("[HOLD_SWEEP] Started, interval %s", s.cfg.SweepInterval)
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[HOLD_SWEEP] Stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Printf("[HOLD_SWEEP] Sweep failed: %v", err)
			}
		}
	}
}

// Sweep expires holds in batches until none are left, if this instance holds the lease
func (s *HoldSweeper) Sweep(ctx context.Context) (int, error) {
	if !s.acquireLease(ctx) {
		return 0, nil
	}

	total := 0
	for {
		n, err := s.holds.ExpireHolds(ctx, s.cfg.SweepBatchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < s.cfg.SweepBatchSize {
			return total, nil
		}
	}
}

func (s *HoldSweeper) acquireLease(ctx context.Context) bool {
	if s.redis == nil {
		return true
	}
	acquired, err := s.redis.SetNX(ctx, holdSweepLockKey, s.instanceID, s.cfg.LeaseTTL).Result()
	if err != nil {
		log.Printf("[HOLD_SWEEP] Lease unavailable, sweeping without it: %v", err)
		return true
	}
	return acquired
}

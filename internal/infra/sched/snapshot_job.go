package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/infra/metrics"
	"orbit-redemption/internal/infra/redis"
	"orbit-redemption/internal/usecase"
)

const snapshotLockKey = "lock:settlement_snapshot"

// SnapshotJob exports each distributor's outstanding settlement liability as gauges.
type SnapshotJob struct {
	stats   usecase.StatsUseCase
	locker  redis.Locker
	lockTTL time.Duration
	log     *zerolog.Logger
}

// NewSnapshotJob accepts a nil locker for single-replica deployments.
func NewSnapshotJob(stats usecase.StatsUseCase, locker redis.Locker, lockTTL time.Duration, logger *zerolog.Logger) *SnapshotJob {
	l := logger.With().Str("component", "SnapshotJob").Logger()
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &SnapshotJob{stats: stats, locker: locker, lockTTL: lockTTL, log: &l}
}

func (j *SnapshotJob) Run(ctx context.Context) error {
	if j.locker != nil {
		token, err := j.locker.TryLock(ctx, snapshotLockKey, j.lockTTL)
		if errors.Is(err, redis.ErrLockHeld) {
			metrics.IncSnapshotRun("skipped")
			j.log.Debug().Msg("snapshot held by another replica")
			return nil
		}
		if err != nil {
			metrics.IncSnapshotRun("error")
			return err
		}
		defer func() {
			if err := j.locker.Unlock(context.Background(), snapshotLockKey, token); err != nil {
				j.log.Warn().Err(err).Msg("snapshot unlock failed")
			}
		}()
	}

	rows, err := j.stats.ListDistributorsWithStats(ctx, model.AdminCaller(), model.Unbounded)
	if err != nil {
		metrics.IncSnapshotRun("error")
		return err
	}
	pending := make(map[string]int64, len(rows))
	var total int64
	for _, r := range rows {
		pending[r.Distributor.ID] = r.Stats.PendingSettlement
		total += r.Stats.PendingSettlement
	}
	metrics.SetPendingSettlement(pending)
	metrics.IncSnapshotRun("ok")
	j.log.Info().Int("distributors", len(rows)).Int64("pending_total", total).Msg("settlement snapshot exported")
	return nil
}

package sched

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"orbit-redemption/internal/infra/metrics"
)

// PoolStatsJob exports pgx pool gauges.
func PoolStatsJob(pool *pgxpool.Pool) Job {
	return func(context.Context) error {
		st := pool.Stat()
		metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		return nil
	}
}

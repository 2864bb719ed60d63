package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"orbit-redemption/internal/domain/ports/adapter"
	"orbit-redemption/internal/infra/metrics"
	"orbit-redemption/internal/infra/worker"
)

var _ adapter.EventPublisher = (*AsyncPublisher)(nil)

// AsyncPublisher hands events to a worker pool so broker latency never reaches
// the request path. A full queue drops the event.
type AsyncPublisher struct {
	inner   adapter.EventPublisher
	pool    *worker.Pool
	timeout time.Duration
	log     *zerolog.Logger
}

func NewAsyncPublisher(inner adapter.EventPublisher, pool *worker.Pool, timeout time.Duration, logger *zerolog.Logger) *AsyncPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	l := logger.With().Str("component", "AsyncPublisher").Logger()
	return &AsyncPublisher{inner: inner, pool: pool, timeout: timeout, log: &l}
}

func (a *AsyncPublisher) submit(event string, send func(ctx context.Context) error) error {
	err := a.pool.Submit(func(ctx context.Context) error {
		// detached from the request; bounded by its own timeout
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			metrics.IncEvent(event, "error")
			return err
		}
		metrics.IncEvent(event, "ok")
		return nil
	})
	if err != nil {
		metrics.IncEvent(event, "dropped")
		a.log.Warn().Err(err).Str("event", event).Msg("event dropped")
	}
	return err
}

func (a *AsyncPublisher) PublishCodeRedeemed(_ context.Context, evt adapter.CodeRedeemedEvent) error {
	return a.submit("code.redeemed", func(ctx context.Context) error {
		return a.inner.PublishCodeRedeemed(ctx, evt)
	})
}

func (a *AsyncPublisher) PublishBatchCreated(_ context.Context, evt adapter.BatchCreatedEvent) error {
	return a.submit("batch.created", func(ctx context.Context) error {
		return a.inner.PublishBatchCreated(ctx, evt)
	})
}

//go:build !integration

package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/infra/redis"
	"orbit-redemption/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type fakeStats struct {
	usecase.StatsUseCase
	rows   []*model.DistributorStats
	err    error
	calls  int
	caller model.Caller
	window model.Window
}

func (f *fakeStats) ListDistributorsWithStats(ctx context.Context, caller model.Caller, w model.Window) ([]*model.DistributorStats, error) {
	f.calls++
	f.caller, f.window = caller, w
	return f.rows, f.err
}

type fakeLocker struct {
	held     bool
	unlocked int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.held {
		return "", redis.ErrLockHeld
	}
	return "tok", nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key, token string) error {
	l.unlocked++
	return nil
}

func TestSnapshotJob(t *testing.T) {
	ctx := context.Background()
	rows := []*model.DistributorStats{
		{Distributor: &model.Distributor{ID: "d1"}, Stats: model.Stats{PendingSettlement: 2}},
		{Distributor: &model.Distributor{ID: "d2"}, Stats: model.Stats{PendingSettlement: 0}},
	}

	t.Run("exports unbounded figures as admin", func(t *testing.T) {
		stats := &fakeStats{rows: rows}
		lock := &fakeLocker{}
		if err := NewSnapshotJob(stats, lock, time.Minute, newTestLogger()).Run(ctx); err != nil {
			t.Fatal(err)
		}
		if !stats.caller.IsAdmin() || stats.window != model.Unbounded {
			t.Fatalf("unexpected query %+v %+v", stats.caller, stats.window)
		}
		if lock.unlocked != 1 {
			t.Fatal("lock not released")
		}
	})

	t.Run("skips when another replica holds the lock", func(t *testing.T) {
		stats := &fakeStats{rows: rows}
		if err := NewSnapshotJob(stats, &fakeLocker{held: true}, time.Minute, newTestLogger()).Run(ctx); err != nil {
			t.Fatal(err)
		}
		if stats.calls != 0 {
			t.Fatal("snapshot ran without the lock")
		}
	})

	t.Run("runs without a locker", func(t *testing.T) {
		stats := &fakeStats{rows: rows}
		if err := NewSnapshotJob(stats, nil, 0, newTestLogger()).Run(ctx); err != nil || stats.calls != 1 {
			t.Fatalf("calls=%d err=%v", stats.calls, err)
		}
	})

	t.Run("propagates read errors", func(t *testing.T) {
		boom := errors.New("boom")
		lock := &fakeLocker{}
		err := NewSnapshotJob(&fakeStats{err: boom}, lock, time.Minute, newTestLogger()).Run(ctx)
		if !errors.Is(err, boom) || lock.unlocked != 1 {
			t.Fatalf("err=%v unlocked=%d", err, lock.unlocked)
		}
	})
}

func TestSchedulerAdd(t *testing.T) {
	s := NewScheduler(time.UTC, time.Second, newTestLogger())
	if err := s.Add("bad", "not a spec", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected invalid spec error")
	}
	if err := s.Add("snapshot", "*/5 * * * *", func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

var baseTime = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func seedDistributor(t *testing.T, email, prefix string) *model.Distributor {
	t.Helper()
	d, err := model.NewDistributor("D "+email, email, "hash", decimal.RequireFromString("12.5"), prefix)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewPostgresDistributorRepo(testPool).Create(context.Background(), repository.NoTX, d); err != nil {
		t.Fatalf("create distributor: %v", err)
	}
	return d
}

func seedBatch(t *testing.T, owner model.Owner, n int, at time.Time) (*model.CodeBatch, []*model.Code) {
	t.Helper()
	ctx := context.Background()
	b := &model.CodeBatch{
		ID:             fmt.Sprintf("b-%s-%d", owner.String(), at.UnixNano()),
		Type:           model.CodeTypeMonthly,
		RequestedCount: n,
		Owner:          owner,
		CreatedAt:      at,
	}
	if err := NewPostgresBatchRepo(testPool).Create(ctx, repository.NoTX, b); err != nil {
		t.Fatalf("create batch: %v", err)
	}
	codes := NewPostgresCodeRepo(testPool)
	var out []*model.Code
	for i := 0; i < n; i++ {
		c := &model.Code{
			ID:        fmt.Sprintf("%s-c%d", b.ID, i),
			Code:      fmt.Sprintf("%s-CODE%02d", b.ID, i),
			Type:      b.Type,
			BatchID:   b.ID,
			Owner:     owner,
			CreatedAt: at,
			IsActive:  true,
		}
		ok, err := codes.Insert(ctx, repository.NoTX, c)
		if err != nil || !ok {
			t.Fatalf("insert code: %v %v", ok, err)
		}
		out = append(out, c)
	}
	return b, out
}

func TestPostgresDistributorRepo(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewPostgresDistributorRepo(testPool)
	d := seedDistributor(t, "one@example.com", "ONE")

	t.Run("duplicates map to domain errors", func(t *testing.T) {
		dup, _ := model.NewDistributor("x", "one@example.com", "h", decimal.Zero, "OTHER")
		if err := repo.Create(ctx, repository.NoTX, dup); !errors.Is(err, domain.ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}
		dup, _ = model.NewDistributor("x", "two@example.com", "h", decimal.Zero, "ONE")
		if err := repo.Create(ctx, repository.NoTX, dup); !errors.Is(err, domain.ErrDuplicatePrefix) {
			t.Fatalf("expected ErrDuplicatePrefix, got %v", err)
		}
		seedDistributor(t, "np1@example.com", "")
		seedDistributor(t, "np2@example.com", "")
	})

	t.Run("find and save", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, repository.NoTX, "ONE@example.com")
		if err != nil || got.ID != d.ID || !got.CommissionRate.Equal(decimal.RequireFromString("12.5")) || got.CodePrefix != "ONE" {
			t.Fatalf("FindByEmail: %+v %v", got, err)
		}
		got.IsActive = false
		got.CommissionRate = decimal.NewFromInt(40)
		if err := repo.Save(ctx, repository.NoTX, got); err != nil {
			t.Fatal(err)
		}
		again, _ := repo.FindByID(ctx, repository.NoTX, d.ID)
		if again.IsActive || !again.CommissionRate.Equal(decimal.NewFromInt(40)) {
			t.Fatalf("save not persisted: %+v", again)
		}
		if _, err := repo.FindByID(ctx, repository.NoTX, "missing"); !errors.Is(err, domain.ErrDistributorNotFound) {
			t.Fatalf("expected ErrDistributorNotFound, got %v", err)
		}
	})

	t.Run("list in creation order", func(t *testing.T) {
		all, err := repo.List(ctx, repository.NoTX)
		if err != nil || len(all) != 3 || all[0].ID != d.ID {
			t.Fatalf("List: %d %v", len(all), err)
		}
	})
}

func TestPostgresCodeRepo(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewPostgresCodeRepo(testPool)
	d := seedDistributor(t, "codes@example.com", "CD")
	owner := model.DistributorOwner(d.ID)
	_, codes := seedBatch(t, owner, 3, baseTime)
	seedBatch(t, model.HouseOwner(), 2, baseTime.Add(time.Minute))

	t.Run("insert conflict", func(t *testing.T) {
		dup := *codes[0]
		dup.ID = "other-id"
		ok, err := repo.Insert(ctx, repository.NoTX, &dup)
		if err != nil || ok {
			t.Fatalf("expected silent conflict, got ok=%v err=%v", ok, err)
		}
		exists, err := repo.ExistsByCode(ctx, repository.NoTX, codes[0].Code)
		if err != nil || !exists {
			t.Fatalf("ExistsByCode: %v %v", exists, err)
		}
	})

	t.Run("compare and set transitions", func(t *testing.T) {
		at := baseTime.Add(time.Hour)
		ok, err := repo.MarkRedeemed(ctx, repository.NoTX, codes[0].Code, "user-1", "attempt-1", at)
		if err != nil || !ok {
			t.Fatalf("MarkRedeemed: %v %v", ok, err)
		}
		if ok, _ := repo.MarkRedeemed(ctx, repository.NoTX, codes[0].Code, "user-2", "attempt-2", at); ok {
			t.Fatal("second redeem must lose")
		}
		if ok, _ := repo.Revoke(ctx, repository.NoTX, codes[0].Code); ok {
			t.Fatal("redeemed code must not be revocable")
		}
		if ok, _ := repo.MarkSettled(ctx, repository.NoTX, codes[1].Code, at); ok {
			t.Fatal("unredeemed code must not settle")
		}
		if ok, _ := repo.Revoke(ctx, repository.NoTX, codes[1].Code); !ok {
			t.Fatal("active code should revoke")
		}
		if ok, _ := repo.MarkRedeemed(ctx, repository.NoTX, codes[1].Code, "u", "a", at); ok {
			t.Fatal("revoked code must not redeem")
		}

		got, err := repo.FindByCode(ctx, repository.NoTX, codes[0].Code)
		if err != nil || got.RedeemedBy == nil || *got.RedeemedBy != "user-1" || *got.AttemptID != "attempt-1" || !got.RedeemedAt.Equal(at) {
			t.Fatalf("FindByCode: %+v %v", got, err)
		}
		if _, err := repo.FindByCode(ctx, repository.NoTX, "NOPE"); !errors.Is(err, domain.ErrCodeNotFound) {
			t.Fatalf("expected ErrCodeNotFound, got %v", err)
		}
	})

	t.Run("stats", func(t *testing.T) {
		st, err := repo.Stats(ctx, repository.NoTX, model.OnlyOwner(owner), model.Unbounded)
		if err != nil || st != (model.Stats{TotalGenerated: 3, TotalRedeemed: 1, PendingSettlement: 1}) {
			t.Fatalf("Stats: %+v %v", st, err)
		}
		w, _ := model.NewWindow(baseTime.AddDate(-1, 0, 0), baseTime)
		st, _ = repo.Stats(ctx, repository.NoTX, model.OnlyOwner(owner), w)
		if st.TotalGenerated != 0 || st.PendingSettlement != 1 {
			t.Fatalf("window must bound flows only: %+v", st)
		}
		house, _ := repo.Stats(ctx, repository.NoTX, model.OnlyOwner(model.HouseOwner()), model.Unbounded)
		if house.TotalGenerated != 2 {
			t.Fatalf("house stats: %+v", house)
		}
		all, _ := repo.Stats(ctx, repository.NoTX, model.AllOwners(), model.Unbounded)
		if all.TotalGenerated != 5 {
			t.Fatalf("all stats: %+v", all)
		}

		by, err := repo.StatsByDistributor(ctx, repository.NoTX, model.Unbounded)
		if err != nil || len(by) != 1 || by[d.ID].TotalRedeemed != 1 {
			t.Fatalf("StatsByDistributor: %+v %v", by, err)
		}

		if ok, _ := repo.MarkSettled(ctx, repository.NoTX, codes[0].Code, baseTime.Add(2*time.Hour)); !ok {
			t.Fatal("settle should win")
		}
		st, _ = repo.Stats(ctx, repository.NoTX, model.OnlyOwner(owner), model.Unbounded)
		if st.PendingSettlement != 0 {
			t.Fatalf("pending after settle: %+v", st)
		}
	})

	t.Run("listing order", func(t *testing.T) {
		all, err := repo.ListByOwner(ctx, repository.NoTX, model.AllOwners())
		if err != nil || len(all) != 5 || !all[0].Owner.IsHouse() {
			t.Fatalf("ListByOwner: %d %v", len(all), err)
		}
		byBatch, _ := repo.ListByBatch(ctx, repository.NoTX, codes[0].BatchID)
		if len(byBatch) != 3 || byBatch[0].Code != codes[0].Code {
			t.Fatalf("ListByBatch order: %+v", byBatch)
		}
	})
}

func TestPostgresConcurrentRedeem(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewPostgresCodeRepo(testPool)
	_, codes := seedBatch(t, model.HouseOwner(), 1, baseTime)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.MarkRedeemed(ctx, repository.NoTX, codes[0].Code, fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i), baseTime)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestPostgresBatchRepo(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewPostgresBatchRepo(testPool)
	codes := NewPostgresCodeRepo(testPool)
	d := seedDistributor(t, "batch@example.com", "BT")
	owner := model.DistributorOwner(d.ID)
	older, olderCodes := seedBatch(t, owner, 3, baseTime)
	newer, _ := seedBatch(t, owner, 2, baseTime.Add(time.Hour))
	seedBatch(t, model.HouseOwner(), 1, baseTime)

	_, _ = codes.MarkRedeemed(ctx, repository.NoTX, olderCodes[0].Code, "u", "a", baseTime)
	_, _ = codes.Revoke(ctx, repository.NoTX, olderCodes[1].Code)

	sums, err := repo.ListSummaries(ctx, repository.NoTX, model.OnlyOwner(owner))
	if err != nil || len(sums) != 2 {
		t.Fatalf("ListSummaries: %d %v", len(sums), err)
	}
	if sums[0].ID != newer.ID || sums[1].ID != older.ID {
		t.Fatal("summaries must be newest first")
	}
	if s := sums[1]; s.Generated != 3 || s.Redeemed != 1 || s.Revoked != 1 {
		t.Fatalf("counters: %+v", s)
	}

	got, err := repo.FindByID(ctx, repository.NoTX, older.ID)
	if err != nil || got.Owner != owner || got.RequestedCount != 3 {
		t.Fatalf("FindByID: %+v %v", got, err)
	}
	if _, err := repo.FindByID(ctx, repository.NoTX, "missing"); !errors.Is(err, domain.ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}

	t.Run("lock owner requires a transaction", func(t *testing.T) {
		if err := repo.LockOwner(ctx, repository.NoTX, owner); !errors.Is(err, domain.ErrInvalidExecContext) {
			t.Fatalf("expected ErrInvalidExecContext, got %v", err)
		}
		tm := NewTxManager(testPool)
		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			return repo.LockOwner(ctx, tx, owner)
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("commit hooks see committed rows", func(t *testing.T) {
		tm := NewTxManager(testPool)
		var hookErr error
		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			b := &model.CodeBatch{ID: "hooked", Type: model.CodeTypeMonthly, RequestedCount: 1, CreatedAt: baseTime}
			repository.AfterCommit(ctx, func(ctx context.Context) {
				_, hookErr = repo.FindByID(ctx, repository.NoTX, b.ID)
			})
			return repo.Create(ctx, tx, b)
		})
		if err != nil || hookErr != nil {
			t.Fatalf("WithTx: %v, hook read: %v", err, hookErr)
		}
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		tm := NewTxManager(testPool)
		boom := errors.New("boom")
		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			b := &model.CodeBatch{ID: "rolled-back", Type: model.CodeTypeYearly, RequestedCount: 1, CreatedAt: baseTime}
			if err := repo.Create(ctx, tx, b); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if _, err := repo.FindByID(ctx, repository.NoTX, "rolled-back"); !errors.Is(err, domain.ErrBatchNotFound) {
			t.Fatalf("rolled back batch is visible: %v", err)
		}
	})
}

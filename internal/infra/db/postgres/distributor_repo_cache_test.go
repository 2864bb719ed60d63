//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

type mockRedisClient struct {
	data    map[string]string
	getErr  error
	deleted []string
}

func newMockRedis() *mockRedisClient { return &mockRedisClient{data: map[string]string{}} }

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Close() error                   { return nil }
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	return false, nil
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, exp time.Duration) error {
	return nil
}
func (m *mockRedisClient) RunScript(ctx context.Context, s *redis.Script, keys []string, args ...interface{}) (interface{}, error) {
	return nil, nil
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

type mockDistributorRepo struct {
	repository.DistributorRepository
	dist  *model.Distributor
	calls int

	// transactional saves land here until the test commits them
	pending *model.Distributor
}

func (m *mockDistributorRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Distributor, error) {
	m.calls++
	if m.dist == nil || m.dist.ID != id {
		return nil, domain.ErrDistributorNotFound
	}
	cp := *m.dist
	return &cp, nil
}

func (m *mockDistributorRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Distributor, error) {
	m.calls++
	if m.dist == nil || m.dist.Email != model.NormalizeEmail(email) {
		return nil, domain.ErrDistributorNotFound
	}
	cp := *m.dist
	return &cp, nil
}

func (m *mockDistributorRepo) Save(ctx context.Context, tx repository.Tx, d *model.Distributor) error {
	cp := *d
	if tx != nil {
		m.pending = &cp
		return nil
	}
	m.dist = &cp
	return nil
}

func TestDistributorRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	dist := &model.Distributor{ID: "d-1", Email: "a@b.example", PasswordHash: "$2a$10$secrethash", CommissionRate: decimal.RequireFromString("12.5"), IsActive: true}

	t.Run("miss loads and warms the id key", func(t *testing.T) {
		cache := newMockRedis()
		inner := &mockDistributorRepo{dist: dist}
		repo := NewDistributorRepoCacheDecorator(inner, cache, time.Minute)

		got, err := repo.FindByID(ctx, repository.NoTX, "d-1")
		if err != nil || got.ID != "d-1" || got.PasswordHash == "" {
			t.Fatalf("FindByID: %+v %v", got, err)
		}
		if len(cache.data) != 1 {
			t.Fatalf("expected only the id key, got %v", cache.data)
		}

		got, err = repo.FindByID(ctx, repository.NoTX, "d-1")
		if err != nil || !got.CommissionRate.Equal(dist.CommissionRate) || got.Email != dist.Email {
			t.Fatalf("cached FindByID: %+v %v", got, err)
		}
		if inner.calls != 1 {
			t.Fatalf("second lookup should hit the cache, inner calls=%d", inner.calls)
		}
	})

	t.Run("password hash never cached", func(t *testing.T) {
		cache := newMockRedis()
		inner := &mockDistributorRepo{dist: dist}
		repo := NewDistributorRepoCacheDecorator(inner, cache, time.Minute)
		if _, err := repo.FindByID(ctx, repository.NoTX, "d-1"); err != nil {
			t.Fatal(err)
		}
		for k, v := range cache.data {
			if strings.Contains(v, dist.PasswordHash) {
				t.Fatalf("key %s holds the password hash: %s", k, v)
			}
		}
		got, _ := repo.FindByID(ctx, repository.NoTX, "d-1")
		if got.PasswordHash != "" {
			t.Fatal("cached read returned a password hash")
		}
	})

	t.Run("email lookups go to the store", func(t *testing.T) {
		cache := newMockRedis()
		inner := &mockDistributorRepo{dist: dist}
		repo := NewDistributorRepoCacheDecorator(inner, cache, time.Minute)
		for i := 0; i < 2; i++ {
			got, err := repo.FindByEmail(ctx, repository.NoTX, "A@B.example")
			if err != nil || got.PasswordHash != dist.PasswordHash {
				t.Fatalf("FindByEmail: %+v %v", got, err)
			}
		}
		if inner.calls != 2 || len(cache.data) != 0 {
			t.Fatalf("email path touched the cache: calls=%d data=%v", inner.calls, cache.data)
		}
	})

	t.Run("not found is not cached", func(t *testing.T) {
		cache := newMockRedis()
		repo := NewDistributorRepoCacheDecorator(&mockDistributorRepo{}, cache, time.Minute)
		if _, err := repo.FindByID(ctx, repository.NoTX, "ghost"); !errors.Is(err, domain.ErrDistributorNotFound) {
			t.Fatalf("expected ErrDistributorNotFound, got %v", err)
		}
		if len(cache.data) != 0 {
			t.Fatal("negative result cached")
		}
	})

	t.Run("transactional reads bypass the cache", func(t *testing.T) {
		cache := newMockRedis()
		b, _ := json.Marshal(toCachedDistributor(&model.Distributor{ID: "d-1", Email: "a@b.example", IsActive: false}))
		cache.data[distributorIDKey("d-1")] = string(b)
		inner := &mockDistributorRepo{dist: dist}
		repo := NewDistributorRepoCacheDecorator(inner, cache, time.Minute)

		got, err := repo.FindByID(ctx, struct{}{}, "d-1")
		if err != nil || !got.IsActive || inner.calls != 1 {
			t.Fatalf("expected inner read, got %+v %v", got, err)
		}
	})

	t.Run("redis errors fall through", func(t *testing.T) {
		cache := newMockRedis()
		cache.getErr = errors.New("connection refused")
		inner := &mockDistributorRepo{dist: dist}
		repo := NewDistributorRepoCacheDecorator(inner, cache, time.Minute)
		if _, err := repo.FindByID(ctx, repository.NoTX, "d-1"); err != nil {
			t.Fatalf("FindByID: %v", err)
		}
	})

	t.Run("save invalidates", func(t *testing.T) {
		cache := newMockRedis()
		inner := &mockDistributorRepo{dist: dist}
		repo := NewDistributorRepoCacheDecorator(inner, cache, time.Minute)
		if _, err := repo.FindByID(ctx, repository.NoTX, "d-1"); err != nil {
			t.Fatal(err)
		}

		updated := *dist
		updated.IsActive = false
		if err := repo.Save(ctx, repository.NoTX, &updated); err != nil {
			t.Fatal(err)
		}
		if len(cache.data) != 0 {
			t.Fatalf("stale keys left: %v", cache.data)
		}
		got, _ := repo.FindByID(ctx, repository.NoTX, "d-1")
		if got.IsActive {
			t.Fatal("stale distributor served after save")
		}
	})

	t.Run("read before commit does not leave a stale row", func(t *testing.T) {
		cache := newMockRedis()
		inner := &mockDistributorRepo{dist: dist}
		repo := NewDistributorRepoCacheDecorator(inner, cache, time.Minute)

		txCtx, commit := repository.WithCommitHooks(ctx)
		updated := *dist
		updated.IsActive = false
		if err := repo.Save(txCtx, struct{}{}, &updated); err != nil {
			t.Fatal(err)
		}

		// another request reads the old committed row and caches it
		got, err := repo.FindByID(ctx, repository.NoTX, "d-1")
		if err != nil || !got.IsActive {
			t.Fatalf("expected the pre-commit row, got %+v %v", got, err)
		}
		if len(cache.data) != 1 {
			t.Fatalf("expected the old row cached, got %v", cache.data)
		}

		inner.dist, inner.pending = inner.pending, nil
		commit(txCtx)

		got, err = repo.FindByID(ctx, repository.NoTX, "d-1")
		if err != nil || got.IsActive {
			t.Fatalf("stale distributor served after commit: %+v %v", got, err)
		}
	})

	t.Run("rolled back save keeps no hook", func(t *testing.T) {
		cache := newMockRedis()
		inner := &mockDistributorRepo{dist: dist}
		repo := NewDistributorRepoCacheDecorator(inner, cache, time.Minute)

		txCtx, _ := repository.WithCommitHooks(ctx)
		if err := repo.Save(txCtx, struct{}{}, dist); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.FindByID(ctx, repository.NoTX, "d-1"); err != nil {
			t.Fatal(err)
		}
		if len(cache.data) != 1 {
			t.Fatalf("cached row dropped without a commit: %v", cache.data)
		}
	})
}

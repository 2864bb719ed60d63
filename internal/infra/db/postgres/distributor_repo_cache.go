package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
	"orbit-redemption/internal/infra/metrics"
	red "orbit-redemption/internal/infra/redis"
)

var _ repository.DistributorRepository = (*distributorRepoCacheDecorator)(nil)

// distributorRepoCacheDecorator caches non-transactional lookups by id.
// Reads inside a transaction and lookups by email always go to the inner
// repository; the email path serves login and needs the password hash,
// which never leaves Postgres.
type distributorRepoCacheDecorator struct {
	inner repository.DistributorRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewDistributorRepoCacheDecorator(inner repository.DistributorRepository, cache red.RedisClient, ttl time.Duration) repository.DistributorRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &distributorRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func distributorIDKey(id string) string { return fmt.Sprintf("distributor:id:%s", id) }

// cachedDistributor is the Redis form of a distributor, without credentials.
type cachedDistributor struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	CodePrefix     string          `json:"code_prefix,omitempty"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toCachedDistributor(d *model.Distributor) cachedDistributor {
	return cachedDistributor{
		ID:             d.ID,
		Name:           d.Name,
		Email:          d.Email,
		CommissionRate: d.CommissionRate,
		CodePrefix:     d.CodePrefix,
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
	}
}

func (c cachedDistributor) model() *model.Distributor {
	return &model.Distributor{
		ID:             c.ID,
		Name:           c.Name,
		Email:          c.Email,
		CommissionRate: c.CommissionRate,
		CodePrefix:     c.CodePrefix,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
	}
}

func (d *distributorRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, dist *model.Distributor) error {
	return d.inner.Create(ctx, tx, dist)
}

// Save drops the cached row now and, inside a transaction, again after
// commit: a reader can re-cache the old row while the write is uncommitted.
func (d *distributorRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, dist *model.Distributor) error {
	if err := d.inner.Save(ctx, tx, dist); err != nil {
		return err
	}
	key := distributorIDKey(dist.ID)
	_ = d.cache.Del(ctx, key)
	if tx != nil {
		repository.AfterCommit(ctx, func(ctx context.Context) {
			_ = d.cache.Del(ctx, key)
		})
	}
	return nil
}

func (d *distributorRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Distributor, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := distributorIDKey(id)
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		var c cachedDistributor
		if json.Unmarshal([]byte(val), &c) == nil {
			metrics.IncCacheRequest("distributor", "hit")
			return c.model(), nil
		}
	case !errors.Is(err, red.Nil):
		metrics.IncCacheRequest("distributor", "error")
	}

	metrics.IncCacheRequest("distributor", "miss")
	dist, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(toCachedDistributor(dist)); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return dist, nil
}

func (d *distributorRepoCacheDecorator) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Distributor, error) {
	return d.inner.FindByEmail(ctx, tx, email)
}

func (d *distributorRepoCacheDecorator) List(ctx context.Context, tx repository.Tx) ([]*model.Distributor, error) {
	return d.inner.List(ctx, tx)
}

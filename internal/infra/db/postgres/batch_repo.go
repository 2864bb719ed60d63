package postgres

import (
	"context"
	"hash/fnv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

var _ repository.BatchRepository = (*PostgresBatchRepo)(nil)

type PostgresBatchRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresBatchRepo(pool *pgxpool.Pool) *PostgresBatchRepo {
	return &PostgresBatchRepo{pool: pool}
}

func (r *PostgresBatchRepo) Create(ctx context.Context, tx repository.Tx, b *model.CodeBatch) error {
	const q = `
INSERT INTO code_batches (id, code_type, requested_count, prefix, distributor_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	_, err := execSQL(ctx, r.pool, tx, q, b.ID, string(b.Type), b.RequestedCount, b.Prefix, ownerArg(b.Owner), b.CreatedAt)
	if _, dup := uniqueViolation(err); dup {
		return domain.ErrConflict
	}
	return err
}

func (r *PostgresBatchRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CodeBatch, error) {
	const q = `
SELECT id, code_type, requested_count, prefix, distributor_id, created_at
  FROM code_batches WHERE id=$1;`
	var (
		b     model.CodeBatch
		ct    string
		owner *string
	)
	err := pickRow(ctx, r.pool, tx, q, id).Scan(&b.ID, &ct, &b.RequestedCount, &b.Prefix, &owner, &b.CreatedAt)
	if isNoRows(err) {
		return nil, domain.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Type = model.CodeType(ct)
	b.Owner = ownerFromNull(owner)
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}

func (r *PostgresBatchRepo) ListSummaries(ctx context.Context, tx repository.Tx, f model.OwnerFilter) ([]*model.BatchSummary, error) {
	const q = `
SELECT b.id, b.code_type, b.requested_count, b.prefix, b.distributor_id, b.created_at,
       COUNT(c.id),
       COUNT(c.id) FILTER (WHERE c.redeemed_at IS NOT NULL),
       COUNT(c.id) FILTER (WHERE c.redeemed_at IS NULL AND NOT c.is_active)
  FROM code_batches b
  LEFT JOIN codes c ON c.batch_id = b.id
 WHERE ($1::boolean OR b.distributor_id IS NOT DISTINCT FROM $2::text)
 GROUP BY b.id
 ORDER BY b.created_at DESC, b.id DESC;`
	all, owner := filterArgs(f)
	rows, err := queryRows(ctx, r.pool, tx, q, all, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BatchSummary
	for rows.Next() {
		var (
			s     model.BatchSummary
			ct    string
			owner *string
		)
		if err := rows.Scan(&s.ID, &ct, &s.RequestedCount, &s.Prefix, &owner, &s.CreatedAt,
			&s.Generated, &s.Redeemed, &s.Revoked); err != nil {
			return nil, err
		}
		s.Type = model.CodeType(ct)
		s.Owner = ownerFromNull(owner)
		s.CreatedAt = s.CreatedAt.UTC()
		out = append(out, &s)
	}
	return out, rows.Err()
}

// LockOwner takes a transaction-scoped advisory lock keyed by owner.
func (r *PostgresBatchRepo) LockOwner(ctx context.Context, tx repository.Tx, owner model.Owner) error {
	t, ok := tx.(pgx.Tx)
	if !ok {
		return domain.ErrInvalidExecContext
	}
	_, err := t.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64("batch:"+owner.String()))
	return err
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

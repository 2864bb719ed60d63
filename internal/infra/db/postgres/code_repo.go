package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

var _ repository.CodeRepository = (*PostgresCodeRepo)(nil)

type PostgresCodeRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCodeRepo(pool *pgxpool.Pool) *PostgresCodeRepo {
	return &PostgresCodeRepo{pool: pool}
}

const codeColumns = `id, code, code_type, batch_id, distributor_id, created_at, is_active,
       redeemed_at, redeemed_by, attempt_id, settled, settled_at`

func scanCode(row pgx.Row) (*model.Code, error) {
	var (
		c     model.Code
		ct    string
		owner *string
	)
	if err := row.Scan(&c.ID, &c.Code, &ct, &c.BatchID, &owner, &c.CreatedAt, &c.IsActive,
		&c.RedeemedAt, &c.RedeemedBy, &c.AttemptID, &c.Settled, &c.SettledAt); err != nil {
		return nil, err
	}
	c.Type = model.CodeType(ct)
	c.Owner = ownerFromNull(owner)
	c.CreatedAt = c.CreatedAt.UTC()
	c.RedeemedAt = utcPtr(c.RedeemedAt)
	c.SettledAt = utcPtr(c.SettledAt)
	return &c, nil
}

func (r *PostgresCodeRepo) Insert(ctx context.Context, tx repository.Tx, c *model.Code) (bool, error) {
	const q = `
INSERT INTO codes (id, code, code_type, batch_id, distributor_id, created_at, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (code) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q, c.ID, c.Code, string(c.Type), c.BatchID, ownerArg(c.Owner), c.CreatedAt, c.IsActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresCodeRepo) ExistsByCode(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	var exists bool
	err := pickRow(ctx, r.pool, tx, `SELECT EXISTS (SELECT 1 FROM codes WHERE code=$1);`, code).Scan(&exists)
	return exists, err
}

func (r *PostgresCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Code, error) {
	c, err := scanCode(pickRow(ctx, r.pool, tx, `SELECT `+codeColumns+` FROM codes WHERE code=$1;`, code))
	if isNoRows(err) {
		return nil, domain.ErrCodeNotFound
	}
	return c, err
}

func (r *PostgresCodeRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, code, redeemer, attemptID string, at time.Time) (bool, error) {
	const q = `
UPDATE codes SET redeemed_at=$2, redeemed_by=$3, attempt_id=$4
 WHERE code=$1 AND is_active AND redeemed_at IS NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q, code, at, textArg(redeemer), attemptID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresCodeRepo) Revoke(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	const q = `UPDATE codes SET is_active=FALSE WHERE code=$1 AND is_active AND redeemed_at IS NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresCodeRepo) MarkSettled(ctx context.Context, tx repository.Tx, code string, at time.Time) (bool, error) {
	const q = `UPDATE codes SET settled=TRUE, settled_at=$2 WHERE code=$1 AND redeemed_at IS NOT NULL AND NOT settled;`
	tag, err := execSQL(ctx, r.pool, tx, q, code, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresCodeRepo) ListByOwner(ctx context.Context, tx repository.Tx, f model.OwnerFilter) ([]*model.Code, error) {
	all, owner := filterArgs(f)
	q := `SELECT ` + codeColumns + ` FROM codes
 WHERE ($1::boolean OR distributor_id IS NOT DISTINCT FROM $2::text)
 ORDER BY created_at DESC, id DESC;`
	return r.list(ctx, tx, q, all, owner)
}

func (r *PostgresCodeRepo) ListByBatch(ctx context.Context, tx repository.Tx, batchID string) ([]*model.Code, error) {
	q := `SELECT ` + codeColumns + ` FROM codes WHERE batch_id=$1 ORDER BY created_at, id;`
	return r.list(ctx, tx, q, batchID)
}

func (r *PostgresCodeRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Code, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Code
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// statsColumns counts period flows within [$s, $e) and pending settlement regardless of window.
func statsColumns(s, e int) string {
	return fmt.Sprintf(`
  COUNT(*) FILTER (WHERE ($%[1]d::timestamptz IS NULL OR created_at >= $%[1]d) AND ($%[2]d::timestamptz IS NULL OR created_at < $%[2]d)),
  COUNT(*) FILTER (WHERE redeemed_at IS NOT NULL AND ($%[1]d::timestamptz IS NULL OR redeemed_at >= $%[1]d) AND ($%[2]d::timestamptz IS NULL OR redeemed_at < $%[2]d)),
  COUNT(*) FILTER (WHERE redeemed_at IS NOT NULL AND NOT settled)`, s, e)
}

func (r *PostgresCodeRepo) Stats(ctx context.Context, tx repository.Tx, f model.OwnerFilter, w model.Window) (model.Stats, error) {
	all, owner := filterArgs(f)
	start, end := windowArgs(w)
	q := `SELECT` + statsColumns(3, 4) + `
  FROM codes WHERE ($1::boolean OR distributor_id IS NOT DISTINCT FROM $2::text);`

	var st model.Stats
	err := pickRow(ctx, r.pool, tx, q, all, owner, start, end).
		Scan(&st.TotalGenerated, &st.TotalRedeemed, &st.PendingSettlement)
	return st, err
}

func (r *PostgresCodeRepo) StatsByDistributor(ctx context.Context, tx repository.Tx, w model.Window) (map[string]model.Stats, error) {
	start, end := windowArgs(w)
	q := `SELECT distributor_id,` + statsColumns(1, 2) + `
  FROM codes WHERE distributor_id IS NOT NULL
  GROUP BY distributor_id;`

	rows, err := queryRows(ctx, r.pool, tx, q, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]model.Stats{}
	for rows.Next() {
		var (
			id string
			st model.Stats
		)
		if err := rows.Scan(&id, &st.TotalGenerated, &st.TotalRedeemed, &st.PendingSettlement); err != nil {
			return nil, err
		}
		out[id] = st
	}
	return out, rows.Err()
}

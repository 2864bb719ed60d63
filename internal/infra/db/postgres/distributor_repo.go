package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

var _ repository.DistributorRepository = (*PostgresDistributorRepo)(nil)

const (
	emailConstraint  = "distributors_email_key"
	prefixConstraint = "distributors_code_prefix_key"
)

type PostgresDistributorRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresDistributorRepo(pool *pgxpool.Pool) *PostgresDistributorRepo {
	return &PostgresDistributorRepo{pool: pool}
}

// commission_rate travels as text so decimal.Decimal round-trips exactly.
const distributorColumns = `id, name, email, password_hash, commission_rate::text, code_prefix, is_active, created_at`

func scanDistributor(row pgx.Row) (*model.Distributor, error) {
	var (
		d      model.Distributor
		rate   string
		prefix *string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Email, &d.PasswordHash, &rate, &prefix, &d.IsActive, &d.CreatedAt); err != nil {
		return nil, err
	}
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	d.CommissionRate = r
	if prefix != nil {
		d.CodePrefix = *prefix
	}
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}

func (r *PostgresDistributorRepo) Create(ctx context.Context, tx repository.Tx, d *model.Distributor) error {
	const q = `
INSERT INTO distributors (id, name, email, password_hash, commission_rate, code_prefix, is_active, created_at)
VALUES ($1,$2,$3,$4,$5::numeric,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, d.ID, d.Name, d.Email, d.PasswordHash,
		d.CommissionRate.String(), textArg(d.CodePrefix), d.IsActive, d.CreatedAt)
	if constraint, dup := uniqueViolation(err); dup {
		switch constraint {
		case emailConstraint:
			return domain.ErrDuplicateEmail
		case prefixConstraint:
			return domain.ErrDuplicatePrefix
		}
		return domain.ErrConflict
	}
	return err
}

func (r *PostgresDistributorRepo) Save(ctx context.Context, tx repository.Tx, d *model.Distributor) error {
	const q = `UPDATE distributors SET commission_rate=$2::numeric, is_active=$3 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, d.ID, d.CommissionRate.String(), d.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDistributorNotFound
	}
	return nil
}

func (r *PostgresDistributorRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Distributor, error) {
	return r.findOne(ctx, tx, `SELECT `+distributorColumns+` FROM distributors WHERE id=$1;`, id)
}

func (r *PostgresDistributorRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Distributor, error) {
	return r.findOne(ctx, tx, `SELECT `+distributorColumns+` FROM distributors WHERE email=$1;`, model.NormalizeEmail(email))
}

func (r *PostgresDistributorRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg string) (*model.Distributor, error) {
	d, err := scanDistributor(pickRow(ctx, r.pool, tx, q, arg))
	if isNoRows(err) {
		return nil, domain.ErrDistributorNotFound
	}
	return d, err
}

func (r *PostgresDistributorRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Distributor, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+distributorColumns+` FROM distributors ORDER BY created_at, id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Distributor
	for rows.Next() {
		d, err := scanDistributor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

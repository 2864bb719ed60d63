package repository

import (
	"context"

	"orbit-redemption/internal/domain/model"
)

// DistributorRepository is the port for the distributor directory.
type DistributorRepository interface {
	// Create returns domain.ErrDuplicateEmail or domain.ErrDuplicatePrefix on uniqueness violations.
	Create(ctx context.Context, tx Tx, d *model.Distributor) error
	// Save persists the admin-mutable fields (commission rate, active flag).
	Save(ctx context.Context, tx Tx, d *model.Distributor) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Distributor, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Distributor, error)
	List(ctx context.Context, tx Tx) ([]*model.Distributor, error)
}

package memory

import (
	"context"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

type DistributorRepo struct {
	s *Store
}

func NewDistributorRepo(s *Store) *DistributorRepo { return &DistributorRepo{s: s} }

var _ repository.DistributorRepository = (*DistributorRepo)(nil)

func (r *DistributorRepo) Create(ctx context.Context, tx repository.Tx, d *model.Distributor) error {
	defer r.s.lock(tx)()
	for _, existing := range r.s.distributors {
		if existing.Email == d.Email {
			return domain.ErrDuplicateEmail
		}
		if d.CodePrefix != "" && existing.CodePrefix == d.CodePrefix {
			return domain.ErrDuplicatePrefix
		}
	}
	cp := *d
	r.s.distributors[d.ID] = &cp
	r.s.distOrder = append(r.s.distOrder, d.ID)
	return nil
}

func (r *DistributorRepo) Save(ctx context.Context, tx repository.Tx, d *model.Distributor) error {
	defer r.s.lock(tx)()
	existing, ok := r.s.distributors[d.ID]
	if !ok {
		return domain.ErrDistributorNotFound
	}
	cp := *existing
	cp.CommissionRate = d.CommissionRate
	cp.IsActive = d.IsActive
	r.s.distributors[d.ID] = &cp
	return nil
}

func (r *DistributorRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Distributor, error) {
	defer r.s.lock(tx)()
	d, ok := r.s.distributors[id]
	if !ok {
		return nil, domain.ErrDistributorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *DistributorRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Distributor, error) {
	defer r.s.lock(tx)()
	for _, d := range r.s.distributors {
		if d.Email == email {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrDistributorNotFound
}

// List returns distributors in creation order.
func (r *DistributorRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Distributor, error) {
	defer r.s.lock(tx)()
	out := make([]*model.Distributor, 0, len(r.s.distOrder))
	for _, id := range r.s.distOrder {
		cp := *r.s.distributors[id]
		out = append(out, &cp)
	}
	return out, nil
}

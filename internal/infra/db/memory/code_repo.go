package memory

import (
	"context"
	"time"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

type CodeRepo struct {
	s *Store
}

func NewCodeRepo(s *Store) *CodeRepo { return &CodeRepo{s: s} }

var _ repository.CodeRepository = (*CodeRepo)(nil)

func copyCode(c *model.Code) *model.Code {
	cp := *c
	return &cp
}

func (r *CodeRepo) Insert(ctx context.Context, tx repository.Tx, c *model.Code) (bool, error) {
	defer r.s.lock(tx)()
	if _, ok := r.s.codes[c.Code]; ok {
		return false, nil
	}
	r.s.codes[c.Code] = copyCode(c)
	r.s.codeOrder = append(r.s.codeOrder, c.Code)
	return true, nil
}

func (r *CodeRepo) ExistsByCode(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	defer r.s.lock(tx)()
	_, ok := r.s.codes[code]
	return ok, nil
}

func (r *CodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Code, error) {
	defer r.s.lock(tx)()
	c, ok := r.s.codes[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	return copyCode(c), nil
}

func (r *CodeRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, code, redeemer, attemptID string, at time.Time) (bool, error) {
	defer r.s.lock(tx)()
	c, ok := r.s.codes[code]
	if !ok || !c.IsRedeemable() {
		return false, nil
	}
	cp := copyCode(c)
	cp.RedeemedAt = &at
	if redeemer != "" {
		cp.RedeemedBy = &redeemer
	}
	cp.AttemptID = &attemptID
	r.s.codes[code] = cp
	return true, nil
}

func (r *CodeRepo) Revoke(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	defer r.s.lock(tx)()
	c, ok := r.s.codes[code]
	if !ok || !c.IsRedeemable() {
		return false, nil
	}
	cp := copyCode(c)
	cp.IsActive = false
	r.s.codes[code] = cp
	return true, nil
}

func (r *CodeRepo) MarkSettled(ctx context.Context, tx repository.Tx, code string, at time.Time) (bool, error) {
	defer r.s.lock(tx)()
	c, ok := r.s.codes[code]
	if !ok || c.RedeemedAt == nil || c.Settled {
		return false, nil
	}
	cp := copyCode(c)
	cp.Settled = true
	cp.SettledAt = &at
	r.s.codes[code] = cp
	return true, nil
}

func (r *CodeRepo) ListByOwner(ctx context.Context, tx repository.Tx, f model.OwnerFilter) ([]*model.Code, error) {
	defer r.s.lock(tx)()
	out := make([]*model.Code, 0)
	for i := len(r.s.codeOrder) - 1; i >= 0; i-- {
		c := r.s.codes[r.s.codeOrder[i]]
		if f.Matches(c.Owner) {
			out = append(out, copyCode(c))
		}
	}
	return out, nil
}

func (r *CodeRepo) ListByBatch(ctx context.Context, tx repository.Tx, batchID string) ([]*model.Code, error) {
	defer r.s.lock(tx)()
	out := make([]*model.Code, 0)
	for _, k := range r.s.codeOrder {
		if c := r.s.codes[k]; c.BatchID == batchID {
			out = append(out, copyCode(c))
		}
	}
	return out, nil
}

// accumulate adds c to st for window w.
func accumulate(st *model.Stats, c *model.Code, w model.Window) {
	if w.Contains(c.CreatedAt) {
		st.TotalGenerated++
	}
	if w.ContainsPtr(c.RedeemedAt) {
		st.TotalRedeemed++
	}
	if c.RedeemedAt != nil && !c.Settled {
		st.PendingSettlement++
	}
}

func (r *CodeRepo) Stats(ctx context.Context, tx repository.Tx, f model.OwnerFilter, w model.Window) (model.Stats, error) {
	defer r.s.lock(tx)()
	var st model.Stats
	for _, c := range r.s.codes {
		if f.Matches(c.Owner) {
			accumulate(&st, c, w)
		}
	}
	return st, nil
}

func (r *CodeRepo) StatsByDistributor(ctx context.Context, tx repository.Tx, w model.Window) (map[string]model.Stats, error) {
	defer r.s.lock(tx)()
	out := make(map[string]model.Stats)
	for _, c := range r.s.codes {
		if c.Owner.IsHouse() {
			continue
		}
		st := out[c.Owner.DistributorID]
		accumulate(&st, c, w)
		out[c.Owner.DistributorID] = st
	}
	return out, nil
}

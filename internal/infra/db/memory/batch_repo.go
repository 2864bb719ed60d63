package memory

import (
	"context"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

type BatchRepo struct {
	s *Store
}

func NewBatchRepo(s *Store) *BatchRepo { return &BatchRepo{s: s} }

var _ repository.BatchRepository = (*BatchRepo)(nil)

func (r *BatchRepo) Create(ctx context.Context, tx repository.Tx, b *model.CodeBatch) error {
	defer r.s.lock(tx)()
	if _, ok := r.s.batches[b.ID]; ok {
		return domain.ErrConflict
	}
	cp := *b
	r.s.batches[b.ID] = &cp
	r.s.batchOrder = append(r.s.batchOrder, b.ID)
	return nil
}

func (r *BatchRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CodeBatch, error) {
	defer r.s.lock(tx)()
	b, ok := r.s.batches[id]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *BatchRepo) ListSummaries(ctx context.Context, tx repository.Tx, f model.OwnerFilter) ([]*model.BatchSummary, error) {
	defer r.s.lock(tx)()

	counts := make(map[string]*model.BatchSummary, len(r.s.batches))
	for _, c := range r.s.codes {
		sum, ok := counts[c.BatchID]
		if !ok {
			sum = &model.BatchSummary{}
			counts[c.BatchID] = sum
		}
		sum.Generated++
		switch c.Status() {
		case model.CodeStatusRedeemed:
			sum.Redeemed++
		case model.CodeStatusRevoked:
			sum.Revoked++
		}
	}

	out := make([]*model.BatchSummary, 0)
	for i := len(r.s.batchOrder) - 1; i >= 0; i-- {
		b := r.s.batches[r.s.batchOrder[i]]
		if !f.Matches(b.Owner) {
			continue
		}
		sum := model.BatchSummary{CodeBatch: *b}
		if c, ok := counts[b.ID]; ok {
			sum.Generated, sum.Redeemed, sum.Revoked = c.Generated, c.Redeemed, c.Revoked
		}
		out = append(out, &sum)
	}
	return out, nil
}

// LockOwner is a no-op: WithTx already holds the store lock.
func (r *BatchRepo) LockOwner(ctx context.Context, tx repository.Tx, owner model.Owner) error {
	if _, ok := tx.(*txHandle); !ok {
		return domain.ErrInvalidExecContext
	}
	return nil
}

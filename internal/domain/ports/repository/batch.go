package repository

import (
	"context"

	"orbit-redemption/internal/domain/model"
)

// BatchRepository is the port for code batches.
type BatchRepository interface {
	Create(ctx context.Context, tx Tx, b *model.CodeBatch) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.CodeBatch, error)
	// ListSummaries returns batches newest first with member counters.
	ListSummaries(ctx context.Context, tx Tx, f model.OwnerFilter) ([]*model.BatchSummary, error)
	// LockOwner serializes batch generation per owner for the rest of tx.
	LockOwner(ctx context.Context, tx Tx, owner model.Owner) error
}

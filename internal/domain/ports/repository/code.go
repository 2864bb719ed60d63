package repository

import (
	"context"
	"time"

	"orbit-redemption/internal/domain/model"
)

// CodeRepository is the port for entitlement codes.
type CodeRepository interface {
	// Insert stores a new code. inserted is false when the code string already exists;
	// nothing is written in that case.
	Insert(ctx context.Context, tx Tx, c *model.Code) (inserted bool, err error)
	// ExistsByCode reports whether a code string is already allocated.
	ExistsByCode(ctx context.Context, tx Tx, code string) (bool, error)
	// FindByCode returns domain.ErrCodeNotFound when absent.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Code, error)

	// MarkRedeemed sets redeemed_at only if it is currently null and the code is active.
	// An empty redeemer is stored as null.
	// ok is false when the compare-and-set lost.
	MarkRedeemed(ctx context.Context, tx Tx, code, redeemer, attemptID string, at time.Time) (ok bool, err error)
	// Revoke clears is_active only on an active, unredeemed code.
	Revoke(ctx context.Context, tx Tx, code string) (ok bool, err error)
	// MarkSettled sets settled only on a redeemed, unsettled code.
	MarkSettled(ctx context.Context, tx Tx, code string, at time.Time) (ok bool, err error)

	// ListByOwner returns codes newest first.
	ListByOwner(ctx context.Context, tx Tx, f model.OwnerFilter) ([]*model.Code, error)
	// ListByBatch returns a batch's codes in creation order.
	ListByBatch(ctx context.Context, tx Tx, batchID string) ([]*model.Code, error)

	// --- Settlement read-only methods ---
	Stats(ctx context.Context, tx Tx, f model.OwnerFilter, w model.Window) (model.Stats, error)
	// StatsByDistributor keys figures by distributor id; house codes are excluded.
	StatsByDistributor(ctx context.Context, tx Tx, w model.Window) (map[string]model.Stats, error)
}

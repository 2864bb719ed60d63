package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/adapter"
	"orbit-redemption/internal/domain/ports/repository"
	"orbit-redemption/internal/infra/logging"
)

// Compile-time check
var _ BatchUseCase = (*batchUC)(nil)

// GenerateRequest asks for one batch of codes.
type GenerateRequest struct {
	// DistributorID names the owner on the admin path; empty mints house codes.
	// Distributors may leave it empty or pass their own id.
	DistributorID  string
	Type           string
	Count          int
	PrefixOverride string // admin only
}

// BatchUseCase is the batch generator plus batch reads.
type BatchUseCase interface {
	// Generate mints a whole batch atomically and returns the code strings in creation order.
	Generate(ctx context.Context, caller model.Caller, req GenerateRequest) (*model.CodeBatch, []string, error)
	ListBatches(ctx context.Context, caller model.Caller, owner string) ([]*model.BatchSummary, error)
	GetBatchCodes(ctx context.Context, caller model.Caller, batchID string) ([]*model.Code, error)
}

type batchUC struct {
	batches      repository.BatchRepository
	codes        repository.CodeRepository
	distributors repository.DistributorRepository
	tm           repository.TransactionManager
	events       adapter.EventPublisher
	minter       *codeMinter
	log          *zerolog.Logger
	now          func() time.Time
}

func NewBatchUseCase(
	batches repository.BatchRepository,
	codes repository.CodeRepository,
	distributors repository.DistributorRepository,
	tm repository.TransactionManager,
	events adapter.EventPublisher,
	opts CodeOptions,
	logger *zerolog.Logger,
) *batchUC {
	l := logger.With().Str("component", "BatchUC").Logger()
	return &batchUC{
		batches:      batches,
		codes:        codes,
		distributors: distributors,
		tm:           tm,
		events:       events,
		minter:       newCodeMinter(codes, opts),
		log:          &l,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (u *batchUC) Generate(ctx context.Context, caller model.Caller, req GenerateRequest) (*model.CodeBatch, []string, error) {
	defer logging.TraceDuration(u.log, "BatchUC.Generate")()

	if req.Count < 1 || req.Count > model.MaxBatchSize {
		return nil, nil, domain.ErrInvalidCount
	}
	codeType, err := model.ParseCodeType(req.Type)
	if err != nil {
		return nil, nil, err
	}

	owner, prefix, err := u.resolveOwner(ctx, caller, req)
	if err != nil {
		return nil, nil, err
	}

	now := u.now()
	batch := &model.CodeBatch{
		ID:             ulid.Make().String(),
		Type:           codeType,
		RequestedCount: req.Count,
		Prefix:         prefix,
		Owner:          owner,
		CreatedAt:      now,
	}

	var minted []string
	err = u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.batches.LockOwner(ctx, tx, owner); err != nil {
			return err
		}
		if err := u.batches.Create(ctx, tx, batch); err != nil {
			return err
		}
		taken := make(map[string]struct{}, req.Count)
		for i := 0; i < req.Count; i++ {
			c, err := u.minter.mint(ctx, tx, batch, taken, now)
			if err != nil {
				return err
			}
			minted = append(minted, c.Code)
		}
		return nil
	})
	if err != nil {
		u.log.Error().Err(err).Str("owner", owner.String()).Int("count", req.Count).Msg("batch generation failed")
		return nil, nil, err
	}

	u.log.Info().
		Str("batch_id", batch.ID).
		Str("owner", owner.String()).
		Str("type", string(codeType)).
		Int("count", len(minted)).
		Msg("batch generated")

	if u.events != nil {
		evt := adapter.BatchCreatedEvent{
			BatchID:   batch.ID,
			CodeType:  string(batch.Type),
			Count:     len(minted),
			Prefix:    batch.Prefix,
			Owner:     owner.String(),
			CreatedAt: batch.CreatedAt,
		}
		if err := u.events.PublishBatchCreated(ctx, evt); err != nil {
			u.log.Warn().Err(err).Str("batch_id", batch.ID).Msg("publish batch.created failed")
		}
	}
	return batch, minted, nil
}

// resolveOwner applies the caller scope and the prefix order:
// admin override > distributor prefix > none.
func (u *batchUC) resolveOwner(ctx context.Context, caller model.Caller, req GenerateRequest) (model.Owner, string, error) {
	var distributorID string
	switch {
	case caller.IsAdmin():
		distributorID = req.DistributorID
	case caller.IsDistributor():
		if req.DistributorID != "" && req.DistributorID != caller.DistributorID {
			return model.Owner{}, "", domain.ErrForbiddenOwner
		}
		if req.PrefixOverride != "" {
			return model.Owner{}, "", domain.ErrAdminOnly
		}
		distributorID = caller.DistributorID
	default:
		return model.Owner{}, "", domain.ErrMissingCapability
	}

	var override string
	if req.PrefixOverride != "" {
		p, err := model.NormalizePrefix(req.PrefixOverride)
		if err != nil {
			return model.Owner{}, "", err
		}
		override = p
	}

	if distributorID == "" {
		return model.HouseOwner(), override, nil
	}

	d, err := u.distributors.FindByID(ctx, repository.NoTX, distributorID)
	if err != nil {
		return model.Owner{}, "", err
	}
	if caller.IsDistributor() && !d.IsActive {
		return model.Owner{}, "", domain.ErrDistributorInactive
	}
	prefix := d.CodePrefix
	if override != "" {
		prefix = override
	}
	return model.DistributorOwner(d.ID), prefix, nil
}

func (u *batchUC) ListBatches(ctx context.Context, caller model.Caller, owner string) ([]*model.BatchSummary, error) {
	defer logging.TraceDuration(u.log, "BatchUC.ListBatches")()
	f, err := ownerFilterFor(caller, owner)
	if err != nil {
		return nil, err
	}
	return u.batches.ListSummaries(ctx, repository.NoTX, f)
}

func (u *batchUC) GetBatchCodes(ctx context.Context, caller model.Caller, batchID string) ([]*model.Code, error) {
	defer logging.TraceDuration(u.log, "BatchUC.GetBatchCodes")()
	b, err := u.batches.FindByID(ctx, repository.NoTX, batchID)
	if err != nil {
		return nil, err
	}
	if !canAccess(caller, b.Owner) {
		return nil, domain.ErrForbiddenOwner
	}
	return u.codes.ListByBatch(ctx, repository.NoTX, b.ID)
}

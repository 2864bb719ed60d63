package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
	"orbit-redemption/internal/infra/logging"
)

// Compile-time check
var _ CodeUseCase = (*codeUC)(nil)

// CodeUseCase covers code reads and the two explicit mutations besides redemption.
type CodeUseCase interface {
	ListCodes(ctx context.Context, caller model.Caller, owner string) ([]*model.Code, error)
	// Revoke permanently blocks an unredeemed code.
	Revoke(ctx context.Context, caller model.Caller, code string) (*model.Code, error)
	// Settle marks redeemed codes as paid out. All codes settle or none do.
	Settle(ctx context.Context, caller model.Caller, codes []string) (int, error)
}

type codeUC struct {
	codes repository.CodeRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
	dev   bool
	now   func() time.Time
}

func NewCodeUseCase(codes repository.CodeRepository, tm repository.TransactionManager, logger *zerolog.Logger, dev bool) *codeUC {
	l := logger.With().Str("component", "CodeUC").Logger()
	return &codeUC{
		codes: codes,
		tm:    tm,
		log:   &l,
		dev:   dev,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (u *codeUC) ListCodes(ctx context.Context, caller model.Caller, owner string) ([]*model.Code, error) {
	defer logging.TraceDuration(u.log, "CodeUC.ListCodes")()
	f, err := ownerFilterFor(caller, owner)
	if err != nil {
		return nil, err
	}
	return u.codes.ListByOwner(ctx, repository.NoTX, f)
}

func (u *codeUC) Revoke(ctx context.Context, caller model.Caller, code string) (*model.Code, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Revoke")()

	code = NormalizeCode(code)
	c, err := u.codes.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		return nil, err
	}
	if !canAccess(caller, c.Owner) {
		return nil, domain.ErrForbiddenOwner
	}
	if err := c.Revoke(); err != nil {
		return nil, err
	}
	ok, err := u.codes.Revoke(ctx, repository.NoTX, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		// a concurrent redemption or revocation won
		cur, err := u.codes.FindByCode(ctx, repository.NoTX, code)
		if err != nil {
			return nil, err
		}
		if err := cur.Revoke(); err != nil {
			return nil, err
		}
		return nil, domain.ErrAlreadyRevoked
	}
	u.log.Info().Str("code", logging.Redact(code, u.dev)).Str("owner", c.Owner.String()).Msg("code revoked")
	return c, nil
}

func (u *codeUC) Settle(ctx context.Context, caller model.Caller, codes []string) (int, error) {
	defer logging.TraceDuration(u.log, "CodeUC.Settle")()

	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, domain.ErrInvalidArgument
	}
	at := u.now()
	settled := 0
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		// fn may run more than once; every pass starts clean
		seen := make(map[string]struct{}, len(codes))
		settled = 0
		for _, raw := range codes {
			code := NormalizeCode(raw)
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}

			c, err := u.codes.FindByCode(ctx, tx, code)
			if err != nil {
				return err
			}
			if err := c.Settle(at); err != nil {
				return err
			}
			ok, err := u.codes.MarkSettled(ctx, tx, code, at)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrAlreadySettled
			}
			settled++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	u.log.Info().Int("count", settled).Msg("codes settled")
	return settled, nil
}

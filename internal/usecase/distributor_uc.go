package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/adapter"
	"orbit-redemption/internal/domain/ports/repository"
	"orbit-redemption/internal/infra/logging"
)

// Compile-time check
var _ DistributorUseCase = (*distributorUC)(nil)

type CreateDistributorRequest struct {
	Name           string
	Email          string
	Password       string
	CommissionRate decimal.Decimal
	CodePrefix     string
}

// LoginResult carries a distributor bearer token.
type LoginResult struct {
	Token       string
	ExpiresAt   time.Time
	Distributor *model.Distributor
}

// DistributorUseCase is the distributor directory.
type DistributorUseCase interface {
	Create(ctx context.Context, caller model.Caller, req CreateDistributorRequest) (*model.Distributor, error)
	SetActive(ctx context.Context, caller model.Caller, id string, active bool) (*model.Distributor, error)
	SetCommissionRate(ctx context.Context, caller model.Caller, id string, rate decimal.Decimal) (*model.Distributor, error)
	Get(ctx context.Context, caller model.Caller, id string) (*model.Distributor, error)
	Profile(ctx context.Context, caller model.Caller) (*model.Distributor, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

type distributorUC struct {
	distributors repository.DistributorRepository
	tm           repository.TransactionManager
	hasher       adapter.PasswordHasher
	tokens       adapter.TokenIssuer
	log          *zerolog.Logger
}

func NewDistributorUseCase(
	distributors repository.DistributorRepository,
	tm repository.TransactionManager,
	hasher adapter.PasswordHasher,
	tokens adapter.TokenIssuer,
	logger *zerolog.Logger,
) *distributorUC {
	l := logger.With().Str("component", "DistributorUC").Logger()
	return &distributorUC{
		distributors: distributors,
		tm:           tm,
		hasher:       hasher,
		tokens:       tokens,
		log:          &l,
	}
}

func (u *distributorUC) Create(ctx context.Context, caller model.Caller, req CreateDistributorRequest) (*model.Distributor, error) {
	defer logging.TraceDuration(u.log, "DistributorUC.Create")()
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidArgument
	}
	// validate before paying for bcrypt
	if err := model.ValidateCommissionRate(req.CommissionRate); err != nil {
		return nil, err
	}
	hash, err := u.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	d, err := model.NewDistributor(req.Name, req.Email, hash, req.CommissionRate, req.CodePrefix)
	if err != nil {
		return nil, err
	}
	if err := u.distributors.Create(ctx, repository.NoTX, d); err != nil {
		return nil, err
	}
	u.log.Info().Str("distributor_id", d.ID).Str("prefix", d.CodePrefix).Msg("distributor created")
	return d, nil
}

func (u *distributorUC) SetActive(ctx context.Context, caller model.Caller, id string, active bool) (*model.Distributor, error) {
	defer logging.TraceDuration(u.log, "DistributorUC.SetActive")()
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return u.update(ctx, id, func(d *model.Distributor) error {
		d.IsActive = active
		return nil
	})
}

func (u *distributorUC) SetCommissionRate(ctx context.Context, caller model.Caller, id string, rate decimal.Decimal) (*model.Distributor, error) {
	defer logging.TraceDuration(u.log, "DistributorUC.SetCommissionRate")()
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := model.ValidateCommissionRate(rate); err != nil {
		return nil, err
	}
	return u.update(ctx, id, func(d *model.Distributor) error {
		d.CommissionRate = rate
		return nil
	})
}

func (u *distributorUC) update(ctx context.Context, id string, mutate func(*model.Distributor) error) (*model.Distributor, error) {
	var out *model.Distributor
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		d, err := u.distributors.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(d); err != nil {
			return err
		}
		if err := u.distributors.Save(ctx, tx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().
		Str("distributor_id", out.ID).
		Bool("active", out.IsActive).
		Str("commission_rate", out.CommissionRate.String()).
		Msg("distributor updated")
	return out, nil
}

func (u *distributorUC) Get(ctx context.Context, caller model.Caller, id string) (*model.Distributor, error) {
	if !caller.IsAdmin() && !(caller.IsDistributor() && caller.DistributorID == id) {
		return nil, domain.ErrForbiddenOwner
	}
	return u.distributors.FindByID(ctx, repository.NoTX, id)
}

func (u *distributorUC) Profile(ctx context.Context, caller model.Caller) (*model.Distributor, error) {
	if !caller.IsDistributor() {
		return nil, domain.ErrMissingCapability
	}
	return u.distributors.FindByID(ctx, repository.NoTX, caller.DistributorID)
}

func (u *distributorUC) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	defer logging.TraceDuration(u.log, "DistributorUC.Login")()

	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	d, err := u.distributors.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		if errors.Is(err, domain.ErrDistributorNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.hasher.Verify(d.PasswordHash, password) {
		u.log.Warn().Str("distributor_id", d.ID).Msg("login rejected: bad password")
		return nil, domain.ErrInvalidCredentials
	}
	if !d.IsActive {
		return nil, domain.ErrDistributorInactive
	}
	token, exp, err := u.tokens.Issue(d.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, Distributor: d}, nil
}

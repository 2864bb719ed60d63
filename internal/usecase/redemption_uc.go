package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/adapter"
	"orbit-redemption/internal/domain/ports/repository"
	"orbit-redemption/internal/infra/logging"
)

// Compile-time check
var _ RedemptionUseCase = (*redemptionUC)(nil)

// RedeemRequest is one physical redemption attempt. Redeemer and AttemptID are
// optional, but an AttemptID needs a Redeemer. A retry that repeats the AttemptID
// and Redeemer of the winning attempt gets the original result back instead of
// ErrCodeAlreadyRedeemed.
type RedeemRequest struct {
	Code      string
	Redeemer  string
	AttemptID string
}

type RedemptionResult struct {
	Code       string
	Type       model.CodeType
	Duration   model.Duration
	RedeemedAt time.Time
	AttemptID  string
	Replayed   bool
}

// RedemptionUseCase applies redemptions with at-most-once semantics.
type RedemptionUseCase interface {
	Redeem(ctx context.Context, req RedeemRequest) (*RedemptionResult, error)
}

type redemptionUC struct {
	codes  repository.CodeRepository
	events adapter.EventPublisher
	log    *zerolog.Logger
	dev    bool
	now    func() time.Time
}

func NewRedemptionUseCase(codes repository.CodeRepository, events adapter.EventPublisher, logger *zerolog.Logger, dev bool) *redemptionUC {
	l := logger.With().Str("component", "RedemptionUC").Logger()
	return &redemptionUC{
		codes:  codes,
		events: events,
		log:    &l,
		dev:    dev,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeCode uppercases and trims user-entered code strings.
func NormalizeCode(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func (u *redemptionUC) Redeem(ctx context.Context, req RedeemRequest) (*RedemptionResult, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.Redeem")()

	code := NormalizeCode(req.Code)
	redeemer := strings.TrimSpace(req.Redeemer)
	attemptID := strings.TrimSpace(req.AttemptID)
	callerAttempt := attemptID != ""
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	// a replayable attempt is identified by attempt id and redeemer together
	if callerAttempt && redeemer == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !callerAttempt {
		attemptID = uuid.NewString()
	}

	c, err := u.codes.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		return nil, err
	}
	if res, err := u.settled(c, redeemer, attemptID, callerAttempt); res != nil || err != nil {
		return res, err
	}

	at := u.now()
	ok, err := u.codes.MarkRedeemed(ctx, repository.NoTX, code, redeemer, attemptID, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost the compare-and-set: classify from the winner's state
		c, err = u.codes.FindByCode(ctx, repository.NoTX, code)
		if err != nil {
			return nil, err
		}
		if res, err := u.settled(c, redeemer, attemptID, callerAttempt); res != nil || err != nil {
			return res, err
		}
		return nil, domain.ErrCodeAlreadyRedeemed
	}

	u.log.Info().
		Str("code", logging.Redact(code, u.dev)).
		Str("owner", c.Owner.String()).
		Str("attempt_id", attemptID).
		Msg("code redeemed")

	if u.events != nil {
		evt := adapter.CodeRedeemedEvent{
			Code:       code,
			CodeType:   string(c.Type),
			BatchID:    c.BatchID,
			Owner:      c.Owner.String(),
			Redeemer:   redeemer,
			AttemptID:  attemptID,
			RedeemedAt: at,
		}
		if days, finite := c.Duration().Days(); finite {
			evt.DurationDays = &days
		}
		if err := u.events.PublishCodeRedeemed(ctx, evt); err != nil {
			u.log.Warn().Err(err).Msg("publish code.redeemed failed")
		}
	}

	return &RedemptionResult{
		Code:       code,
		Type:       c.Type,
		Duration:   c.Duration(),
		RedeemedAt: at,
		AttemptID:  attemptID,
	}, nil
}

// settled inspects a code that may already be in a terminal state. It returns a
// replayed result for a proven retry, an error for any other terminal code, and
// (nil, nil) when the code is still redeemable.
func (u *redemptionUC) settled(c *model.Code, redeemer, attemptID string, callerAttempt bool) (*RedemptionResult, error) {
	if c.RedeemedAt != nil {
		if callerAttempt && c.AttemptID != nil && *c.AttemptID == attemptID &&
			c.RedeemedBy != nil && *c.RedeemedBy == redeemer {
			return &RedemptionResult{
				Code:       c.Code,
				Type:       c.Type,
				Duration:   c.Duration(),
				RedeemedAt: *c.RedeemedAt,
				AttemptID:  attemptID,
				Replayed:   true,
			}, nil
		}
		return nil, domain.ErrCodeAlreadyRedeemed
	}
	return nil, c.RedeemError()
}

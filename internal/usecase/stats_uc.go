package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
	"orbit-redemption/internal/infra/logging"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// WindowRequest selects a reporting window either by named period or by explicit
// RFC 3339 bounds. Period wins when both are given; neither means all time.
type WindowRequest struct {
	Period string
	From   string
	To     string
}

// StatsUseCase is the settlement aggregator.
type StatsUseCase interface {
	Stats(ctx context.Context, caller model.Caller, owner string, w model.Window) (model.Stats, error)
	ListDistributorsWithStats(ctx context.Context, caller model.Caller, w model.Window) ([]*model.DistributorStats, error)
	ResolveWindow(req WindowRequest) (model.Window, error)
}

type statsUC struct {
	codes        repository.CodeRepository
	distributors repository.DistributorRepository
	loc          *time.Location
	log          *zerolog.Logger
	now          func() time.Time
}

func NewStatsUseCase(codes repository.CodeRepository, distributors repository.DistributorRepository, loc *time.Location, logger *zerolog.Logger) *statsUC {
	if loc == nil {
		loc = time.UTC
	}
	l := logger.With().Str("component", "StatsUC").Logger()
	return &statsUC{
		codes:        codes,
		distributors: distributors,
		loc:          loc,
		log:          &l,
		now:          time.Now,
	}
}

func (s *statsUC) Stats(ctx context.Context, caller model.Caller, owner string, w model.Window) (model.Stats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Stats")()
	f, err := ownerFilterFor(caller, owner)
	if err != nil {
		return model.Stats{}, err
	}
	return s.codes.Stats(ctx, repository.NoTX, f, w)
}

// ListDistributorsWithStats returns every distributor, including inactive ones and
// those with no codes, paired with its figures for w.
func (s *statsUC) ListDistributorsWithStats(ctx context.Context, caller model.Caller, w model.Window) ([]*model.DistributorStats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.ListDistributorsWithStats")()
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	ds, err := s.distributors.List(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byOwner, err := s.codes.StatsByDistributor(ctx, repository.NoTX, w)
	if err != nil {
		return nil, err
	}
	out := make([]*model.DistributorStats, 0, len(ds))
	for _, d := range ds {
		out = append(out, &model.DistributorStats{Distributor: d, Stats: byOwner[d.ID]})
	}
	return out, nil
}

func (s *statsUC) ResolveWindow(req WindowRequest) (model.Window, error) {
	if p := strings.TrimSpace(req.Period); p != "" {
		return model.PeriodWindow(model.Period(p), s.now(), s.loc)
	}
	var start, end time.Time
	if v := strings.TrimSpace(req.From); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return model.Window{}, domain.ErrInvalidWindow
		}
		start = t
	}
	if v := strings.TrimSpace(req.To); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return model.Window{}, domain.ErrInvalidWindow
		}
		end = t
	}
	return model.NewWindow(start, end)
}

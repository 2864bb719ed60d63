package web

import (
	"encoding/json"
	"time"

	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/usecase"
)

type codeView struct {
	Code         string         `json:"code"`
	Type         string         `json:"code_type"`
	DurationDays model.Duration `json:"duration_days"`
	BatchID      string         `json:"batch_id"`
	Owner        string         `json:"owner"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	RedeemedAt   *time.Time     `json:"redeemed_at"`
	RedeemedBy   *string        `json:"redeemed_by"`
	Settled      bool           `json:"settled"`
	SettledAt    *time.Time     `json:"settled_at"`
}

func toCodeView(c *model.Code) codeView {
	return codeView{
		Code:         c.Code,
		Type:         string(c.Type),
		DurationDays: c.Duration(),
		BatchID:      c.BatchID,
		Owner:        c.Owner.String(),
		Status:       string(c.Status()),
		CreatedAt:    c.CreatedAt,
		RedeemedAt:   c.RedeemedAt,
		RedeemedBy:   c.RedeemedBy,
		Settled:      c.Settled,
		SettledAt:    c.SettledAt,
	}
}

func toCodeViews(cs []*model.Code) []codeView {
	out := make([]codeView, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCodeView(c))
	}
	return out
}

type batchView struct {
	ID             string    `json:"batch_id"`
	Type           string    `json:"code_type"`
	RequestedCount int       `json:"requested_count"`
	Prefix         string    `json:"prefix"`
	Owner          string    `json:"owner"`
	CreatedAt      time.Time `json:"created_at"`
	Generated      int64     `json:"generated"`
	Redeemed       int64     `json:"redeemed"`
	Revoked        int64     `json:"revoked"`
}

func toBatchViews(bs []*model.BatchSummary) []batchView {
	out := make([]batchView, 0, len(bs))
	for _, b := range bs {
		out = append(out, batchView{
			ID:             b.ID,
			Type:           string(b.Type),
			RequestedCount: b.RequestedCount,
			Prefix:         b.Prefix,
			Owner:          b.Owner.String(),
			CreatedAt:      b.CreatedAt,
			Generated:      b.Generated,
			Redeemed:       b.Redeemed,
			Revoked:        b.Revoked,
		})
	}
	return out
}

type distributorView struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	CommissionRate json.Number `json:"commission_rate"`
	CodePrefix     *string     `json:"code_prefix"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
}

func toDistributorView(d *model.Distributor) distributorView {
	v := distributorView{
		ID:             d.ID,
		Name:           d.Name,
		Email:          d.Email,
		CommissionRate: json.Number(d.CommissionRate.String()),
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
	}
	if d.CodePrefix != "" {
		p := d.CodePrefix
		v.CodePrefix = &p
	}
	return v
}

type statsView struct {
	TotalGenerated    int64        `json:"total_generated"`
	TotalRedeemed     int64        `json:"total_redeemed"`
	PendingSettlement int64        `json:"pending_settlement"`
	RedemptionRate    *json.Number `json:"redemption_rate"` // percent, one decimal; null when nothing was generated
}

func toStatsView(s model.Stats) statsView {
	v := statsView{
		TotalGenerated:    s.TotalGenerated,
		TotalRedeemed:     s.TotalRedeemed,
		PendingSettlement: s.PendingSettlement,
	}
	if rate, ok := s.RedemptionRate(); ok {
		n := json.Number(rate.StringFixed(1))
		v.RedemptionRate = &n
	}
	return v
}

type windowView struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

func toWindowView(w model.Window) windowView {
	var v windowView
	if !w.Start.IsZero() {
		s := w.Start
		v.From = &s
	}
	if !w.End.IsZero() {
		e := w.End
		v.To = &e
	}
	return v
}

type redemptionView struct {
	Code         string         `json:"code"`
	Type         string         `json:"code_type"`
	DurationDays model.Duration `json:"duration_days"`
	RedeemedAt   time.Time      `json:"redeemed_at"`
	AttemptID    string         `json:"attempt_id"`
	Replayed     bool           `json:"replayed"`
}

func toRedemptionView(r *usecase.RedemptionResult) redemptionView {
	return redemptionView{
		Code:         r.Code,
		Type:         string(r.Type),
		DurationDays: r.Duration,
		RedeemedAt:   r.RedeemedAt,
		AttemptID:    r.AttemptID,
		Replayed:     r.Replayed,
	}
}

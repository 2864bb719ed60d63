package web

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/infra/logging"
	"orbit-redemption/internal/infra/metrics"
	"orbit-redemption/internal/infra/redis"
	"orbit-redemption/internal/usecase"
)

type generateRequest struct {
	CodeType      string `json:"code_type"`
	Type          string `json:"type"` // alias of code_type
	Count         int    `json:"count"`
	DistributorID string `json:"distributor_id"`
	Prefix        string `json:"prefix"`
}

func (g generateRequest) codeType() string {
	if g.CodeType != "" {
		return g.CodeType
	}
	return g.Type
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	start := time.Now()
	batch, codes, err := s.deps.Batches.Generate(r.Context(), callerFrom(r.Context()), usecase.GenerateRequest{
		DistributorID:  req.DistributorID,
		Type:           req.codeType(),
		Count:          req.Count,
		PrefixOverride: req.Prefix,
	})
	if err != nil {
		metrics.ObserveBatch(req.codeType(), "", 0, time.Since(start), err)
		writeError(w, r, s.log, err)
		return
	}
	metrics.ObserveBatch(string(batch.Type), metrics.OwnerKind(batch.Owner.IsHouse()), len(codes), time.Since(start), nil)

	writeOK(w, http.StatusCreated, envelope{
		"batch_id":      batch.ID,
		"code_type":     batch.Type,
		"duration_days": batch.Type.Duration(),
		"owner":         batch.Owner.String(),
		"prefix":        batch.Prefix,
		"codes":         codes,
	})
}

type redeemRequest struct {
	Code      string `json:"code"`
	Redeemer  string `json:"redeemer"`
	AttemptID string `json:"attempt_id"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	res, err := s.deps.Redemption.Redeem(r.Context(), usecase.RedeemRequest{
		Code:      req.Code,
		Redeemer:  req.Redeemer,
		AttemptID: req.AttemptID,
	})
	if err != nil {
		metrics.IncRedemption(domain.CodeOf(err))
		writeError(w, r, s.log, err)
		return
	}
	if res.Replayed {
		metrics.IncRedemption("replayed")
	} else {
		metrics.IncRedemption("ok")
	}
	writeOK(w, http.StatusOK, envelope{"redemption": toRedemptionView(res)})
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := s.deps.Codes.ListCodes(r.Context(), callerFrom(r.Context()), r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"codes": toCodeViews(codes)})
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.deps.Batches.ListBatches(r.Context(), callerFrom(r.Context()), r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"batches": toBatchViews(batches)})
}

func (s *Server) handleBatchCodes(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	codes, err := s.deps.Batches.GetBatchCodes(r.Context(), callerFrom(r.Context()), batchID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"batch_id": batchID, "codes": toCodeViews(codes)})
}

type revokeRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	c, err := s.deps.Codes.Revoke(r.Context(), callerFrom(r.Context()), req.Code)
	if err != nil {
		metrics.IncRevocation(domain.CodeOf(err))
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncRevocation("ok")
	writeOK(w, http.StatusOK, envelope{"code": toCodeView(c)})
}

type settleRequest struct {
	Codes []string `json:"codes"`
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	n, err := s.deps.Codes.Settle(r.Context(), callerFrom(r.Context()), req.Codes)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	metrics.AddSettled(n)
	writeOK(w, http.StatusOK, envelope{"settled": n})
}

// rateLimit applies the per-IP redeem budget. Limiter failures fail open.
func (s *Server) rateLimit(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.deps.Limiter == nil || s.deps.RedeemPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ok, err := s.deps.Limiter.Allow(r.Context(), redis.RedeemKey(clientIP(r)), s.deps.RedeemPerMinute, time.Minute)
			if err != nil {
				l := logging.With(r.Context(), s.log)
				l.Warn().Err(err).Msg("rate limiter unavailable")
			}
			if err == nil && !ok {
				metrics.IncRateLimited(route)
				writeJSON(w, http.StatusTooManyRequests, envelope{
					"success":    false,
					"error":      "too many requests",
					"error_code": "rate_limited",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

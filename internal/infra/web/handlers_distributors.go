package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/infra/metrics"
	"orbit-redemption/internal/usecase"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	res, err := s.deps.Distributors.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		metrics.IncAuthFailure("login")
		writeError(w, r, s.log, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{
		"token":       res.Token,
		"expires_at":  res.ExpiresAt,
		"distributor": toDistributorView(res.Distributor),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Distributors.Profile(r.Context(), callerFrom(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"distributor": toDistributorView(d)})
}

type createDistributorRequest struct {
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Password       string           `json:"password"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
	CodePrefix     string           `json:"code_prefix"`
}

func (s *Server) handleCreateDistributor(w http.ResponseWriter, r *http.Request) {
	var req createDistributorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if req.CommissionRate == nil {
		writeError(w, r, s.log, domain.ErrInvalidCommissionRate)
		return
	}
	d, err := s.deps.Distributors.Create(r.Context(), callerFrom(r.Context()), usecase.CreateDistributorRequest{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		CommissionRate: *req.CommissionRate,
		CodePrefix:     req.CodePrefix,
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"distributor": toDistributorView(d)})
}

// distributorRef names the target distributor as id or distributor_id.
type distributorRef struct {
	ID            string `json:"id"`
	DistributorID string `json:"distributor_id"`
}

func (d distributorRef) target() string {
	if d.ID != "" {
		return d.ID
	}
	return d.DistributorID
}

type statusRequest struct {
	distributorRef
	IsActive *bool `json:"is_active"`
}

func (s *Server) handleSetDistributorStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if req.target() == "" || req.IsActive == nil {
		writeError(w, r, s.log, domain.ErrInvalidArgument)
		return
	}
	d, err := s.deps.Distributors.SetActive(r.Context(), callerFrom(r.Context()), req.target(), *req.IsActive)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"distributor": toDistributorView(d)})
}

type commissionRequest struct {
	distributorRef
	CommissionRate *decimal.Decimal `json:"commission_rate"`
}

func (s *Server) handleSetDistributorCommission(w http.ResponseWriter, r *http.Request) {
	var req commissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if req.target() == "" {
		writeError(w, r, s.log, domain.ErrInvalidArgument)
		return
	}
	if req.CommissionRate == nil {
		writeError(w, r, s.log, domain.ErrInvalidCommissionRate)
		return
	}
	d, err := s.deps.Distributors.SetCommissionRate(r.Context(), callerFrom(r.Context()), req.target(), *req.CommissionRate)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"distributor": toDistributorView(d)})
}

func (s *Server) handleListDistributors(w http.ResponseWriter, r *http.Request) {
	win, err := s.window(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	rows, err := s.deps.Stats.ListDistributorsWithStats(r.Context(), callerFrom(r.Context()), win)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	// flow figures are repeated at the top level of each row
	type row struct {
		distributorView
		TotalGenerated    int64     `json:"total_generated"`
		TotalRedeemed     int64     `json:"total_redeemed"`
		PendingSettlement int64     `json:"pending_settlement"`
		Stats             statsView `json:"stats"`
	}
	out := make([]row, 0, len(rows))
	for _, ds := range rows {
		out = append(out, row{
			distributorView:   toDistributorView(ds.Distributor),
			TotalGenerated:    ds.Stats.TotalGenerated,
			TotalRedeemed:     ds.Stats.TotalRedeemed,
			PendingSettlement: ds.Stats.PendingSettlement,
			Stats:             toStatsView(ds.Stats),
		})
	}
	writeOK(w, http.StatusOK, envelope{"window": toWindowView(win), "distributors": out})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	win, err := s.window(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	st, err := s.deps.Stats.Stats(r.Context(), callerFrom(r.Context()), r.URL.Query().Get("owner"), win)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"window": toWindowView(win), "stats": toStatsView(st)})
}

// window reads period, from and to query parameters.
func (s *Server) window(r *http.Request) (model.Window, error) {
	q := r.URL.Query()
	return s.deps.Stats.ResolveWindow(usecase.WindowRequest{
		Period: q.Get("period"),
		From:   q.Get("from"),
		To:     q.Get("to"),
	})
}

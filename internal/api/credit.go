package api

import (
	"net/http"

	"assetbridge-nexus/internal/accounting"
	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type investRequest struct {
	UserId          string          `json:"userId"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionHash string          `json:"transactionHash"`
}

func (s *Server) listDeals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.DealFilter{
		Status:     query.Get("status"),
		AssetClass: query.Get("assetClass"),
		SortBy:     query.Get("sortBy"),
	}
	if raw := query.Get("minApy"); raw != "" {
		minApy, err := decimal.NewFromString(raw)
		if err != nil {
			s.fail(w, r, errs.Validation("Invalid minApy %q", raw))
			return
		}
		filter.MinApy = &minApy
	}

	deals, err := s.accounting.ListDeals(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list(w, deals, len(deals))
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := s.accounting.GetDeal(r.Context(), chi.URLParam(r, "dealId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", deal)
}

func (s *Server) userInvestments(w http.ResponseWriter, r *http.Request) {
	summary, err := s.accounting.UserInvestments(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", summary)
}

func (s *Server) invest(w http.ResponseWriter, r *http.Request) {
	var req investRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.accounting.Invest(r.Context(), accounting.InvestRequest{
		DealId:      chi.URLParam(r, "dealId"),
		UserId:      req.UserId,
		Amount:      req.Amount,
		ExternalRef: req.TransactionHash,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, "Investment successful", result)
}

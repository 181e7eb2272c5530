package api

import (
	"net/http"

	"assetbridge-nexus/internal/accounting"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type depositRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Strategy        string          `json:"strategy"`
	TransactionHash string          `json:"transactionHash"`
}

type withdrawRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	TransactionHash string          `json:"transactionHash"`
}

func (s *Server) getVault(w http.ResponseWriter, r *http.Request) {
	vault, err := s.accounting.GetVault(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", vault)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.accounting.Deposit(r.Context(), accounting.DepositRequest{
		UserId:      chi.URLParam(r, "userId"),
		Amount:      req.Amount,
		Strategy:    req.Strategy,
		ExternalRef: req.TransactionHash,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, "Deposit successful", result)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.accounting.Withdraw(r.Context(), accounting.WithdrawRequest{
		UserId:      chi.URLParam(r, "userId"),
		Amount:      req.Amount,
		ExternalRef: req.TransactionHash,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, "Withdrawal request processed", result)
}

func (s *Server) yields(w http.ResponseWriter, r *http.Request) {
	estimate, err := s.accounting.Yields(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", estimate)
}

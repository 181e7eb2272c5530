package api

import (
	"fmt"
	"net/http"

	"assetbridge-nexus/internal/premium"

	"github.com/go-chi/chi/v5"
)

type cancelSubscriptionRequest struct {
	UserId string `json:"userId"`
}

func (s *Server) premiumStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.premium.Status(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", status)
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	var req premium.SubscribeRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.premium.Subscribe(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if result.IsActive {
		created(w, fmt.Sprintf("Successfully upgraded to %s", result.Plan), result)
		return
	}
	created(w, "Payment intent created. Complete payment to activate subscription.", result)
}

func (s *Server) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req premium.ConfirmRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.premium.ConfirmPayment(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "Subscription activated successfully", result)
}

func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	var req cancelSubscriptionRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.premium.Cancel(r.Context(), req.UserId); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "Subscription cancelled successfully", map[string]string{
		"userId":  req.UserId,
		"message": "Your premium access will remain active until the end of your billing period.",
	})
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.premium.Analytics(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", report)
}

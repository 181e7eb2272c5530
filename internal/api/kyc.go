package api

import (
	"io"
	"net/http"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/kyc"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SignatureHeader carries the provider's HMAC over the raw webhook body
const SignatureHeader = "persona-signature"

type kycCancelRequest struct {
	UserId string `json:"userId"`
}

func (s *Server) kycStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.kyc.Status(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", status)
}

func (s *Server) kycVerify(w http.ResponseWriter, r *http.Request) {
	var req kyc.VerifyRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	initiation, err := s.kyc.StartVerification(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "KYC verification initiated successfully", initiation)
}

// kycWebhook acknowledges every authentic, decodable callback with 200 so
// the provider does not retry; processing problems are only logged.
func (s *Server) kycWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.fail(w, r, errs.Validation("Invalid webhook payload"))
		return
	}

	outcome, err := s.kyc.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	message := "Webhook processed successfully"
	if !outcome.Applied {
		message = "Webhook received but processing had issues"
		zap.L().Info("KYC webhook acknowledged without a status change",
			zap.String("inquiry_id", outcome.InquiryId),
			zap.String("status", outcome.NewStatus))
	}
	ok(w, message, outcome)
}

func (s *Server) kycCancel(w http.ResponseWriter, r *http.Request) {
	var req kycCancelRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	status, err := s.kyc.Cancel(r.Context(), req.UserId)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "KYC verification cancelled", map[string]string{
		"userId":    req.UserId,
		"kycStatus": status,
	})
}

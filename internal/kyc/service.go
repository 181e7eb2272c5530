package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/events"
	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Store is the slice of the ledger the KYC flow needs
type Store interface {
	store.UserStore
	store.KYCStore
}

type Service struct {
	store         Store
	provider      Provider
	publisher     events.Publisher
	webhookSecret string
}

func NewService(st Store, provider Provider, publisher events.Publisher, webhookSecret string) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if webhookSecret == "" {
		zap.L().Warn("PERSONA_WEBHOOK_SECRET not set, webhook signatures will not be verified")
	}
	return &Service{store: st, provider: provider, publisher: publisher, webhookSecret: webhookSecret}
}

type VerifyRequest struct {
	UserId      string `json:"userId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	CountryCode string `json:"countryCode"`
	PhoneNumber string `json:"phoneNumber"`
	DateOfBirth string `json:"dateOfBirth"`
}

func (s *Service) user(ctx context.Context, userId string) (*models.User, error) {
	user, err := s.store.GetUserById(ctx, userId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("User not found")
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	return user, nil
}

// Status returns the user's current KYC state
func (s *Service) Status(ctx context.Context, userId string) (*models.KYCStatus, error) {
	user, err := s.user(ctx, userId)
	if err != nil {
		return nil, err
	}
	status := user.KycStatus
	if status == "" {
		status = models.KycPending
	}
	return &models.KYCStatus{
		UserId:        user.Id,
		KycStatus:     status,
		IsVerified:    user.IsVerified,
		LastUpdated:   user.UpdatedAt,
		StatusDetails: StatusDetails(status),
	}, nil
}

// StartVerification opens a provider inquiry tagged with a fresh
// verification id and puts the user back into pending.
func (s *Service) StartVerification(ctx context.Context, req VerifyRequest) (*models.KYCInitiation, error) {
	if req.UserId == "" || req.FirstName == "" || req.LastName == "" || req.Email == "" {
		return nil, errs.Validation("Missing required fields: userId, firstName, lastName, email")
	}
	if !models.ValidEmail(req.Email) {
		return nil, errs.Validation("Invalid email format")
	}

	user, err := s.user(ctx, req.UserId)
	if err != nil {
		return nil, err
	}
	if user.KycStatus == models.KycVerified {
		return nil, errs.InvalidState("User is already verified")
	}

	verificationId := ulid.Make().String()
	inquiryId, err := s.provider.CreateInquiry(ctx, InquiryRequest{
		ReferenceId: verificationId,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		CountryCode: req.CountryCode,
		BirthDate:   req.DateOfBirth,
	})
	if err != nil {
		zap.L().Error("Persona inquiry failed", zap.String("user_id", user.Id), zap.Error(err))
		return nil, errs.Upstream(fmt.Sprintf("Verification setup failed: %v", err), err)
	}

	verification := &models.KYCVerification{
		Id:        verificationId,
		UserId:    user.Id,
		InquiryId: inquiryId,
		Email:     strings.ToLower(req.Email),
		Status:    models.KycPending,
	}
	if err := s.store.CreateVerification(ctx, verification); err != nil {
		return nil, errs.Internal(fmt.Errorf("failed to record verification: %w", err))
	}
	if err := s.setStatus(ctx, user, models.KycPending, "verification_started"); err != nil {
		return nil, err
	}

	return &models.KYCInitiation{
		UserId:         user.Id,
		Status:         models.KycPending,
		VerificationId: verificationId,
		InquiryId:      inquiryId,
		RedirectURL:    RedirectURL(inquiryId),
		NextSteps:      "Please complete identity verification at the provided URL. Check your email for further instructions.",
		EstimatedTime:  "5-15 minutes",
	}, nil
}

// Cancel returns a user to pending. Verified users cannot cancel.
func (s *Service) Cancel(ctx context.Context, userId string) (string, error) {
	if userId == "" {
		return "", errs.Validation("userId required")
	}
	user, err := s.user(ctx, userId)
	if err != nil {
		return "", err
	}
	if !CanTransition(user.KycStatus, models.KycPending, false) {
		return "", errs.InvalidState("Cannot cancel verified KYC")
	}
	if err := s.setStatus(ctx, user, models.KycPending, "cancelled"); err != nil {
		return "", err
	}
	return models.KycPending, nil
}

// ForceReset is the administrative override that moves any user, verified
// ones included, back to pending.
func (s *Service) ForceReset(ctx context.Context, userId string) error {
	user, err := s.user(ctx, userId)
	if err != nil {
		return err
	}
	if !CanTransition(user.KycStatus, models.KycPending, true) {
		return errs.InvalidState("Cannot reset KYC from %s", user.KycStatus)
	}
	return s.setStatus(ctx, user, models.KycPending, "admin_reset")
}

func (s *Service) setStatus(ctx context.Context, user *models.User, status, reason string) error {
	verified := status == models.KycVerified
	if err := s.store.UpdateKycStatus(ctx, user.Id, status, verified); err != nil {
		return errs.Internal(fmt.Errorf("failed to update kyc status: %w", err))
	}

	zap.L().Info("KYC status updated",
		zap.String("user_id", user.Id),
		zap.String("from", user.KycStatus),
		zap.String("to", status),
		zap.String("reason", reason))

	if err := s.publisher.Publish(ctx, events.New(events.KycStatusChanged, user.Id, map[string]string{
		"user_id": user.Id,
		"from":    user.KycStatus,
		"to":      status,
		"reason":  reason,
	})); err != nil {
		zap.L().Warn("Failed to publish event", zap.String("type", events.KycStatusChanged), zap.Error(err))
	}
	user.KycStatus = status
	user.IsVerified = verified
	return nil
}

type webhookPayload struct {
	Data *struct {
		Id         string `json:"id"`
		Attributes *struct {
			Status       string         `json:"status"`
			Passed       bool           `json:"passed"`
			ReferenceId  string         `json:"reference-id"`
			EmailAddress string         `json:"email-address"`
			Attributes   map[string]any `json:"attributes"`
		} `json:"attributes"`
	} `json:"data"`
}

func (p webhookPayload) email() string {
	attrs := p.Data.Attributes
	if attrs.EmailAddress != "" {
		return attrs.EmailAddress
	}
	if email, ok := attrs.Attributes["email-address"].(string); ok {
		return email
	}
	return ""
}

// HandleWebhook applies a provider callback. Only a bad signature or an
// undecodable payload is reported as an error; anything that goes wrong
// afterwards is logged and the callback is still acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (*models.WebhookOutcome, error) {
	if s.webhookSecret != "" && !VerifySignature(s.webhookSecret, body, signature) {
		zap.L().Warn("Rejected KYC webhook with invalid signature")
		return nil, errs.Unauthorized("Invalid webhook signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Data == nil || payload.Data.Attributes == nil {
		return nil, errs.Validation("Invalid webhook payload")
	}

	outcome := &models.WebhookOutcome{
		InquiryId: payload.Data.Id,
		NewStatus: payload.Data.Attributes.Status,
	}
	target := ResolveWebhookStatus(payload.Data.Attributes.Status, payload.Data.Attributes.Passed)

	user, verification, err := s.correlate(ctx, payload)
	if err != nil {
		zap.L().Error("Failed to correlate KYC webhook",
			zap.String("inquiry_id", payload.Data.Id),
			zap.Error(err))
		return outcome, nil
	}
	if user == nil {
		zap.L().Warn("KYC webhook matched no user", zap.String("inquiry_id", payload.Data.Id))
		return outcome, nil
	}
	outcome.UserId = user.Id

	if verification != nil {
		if err := s.store.UpdateVerificationStatus(ctx, verification.Id, target); err != nil {
			zap.L().Error("Failed to update verification record",
				zap.String("verification_id", verification.Id),
				zap.Error(err))
		}
	}

	if !CanTransition(user.KycStatus, target, false) {
		zap.L().Warn("Ignoring KYC webhook transition",
			zap.String("user_id", user.Id),
			zap.String("from", user.KycStatus),
			zap.String("to", target))
		return outcome, nil
	}
	if err := s.setStatus(ctx, user, target, "webhook"); err != nil {
		zap.L().Error("Failed to apply KYC webhook", zap.String("user_id", user.Id), zap.Error(err))
		return outcome, nil
	}
	outcome.Applied = true
	return outcome, nil
}

// correlate finds the user a callback is about: by inquiry id, then by our
// reference id, then by email for inquiries opened outside this service.
func (s *Service) correlate(ctx context.Context, payload webhookPayload) (*models.User, *models.KYCVerification, error) {
	var verification *models.KYCVerification

	if payload.Data.Id != "" {
		v, err := s.store.GetVerificationByInquiry(ctx, payload.Data.Id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, nil, err
		}
		verification = v
	}
	if verification == nil && payload.Data.Attributes.ReferenceId != "" {
		v, err := s.store.GetVerification(ctx, payload.Data.Attributes.ReferenceId)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, nil, err
		}
		verification = v
	}

	if verification != nil {
		user, err := s.store.GetUserById(ctx, verification.UserId)
		if errors.Is(err, store.ErrNotFound) {
			return nil, verification, nil
		}
		return user, verification, err
	}

	email := payload.email()
	if email == "" {
		return nil, nil, nil
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil
	}
	return user, nil, err
}

package premium

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/events"
	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is what subscriptions and analytics read and write
type Store interface {
	store.UserStore
	ListUserInvestments(ctx context.Context, userId string) ([]models.UserInvestment, error)
	GetVault(ctx context.Context, userId string) (*models.Vault, error)
}

type Service struct {
	store       Store
	pricing     PricingTable
	payments    PaymentProvider
	publisher   events.Publisher
	monthlyRate decimal.Decimal
	now         func() time.Time
}

func NewService(st Store, pricing PricingTable, payments PaymentProvider, publisher events.Publisher, monthlyRate decimal.Decimal) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		store:       st,
		pricing:     pricing,
		payments:    payments,
		publisher:   publisher,
		monthlyRate: monthlyRate,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type SubscribeRequest struct {
	UserId       string `json:"userId"`
	Plan         string `json:"plan"`
	BillingCycle string `json:"billingCycle"`
	StripeToken  string `json:"stripeToken"`
}

type ConfirmRequest struct {
	PaymentIntentId string `json:"paymentIntentId"`
	UserId          string `json:"userId"`
	Plan            string `json:"plan"`
	BillingCycle    string `json:"billingCycle"`
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

// Subscribe creates a payment intent for plan. With an auto-confirming
// provider the subscription is activated right away; otherwise the result
// carries the client secret and the caller confirms later.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) (*models.SubscriptionResult, error) {
	if req.BillingCycle == "" {
		req.BillingCycle = models.BillingMonthly
	}
	if req.UserId == "" {
		return nil, errs.Validation(`Invalid subscription data. Plan must be "premium" or "premium_plus".`)
	}
	if _, ok := s.pricing.Price(req.Plan, models.BillingMonthly); !ok {
		return nil, errs.Validation(`Invalid subscription data. Plan must be "premium" or "premium_plus".`)
	}
	amount, ok := s.pricing.Price(req.Plan, req.BillingCycle)
	if !ok {
		return nil, errs.Validation(`Invalid billing cycle. Must be "monthly" or "annual".`)
	}

	user, err := s.user(ctx, req.UserId)
	if err != nil {
		return nil, err
	}
	if user.Email == nil || *user.Email == "" {
		return nil, errs.Validation("User email is required for subscription")
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, PaymentRequest{
		UserId:        user.Id,
		Email:         *user.Email,
		Plan:          req.Plan,
		BillingCycle:  req.BillingCycle,
		AmountCents:   amount,
		Description:   fmt.Sprintf("%s subscription - %s billing", req.Plan, req.BillingCycle),
		PaymentMethod: req.StripeToken,
	})
	if err != nil {
		zap.L().Error("Payment intent creation failed", zap.String("user_id", user.Id), zap.Error(err))
		return nil, errs.Upstream(fmt.Sprintf("Payment failed: %v", err), err)
	}

	result := &models.SubscriptionResult{
		Plan:            req.Plan,
		BillingCycle:    req.BillingCycle,
		Amount:          FormatCents(amount),
		ClientSecret:    intent.ClientSecret,
		PaymentIntentId: intent.Id,
	}
	if !s.payments.AutoConfirms() || intent.Status != IntentSucceeded {
		return result, nil
	}

	sub, err := s.activate(ctx, user.Id, req.Plan, req.BillingCycle, intent.Id)
	if err != nil {
		return nil, err
	}
	result.UserId = user.Id
	result.StartDate = sub.StartDate
	result.EndDate = sub.EndDate
	result.IsActive = true
	return result, nil
}

// ConfirmPayment activates a subscription once its payment intent succeeded
func (s *Service) ConfirmPayment(ctx context.Context, req ConfirmRequest) (*models.SubscriptionResult, error) {
	if req.PaymentIntentId == "" || req.UserId == "" {
		return nil, errs.Validation("paymentIntentId and userId required")
	}
	user, err := s.user(ctx, req.UserId)
	if err != nil {
		return nil, err
	}

	intent, err := s.payments.GetPaymentIntent(ctx, req.PaymentIntentId)
	if err != nil {
		return nil, errs.Upstream(fmt.Sprintf("Verification failed: %v", err), err)
	}
	if owner := intent.Metadata["userId"]; owner != "" && owner != user.Id {
		return nil, errs.Forbidden("Payment intent belongs to another user")
	}
	if intent.Status != IntentSucceeded {
		return nil, errs.InvalidState("Payment not completed")
	}

	plan := firstNonEmpty(req.Plan, intent.Metadata["plan"], models.PlanPremium)
	cycle := firstNonEmpty(req.BillingCycle, intent.Metadata["billingCycle"], models.BillingMonthly)
	amount, ok := s.pricing.Price(plan, cycle)
	if !ok {
		return nil, errs.Validation("Unknown plan %q or billing cycle %q", plan, cycle)
	}

	sub, err := s.activate(ctx, user.Id, plan, cycle, intent.Id)
	if err != nil {
		return nil, err
	}
	return &models.SubscriptionResult{
		UserId:          user.Id,
		Plan:            plan,
		BillingCycle:    cycle,
		Amount:          FormatCents(amount),
		StartDate:       sub.StartDate,
		EndDate:         sub.EndDate,
		IsActive:        true,
		PaymentIntentId: intent.Id,
	}, nil
}

func (s *Service) activate(ctx context.Context, userId, plan, cycle, paymentRef string) (*models.Subscription, error) {
	start := s.now()
	end := start.AddDate(0, 1, 0)
	if cycle == models.BillingAnnual {
		end = start.AddDate(1, 0, 0)
	}
	sub := models.Subscription{
		Plan:         plan,
		BillingCycle: cycle,
		StartDate:    &start,
		EndDate:      &end,
		IsActive:     true,
		PaymentRef:   paymentRef,
	}
	if err := s.store.UpdateSubscription(ctx, store.SubscriptionUpdate{UserId: userId, Subscription: sub}); err != nil {
		return nil, errs.Internal(fmt.Errorf("failed to activate subscription: %w", err))
	}

	zap.L().Info("Subscription activated",
		zap.String("user_id", userId),
		zap.String("plan", plan),
		zap.String("billing_cycle", cycle),
		zap.Time("end_date", end))
	s.publish(ctx, events.New(events.SubscriptionActivated, userId, map[string]string{
		"user_id":       userId,
		"plan":          plan,
		"billing_cycle": cycle,
		"payment_ref":   paymentRef,
	}))
	return &sub, nil
}

// Cancel deactivates the subscription. The end date is kept so access
// history stays visible.
func (s *Service) Cancel(ctx context.Context, userId string) error {
	if userId == "" {
		return errs.Validation("userId required")
	}
	user, err := s.user(ctx, userId)
	if err != nil {
		return err
	}
	if !user.Subscription.IsActive {
		return errs.InvalidState("No active subscription to cancel")
	}

	sub := user.Subscription
	sub.IsActive = false
	if err := s.store.UpdateSubscription(ctx, store.SubscriptionUpdate{UserId: userId, Subscription: sub}); err != nil {
		return errs.Internal(fmt.Errorf("failed to cancel subscription: %w", err))
	}

	zap.L().Info("Subscription cancelled", zap.String("user_id", userId), zap.String("plan", sub.Plan))
	s.publish(ctx, events.New(events.SubscriptionCancelled, userId, map[string]string{
		"user_id": userId,
		"plan":    sub.Plan,
	}))
	return nil
}

// Status reports the user's current plan
func (s *Service) Status(ctx context.Context, userId string) (*models.PremiumStatus, error) {
	user, err := s.user(ctx, userId)
	if err != nil {
		return nil, err
	}
	status := &models.PremiumStatus{
		UserId:              user.Id,
		IsPremium:           user.Subscription.ActiveAt(s.now()),
		CurrentPlan:         firstNonEmpty(user.Subscription.Plan, models.PlanFree),
		SubscriptionDetails: user.Subscription,
		StatusMessage:       "No active subscription",
	}
	if status.IsPremium {
		status.StatusMessage = "Active subscription"
	}
	return status, nil
}

// Analytics is the premium portfolio report; it requires an active plan.
func (s *Service) Analytics(ctx context.Context, userId string) (*models.PortfolioAnalytics, error) {
	user, err := s.user(ctx, userId)
	if err != nil {
		return nil, err
	}
	if !user.Subscription.ActiveAt(s.now()) {
		return nil, errs.Forbidden("Premium subscription required")
	}

	investments, err := s.store.ListUserInvestments(ctx, userId)
	if err != nil {
		return nil, errs.Internal(err)
	}
	vault, err := s.store.GetVault(ctx, userId)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, errs.Internal(err)
	}

	analytics := Analyze(investments, vault, s.monthlyRate)
	return &analytics, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		zap.L().Warn("Failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

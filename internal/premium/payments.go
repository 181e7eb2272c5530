package premium

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"assetbridge-nexus/internal/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

const (
	IntentSucceeded = "succeeded"
	mockSecretKey   = "sk_test_mock"
)

type PaymentRequest struct {
	UserId       string
	Email        string
	Plan         string
	BillingCycle string
	AmountCents  int64
	Description  string

	// PaymentMethod confirms the intent on creation when set
	PaymentMethod string
}

type PaymentIntent struct {
	Id           string
	ClientSecret string
	Status       string
	Metadata     map[string]string
}

// PaymentProvider creates and looks up payment intents
type PaymentProvider interface {
	CreatePaymentIntent(ctx context.Context, req PaymentRequest) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	// AutoConfirms reports whether created intents are already paid
	AutoConfirms() bool
}

// NewPaymentProvider returns a Stripe client, or the auto-confirming mock
// when no real secret key is configured.
func NewPaymentProvider(cfg models.StripeConfig) PaymentProvider {
	if cfg.SecretKey == "" || strings.HasPrefix(cfg.SecretKey, mockSecretKey) {
		zap.L().Warn("Stripe secret key not configured, using mock payment provider")
		return NewMockProvider()
	}
	return NewStripeProvider(cfg)
}

type StripeProvider struct {
	api      *client.API
	currency string
}

func NewStripeProvider(cfg models.StripeConfig) *StripeProvider {
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeProvider{api: client.New(cfg.SecretKey, nil), currency: currency}
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, req PaymentRequest) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(req.AmountCents),
		Currency:     stripe.String(p.currency),
		Description:  stripe.String(req.Description),
		ReceiptEmail: stripe.String(req.Email),
	}
	params.Context = ctx
	params.AddMetadata("userId", req.UserId)
	params.AddMetadata("plan", req.Plan)
	params.AddMetadata("billingCycle", req.BillingCycle)
	if req.PaymentMethod != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethod)
		params.Confirm = stripe.Bool(true)
	}

	intent, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("unable to create payment intent: %w", err)
	}

	zap.L().Info("Stripe payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("user_id", req.UserId),
		zap.Int64("amount_cents", req.AmountCents))
	return fromStripe(intent), nil
}

func (p *StripeProvider) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve payment intent: %w", err)
	}
	return fromStripe(intent), nil
}

func (p *StripeProvider) AutoConfirms() bool { return false }

func fromStripe(intent *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		Id:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
		Metadata:     intent.Metadata,
	}
}

// MockProvider succeeds every payment immediately
type MockProvider struct {
	mu      sync.Mutex
	intents map[string]*PaymentIntent
}

func NewMockProvider() *MockProvider {
	return &MockProvider{intents: map[string]*PaymentIntent{}}
}

func (m *MockProvider) CreatePaymentIntent(_ context.Context, req PaymentRequest) (*PaymentIntent, error) {
	id := "pi_mock_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	intent := &PaymentIntent{
		Id:           id,
		ClientSecret: id + "_secret_mock",
		Status:       IntentSucceeded,
		Metadata: map[string]string{
			"userId":       req.UserId,
			"plan":         req.Plan,
			"billingCycle": req.BillingCycle,
		},
	}
	m.mu.Lock()
	m.intents[id] = intent
	m.mu.Unlock()
	return intent, nil
}

func (m *MockProvider) GetPaymentIntent(_ context.Context, id string) (*PaymentIntent, error) {
	m.mu.Lock()
	intent, ok := m.intents[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("No such payment_intent: '%s'", id)
	}
	return intent, nil
}

func (m *MockProvider) AutoConfirms() bool { return true }

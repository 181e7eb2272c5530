package premium

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"assetbridge-nexus/internal/database"
	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)

// manualProvider leaves intents unpaid until marked succeeded
type manualProvider struct {
	intents map[string]*PaymentIntent
	err     error
}

func (p *manualProvider) CreatePaymentIntent(_ context.Context, req PaymentRequest) (*PaymentIntent, error) {
	if p.err != nil {
		return nil, p.err
	}
	intent := &PaymentIntent{
		Id:           "pi_manual",
		ClientSecret: "pi_manual_secret",
		Status:       "requires_payment_method",
		Metadata:     map[string]string{"userId": req.UserId, "plan": req.Plan, "billingCycle": req.BillingCycle},
	}
	p.intents[intent.Id] = intent
	return intent, nil
}

func (p *manualProvider) GetPaymentIntent(_ context.Context, id string) (*PaymentIntent, error) {
	intent, ok := p.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	return intent, nil
}

func (p *manualProvider) AutoConfirms() bool { return false }

func setup(t *testing.T, payments PaymentProvider) (*Service, *database.Service) {
	t.Helper()
	st, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:          database.DriverSQLite,
		Path:            filepath.Join(t.TempDir(), "premium.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     time.Second,
		BusyTimeout:     5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(st.Close)

	service := NewService(st, DefaultPricing(), payments, nil, decimal.RequireFromString("0.008"))
	service.now = func() time.Time { return fixedNow }
	return service, st
}

func addUser(t *testing.T, st *database.Service, id string, withEmail bool) {
	t.Helper()
	user := &models.User{Id: id, FirstName: "Pat"}
	if withEmail {
		email := id + "@example.com"
		user.Email = &email
	} else {
		wallet := "0x" + id
		user.WalletAddress = &wallet
	}
	require.NoError(t, st.CreateUser(context.Background(), user))
}

func TestSubscribeWithMockActivates(t *testing.T) {
	service, st := setup(t, NewMockProvider())
	ctx := context.Background()
	addUser(t, st, "u1", true)

	result, err := service.Subscribe(ctx, SubscribeRequest{UserId: "u1", Plan: models.PlanPremium, BillingCycle: models.BillingAnnual})
	require.NoError(t, err)
	assert.True(t, result.IsActive)
	assert.Equal(t, "$490", result.Amount)
	assert.NotEmpty(t, result.ClientSecret)
	require.NotNil(t, result.EndDate)
	assert.Equal(t, fixedNow.AddDate(1, 0, 0), *result.EndDate)

	status, err := service.Status(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, status.IsPremium)
	assert.Equal(t, models.PlanPremium, status.CurrentPlan)
	assert.Equal(t, "Active subscription", status.StatusMessage)
}

func TestSubscribeValidation(t *testing.T) {
	service, st := setup(t, NewMockProvider())
	ctx := context.Background()
	addUser(t, st, "wallet-only", false)

	_, err := service.Subscribe(ctx, SubscribeRequest{UserId: "u1", Plan: "gold"})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	_, err = service.Subscribe(ctx, SubscribeRequest{Plan: models.PlanPremium})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	_, err = service.Subscribe(ctx, SubscribeRequest{UserId: "u1", Plan: models.PlanPremium, BillingCycle: "weekly"})
	assert.Equal(t, `Invalid billing cycle. Must be "monthly" or "annual".`, errs.MessageOf(err))
	_, err = service.Subscribe(ctx, SubscribeRequest{UserId: "ghost", Plan: models.PlanPremium})
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	_, err = service.Subscribe(ctx, SubscribeRequest{UserId: "wallet-only", Plan: models.PlanPremium})
	assert.Equal(t, "User email is required for subscription", errs.MessageOf(err))
}

func TestSubscribeThenConfirm(t *testing.T) {
	provider := &manualProvider{intents: map[string]*PaymentIntent{}}
	service, st := setup(t, provider)
	ctx := context.Background()
	addUser(t, st, "u1", true)
	addUser(t, st, "u2", true)

	result, err := service.Subscribe(ctx, SubscribeRequest{UserId: "u1", Plan: models.PlanPremiumPlus})
	require.NoError(t, err)
	assert.False(t, result.IsActive)
	assert.Equal(t, "pi_manual", result.PaymentIntentId)
	assert.Equal(t, "$99", result.Amount)

	_, err = service.ConfirmPayment(ctx, ConfirmRequest{PaymentIntentId: "pi_manual", UserId: "u1"})
	assert.Equal(t, "Payment not completed", errs.MessageOf(err))

	provider.intents["pi_manual"].Status = IntentSucceeded
	_, err = service.ConfirmPayment(ctx, ConfirmRequest{PaymentIntentId: "pi_manual", UserId: "u2"})
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	confirmed, err := service.ConfirmPayment(ctx, ConfirmRequest{PaymentIntentId: "pi_manual", UserId: "u1"})
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremiumPlus, confirmed.Plan)
	assert.Equal(t, fixedNow.AddDate(0, 1, 0), *confirmed.EndDate)

	_, err = service.ConfirmPayment(ctx, ConfirmRequest{PaymentIntentId: "pi_missing", UserId: "u1"})
	assert.Equal(t, errs.KindUpstream, errs.KindOf(err))
	_, err = service.ConfirmPayment(ctx, ConfirmRequest{UserId: "u1"})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestSubscribeProviderFailure(t *testing.T) {
	service, st := setup(t, &manualProvider{intents: map[string]*PaymentIntent{}, err: errors.New("card declined")})
	addUser(t, st, "u1", true)

	_, err := service.Subscribe(context.Background(), SubscribeRequest{UserId: "u1", Plan: models.PlanPremium})
	assert.Equal(t, errs.KindUpstream, errs.KindOf(err))
	assert.Equal(t, "Payment failed: card declined", errs.MessageOf(err))
}

func TestCancelAndAnalyticsGate(t *testing.T) {
	service, st := setup(t, NewMockProvider())
	ctx := context.Background()
	addUser(t, st, "u1", true)

	_, err := service.Analytics(ctx, "u1")
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
	assert.Equal(t, "Premium subscription required", errs.MessageOf(err))

	err = service.Cancel(ctx, "u1")
	assert.Equal(t, "No active subscription to cancel", errs.MessageOf(err))

	_, err = service.Subscribe(ctx, SubscribeRequest{UserId: "u1", Plan: models.PlanPremium})
	require.NoError(t, err)

	analytics, err := service.Analytics(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "None", analytics.PortfolioRisk.Level)

	require.NoError(t, service.Cancel(ctx, "u1"))
	status, err := service.Status(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, status.IsPremium)
	assert.Equal(t, models.PlanPremium, status.CurrentPlan)
	require.NotNil(t, status.SubscriptionDetails.EndDate)

	_, err = service.Analytics(ctx, "u1")
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
	assert.Equal(t, errs.KindValidation, errs.KindOf(service.Cancel(ctx, "")))
}

func TestSubscriptionExpires(t *testing.T) {
	service, st := setup(t, NewMockProvider())
	ctx := context.Background()
	addUser(t, st, "u1", true)

	_, err := service.Subscribe(ctx, SubscribeRequest{UserId: "u1", Plan: models.PlanPremium})
	require.NoError(t, err)

	service.now = func() time.Time { return fixedNow.AddDate(0, 2, 0) }
	status, err := service.Status(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, status.IsPremium)
}

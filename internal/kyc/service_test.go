package kyc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"assetbridge-nexus/internal/database"
	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	inquiryId string
	err       error
	requests  []InquiryRequest
}

func (p *stubProvider) CreateInquiry(_ context.Context, req InquiryRequest) (string, error) {
	p.requests = append(p.requests, req)
	return p.inquiryId, p.err
}

func setup(t *testing.T, secret string) (*Service, *database.Service, *stubProvider) {
	t.Helper()
	st, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:          database.DriverSQLite,
		Path:            filepath.Join(t.TempDir(), "kyc.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     time.Second,
		BusyTimeout:     5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(st.Close)

	provider := &stubProvider{inquiryId: "inq_test_1"}
	return NewService(st, provider, nil, secret), st, provider
}

func addUser(t *testing.T, st *database.Service, id, email, status string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.CreateUser(ctx, &models.User{Id: id, Email: &email, FirstName: "Kay", LastName: "Why"}))
	if status != models.KycPending {
		require.NoError(t, st.UpdateKycStatus(ctx, id, status, status == models.KycVerified))
	}
}

func webhook(inquiryId, status string, passed bool, referenceId, email string) []byte {
	return []byte(fmt.Sprintf(`{"data":{"id":%q,"attributes":{"status":%q,"passed":%v,"reference-id":%q,"attributes":{"email-address":%q}}}}`,
		inquiryId, status, passed, referenceId, email))
}

func TestWebhookCompletedPassedVerifiesByEmail(t *testing.T) {
	service, st, _ := setup(t, "")
	ctx := context.Background()
	addUser(t, st, "u1", "jane@example.com", models.KycPending)

	outcome, err := service.HandleWebhook(ctx, webhook("inq_external", "completed", true, "", "Jane@Example.com"), "")
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, "u1", outcome.UserId)
	assert.Equal(t, "completed", outcome.NewStatus)

	user, err := st.GetUserById(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.KycVerified, user.KycStatus)
	assert.True(t, user.IsVerified)
}

func TestWebhookWithoutMatchingUserIsAcknowledged(t *testing.T) {
	service, _, _ := setup(t, "")

	outcome, err := service.HandleWebhook(context.Background(), webhook("inq_x", "completed", true, "", "ghost@example.com"), "")
	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	assert.Equal(t, "inq_x", outcome.InquiryId)
}

func TestWebhookRejectsBadInput(t *testing.T) {
	service, _, _ := setup(t, "whsec_test")
	ctx := context.Background()
	body := webhook("inq_x", "completed", true, "", "a@example.com")

	_, err := service.HandleWebhook(ctx, body, "deadbeef")
	assert.Equal(t, errs.KindUnauthorized, errs.KindOf(err))

	_, err = service.HandleWebhook(ctx, body, "")
	assert.Equal(t, errs.KindUnauthorized, errs.KindOf(err))

	bad := []byte(`{"data":{}}`)
	_, err = service.HandleWebhook(ctx, bad, Sign("whsec_test", bad))
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = service.HandleWebhook(ctx, body, Sign("whsec_test", body))
	assert.NoError(t, err)
}

func TestWebhookCorrelatesByInquiryThenReference(t *testing.T) {
	service, st, provider := setup(t, "")
	ctx := context.Background()
	addUser(t, st, "u1", "one@example.com", models.KycRejected)
	addUser(t, st, "u2", "two@example.com", models.KycPending)

	started, err := service.StartVerification(ctx, VerifyRequest{UserId: "u1", FirstName: "One", LastName: "User", Email: "one@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.KycPending, started.Status)
	assert.Equal(t, "inq_test_1", started.InquiryId)
	assert.Equal(t, "https://inquiry.withpersona.com/inq_test_1", started.RedirectURL)
	require.Len(t, provider.requests, 1)
	assert.Equal(t, started.VerificationId, provider.requests[0].ReferenceId)

	// The email points at u2 but the inquiry id wins
	outcome, err := service.HandleWebhook(ctx, webhook("inq_test_1", "failed", false, "", "two@example.com"), "")
	require.NoError(t, err)
	assert.Equal(t, "u1", outcome.UserId)

	verification, err := st.GetVerification(ctx, started.VerificationId)
	require.NoError(t, err)
	assert.Equal(t, models.KycRejected, verification.Status)

	// Unknown inquiry, our reference id
	outcome, err = service.HandleWebhook(ctx, webhook("inq_other", "pending", false, started.VerificationId, "two@example.com"), "")
	require.NoError(t, err)
	assert.Equal(t, "u1", outcome.UserId)

	user, err := st.GetUserById(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.KycPending, user.KycStatus)
}

func TestWebhookIgnoresDisallowedTransitions(t *testing.T) {
	service, st, _ := setup(t, "")
	ctx := context.Background()
	addUser(t, st, "u1", "v@example.com", models.KycVerified)

	outcome, err := service.HandleWebhook(ctx, webhook("inq_1", "failed", false, "", "v@example.com"), "")
	require.NoError(t, err)
	assert.False(t, outcome.Applied)

	user, err := st.GetUserById(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.KycVerified, user.KycStatus)
}

func TestStartVerificationValidation(t *testing.T) {
	service, st, provider := setup(t, "")
	ctx := context.Background()
	addUser(t, st, "verified", "v@example.com", models.KycVerified)

	_, err := service.StartVerification(ctx, VerifyRequest{UserId: "u1"})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = service.StartVerification(ctx, VerifyRequest{UserId: "u1", FirstName: "A", LastName: "B", Email: "nope"})
	assert.Equal(t, "Invalid email format", errs.MessageOf(err))

	_, err = service.StartVerification(ctx, VerifyRequest{UserId: "ghost", FirstName: "A", LastName: "B", Email: "a@b.co"})
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	_, err = service.StartVerification(ctx, VerifyRequest{UserId: "verified", FirstName: "A", LastName: "B", Email: "v@example.com"})
	assert.Equal(t, "User is already verified", errs.MessageOf(err))

	addUser(t, st, "u2", "u2@example.com", models.KycPending)
	provider.err = errors.New("Persona API error: status 500")
	_, err = service.StartVerification(ctx, VerifyRequest{UserId: "u2", FirstName: "A", LastName: "B", Email: "u2@example.com"})
	assert.Equal(t, errs.KindUpstream, errs.KindOf(err))
	assert.Equal(t, "Verification setup failed: Persona API error: status 500", errs.MessageOf(err))
}

func TestCancelAndForceReset(t *testing.T) {
	service, st, _ := setup(t, "")
	ctx := context.Background()
	addUser(t, st, "rejected", "r@example.com", models.KycRejected)
	addUser(t, st, "verified", "v@example.com", models.KycVerified)

	status, err := service.Cancel(ctx, "rejected")
	require.NoError(t, err)
	assert.Equal(t, models.KycPending, status)

	_, err = service.Cancel(ctx, "verified")
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))
	assert.Equal(t, "Cannot cancel verified KYC", errs.MessageOf(err))

	_, err = service.Cancel(ctx, "")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	require.NoError(t, service.ForceReset(ctx, "verified"))
	user, err := st.GetUserById(ctx, "verified")
	require.NoError(t, err)
	assert.Equal(t, models.KycPending, user.KycStatus)
	assert.False(t, user.IsVerified)

	view, err := service.Status(ctx, "verified")
	require.NoError(t, err)
	assert.Equal(t, "Verification in progress", view.StatusDetails)

	_, err = service.Status(ctx, "ghost")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

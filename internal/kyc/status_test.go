package kyc

import (
	"testing"

	"assetbridge-nexus/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		admin    bool
		want     bool
	}{
		{models.KycPending, models.KycVerified, false, true},
		{models.KycPending, models.KycRejected, false, true},
		{models.KycPending, models.KycPending, false, true},
		{models.KycRejected, models.KycPending, false, true},
		{models.KycRejected, models.KycVerified, false, false},
		{models.KycVerified, models.KycPending, false, false},
		{models.KycVerified, models.KycRejected, false, false},
		{models.KycVerified, models.KycPending, true, true},
		{models.KycVerified, models.KycRejected, true, false},
		{"", models.KycPending, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to, tt.admin), "%s -> %s admin=%v", tt.from, tt.to, tt.admin)
	}
}

func TestResolveWebhookStatus(t *testing.T) {
	assert.Equal(t, models.KycVerified, ResolveWebhookStatus("completed", true))
	assert.Equal(t, models.KycRejected, ResolveWebhookStatus("completed", false))
	assert.Equal(t, models.KycRejected, ResolveWebhookStatus("failed", true))
	assert.Equal(t, models.KycPending, ResolveWebhookStatus("pending", false))
	assert.Equal(t, models.KycPending, ResolveWebhookStatus("needs_review", true))
}

func TestStatusDetails(t *testing.T) {
	assert.Equal(t, "Identity verified", StatusDetails(models.KycVerified))
	assert.Equal(t, "Status unknown", StatusDetails("weird"))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"data":{"id":"inq_1"}}`)
	sig := Sign("whsec", body)

	assert.True(t, VerifySignature("whsec", body, sig))
	assert.True(t, VerifySignature("whsec", body, " "+sig+" "))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("whsec", []byte(`{}`), sig))
	assert.False(t, VerifySignature("whsec", body, "not-hex"))
	assert.False(t, VerifySignature("whsec", body, ""))
}

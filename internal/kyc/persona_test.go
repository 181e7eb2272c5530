package kyc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"assetbridge-nexus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderFallsBackToMock(t *testing.T) {
	for _, key := range []string{"", "sk_test_mock", "sk_test_mock_123"} {
		provider, err := NewProvider(models.PersonaConfig{APIKey: key})
		require.NoError(t, err)
		assert.IsType(t, MockProvider{}, provider)
	}

	inquiryId, err := MockProvider{}.CreateInquiry(context.Background(), InquiryRequest{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(inquiryId, "inq_"))
	assert.Len(t, inquiryId, 14)
}

func TestPersonaClientCreateInquiry(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inquiries", r.URL.Path)
		assert.Equal(t, "Bearer sk_live_abc", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"inq_live_1","type":"inquiry"}}`))
	}))
	defer server.Close()

	client, err := NewPersonaClient(models.PersonaConfig{APIURL: server.URL + "/", APIKey: "sk_live_abc", TemplateId: "itmpl_1", Timeout: 5 * time.Second})
	require.NoError(t, err)

	inquiryId, err := client.CreateInquiry(context.Background(), InquiryRequest{
		ReferenceId: "01HXREF",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "inq_live_1", inquiryId)

	attrs := received["data"].(map[string]any)["attributes"].(map[string]any)
	assert.Equal(t, "01HXREF", attrs["reference-id"])
	assert.Equal(t, "itmpl_1", attrs["inquiry-template-id"])
	fields := attrs["fields"].(map[string]any)
	assert.Equal(t, "US", fields["country-code"])
	assert.Equal(t, "ada@example.com", fields["email-address"])
}

func TestPersonaClientSurfacesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"title":"Invalid template"}]}`))
	}))
	defer server.Close()

	client, err := NewPersonaClient(models.PersonaConfig{APIURL: server.URL, APIKey: "sk_live_abc"})
	require.NoError(t, err)

	_, err = client.CreateInquiry(context.Background(), InquiryRequest{ReferenceId: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
	assert.Contains(t, err.Error(), "Invalid template")
}

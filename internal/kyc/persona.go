package kyc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"assetbridge-nexus/internal/httpclient"
	"assetbridge-nexus/internal/models"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	DefaultPersonaURL = "https://api.withpersona.com/api/v1"
	inquiryURL        = "https://inquiry.withpersona.com/"
	mockAPIKey        = "sk_test_mock"
)

// InquiryRequest carries the applicant data sent to the identity provider.
// ReferenceId is our verification id and comes back on every webhook.
type InquiryRequest struct {
	ReferenceId string
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	CountryCode string
	BirthDate   string
}

// Provider opens identity-verification inquiries
type Provider interface {
	CreateInquiry(ctx context.Context, req InquiryRequest) (string, error)
}

// NewProvider returns a Persona client, or the mock provider when no real
// API key is configured.
func NewProvider(cfg models.PersonaConfig) (Provider, error) {
	if cfg.APIKey == "" || strings.HasPrefix(cfg.APIKey, mockAPIKey) {
		zap.L().Warn("Persona API key not configured, using mock KYC provider")
		return MockProvider{}, nil
	}
	return NewPersonaClient(cfg)
}

// MockProvider fabricates inquiry ids without calling out
type MockProvider struct{}

func (MockProvider) CreateInquiry(_ context.Context, req InquiryRequest) (string, error) {
	return "inq_" + strings.ToLower(ulid.Make().String()[16:]), nil
}

type PersonaClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	templateId string
}

func NewPersonaClient(cfg models.PersonaConfig) (*PersonaClient, error) {
	httpClient, err := httpclient.New(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create persona http client: %w", err)
	}
	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = DefaultPersonaURL
	}
	return &PersonaClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		templateId: cfg.TemplateId,
	}, nil
}

type inquiryEnvelope struct {
	Data struct {
		Id         string         `json:"id,omitempty"`
		Type       string         `json:"type"`
		Attributes map[string]any `json:"attributes,omitempty"`
	} `json:"data"`
}

func (c *PersonaClient) CreateInquiry(ctx context.Context, req InquiryRequest) (string, error) {
	country := req.CountryCode
	if country == "" {
		country = "US"
	}

	var body inquiryEnvelope
	body.Data.Type = "inquiry"
	body.Data.Attributes = map[string]any{
		"inquiry-template-id": c.templateId,
		"reference-id":        req.ReferenceId,
		"fields": map[string]string{
			"name-first":    req.FirstName,
			"name-last":     req.LastName,
			"email-address": req.Email,
			"phone-number":  req.PhoneNumber,
			"country-code":  country,
			"birthdate":     req.BirthDate,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("unable to encode inquiry: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inquiries", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("unable to build inquiry request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("persona request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("unable to read persona response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("Persona API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var created inquiryEnvelope
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("unable to decode persona response: %w", err)
	}
	if created.Data.Id == "" {
		return "", fmt.Errorf("Persona API error: response has no inquiry id")
	}

	zap.L().Info("Persona inquiry created",
		zap.String("inquiry_id", created.Data.Id),
		zap.String("reference_id", req.ReferenceId))
	return created.Data.Id, nil
}

// RedirectURL is where the applicant completes the inquiry
func RedirectURL(inquiryId string) string {
	return inquiryURL + inquiryId
}

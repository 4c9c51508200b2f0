package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/farellandr/sahmticket/internal/metrics"
)

const (
	ProviderPaystack       = "paystack"
	DefaultPaystackBaseURL = "https://api.paystack.co"

	paystackSuccess = "success"
)

type PaystackClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewPaystackClient(secretKey, baseURL string, timeout time.Duration) *PaystackClient {
	if baseURL == "" {
		baseURL = DefaultPaystackBaseURL
	}
	return &PaystackClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		PaidAt    string `json:"paid_at"`
	} `json:"data"`
}

// Verify calls GET /transaction/verify/:reference.
func (p *PaystackClient) Verify(ctx context.Context, reference string) (Verification, error) {
	endpoint := p.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Verification{}, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues(ProviderPaystack, "error").Inc()
		return Verification{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues(ProviderPaystack, "error").Inc()
		return Verification{}, fmt.Errorf("%w: failed to read response: %w", ErrGateway, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.PaymentVerifications.WithLabelValues(ProviderPaystack, "not_found").Inc()
		return Verification{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, reference)
	case resp.StatusCode != http.StatusOK:
		metrics.PaymentVerifications.WithLabelValues(ProviderPaystack, "error").Inc()
		return Verification{}, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}

	var parsed paystackVerifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.PaymentVerifications.WithLabelValues(ProviderPaystack, "error").Inc()
		return Verification{}, fmt.Errorf("%w: malformed response: %w", ErrGateway, err)
	}
	if !parsed.Status {
		metrics.PaymentVerifications.WithLabelValues(ProviderPaystack, "error").Inc()
		return Verification{}, fmt.Errorf("%w: %s", ErrGateway, parsed.Message)
	}

	v := Verification{
		Provider:  ProviderPaystack,
		Reference: parsed.Data.Reference,
		Status:    parsed.Data.Status,
		Paid:      parsed.Data.Status == paystackSuccess,
		Amount:    parsed.Data.Amount,
		Currency:  parsed.Data.Currency,
	}
	if paidAt, err := time.Parse(time.RFC3339, parsed.Data.PaidAt); err == nil {
		v.PaidAt = &paidAt
	}
	metrics.PaymentVerifications.WithLabelValues(ProviderPaystack, v.Status).Inc()
	return v, nil
}

// WebhookEvent is the subset of a Paystack webhook the service acts on.
type WebhookEvent struct {
	Event     string
	Reference string
	Amount    int64
}

// ParseWebhook decodes a webhook body. The signature must be checked by the
// caller before the body is trusted.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var raw struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
			Amount    int64  `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return WebhookEvent{}, fmt.Errorf("malformed webhook: %w", err)
	}
	if raw.Event == "" || raw.Data.Reference == "" {
		return WebhookEvent{}, fmt.Errorf("malformed webhook: missing event or reference")
	}
	return WebhookEvent{Event: raw.Event, Reference: raw.Data.Reference, Amount: raw.Data.Amount}, nil
}

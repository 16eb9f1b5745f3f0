package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
)

const (
	defaultBaseURL = "https://api.paystack.co"

	// SignatureHeader carries the HMAC-SHA512 digest Paystack computes over
	// the raw webhook body with the account's secret key.
	SignatureHeader = "X-Paystack-Signature"

	responseBodyReadLimit int64 = 1 << 20
)

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client wraps the Paystack REST API surface used by payment reconciliation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a Paystack client given the account secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(secretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// TransactionStatus is the charge state reported by Paystack.
type TransactionStatus string

const (
	TransactionStatusSuccess   TransactionStatus = "success"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusAbandoned TransactionStatus = "abandoned"
	TransactionStatusPending   TransactionStatus = "pending"
)

// Transaction is the normalized verify/webhook payload.
type Transaction struct {
	Reference   string            `json:"reference"`
	Status      TransactionStatus `json:"status"`
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	PaidAt      string            `json:"paid_at"`
	Channel     string            `json:"channel"`
}

type verifyEnvelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    Transaction `json:"data"`
}

// VerifyTransaction calls GET /transaction/verify/{reference} and returns
// the gateway's view of the charge.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(trimmed))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build verify request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call paystack verify")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read verify response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction reference unknown to gateway")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paystack verify returned status %d", resp.StatusCode))
	}

	var envelope verifyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode verify response")
	}
	if !envelope.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paystack verify rejected: %s", envelope.Message))
	}
	return &envelope.Data, nil
}

// ValidSignature reports whether the webhook body was signed with the
// account's secret key.
func (c *Client) ValidSignature(body []byte, signature string) bool {
	trimmed := strings.TrimSpace(signature)
	if trimmed == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(trimmed)))
}

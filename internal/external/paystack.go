package external

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// PaystackClient speaks the two transaction endpoints the booking lifecycle
// needs: initialize (start a charge, get a redirect URL) and verify (pull the
// charge outcome). Webhook payload authenticity is checked with the same
// secret via HMAC-SHA512 over the raw body.
type PaystackClient struct {
	baseURL    string
	secretKey  string
	currency   string
	httpClient *http.Client
}

type PaystackConfig struct {
	BaseURL   string
	SecretKey string
	Currency  string
	Timeout   time.Duration
}

func NewPaystackClient(cfg PaystackConfig) *PaystackClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PaystackClient{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		currency:  cfg.Currency,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type InitializeRequest struct {
	Email       string
	AmountKobo  int64
	Reference   string
	CallbackURL string
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type VerifyResult struct {
	Succeeded     bool
	GatewayStatus string
	AmountKobo    int64
	PayerEmail    string
	Reference     string
}

type initializePayload struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	Currency    string `json:"currency"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// WebhookEvent is the push notification Paystack delivers to the webhook
// endpoint. Only the fields the booking flow acts on are decoded.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// Initialize starts a charge. The reference doubles as the gateway's
// idempotency key: initializing the same reference twice does not create a
// second charge.
func (c *PaystackClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	const op = "external.PaystackClient.Initialize"

	payload := initializePayload{
		Email:       req.Email,
		Amount:      req.AmountKobo,
		Reference:   req.Reference,
		Currency:    c.currency,
		CallbackURL: req.CallbackURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/transaction/initialize",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	defer resp.Body.Close()

	var out initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK || !out.Status {
		return nil, fmt.Errorf("%s: initialize rejected: %s", op, out.Message)
	}

	if out.Data.AuthorizationURL == "" || out.Data.Reference == "" {
		return nil, fmt.Errorf("%s: malformed initialize response", op)
	}

	return &InitializeResult{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		Reference:        out.Data.Reference,
	}, nil
}

// Verify pulls the outcome of a charge by reference.
func (c *PaystackClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	const op = "external.PaystackClient.Verify"

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+"/transaction/verify/"+url.PathEscape(reference),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	defer resp.Body.Close()

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	if !out.Status {
		return nil, fmt.Errorf("%s: verify rejected: %s", op, out.Message)
	}

	return &VerifyResult{
		Succeeded:     out.Data.Status == "success",
		GatewayStatus: out.Data.Status,
		AmountKobo:    out.Data.Amount,
		PayerEmail:    out.Data.Customer.Email,
		Reference:     out.Data.Reference,
	}, nil
}

// ValidateSignature checks the x-paystack-signature header against an
// HMAC-SHA512 of the raw request body. Must be called before the body is
// parsed or any state is touched.
func (c *PaystackClient) ValidateSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

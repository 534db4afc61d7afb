package external_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagepass/internal/external"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *external.PaystackClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return external.NewPaystackClient(external.PaystackConfig{
		BaseURL:   srv.URL,
		SecretKey: "sk_test_secret",
		Currency:  "NGN",
	})
}

func TestInitialize_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "payer@example.com", payload["email"])
		assert.Equal(t, float64(4000_00), payload["amount"])
		assert.Equal(t, "NGN", payload["currency"])
		assert.Equal(t, "BK-1-ABCDEF", payload["reference"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         "BK-1-ABCDEF",
			},
		})
	})

	res, err := client.Initialize(context.Background(), external.InitializeRequest{
		Email:       "payer@example.com",
		AmountKobo:  4000_00,
		Reference:   "BK-1-ABCDEF",
		CallbackURL: "http://localhost:8080/payments/verify",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", res.AuthorizationURL)
	assert.Equal(t, "BK-1-ABCDEF", res.Reference)
}

func TestInitialize_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid email address",
		})
	})

	_, err := client.Initialize(context.Background(), external.InitializeRequest{
		Email:      "not-an-email",
		AmountKobo: 100,
		Reference:  "BK-2",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email address")
}

func TestVerify_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/BK-1-ABCDEF", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"status":    "success",
				"amount":    4000_00,
				"reference": "BK-1-ABCDEF",
				"customer":  map[string]any{"email": "payer@example.com"},
			},
		})
	})

	res, err := client.Verify(context.Background(), "BK-1-ABCDEF")
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "success", res.GatewayStatus)
	assert.Equal(t, int64(4000_00), res.AmountKobo)
	assert.Equal(t, "payer@example.com", res.PayerEmail)
}

func TestVerify_FailedCharge(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"status":    "failed",
				"amount":    4000_00,
				"reference": "BK-1-ABCDEF",
			},
		})
	})

	res, err := client.Verify(context.Background(), "BK-1-ABCDEF")
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, "failed", res.GatewayStatus)
}

func TestValidateSignature(t *testing.T) {
	client := external.NewPaystackClient(external.PaystackConfig{SecretKey: "sk_test_secret"})

	body := []byte(`{"event":"charge.success","data":{"reference":"BK-1"}}`)
	mac := hmac.New(sha512.New, []byte("sk_test_secret"))
	mac.Write(body)
	good := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.ValidateSignature(body, good))
	assert.False(t, client.ValidateSignature(body, "deadbeef"))
	assert.False(t, client.ValidateSignature(body, ""))
	assert.False(t, client.ValidateSignature([]byte(`tampered`), good))
}

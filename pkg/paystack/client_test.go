package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresSecretKey(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestVerifyTransactionSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/AF-123456", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"reference":"AF-123456","status":"success","amount":136000,"currency":"KES"}}`))
	}))
	defer server.Close()

	client, err := NewClient("sk_test_abc", WithBaseURL(server.URL))
	require.NoError(t, err)

	tx, err := client.VerifyTransaction(context.Background(), "AF-123456")
	require.NoError(t, err)
	assert.Equal(t, TransactionStatusSuccess, tx.Status)
	assert.Equal(t, int64(136000), tx.AmountMinor)
	assert.Equal(t, "KES", tx.Currency)
}

func TestVerifyTransactionUnknownReference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	}))
	defer server.Close()

	client, err := NewClient("sk_test_abc", WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.VerifyTransaction(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestVerifyTransactionRequiresReference(t *testing.T) {
	client, err := NewClient("sk_test_abc")
	require.NoError(t, err)

	_, err = client.VerifyTransaction(context.Background(), " ")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestValidSignature(t *testing.T) {
	client, err := NewClient("sk_test_abc")
	require.NoError(t, err)

	body := []byte(`{"event":"charge.success"}`)
	mac := hmac.New(sha512.New, []byte("sk_test_abc"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.ValidSignature(body, signature))
	assert.False(t, client.ValidSignature(body, "deadbeef"))
	assert.False(t, client.ValidSignature(body, ""))
}

package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
)

type stubWebhookService struct {
	err       error
	body      []byte
	signature string
	calls     int
}

func (s *stubWebhookService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	s.calls++
	s.body = body
	s.signature = signature
	return s.err
}

func TestPaystackWebhookAck(t *testing.T) {
	svc := &stubWebhookService{}
	handler := PaystackWebhook(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader(`{"event":"charge.success"}`))
	req.Header.Set("X-Paystack-Signature", "deadbeef")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one service call, got %d", svc.calls)
	}
	if string(svc.body) != `{"event":"charge.success"}` {
		t.Fatalf("body not forwarded: %s", svc.body)
	}
	if svc.signature != "deadbeef" {
		t.Fatalf("signature not forwarded: %s", svc.signature)
	}
}

func TestPaystackWebhookMissingSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := PaystackWebhook(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be called without a signature")
	}
}

func TestPaystackWebhookServiceError(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid paystack signature")}
	handler := PaystackWebhook(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader(`{}`))
	req.Header.Set("X-Paystack-Signature", "bogus")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPaystackWebhookNilService(t *testing.T) {
	handler := PaystackWebhook(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader(`{}`))
	req.Header.Set("X-Paystack-Signature", "deadbeef")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/JhnOkall/avenuefashion-backend/api/responses"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
)

type PaystackWebhookService interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// PaystackWebhook receives charge events from Paystack. The signature is
// verified and the charge re-confirmed against the gateway before any order
// state changes; redeliveries are acknowledged without reapplying.
func PaystackWebhook(svc PaystackWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get("X-Paystack-Signature")
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "paystack signature missing"))
			return
		}

		if err := svc.HandleWebhook(ctx, payload, signature); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

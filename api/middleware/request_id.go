package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// maxInboundRequestIDLen caps what we accept from the storefront proxy so
// a hostile client cannot stuff arbitrary blobs into every log line.
const maxInboundRequestIDLen = 64

// RequestID tags every request with a correlation id. An inbound id from
// the edge proxy is reused when it looks sane; otherwise a fresh uuid is
// minted. The id is echoed on the response and seeded into the request
// logger.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if requestID == "" || len(requestID) > maxInboundRequestIDLen {
				requestID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, requestID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, requestID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

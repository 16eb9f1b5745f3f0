package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/JhnOkall/avenuefashion-backend/api/responses"
	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
)

// Recoverer converts a handler panic into a 500 envelope instead of tearing
// down the connection mid-response. The stack is logged server side; the
// client only ever sees the generic internal error message.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"panic": fmt.Sprintf("%v", rec),
						"stack": string(debug.Stack()),
					})
					logg.Error(ctx, "handler panic recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "internal error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"phrasely-backend/pkg/common"
)

// Identity pulls the caller identity from the X-User-ID header into the
// request context. Sessions are scoped per user; authentication itself
// is terminated by the gateway in front of this service.
func Identity() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := r.Header.Get("X-User-ID"); userID != "" {
				ctx = common.WithUserID(ctx, userID)
			}
			if requestID := chimiddleware.GetReqID(ctx); requestID != "" {
				ctx = common.WithRequestID(ctx, requestID)
			}
			ctx = common.WithStartTime(ctx, time.Now())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

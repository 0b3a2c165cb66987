package mw

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/favbox/favbox/internal/auth"
	"github.com/favbox/favbox/internal/logger"
)

type ctxKey int

const userIDKey ctxKey = iota

// Auth verifies the bearer token and stores the resolved user id in the
// request context. Requests without a valid token get a 401.
func Auth(secret []byte, loggerClient logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			userID, err := auth.VerifyToken(token, secret)
			if err != nil {
				loggerClient.Debug("token verification failed",
					logger.String("path", r.URL.Path),
					logger.Error(err))
				unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id, or 0 when the request did
// not pass through Auth.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// WithUserID injects a user id into the context. Used by tests that
// call handlers without the middleware.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

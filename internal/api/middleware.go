package api

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/mailforge/mailforge-cloud/internal/auth"
	"github.com/mailforge/mailforge-cloud/internal/usage"
)

// loadPlan resolves the caller's subscription plan. A user without a
// row yet is on the free plan.
func loadPlan(ctx context.Context, dbClient DBClient, userID string) (usage.PlanType, error) {
	raw, err := dbClient.GetUserPlan(ctx, userID)
	if err != nil {
		return "", err
	}
	return usage.ResolvePlanType(raw), nil
}

// recordUserSeen upserts the user row async (don't block the request).
func recordUserSeen(dbClient DBClient, principal *auth.Principal) {
	go func() {
		// Use detached context - we want the write to complete even if
		// the client disconnects. Fire-and-forget, non-critical tracking.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var email *string
		if principal.Email != "" {
			email = &principal.Email
		}
		if err := dbClient.UpsertUser(ctx, principal.UserID, email); err != nil {
			slog.Warn("failed to record user", "error", err, "user_id", principal.UserID)
		}
	}()
}

// LoggingMiddleware logs requests with slog
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap the response writer to capture the status code
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", duration.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				)

				WriteError(w, ErrInternal, http.StatusInternalServerError, CodeInternal)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

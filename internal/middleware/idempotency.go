package middleware

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/caching"
	"fireproof/internal/common"
	"fireproof/internal/logger"

	"github.com/labstack/echo/v4"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replay"
	MaxIdempotencyKeyLength = 128
	IdempotencyTTL          = 24 * time.Hour
	// idempotencyPendingTTL bounds how long a crashed request keeps its key locked.
	idempotencyPendingTTL = 2 * time.Minute
)

// Idempotency replays the stored response of a mutating request that is
// retried with the same Idempotency-Key. It must run after JWTMiddleware.
func Idempotency(store caching.IdempotencyStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			key := req.Header.Get(IdempotencyKeyHeader)
			if key == "" || !isMutating(req.Method) {
				return next(c)
			}
			if len(key) > MaxIdempotencyKeyLength {
				return apperrors.Validation(IdempotencyKeyHeader, "must be at most 128 characters")
			}

			ctx := req.Context()
			tenantID, okTenant := common.GetTenantIDFromContext(ctx)
			userID, okUser := common.GetUserIDFromContext(ctx)
			if !okTenant || !okUser {
				return next(c)
			}

			fingerprint := req.Method + " " + req.URL.Path
			existing, reserved, err := store.Reserve(ctx, tenantID, userID, key, fingerprint, idempotencyPendingTTL)
			if err != nil {
				// Redis outage: serve the request without replay protection.
				logger.FromContext(ctx).WithError(err).Warn("Idempotency store unavailable")
				return next(c)
			}
			if !reserved {
				switch {
				case existing == nil || existing.Pending && existing.Fingerprint == fingerprint:
					return apperrors.Conflict("a request with this Idempotency-Key is still in progress")
				case existing.Fingerprint != fingerprint:
					return apperrors.Unprocessable("Idempotency-Key was already used for a different request")
				}
				c.Response().Header().Set(IdempotentReplayHeader, "true")
				return c.Blob(existing.Status, existing.ContentType, existing.Body)
			}

			rec := &responseRecorder{ResponseWriter: c.Response().Writer}
			c.Response().Writer = rec

			if err := next(c); err != nil {
				// Render now so the error body is captured too.
				c.Error(err)
			}

			status := c.Response().Status
			// Storage must outlive a cancelled request context.
			storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()

			if status >= 500 {
				if err := store.Release(storeCtx, tenantID, userID, key); err != nil {
					logger.FromContext(ctx).WithError(err).Warn("Failed to release idempotency key")
				}
				return nil
			}
			record := &caching.IdempotencyRecord{
				Fingerprint: fingerprint,
				Status:      status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        rec.body.Bytes(),
			}
			if err := store.Save(storeCtx, tenantID, userID, key, record, IdempotencyTTL); err != nil {
				logger.FromContext(ctx).WithError(err).Warn("Failed to store idempotent response")
			}
			return nil
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseRecorder copies the response body while writing it through.
type responseRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijack not supported")
}

package middleware

import (
	"context"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestID assigns an X-Request-ID and copies it into the request context
// so logger.FromContext can pick it up.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := context.WithValue(c.Request().Context(), common.RequestIDKey, id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	})
}

// RequestLogger writes one structured line per request.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if appErr, ok := apperrors.As(err); ok {
					status = appErr.HTTPStatus()
				} else if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = 500
				}
			}

			log := logger.FromContext(c.Request().Context()).WithFields(map[string]interface{}{
				"method":     c.Request().Method,
				"route":      c.Path(),
				"uri":        c.Request().RequestURI,
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  c.RealIP(),
				"bytes_out":  c.Response().Size,
			})
			switch {
			case status >= 500:
				log.Error("HTTP request")
			case status >= 400:
				log.Warn("HTTP request")
			default:
				log.Info("HTTP request")
			}
			return err
		}
	}
}

package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/logger"
	"fireproof/internal/metrics"

	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler renders every error in the common error envelope.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, resp := errorResponse(err)
	metrics.HTTPErrors.WithLabelValues(resp.Error.Code).Inc()

	log := logger.FromContext(c.Request().Context()).WithFields(map[string]interface{}{
		"status": status,
		"method": c.Request().Method,
		"path":   c.Path(),
	})
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
	} else {
		log.WithField("error", err.Error()).Debug("Request rejected")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, resp)
	}
	if err != nil {
		log.WithError(err).Error("Failed to write error response")
	}
}

func errorResponse(err error) (int, *common.ErrorResponse) {
	if appErr, ok := apperrors.As(err); ok {
		status := appErr.HTTPStatus()
		message := appErr.Message
		if status >= http.StatusInternalServerError {
			message = "Internal server error"
		}
		return status, common.CreateErrorResponse(string(appErr.Kind), message, appErr.Details)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if inner, ok := apperrors.As(he.Internal); ok {
			return errorResponse(inner)
		}
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
			message = m
		} else if he.Code < http.StatusInternalServerError && he.Message != nil {
			message = fmt.Sprint(he.Message)
		}
		return he.Code, common.CreateErrorResponse(codeForStatus(he.Code), message, nil)
	}

	return http.StatusInternalServerError, common.CreateErrorResponse(string(apperrors.KindInternal), "Internal server error", nil)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(apperrors.KindValidation)
	case http.StatusUnauthorized:
		return string(apperrors.KindUnauthorized)
	case http.StatusForbidden:
		return string(apperrors.KindForbidden)
	case http.StatusNotFound:
		return string(apperrors.KindNotFound)
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusConflict:
		return string(apperrors.KindConflict)
	case http.StatusRequestEntityTooLarge:
		return string(apperrors.KindTooLarge)
	case http.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	case http.StatusUnprocessableEntity:
		return string(apperrors.KindUnprocessable)
	case http.StatusTooManyRequests:
		return string(apperrors.KindTooManyRequests)
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return string(apperrors.KindInternal)
	}
}

package handlers

import (
	"strings"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// tenantAndUser returns the caller set by the JWT middleware.
func tenantAndUser(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	ctx := c.Request().Context()
	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, apperrors.Unauthorized("tenant not found")
	}
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, uuid.Nil, apperrors.Unauthorized("user not authenticated")
	}
	return tenantID, userID, nil
}

func tenantFromContext(c echo.Context) (uuid.UUID, error) {
	tenantID, _, err := tenantAndUser(c)
	return tenantID, err
}

// pathID parses a UUID path parameter.
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := common.ValidateUUID(c.Param(name), name)
	if err != nil {
		return uuid.Nil, apperrors.Validation(name, err.Error())
	}
	return id, nil
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	id, err := common.ParseOptionalUUID(c.QueryParam(name), name)
	if err != nil {
		return nil, apperrors.Validation(name, err.Error())
	}
	return id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c echo.Context, name string) (*time.Time, error) {
	date, err := common.ParseOptionalDate(c.QueryParam(name), name)
	if err != nil {
		return nil, apperrors.Validation(name, err.Error())
	}
	return date, nil
}

func queryString(c echo.Context, name string) *string {
	return common.StringPtr(c.QueryParam(name))
}

func pagination(c echo.Context) (int, int, error) {
	limit, offset, err := common.PaginationFromQuery(c)
	if err != nil {
		return 0, 0, apperrors.Validation("", err.Error())
	}
	return limit, offset, nil
}

// bindAndValidate decodes the body into req and runs the validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Validation("", "Invalid request format")
	}
	return c.Validate(req)
}

// queryEnum reads an optional query parameter restricted to allowed values.
func queryEnum(c echo.Context, name string, allowed ...string) (*string, error) {
	v := queryString(c, name)
	if v == nil {
		return nil, nil
	}
	for _, a := range allowed {
		if *v == a {
			return v, nil
		}
	}
	return nil, apperrors.Validation(name, "must be one of: "+strings.Join(allowed, " "))
}

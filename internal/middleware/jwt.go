package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/logger"
	"fireproof/internal/repositories"
	"fireproof/internal/services"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// TenantOverrideHeader lets a system administrator act inside another tenant.
const TenantOverrideHeader = "X-Tenant-ID"

// Identity is the authenticated caller stored on the echo context under "identity".
type Identity struct {
	UserID      uuid.UUID
	TenantID    uuid.UUID
	Roles       []string
	SystemAdmin bool
	TokenID     string
	ExpiresAt   time.Time
}

type JWTConfig struct {
	AuthService services.AuthService
	UserRepo    repositories.UserRepository
	TenantRepo  repositories.TenantRepository
	// JWKS enables RS256 tokens from an external identity provider when set.
	JWKS   *keyfunc.JWKS
	Issuer string
}

// NewJWKS fetches the provider key set and keeps it refreshed in the background.
func NewJWKS(url string) (*keyfunc.JWKS, error) {
	return keyfunc.Get(url, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.New().WithError(err).Warn("JWKS refresh failed")
		},
	})
}

// JWTMiddleware validates bearer tokens and places the caller identity in the request context
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: "identity",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			ctx := c.Request().Context()

			identity, err := cfg.authenticate(ctx, auth)
			if err != nil {
				return nil, err
			}
			if err := cfg.applyTenantOverride(ctx, c.Request().Header.Get(TenantOverrideHeader), identity); err != nil {
				return nil, err
			}

			ctx = context.WithValue(ctx, common.UserIDKey, identity.UserID)
			ctx = context.WithValue(ctx, common.TenantIDKey, identity.TenantID)
			ctx = context.WithValue(ctx, common.SystemAdminKey, identity.SystemAdmin)
			ctx = context.WithValue(ctx, common.RolesKey, identity.Roles)
			ctx = context.WithValue(ctx, common.TokenIDKey, identity.TokenID)
			ctx = context.WithValue(ctx, common.TokenExpiryKey, identity.ExpiresAt)
			c.SetRequest(c.Request().WithContext(ctx))
			return identity, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if appErr, ok := apperrors.As(err); ok {
				return appErr
			}
			if errors.Is(err, echojwt.ErrJWTMissing) {
				return apperrors.Unauthorized("missing bearer token")
			}
			return apperrors.Unauthorized("invalid or expired token")
		},
	})
}

func (cfg JWTConfig) authenticate(ctx context.Context, raw string) (*Identity, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, apperrors.Unauthorized("malformed token")
	}
	alg, _ := unverified.Header["alg"].(string)

	if alg == jwt.SigningMethodRS256.Alg() && cfg.JWKS != nil {
		identity, err := cfg.authenticateExternal(ctx, raw)
		if err != nil {
			return nil, err
		}
		if err := cfg.AuthService.CheckRevoked(ctx, identity.TokenID); err != nil {
			return nil, err
		}
		return identity, nil
	}

	claims, err := cfg.AuthService.ValidateToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid user_id claim")
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid tenant_id claim")
	}
	identity := &Identity{
		UserID:      userID,
		TenantID:    tenantID,
		Roles:       claims.Roles,
		SystemAdmin: claims.SystemAdmin,
		TokenID:     claims.ID,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// authenticateExternal accepts RS256 tokens signed by the configured identity
// provider. They carry user_id and tenant_id claims, or an oid claim that
// matches a user's external_id.
func (cfg JWTConfig) authenticateExternal(ctx context.Context, raw string) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithExpirationRequired()}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, cfg.JWKS.Keyfunc, opts...)
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	var userID, tenantID uuid.UUID
	if oid, ok := claims["oid"].(string); ok && oid != "" {
		user, err := cfg.UserRepo.GetByExternalID(ctx, oid)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.Unauthorized("unknown external identity")
			}
			return nil, err
		}
		userID, tenantID = user.ID, user.TenantID
	} else {
		u, _ := claims["user_id"].(string)
		t, _ := claims["tenant_id"].(string)
		if userID, err = uuid.Parse(u); err != nil {
			return nil, apperrors.Unauthorized("token is missing user_id")
		}
		if tenantID, err = uuid.Parse(t); err != nil {
			return nil, apperrors.Unauthorized("token is missing tenant_id")
		}
	}

	user, err := cfg.UserRepo.GetByID(ctx, tenantID, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("unknown user")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("user is inactive")
	}

	identity := &Identity{
		UserID:      user.ID,
		TenantID:    user.TenantID,
		SystemAdmin: user.IsSystemAdmin,
	}
	if jti, ok := claims["jti"].(string); ok {
		identity.TokenID = jti
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity, nil
}

func (cfg JWTConfig) applyTenantOverride(ctx context.Context, header string, identity *Identity) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	if !identity.SystemAdmin {
		return apperrors.Forbidden("only system administrators may set " + TenantOverrideHeader)
	}
	tenantID, err := uuid.Parse(header)
	if err != nil {
		return apperrors.Validation(TenantOverrideHeader, "must be a valid UUID")
	}
	tenant, err := cfg.TenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !tenant.IsActive {
		return apperrors.NotFound("tenant")
	}
	identity.TenantID = tenant.ID
	return nil
}

// IdentityFromContext returns the identity set by JWTMiddleware.
func IdentityFromContext(c echo.Context) (*Identity, bool) {
	identity, ok := c.Get("identity").(*Identity)
	return identity, ok
}

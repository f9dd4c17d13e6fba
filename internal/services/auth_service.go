package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/caching"
	"fireproof/internal/logger"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

const (
	loginAttemptLimit  = 10
	loginAttemptWindow = 15 * time.Minute
)

var errInvalidCredentials = apperrors.Unauthorized("invalid email or password")

// AuthService handles password login and JWT token management
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest, clientIP string) (*models.TokenResponse, error)
	GenerateTokens(ctx context.Context, user *models.User, roles []string) (*models.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	// Logout blacklists the access token id until expiresAt and revokes the refresh token when given.
	Logout(ctx context.Context, tokenID string, expiresAt time.Time, refreshToken string) error
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	// CheckRevoked fails with Unauthorized when the token id was blacklisted by Logout.
	CheckRevoked(ctx context.Context, tokenID string) error
	Profile(ctx context.Context, tenantID, userID uuid.UUID) (*models.Profile, error)
}

// AuthConfig carries token signing settings.
type AuthConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type authService struct {
	userRepo     repositories.UserRepository
	tenantRepo   repositories.TenantRepository
	userRoleRepo repositories.UserRoleRepository
	rbacSvc      RBACService
	cacheSvc     caching.CacheService
	clock        clockwork.Clock
	jwtSecret    []byte
	issuer       string
	tokenTTL     time.Duration
	refreshTTL   time.Duration
}

// TokenClaims represents JWT claims
type TokenClaims struct {
	UserID      string   `json:"user_id"`
	TenantID    string   `json:"tenant_id"`
	Roles       []string `json:"roles"`
	SystemAdmin bool     `json:"system_admin"`
	jwt.RegisteredClaims
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo repositories.UserRepository,
	tenantRepo repositories.TenantRepository,
	userRoleRepo repositories.UserRoleRepository,
	rbacSvc RBACService,
	cacheSvc caching.CacheService,
	clock clockwork.Clock,
	cfg AuthConfig,
) AuthService {
	return &authService{
		userRepo:     userRepo,
		tenantRepo:   tenantRepo,
		userRoleRepo: userRoleRepo,
		rbacSvc:      rbacSvc,
		cacheSvc:     cacheSvc,
		clock:        clock,
		jwtSecret:    []byte(cfg.Secret),
		issuer:       cfg.Issuer,
		tokenTTL:     cfg.AccessTTL,
		refreshTTL:   cfg.RefreshTTL,
	}
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest, clientIP string) (*models.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	rateKey := fmt.Sprintf("login:%s:%s", email, clientIP)

	limited, err := s.cacheSvc.IsRateLimited(ctx, rateKey, loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Login rate limiter unavailable")
	} else if limited {
		return nil, apperrors.TooManyRequests("too many login attempts, try again later")
	}

	user, tenant, err := s.resolveAccount(ctx, email, req.TenantSlug)
	if err != nil {
		return nil, err
	}

	if !user.IsActive || !tenant.IsActive {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	if err := s.cacheSvc.ResetRateLimit(ctx, rateKey); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to reset login rate limit")
	}
	if err := s.userRepo.TouchLastLogin(ctx, user.TenantID, user.ID); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to record last login")
	}

	roles, err := s.userRoleRepo.ListRoleNames(ctx, user.TenantID, user.ID)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"user_id":   user.ID,
		"tenant_id": user.TenantID,
	}).Info("User logged in")

	return s.GenerateTokens(ctx, user, roles)
}

// resolveAccount finds the account for email. Without a slug the email must
// identify a single tenant.
func (s *authService) resolveAccount(ctx context.Context, email, slug string) (*models.User, *models.Tenant, error) {
	if slug != "" {
		tenant, err := s.tenantRepo.GetBySlug(ctx, strings.ToLower(slug))
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, nil, errInvalidCredentials
			}
			return nil, nil, err
		}
		user, err := s.userRepo.GetByEmail(ctx, tenant.ID, email)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, nil, errInvalidCredentials
			}
			return nil, nil, err
		}
		return user, tenant, nil
	}

	users, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	switch len(users) {
	case 0:
		return nil, nil, errInvalidCredentials
	case 1:
	default:
		return nil, nil, apperrors.Validation("tenant_slug", "tenant_slug required")
	}

	tenant, err := s.tenantRepo.GetByID(ctx, users[0].TenantID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, err
	}
	return users[0], tenant, nil
}

// GenerateTokens generates access and refresh tokens for a user
func (s *authService) GenerateTokens(ctx context.Context, user *models.User, roles []string) (*models.TokenResponse, error) {
	now := s.clock.Now()
	tokenID := uuid.NewString()
	if roles == nil {
		roles = []string{}
	}

	claims := TokenClaims{
		UserID:      user.ID.String(),
		TenantID:    user.TenantID.String(),
		Roles:       roles,
		SystemAdmin: user.IsSystemAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessTokenString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, apperrors.Internal("failed to sign token", err)
	}

	refreshToken, err := generateSecureToken()
	if err != nil {
		return nil, apperrors.Internal("failed to generate refresh token", err)
	}
	session := &models.RefreshSession{
		UserID:    user.ID.String(),
		TenantID:  user.TenantID.String(),
		TokenID:   tokenID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.cacheSvc.SetRefreshSession(ctx, hashToken(refreshToken), session, s.refreshTTL); err != nil {
		return nil, apperrors.Internal("failed to store refresh token", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessTokenString,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenTTL.Seconds()),
		RefreshToken: refreshToken,
		UserID:       user.ID.String(),
		TenantID:     user.TenantID.String(),
		TokenID:      tokenID,
		IssuedAt:     now,
	}, nil
}

// Refresh rotates a refresh token. The presented token is consumed even when
// the account turns out to be disabled.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	tokenHash := hashToken(refreshToken)
	session, err := s.cacheSvc.GetRefreshSession(ctx, tokenHash)
	if err != nil {
		return nil, apperrors.Internal("failed to read refresh token", err)
	}
	if session == nil || !s.clock.Now().Before(session.ExpiresAt) {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}
	if err := s.cacheSvc.DeleteRefreshSession(ctx, tokenHash); err != nil {
		return nil, apperrors.Internal("failed to revoke refresh token", err)
	}

	userID, err := uuid.Parse(session.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}
	tenantID, err := uuid.Parse(session.TenantID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, tenantID, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("invalid refresh token")
		}
		return nil, err
	}
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !tenant.IsActive {
		return nil, apperrors.Unauthorized("account disabled")
	}

	roles, err := s.userRoleRepo.ListRoleNames(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	return s.GenerateTokens(ctx, user, roles)
}

func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time, refreshToken string) error {
	if tokenID != "" {
		if err := s.cacheSvc.BlacklistToken(ctx, tokenID, expiresAt.Sub(s.clock.Now())); err != nil {
			return apperrors.Internal("failed to revoke token", err)
		}
	}
	if refreshToken != "" {
		if err := s.cacheSvc.DeleteRefreshSession(ctx, hashToken(refreshToken)); err != nil {
			return apperrors.Internal("failed to revoke refresh token", err)
		}
	}
	return nil
}

// ValidateToken validates an HS256 access token and rejects revoked ones
func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	jwtToken, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	claims, ok := jwtToken.Claims.(*TokenClaims)
	if !ok || !jwtToken.Valid {
		return nil, apperrors.Unauthorized("invalid token claims")
	}

	if err := s.CheckRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *authService) CheckRevoked(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	revoked, err := s.cacheSvc.IsTokenBlacklisted(ctx, tokenID)
	if err != nil {
		return apperrors.Internal("failed to check token revocation", err)
	}
	if revoked {
		return apperrors.Unauthorized("token has been revoked")
	}
	return nil
}

func (s *authService) Profile(ctx context.Context, tenantID, userID uuid.UUID) (*models.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	roles, err := s.userRoleRepo.ListRoleNames(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	var perms []string
	if user.IsSystemAdmin {
		for _, p := range models.AllPermissions {
			perms = append(perms, p.Name)
		}
	} else {
		perms, err = s.rbacSvc.GetUserPermissions(ctx, userID, tenantID)
		if err != nil {
			return nil, err
		}
	}
	if roles == nil {
		roles = []string{}
	}
	if perms == nil {
		perms = []string{}
	}

	return &models.Profile{User: user, Tenant: tenant, Roles: roles, Permissions: perms}, nil
}

// HashPassword returns the bcrypt hash of a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperrors.Validation("password", "password is too long")
		}
		return "", apperrors.Internal("failed to hash password", err)
	}
	return string(hash), nil
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// hashToken creates a SHA-256 hash of the token for storage
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

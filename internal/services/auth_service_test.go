package services

import (
	"context"
	"testing"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/caching"
	"fireproof/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct horse battery"

type AuthServiceTestSuite struct {
	suite.Suite
	userRepo     *MockUserRepository
	tenantRepo   *MockTenantRepository
	userRoleRepo *MockUserRoleRepository
	rbac         *MockRBACService
	redis        *miniredis.Miniredis
	cache        caching.CacheService
	clock        *clockwork.FakeClock
	service      AuthService

	ctx          context.Context
	passwordHash string
	tenant       *models.Tenant
	user         *models.User
}

func (s *AuthServiceTestSuite) SetupSuite() {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	s.Require().NoError(err)
	s.passwordHash = string(hash)
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.userRepo = &MockUserRepository{}
	s.tenantRepo = &MockTenantRepository{}
	s.userRoleRepo = &MockUserRoleRepository{}
	s.rbac = &MockRBACService{}

	s.redis = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.redis.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })
	s.cache = caching.NewRedisCacheService(client)

	s.clock = clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	s.service = NewAuthService(s.userRepo, s.tenantRepo, s.userRoleRepo, s.rbac, s.cache, s.clock, AuthConfig{
		Secret:     "test-secret",
		Issuer:     "fireproof-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})

	s.ctx = context.Background()
	s.tenant = &models.Tenant{ID: uuid.New(), Name: "Acme", Slug: "acme", IsActive: true}
	s.user = &models.User{
		ID:           uuid.New(),
		TenantID:     s.tenant.ID,
		Email:        "inspector@acme.test",
		PasswordHash: s.passwordHash,
		FirstName:    "Ada",
		IsActive:     true,
	}
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (s *AuthServiceTestSuite) expectSingleTenantLookup() {
	s.userRepo.On("FindByEmail", s.ctx, s.user.Email).Return([]*models.User{s.user}, nil)
	s.tenantRepo.On("GetByID", s.ctx, s.tenant.ID).Return(s.tenant, nil)
}

func (s *AuthServiceTestSuite) login(password string) (*models.TokenResponse, error) {
	return s.service.Login(s.ctx, &models.LoginRequest{Email: "  Inspector@Acme.test ", Password: password}, "10.0.0.1")
}

func (s *AuthServiceTestSuite) TestLogin_Success() {
	s.expectSingleTenantLookup()
	s.userRepo.On("TouchLastLogin", s.ctx, s.tenant.ID, s.user.ID).Return(nil)
	s.userRoleRepo.On("ListRoleNames", s.ctx, s.tenant.ID, s.user.ID).Return([]string{models.RoleInspector}, nil)

	tokens, err := s.login(testPassword)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), "Bearer", tokens.TokenType)
	assert.Equal(s.T(), 900, tokens.ExpiresIn)
	assert.Equal(s.T(), s.user.ID.String(), tokens.UserID)
	assert.NotEmpty(s.T(), tokens.RefreshToken)

	claims, err := s.service.ValidateToken(s.ctx, tokens.AccessToken)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.tenant.ID.String(), claims.TenantID)
	assert.Equal(s.T(), []string{models.RoleInspector}, claims.Roles)
	assert.Equal(s.T(), tokens.TokenID, claims.ID)
	assert.False(s.T(), claims.SystemAdmin)

	s.userRepo.AssertExpectations(s.T())
	s.userRoleRepo.AssertExpectations(s.T())
}

func (s *AuthServiceTestSuite) TestLogin_WrongPassword() {
	s.expectSingleTenantLookup()

	_, err := s.login("wrong")
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindUnauthorized, appErr.Kind)
	s.userRepo.AssertNotCalled(s.T(), "TouchLastLogin", mock.Anything, mock.Anything, mock.Anything)
}

func (s *AuthServiceTestSuite) TestLogin_InactiveUser() {
	s.user.IsActive = false
	s.expectSingleTenantLookup()

	_, err := s.login(testPassword)
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindUnauthorized, appErr.Kind)
}

func (s *AuthServiceTestSuite) TestLogin_RateLimitedAfterTenFailures() {
	s.expectSingleTenantLookup()

	for i := 0; i < loginAttemptLimit; i++ {
		_, err := s.login("wrong")
		appErr, ok := apperrors.As(err)
		require.True(s.T(), ok)
		require.Equal(s.T(), apperrors.KindUnauthorized, appErr.Kind, "attempt %d", i+1)
	}

	_, err := s.login(testPassword)
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindTooManyRequests, appErr.Kind)

	s.redis.FastForward(loginAttemptWindow)
	s.userRepo.On("TouchLastLogin", s.ctx, s.tenant.ID, s.user.ID).Return(nil)
	s.userRoleRepo.On("ListRoleNames", s.ctx, s.tenant.ID, s.user.ID).Return([]string{}, nil)

	_, err = s.login(testPassword)
	assert.NoError(s.T(), err)
}

func (s *AuthServiceTestSuite) TestLogin_EmailInSeveralTenantsNeedsSlug() {
	other := *s.user
	other.ID = uuid.New()
	other.TenantID = uuid.New()
	s.userRepo.On("FindByEmail", s.ctx, s.user.Email).Return([]*models.User{s.user, &other}, nil)

	_, err := s.login(testPassword)
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindValidation, appErr.Kind)
	assert.Contains(s.T(), appErr.Details, "tenant_slug")
}

func (s *AuthServiceTestSuite) TestLogin_WithSlug() {
	s.tenantRepo.On("GetBySlug", s.ctx, "acme").Return(s.tenant, nil)
	s.userRepo.On("GetByEmail", s.ctx, s.tenant.ID, s.user.Email).Return(s.user, nil)
	s.userRepo.On("TouchLastLogin", s.ctx, s.tenant.ID, s.user.ID).Return(nil)
	s.userRoleRepo.On("ListRoleNames", s.ctx, s.tenant.ID, s.user.ID).Return([]string{models.RoleTenantAdmin}, nil)

	tokens, err := s.service.Login(s.ctx, &models.LoginRequest{
		Email:      s.user.Email,
		Password:   testPassword,
		TenantSlug: "ACME",
	}, "10.0.0.2")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.tenant.ID.String(), tokens.TenantID)
}

func (s *AuthServiceTestSuite) TestLogin_UnknownSlug() {
	s.tenantRepo.On("GetBySlug", s.ctx, "nobody").Return(nil, apperrors.NotFound("tenant"))

	_, err := s.service.Login(s.ctx, &models.LoginRequest{
		Email:      s.user.Email,
		Password:   testPassword,
		TenantSlug: "nobody",
	}, "10.0.0.2")
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindUnauthorized, appErr.Kind)
}

func (s *AuthServiceTestSuite) TestRefresh_RotatesAndConsumes() {
	tokens, err := s.service.GenerateTokens(s.ctx, s.user, []string{models.RoleViewer})
	require.NoError(s.T(), err)

	s.userRepo.On("GetByID", s.ctx, s.tenant.ID, s.user.ID).Return(s.user, nil)
	s.tenantRepo.On("GetByID", s.ctx, s.tenant.ID).Return(s.tenant, nil)
	s.userRoleRepo.On("ListRoleNames", s.ctx, s.tenant.ID, s.user.ID).Return([]string{models.RoleViewer}, nil)

	s.clock.Advance(time.Minute)
	rotated, err := s.service.Refresh(s.ctx, tokens.RefreshToken)
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), tokens.RefreshToken, rotated.RefreshToken)
	assert.NotEqual(s.T(), tokens.TokenID, rotated.TokenID)

	_, err = s.service.Refresh(s.ctx, tokens.RefreshToken)
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindUnauthorized, appErr.Kind)
}

func (s *AuthServiceTestSuite) TestRefresh_Expired() {
	tokens, err := s.service.GenerateTokens(s.ctx, s.user, nil)
	require.NoError(s.T(), err)

	s.clock.Advance(8 * 24 * time.Hour)
	_, err = s.service.Refresh(s.ctx, tokens.RefreshToken)
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindUnauthorized, appErr.Kind)
}

func (s *AuthServiceTestSuite) TestRefresh_DisabledAccountConsumesToken() {
	tokens, err := s.service.GenerateTokens(s.ctx, s.user, nil)
	require.NoError(s.T(), err)

	disabled := *s.user
	disabled.IsActive = false
	s.userRepo.On("GetByID", s.ctx, s.tenant.ID, s.user.ID).Return(&disabled, nil)
	s.tenantRepo.On("GetByID", s.ctx, s.tenant.ID).Return(s.tenant, nil)

	_, err = s.service.Refresh(s.ctx, tokens.RefreshToken)
	require.Error(s.T(), err)

	session, err := s.cache.GetRefreshSession(s.ctx, hashToken(tokens.RefreshToken))
	require.NoError(s.T(), err)
	assert.Nil(s.T(), session)
}

func (s *AuthServiceTestSuite) TestLogout_BlacklistsAccessToken() {
	tokens, err := s.service.GenerateTokens(s.ctx, s.user, nil)
	require.NoError(s.T(), err)

	claims, err := s.service.ValidateToken(s.ctx, tokens.AccessToken)
	require.NoError(s.T(), err)

	err = s.service.Logout(s.ctx, claims.ID, claims.ExpiresAt.Time, tokens.RefreshToken)
	require.NoError(s.T(), err)

	_, err = s.service.ValidateToken(s.ctx, tokens.AccessToken)
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), "token has been revoked", appErr.Message)

	_, err = s.service.Refresh(s.ctx, tokens.RefreshToken)
	assert.Error(s.T(), err)
}

func (s *AuthServiceTestSuite) TestCheckRevoked_ExternalTokenID() {
	require.NoError(s.T(), s.service.CheckRevoked(s.ctx, "idp-jti-1"))
	require.NoError(s.T(), s.service.CheckRevoked(s.ctx, ""))

	err := s.service.Logout(s.ctx, "idp-jti-1", s.clock.Now().Add(time.Hour), "")
	require.NoError(s.T(), err)

	err = s.service.CheckRevoked(s.ctx, "idp-jti-1")
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindUnauthorized, appErr.Kind)
	assert.NoError(s.T(), s.service.CheckRevoked(s.ctx, "idp-jti-2"))
}

func (s *AuthServiceTestSuite) TestValidateToken_Expired() {
	tokens, err := s.service.GenerateTokens(s.ctx, s.user, nil)
	require.NoError(s.T(), err)

	s.clock.Advance(16 * time.Minute)
	_, err = s.service.ValidateToken(s.ctx, tokens.AccessToken)
	appErr, ok := apperrors.As(err)
	require.True(s.T(), ok)
	assert.Equal(s.T(), apperrors.KindUnauthorized, appErr.Kind)
}

func (s *AuthServiceTestSuite) TestValidateToken_WrongIssuer() {
	other := NewAuthService(s.userRepo, s.tenantRepo, s.userRoleRepo, s.rbac, s.cache, s.clock, AuthConfig{
		Secret:     "test-secret",
		Issuer:     "someone-else",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	tokens, err := other.GenerateTokens(s.ctx, s.user, nil)
	require.NoError(s.T(), err)

	_, err = s.service.ValidateToken(s.ctx, tokens.AccessToken)
	assert.Error(s.T(), err)
}

func (s *AuthServiceTestSuite) TestProfile_SystemAdminGetsAllPermissions() {
	s.user.IsSystemAdmin = true
	s.userRepo.On("GetByID", s.ctx, s.tenant.ID, s.user.ID).Return(s.user, nil)
	s.tenantRepo.On("GetByID", s.ctx, s.tenant.ID).Return(s.tenant, nil)
	s.userRoleRepo.On("ListRoleNames", s.ctx, s.tenant.ID, s.user.ID).Return(nil, nil)

	profile, err := s.service.Profile(s.ctx, s.tenant.ID, s.user.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), profile.Permissions, len(models.AllPermissions))
	assert.Equal(s.T(), []string{}, profile.Roles)
	s.rbac.AssertNotCalled(s.T(), "GetUserPermissions", mock.Anything, mock.Anything, mock.Anything)
}

func (s *AuthServiceTestSuite) TestHashPassword() {
	hash, err := HashPassword(testPassword)
	require.NoError(s.T(), err)
	assert.NoError(s.T(), bcrypt.CompareHashAndPassword([]byte(hash), []byte(testPassword)))
}

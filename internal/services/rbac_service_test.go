package services

import (
	"context"
	"testing"

	"fireproof/internal/caching"
	"fireproof/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RBACServiceTestSuite struct {
	suite.Suite
	roleRepo     *MockRoleRepository
	rolePermRepo *MockRolePermissionRepository
	permRepo     *MockPermissionRepository
	redis        *miniredis.Miniredis
	service      RBACService

	ctx      context.Context
	tenantID uuid.UUID
	userID   uuid.UUID
}

func (s *RBACServiceTestSuite) SetupTest() {
	s.roleRepo = &MockRoleRepository{}
	s.rolePermRepo = &MockRolePermissionRepository{}
	s.permRepo = &MockPermissionRepository{}

	s.redis = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.redis.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	s.service = NewRBACService(s.roleRepo, s.rolePermRepo, s.permRepo, caching.NewRedisCacheService(client))
	s.ctx = context.Background()
	s.tenantID = uuid.New()
	s.userID = uuid.New()
}

func TestRBACServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RBACServiceTestSuite))
}

func (s *RBACServiceTestSuite) TestGetUserPermissions_SortedAndCached() {
	s.rolePermRepo.On("ListForUser", s.ctx, s.tenantID, s.userID).
		Return([]string{models.PermInspectionsWrite, models.PermAuditRead}, nil).Once()

	perms, err := s.service.GetUserPermissions(s.ctx, s.userID, s.tenantID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{models.PermAuditRead, models.PermInspectionsWrite}, perms)

	ok, err := s.service.UserHasPermission(s.ctx, s.userID, s.tenantID, models.PermAuditRead)
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	ok, err = s.service.UserHasPermission(s.ctx, s.userID, s.tenantID, models.PermUsersWrite)
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)

	s.rolePermRepo.AssertExpectations(s.T())
}

func (s *RBACServiceTestSuite) TestInvalidateUser_ReloadsFromRepository() {
	s.rolePermRepo.On("ListForUser", s.ctx, s.tenantID, s.userID).Return([]string{models.PermAuditRead}, nil).Twice()

	_, err := s.service.GetUserPermissions(s.ctx, s.userID, s.tenantID)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.service.InvalidateUser(s.ctx, s.tenantID, s.userID))
	_, err = s.service.GetUserPermissions(s.ctx, s.userID, s.tenantID)
	require.NoError(s.T(), err)

	s.rolePermRepo.AssertExpectations(s.T())
}

func (s *RBACServiceTestSuite) TestGetUserPermissions_CacheDownFallsBack() {
	s.redis.Close()
	s.rolePermRepo.On("ListForUser", s.ctx, s.tenantID, s.userID).Return([]string{models.PermAuditRead}, nil)

	perms, err := s.service.GetUserPermissions(s.ctx, s.userID, s.tenantID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{models.PermAuditRead}, perms)
}

func (s *RBACServiceTestSuite) TestSeedTenantRoles() {
	s.roleRepo.On("Create", s.ctx, mock.AnythingOfType("*models.Role")).Return(nil).Times(3)
	s.rolePermRepo.On("Grant", s.ctx, s.tenantID, mock.AnythingOfType("uuid.UUID"), mock.Anything).Return(nil).Times(3)

	roles, err := s.service.SeedTenantRoles(s.ctx, s.tenantID)
	require.NoError(s.T(), err)

	require.Len(s.T(), roles, 3)
	admin := roles[models.RoleTenantAdmin]
	require.NotNil(s.T(), admin)
	assert.Len(s.T(), admin.Permissions, len(models.AllPermissions))
	assert.True(s.T(), admin.IsSystem)
	assert.Equal(s.T(), s.tenantID, admin.TenantID)
	assert.NotContains(s.T(), roles[models.RoleViewer].Permissions, models.PermInspectionsWrite)

	s.roleRepo.AssertExpectations(s.T())
	s.rolePermRepo.AssertExpectations(s.T())
}

func (s *RBACServiceTestSuite) TestEnsurePermissions() {
	s.permRepo.On("Ensure", s.ctx, models.AllPermissions).Return(nil)
	require.NoError(s.T(), s.service.EnsurePermissions(s.ctx))
	s.permRepo.AssertExpectations(s.T())
}

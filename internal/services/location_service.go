package services

import (
	"context"
	"fmt"
	"strings"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/google/uuid"
)

type LocationService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *models.LocationRequest) (*models.Location, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Location, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *models.LocationRequest) (*models.Location, error)
	// Delete soft deletes a location. Locations that still hold active extinguishers are kept.
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID, filter models.LocationFilter) ([]*models.Location, int, error)
}

type locationService struct {
	locationRepo repositories.LocationRepository
	auditSvc     AuditLogsService
}

func NewLocationService(locationRepo repositories.LocationRepository, auditSvc AuditLogsService) LocationService {
	return &locationService{locationRepo: locationRepo, auditSvc: auditSvc}
}

// ApplyLocationRequest copies request fields onto loc.
func ApplyLocationRequest(loc *models.Location, req *models.LocationRequest) {
	loc.Code = strings.TrimSpace(req.Code)
	loc.Name = strings.TrimSpace(req.Name)
	loc.AddressLine1 = req.AddressLine1
	loc.AddressLine2 = req.AddressLine2
	loc.City = req.City
	loc.State = req.State
	loc.PostalCode = req.PostalCode
	loc.Country = req.Country
	loc.Latitude = req.Latitude
	loc.Longitude = req.Longitude
	loc.ContactName = req.ContactName
	loc.ContactPhone = req.ContactPhone
	loc.ContactEmail = req.ContactEmail
	if req.IsActive != nil {
		loc.IsActive = *req.IsActive
	}
}

func validateLocation(loc *models.Location) error {
	if loc.Code == "" {
		return apperrors.Validation("code", "code is required")
	}
	if loc.Name == "" {
		return apperrors.Validation("name", "name is required")
	}
	return nil
}

func (s *locationService) Create(ctx context.Context, tenantID uuid.UUID, req *models.LocationRequest) (*models.Location, error) {
	loc := &models.Location{ID: uuid.New(), TenantID: tenantID, IsActive: true}
	ApplyLocationRequest(loc, req)
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	if err := s.locationRepo.Create(ctx, loc); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityCreate(ctx, tenantID, "locations", loc.ID, actorFromContext(ctx), loc)
	return loc, nil
}

func (s *locationService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Location, error) {
	return s.locationRepo.GetByID(ctx, tenantID, id)
}

func (s *locationService) Update(ctx context.Context, tenantID, id uuid.UUID, req *models.LocationRequest) (*models.Location, error) {
	loc, err := s.locationRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	before := *loc

	ApplyLocationRequest(loc, req)
	if err := validateLocation(loc); err != nil {
		return nil, err
	}
	if err := s.locationRepo.Update(ctx, loc); err != nil {
		return nil, err
	}
	s.auditSvc.LogEntityUpdate(ctx, tenantID, "locations", id, actorFromContext(ctx), before, loc)
	return loc, nil
}

func (s *locationService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	loc, err := s.locationRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	active, err := s.locationRepo.CountActiveExtinguishers(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return apperrors.Conflict(fmt.Sprintf("location has %d active extinguishers", active))
	}

	if err := s.locationRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.auditSvc.LogEntitySoftDelete(ctx, tenantID, "locations", id, actorFromContext(ctx), loc)
	return nil
}

func (s *locationService) List(ctx context.Context, tenantID uuid.UUID, filter models.LocationFilter) ([]*models.Location, int, error) {
	filter.Search = common.SanitizeSearchQuery(filter.Search)
	return s.locationRepo.List(ctx, tenantID, filter)
}

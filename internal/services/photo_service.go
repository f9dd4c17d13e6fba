package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/logger"
	"fireproof/internal/metrics"
	"fireproof/internal/models"
	"fireproof/internal/repositories"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultPhotoMaxBytes = 10 << 20
	DefaultPhotoURLTTL   = 15 * time.Minute
)

// allowedPhotoTypes maps sniffed content types to the stored object extension.
var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/heic": ".heic",
	"image/webp": ".webp",
}

type PhotoConfig struct {
	MaxBytes int64
	URLTTL   time.Duration
}

type PhotoService interface {
	// Upload stores a photo for an inspection. The bool is false when an
	// identical photo already existed and was returned instead.
	Upload(ctx context.Context, tenantID uuid.UUID, upload *models.PhotoUpload, content io.Reader) (*models.Photo, bool, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Photo, error)
	ListByInspection(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.Photo, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// SignURLs fills the presigned download URL of each photo.
	SignURLs(ctx context.Context, photos []models.Photo) []models.Photo
}

type photoService struct {
	photoRepo      repositories.PhotoRepository
	inspectionRepo repositories.InspectionRepository
	deficiencyRepo repositories.DeficiencyRepository
	storage        ObjectStorage
	auditSvc       AuditLogsService
	clock          clockwork.Clock
	cfg            PhotoConfig
}

func NewPhotoService(
	photoRepo repositories.PhotoRepository,
	inspectionRepo repositories.InspectionRepository,
	deficiencyRepo repositories.DeficiencyRepository,
	storage ObjectStorage,
	auditSvc AuditLogsService,
	clock clockwork.Clock,
	cfg PhotoConfig,
) PhotoService {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultPhotoMaxBytes
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = DefaultPhotoURLTTL
	}
	return &photoService{
		photoRepo:      photoRepo,
		inspectionRepo: inspectionRepo,
		deficiencyRepo: deficiencyRepo,
		storage:        storage,
		auditSvc:       auditSvc,
		clock:          clock,
		cfg:            cfg,
	}
}

// ObjectKey returns the storage key of a photo.
func ObjectKey(tenantID, inspectionID, photoID uuid.UUID, ext string) string {
	return fmt.Sprintf("tenants/%s/inspections/%s/%s%s", tenantID, inspectionID, photoID, ext)
}

func (s *photoService) Upload(ctx context.Context, tenantID uuid.UUID, upload *models.PhotoUpload, content io.Reader) (*models.Photo, bool, error) {
	if upload.Size > s.cfg.MaxBytes {
		return nil, false, apperrors.TooLarge(fmt.Sprintf("photo exceeds %d bytes", s.cfg.MaxBytes))
	}
	if !isOneOf(upload.PhotoType, models.PhotoTypes) {
		return nil, false, apperrors.Validation("photo_type", "unknown photo_type "+upload.PhotoType)
	}

	insp, err := s.inspectionRepo.GetByID(ctx, tenantID, upload.InspectionID)
	if err != nil {
		return nil, false, err
	}
	if insp.Status == models.InspectionCompleted {
		return nil, false, apperrors.Conflict("photos cannot be added to a completed inspection")
	}
	if upload.DeficiencyID != nil {
		d, err := s.deficiencyRepo.GetByID(ctx, tenantID, *upload.DeficiencyID)
		if err != nil {
			return nil, false, err
		}
		if d.ExtinguisherID != insp.ExtinguisherID {
			return nil, false, apperrors.Validation("deficiency_id", "deficiency belongs to a different extinguisher")
		}
	}

	data, err := io.ReadAll(io.LimitReader(content, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, false, apperrors.Validation("file", "could not read upload")
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return nil, false, apperrors.TooLarge(fmt.Sprintf("photo exceeds %d bytes", s.cfg.MaxBytes))
	}
	if len(data) == 0 {
		return nil, false, apperrors.Validation("file", "file is empty")
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedPhotoTypes[mtype.String()]
	if !ok {
		return nil, false, apperrors.Unprocessable(fmt.Sprintf("unsupported image type %s", mtype.String()))
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	existing, err := s.photoRepo.GetBySHA(ctx, tenantID, insp.ID, digest)
	if err == nil {
		s.sign(ctx, existing)
		return existing, false, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, false, err
	}

	p := &models.Photo{
		ID:           uuid.New(),
		TenantID:     tenantID,
		InspectionID: insp.ID,
		DeficiencyID: upload.DeficiencyID,
		PhotoType:    upload.PhotoType,
		ContentType:  mtype.String(),
		SizeBytes:    int64(len(data)),
		SHA256:       digest,
		CapturedAt:   upload.CapturedAt,
		Latitude:     upload.Latitude,
		Longitude:    upload.Longitude,
		UploadedBy:   actorFromContext(ctx),
	}
	p.ObjectKey = ObjectKey(tenantID, insp.ID, p.ID, ext)

	if err := s.storage.PutObject(ctx, p.ObjectKey, bytes.NewReader(data), p.SizeBytes, p.ContentType); err != nil {
		return nil, false, apperrors.Internal("failed to store photo", err)
	}
	if err := s.photoRepo.Create(ctx, p); err != nil {
		if delErr := s.storage.DeleteObject(ctx, p.ObjectKey); delErr != nil {
			logger.FromContext(ctx).WithError(delErr).WithField("object_key", p.ObjectKey).Warn("Failed to remove orphaned photo object")
		}
		// A concurrent upload of the same bytes won the (inspection_id, sha256) row.
		if errors.Is(err, apperrors.ErrConflict) {
			if existing, getErr := s.photoRepo.GetBySHA(ctx, tenantID, insp.ID, digest); getErr == nil {
				s.sign(ctx, existing)
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	metrics.PhotosUploaded.Inc()
	s.auditSvc.LogEntityCreate(ctx, tenantID, "photos", p.ID, actorFromContext(ctx), p)
	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"photo_id":      p.ID,
		"inspection_id": insp.ID,
		"content_type":  p.ContentType,
		"size_bytes":    p.SizeBytes,
	}).Info("Photo uploaded")

	s.sign(ctx, p)
	return p, true, nil
}

func (s *photoService) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Photo, error) {
	p, err := s.photoRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	s.sign(ctx, p)
	return p, nil
}

func (s *photoService) ListByInspection(ctx context.Context, tenantID, inspectionID uuid.UUID) ([]models.Photo, error) {
	if _, err := s.inspectionRepo.GetByID(ctx, tenantID, inspectionID); err != nil {
		return nil, err
	}
	photos, err := s.photoRepo.ListByInspection(ctx, tenantID, inspectionID)
	if err != nil {
		return nil, err
	}
	return s.SignURLs(ctx, photos), nil
}

func (s *photoService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	p, err := s.photoRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	insp, err := s.inspectionRepo.GetByID(ctx, tenantID, p.InspectionID)
	if err != nil {
		return err
	}
	if insp.Status == models.InspectionCompleted {
		return apperrors.Conflict("photos of a completed inspection cannot be deleted")
	}

	if err := s.photoRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.storage.DeleteObject(ctx, p.ObjectKey); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("object_key", p.ObjectKey).Warn("Failed to delete photo object")
	}
	s.auditSvc.LogEntityDelete(ctx, tenantID, "photos", id, actorFromContext(ctx), p)
	return nil
}

func (s *photoService) SignURLs(ctx context.Context, photos []models.Photo) []models.Photo {
	for i := range photos {
		s.sign(ctx, &photos[i])
	}
	return photos
}

func (s *photoService) sign(ctx context.Context, p *models.Photo) {
	url, err := s.storage.GetPresignedURL(ctx, p.ObjectKey, s.cfg.URLTTL)
	if err != nil {
		logger.FromContext(ctx).WithError(err).WithField("photo_id", p.ID).Warn("Failed to presign photo URL")
		return
	}
	p.URL = url
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/middleware"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/labstack/echo/v4"
)

// multipartOverhead is the form framing allowed on top of the photo size.
const multipartOverhead = 1 << 20

type PhotoHandlers struct {
	photoService services.PhotoService
	maxBytes     int64
}

func NewPhotoHandlers(photoService services.PhotoService, maxBytes int64) *PhotoHandlers {
	if maxBytes <= 0 {
		maxBytes = services.DefaultPhotoMaxBytes
	}
	return &PhotoHandlers{photoService: photoService, maxBytes: maxBytes}
}

func (h *PhotoHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermInspectionsRead)
	write := rbac.RequirePermission(models.PermPhotosWrite)

	g.POST("/inspections/:id/photos", h.Upload, write)
	g.GET("/inspections/:id/photos", h.ListByInspection, read)
	g.GET("/photos/:id", h.Get, read)
	g.DELETE("/photos/:id", h.Delete, write)
}

// Upload stores a photo for an inspection
// @Summary Upload photo
// @Description Re-uploading identical content to the same inspection returns the existing photo with 200.
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Inspection ID"
// @Param file formData file true "Image (jpeg, png, heic or webp)"
// @Param photo_type formData string true "Overview, Tag, Gauge, Damage, Location or Other"
// @Param deficiency_id formData string false "Related deficiency"
// @Param captured_at formData string false "RFC3339 capture time"
// @Param latitude formData number false "Latitude"
// @Param longitude formData number false "Longitude"
// @Success 201 {object} models.Photo
// @Success 200 {object} models.Photo "Duplicate upload"
// @Failure 409 {object} common.ErrorResponse "Inspection is completed"
// @Failure 413 {object} common.ErrorResponse
// @Failure 422 {object} common.ErrorResponse "Unsupported image type"
// @Security BearerAuth
// @Router /v1/inspections/{id}/photos [post]
func (h *PhotoHandlers) Upload(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	inspectionID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxBytes+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.TooLarge(fmt.Sprintf("photo exceeds %d bytes", h.maxBytes))
		}
		return apperrors.Validation("file", "a file is required")
	}

	upload := &models.PhotoUpload{
		InspectionID: inspectionID,
		PhotoType:    strings.TrimSpace(c.FormValue("photo_type")),
		FileName:     fh.Filename,
		Size:         fh.Size,
	}
	if upload.DeficiencyID, err = common.ParseOptionalUUID(c.FormValue("deficiency_id"), "deficiency_id"); err != nil {
		return apperrors.Validation("deficiency_id", err.Error())
	}
	if v := strings.TrimSpace(c.FormValue("captured_at")); v != "" {
		at, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperrors.Validation("captured_at", "must be an RFC3339 timestamp")
		}
		at = at.UTC()
		upload.CapturedAt = &at
	}
	if upload.Latitude, err = formCoordinate(c, "latitude", 90); err != nil {
		return err
	}
	if upload.Longitude, err = formCoordinate(c, "longitude", 180); err != nil {
		return err
	}

	file, err := fh.Open()
	if err != nil {
		return apperrors.Validation("file", "could not read upload")
	}
	defer file.Close()

	photo, created, err := h.photoService.Upload(req.Context(), tenantID, upload, file)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.JSON(status, photo)
}

func formCoordinate(c echo.Context, name string, limit float64) (*float64, error) {
	v := strings.TrimSpace(c.FormValue(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < -limit || f > limit {
		return nil, apperrors.Validation(name, "must be a valid "+name)
	}
	return &f, nil
}

// ListByInspection lists an inspection's photos with presigned URLs
// @Summary List inspection photos
// @Tags photos
// @Produce json
// @Param id path string true "Inspection ID"
// @Success 200 {object} map[string][]models.Photo
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/inspections/{id}/photos [get]
func (h *PhotoHandlers) ListByInspection(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	inspectionID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	photos, err := h.photoService.ListByInspection(c.Request().Context(), tenantID, inspectionID)
	if err != nil {
		return err
	}
	if photos == nil {
		photos = []models.Photo{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": photos})
}

// Get returns one photo with a presigned URL
// @Summary Get photo
// @Tags photos
// @Produce json
// @Param id path string true "Photo ID"
// @Success 200 {object} models.Photo
// @Failure 404 {object} common.ErrorResponse
// @Security BearerAuth
// @Router /v1/photos/{id} [get]
func (h *PhotoHandlers) Get(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	photo, err := h.photoService.Get(c.Request().Context(), tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, photo)
}

// Delete removes a photo from a not yet completed inspection
// @Summary Delete photo
// @Tags photos
// @Param id path string true "Photo ID"
// @Success 204
// @Failure 409 {object} common.ErrorResponse "Inspection is completed"
// @Security BearerAuth
// @Router /v1/photos/{id} [delete]
func (h *PhotoHandlers) Delete(c echo.Context) error {
	tenantID, err := tenantFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.photoService.Delete(c.Request().Context(), tenantID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

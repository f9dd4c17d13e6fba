package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fireproof/internal/apperrors"
	"fireproof/internal/common"
	"fireproof/internal/middleware"
	"fireproof/internal/models"
	"fireproof/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.HTTPErrorHandler
	e.Validator = middleware.NewRequestValidator()
	return e
}

// authenticated stands in for the JWT middleware.
func authenticated(tenantID, userID uuid.UUID) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), common.TenantIDKey, tenantID)
			ctx = context.WithValue(ctx, common.UserIDKey, userID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var body common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLivenessCheck(t *testing.T) {
	e := newEcho()
	h := NewHealthHandlers(nil, "1.2.3")
	e.GET("/health", h.LivenessCheck)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Empty(t, body.Services)
}

func TestReadinessCheck(t *testing.T) {
	healthy := PingFunc(func(ctx context.Context) error { return nil })
	failing := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantState  string
	}{
		{
			name:       "all healthy",
			checks:     map[string]Pinger{"database": healthy, "redis": healthy, "storage": healthy},
			wantStatus: http.StatusOK,
			wantState:  "ready",
		},
		{
			name:       "one dependency down",
			checks:     map[string]Pinger{"database": healthy, "redis": failing},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			h := NewHealthHandlers(tt.checks, "dev")
			e.GET("/health/ready", h.ReadinessCheck)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			var body HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantState, body.Status)
			assert.Len(t, body.Services, len(tt.checks))
			for name := range tt.checks {
				assert.Contains(t, body.Services, name)
			}
		})
	}
}

func TestReadinessCheck_ReportsFailureMessage(t *testing.T) {
	h := NewHealthHandlers(map[string]Pinger{
		"storage": PingFunc(func(ctx context.Context) error { return errors.New("bucket missing") }),
	}, "dev")

	results := h.runChecks(context.Background())

	assert.Equal(t, "unhealthy", results["storage"].Status)
	assert.Equal(t, "bucket missing", results["storage"].Message)
}

type fakeJobRunner struct {
	ran    []string
	status map[string]interface{}
}

func (f *fakeJobRunner) RunNow(name string) error {
	if name != "mark-overdue-inspections" {
		return errors.New("unknown job " + name)
	}
	f.ran = append(f.ran, name)
	return nil
}

func (f *fakeJobRunner) GetJobStatus() map[string]interface{} {
	return f.status
}

func TestAdminHandlers(t *testing.T) {
	runner := &fakeJobRunner{status: map[string]interface{}{"total_jobs": 4}}

	e := newEcho()
	h := NewAdminHandlers(runner)
	e.GET("/admin/jobs", h.JobStatus)
	e.POST("/admin/jobs/:name/run", h.RunJob)

	t.Run("status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/jobs", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"total_jobs":4}`, rec.Body.String())
	})

	t.Run("run known job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/jobs/mark-overdue-inspections/run", nil))
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, []string{"mark-overdue-inspections"}, runner.ran)
	})

	t.Run("run unknown job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/jobs/nope/run", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "job not found", decodeError(t, rec).Error.Message)
	})

	t.Run("scheduler disabled", func(t *testing.T) {
		e := newEcho()
		h := NewAdminHandlers(nil)
		e.GET("/admin/jobs", h.JobStatus)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/jobs", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type mockLocationService struct {
	services.LocationService
	mock.Mock
}

func (m *mockLocationService) Create(ctx context.Context, tenantID uuid.UUID, req *models.LocationRequest) (*models.Location, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *mockLocationService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Location, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *mockLocationService) List(ctx context.Context, tenantID uuid.UUID, filter models.LocationFilter) ([]*models.Location, int, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Location), args.Int(1), args.Error(2)
}

func newLocationEcho(svc services.LocationService, tenantID, userID uuid.UUID) *echo.Echo {
	e := newEcho()
	h := NewLocationHandlers(svc, nil)
	g := e.Group("", authenticated(tenantID, userID))
	g.GET("/locations", h.ListLocations)
	g.POST("/locations", h.CreateLocation)
	g.GET("/locations/:id", h.GetLocation)
	return e
}

func TestLocationHandlers_Create(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()

	t.Run("created", func(t *testing.T) {
		svc := new(mockLocationService)
		created := &models.Location{ID: uuid.New(), TenantID: tenantID, Code: "HQ", Name: "Head Office"}
		svc.On("Create", mock.Anything, tenantID, mock.MatchedBy(func(r *models.LocationRequest) bool {
			return r.Code == "HQ" && r.Name == "Head Office"
		})).Return(created, nil)

		e := newLocationEcho(svc, tenantID, userID)
		req := httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(`{"code":"HQ","name":"Head Office"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var body models.Location
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, created.ID, body.ID)
		svc.AssertExpectations(t)
	})

	t.Run("validation errors are keyed by json field", func(t *testing.T) {
		svc := new(mockLocationService)
		e := newLocationEcho(svc, tenantID, userID)

		req := httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(`{"code":"HQ","contact_email":"nope"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, string(apperrors.KindValidation), body.Error.Code)
		assert.Equal(t, "is required", body.Error.Details["name"])
		assert.Equal(t, "must be a valid email address", body.Error.Details["contact_email"])
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		e := newLocationEcho(new(mockLocationService), tenantID, userID)

		req := httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(`{"code":`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request format", decodeError(t, rec).Error.Message)
	})

	t.Run("duplicate code", func(t *testing.T) {
		svc := new(mockLocationService)
		svc.On("Create", mock.Anything, tenantID, mock.Anything).Return(nil, apperrors.Conflict("location code already exists"))

		e := newLocationEcho(svc, tenantID, userID)
		req := httptest.NewRequest(http.MethodPost, "/locations", strings.NewReader(`{"code":"HQ","name":"Head Office"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestLocationHandlers_Get(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()

	t.Run("bad id", func(t *testing.T) {
		e := newLocationEcho(new(mockLocationService), tenantID, userID)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/locations/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Error.Details, "id")
	})

	t.Run("other tenant's location is not found", func(t *testing.T) {
		id := uuid.New()
		svc := new(mockLocationService)
		svc.On("GetByID", mock.Anything, tenantID, id).Return(nil, apperrors.NotFound("location"))

		e := newLocationEcho(svc, tenantID, userID)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/locations/"+id.String(), nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		svc.AssertExpectations(t)
	})
}

func TestLocationHandlers_List(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()

	t.Run("filters and pagination", func(t *testing.T) {
		active := true
		svc := new(mockLocationService)
		svc.On("List", mock.Anything, tenantID, models.LocationFilter{
			Search:   "hq",
			IsActive: &active,
			Limit:    10,
			Offset:   20,
		}).Return([]*models.Location{{ID: uuid.New(), Code: "HQ"}}, 21, nil)

		e := newLocationEcho(svc, tenantID, userID)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/locations?search=hq&is_active=true&limit=10&offset=20", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body common.ListResponse[models.Location]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Data, 1)
		assert.Equal(t, 21, body.Total)
		assert.Equal(t, 10, body.Limit)
		assert.Equal(t, 20, body.Offset)
		svc.AssertExpectations(t)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		svc := new(mockLocationService)
		svc.On("List", mock.Anything, tenantID, mock.Anything).Return(nil, 0, nil)

		e := newLocationEcho(svc, tenantID, userID)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/locations", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":[],"limit":50,"offset":0,"total":0}`, rec.Body.String())
	})

	t.Run("bad is_active", func(t *testing.T) {
		e := newLocationEcho(new(mockLocationService), tenantID, userID)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/locations?is_active=maybe", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		e := newEcho()
		h := NewLocationHandlers(new(mockLocationService), nil)
		e.GET("/locations", h.ListLocations)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/locations", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

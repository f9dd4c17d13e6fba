package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fireproof/internal/apperrors"
	"fireproof/internal/caching"
	"fireproof/internal/common"
	"fireproof/internal/models"
	"fireproof/internal/repositories"
	"fireproof/internal/services"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identity struct {
	tenantID uuid.UUID
	userID   uuid.UUID
	admin    bool
}

// withIdentity stands in for JWTMiddleware in tests.
func withIdentity(id *identity) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id == nil {
				return next(c)
			}
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, common.TenantIDKey, id.tenantID)
			ctx = context.WithValue(ctx, common.UserIDKey, id.userID)
			ctx = context.WithValue(ctx, common.SystemAdminKey, id.admin)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	return e
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var body common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func do(e *echo.Echo, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newIdempotentEcho(t *testing.T) (*echo.Echo, *miniredis.Miniredis, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	e := newEcho()
	g := e.Group("", withIdentity(&identity{tenantID: uuid.New(), userID: uuid.New()}), Idempotency(caching.NewIdempotencyStore(client)))
	g.POST("/locations", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, map[string]int{"call": calls})
	})
	g.POST("/other", func(c echo.Context) error {
		calls++
		return c.NoContent(http.StatusNoContent)
	})
	g.POST("/boom", func(c echo.Context) error {
		calls++
		return errors.New("database exploded")
	})
	g.POST("/invalid", func(c echo.Context) error {
		calls++
		return apperrors.Validation("code", "code is required")
	})
	g.GET("/locations", func(c echo.Context) error {
		calls++
		return c.NoContent(http.StatusOK)
	})
	return e, mr, &calls
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	e, _, calls := newIdempotentEcho(t)

	first := do(e, http.MethodPost, "/locations", "key-1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := do(e, http.MethodPost, "/locations", "key-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(IdempotentReplayHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, *calls)

	third := do(e, http.MethodPost, "/locations", "key-2")
	assert.Equal(t, http.StatusCreated, third.Code)
	assert.Equal(t, 2, *calls)
}

func TestIdempotency_InFlightRequestConflicts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	entered, release := make(chan struct{}), make(chan struct{})
	e := newEcho()
	g := e.Group("", withIdentity(&identity{tenantID: uuid.New(), userID: uuid.New()}), Idempotency(caching.NewIdempotencyStore(client)))
	g.POST("/inspections/:id/complete", func(c echo.Context) error {
		close(entered)
		<-release
		return c.JSON(http.StatusOK, map[string]string{"status": models.InspectionCompleted})
	})

	path := "/inspections/" + uuid.NewString() + "/complete"
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- do(e, http.MethodPost, path, "key-1") }()
	<-entered

	rec := do(e, http.MethodPost, path, "key-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "a request with this Idempotency-Key is still in progress", decodeError(t, rec).Error.Message)

	close(release)
	first := <-done
	require.Equal(t, http.StatusOK, first.Code)

	replay := do(e, http.MethodPost, path, "key-1")
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(IdempotentReplayHeader))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())
}

func TestIdempotency_KeyReusedForOtherRequest(t *testing.T) {
	e, _, _ := newIdempotentEcho(t)

	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/locations", "key-1").Code)
	rec := do(e, http.MethodPost, "/other", "key-1")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(apperrors.KindUnprocessable), decodeError(t, rec).Error.Code)
}

func TestIdempotency_ClientErrorsAreReplayed(t *testing.T) {
	e, _, calls := newIdempotentEcho(t)

	first := do(e, http.MethodPost, "/invalid", "key-1")
	require.Equal(t, http.StatusBadRequest, first.Code)
	second := do(e, http.MethodPost, "/invalid", "key-1")
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, 1, *calls)
}

func TestIdempotency_ServerErrorsReleaseKey(t *testing.T) {
	e, _, calls := newIdempotentEcho(t)

	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodPost, "/boom", "key-1").Code)
	assert.Equal(t, http.StatusInternalServerError, do(e, http.MethodPost, "/boom", "key-1").Code)
	assert.Equal(t, 2, *calls)
}

func TestIdempotency_IgnoresSafeMethodsAndMissingKey(t *testing.T) {
	e, _, calls := newIdempotentEcho(t)

	do(e, http.MethodGet, "/locations", "key-1")
	do(e, http.MethodGet, "/locations", "key-1")
	do(e, http.MethodPost, "/locations", "")
	do(e, http.MethodPost, "/locations", "")
	assert.Equal(t, 4, *calls)
}

func TestIdempotency_RejectsLongKey(t *testing.T) {
	e, _, calls := newIdempotentEcho(t)

	rec := do(e, http.MethodPost, "/locations", strings.Repeat("k", MaxIdempotencyKeyLength+1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error.Details, IdempotencyKeyHeader)
	assert.Equal(t, 0, *calls)
}

func TestIdempotency_StoreDownPassesThrough(t *testing.T) {
	e, mr, calls := newIdempotentEcho(t)
	mr.Close()

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/locations", "key-1").Code)
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/locations", "key-1").Code)
	assert.Equal(t, 2, *calls)
}

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", apperrors.Validation("email", "is required"), http.StatusBadRequest, string(apperrors.KindValidation), "Validation failed"},
		{"not found", apperrors.NotFound("extinguisher"), http.StatusNotFound, string(apperrors.KindNotFound), ""},
		{"internal hides cause", apperrors.Internal("pq: connection refused", errors.New("boom")), http.StatusInternalServerError, string(apperrors.KindInternal), "Internal server error"},
		{"plain error", errors.New("oops"), http.StatusInternalServerError, string(apperrors.KindInternal), "Internal server error"},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, string(apperrors.KindNotFound), "Not Found"},
		{"echo bad request", echo.NewHTTPError(http.StatusBadRequest, "bad json"), http.StatusBadRequest, string(apperrors.KindValidation), "bad json"},
		{"echo wrapping app error", echo.NewHTTPError(http.StatusUnauthorized).SetInternal(apperrors.Forbidden("nope")), http.StatusForbidden, string(apperrors.KindForbidden), "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			HTTPErrorHandler(tt.err, c)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Error.Message)
			}
		})
	}
}

type fakeRBAC struct {
	services.RBACService
	granted map[string]bool
	err     error
	calls   int
}

func (f *fakeRBAC) UserHasPermission(ctx context.Context, userID, tenantID uuid.UUID, permission string) (bool, error) {
	f.calls++
	return f.granted[permission], f.err
}

func TestRequirePermission(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	tests := []struct {
		name   string
		id     *identity
		rbac   *fakeRBAC
		status int
		calls  int
	}{
		{"anonymous", nil, &fakeRBAC{}, http.StatusUnauthorized, 0},
		{"granted", &identity{tenantID: tenantID, userID: userID}, &fakeRBAC{granted: map[string]bool{models.PermLocationsRead: true}}, http.StatusOK, 1},
		{"denied", &identity{tenantID: tenantID, userID: userID}, &fakeRBAC{granted: map[string]bool{}}, http.StatusForbidden, 1},
		{"lookup failure", &identity{tenantID: tenantID, userID: userID}, &fakeRBAC{err: errors.New("db down")}, http.StatusInternalServerError, 1},
		{"system admin bypass", &identity{tenantID: tenantID, userID: userID, admin: true}, &fakeRBAC{}, http.StatusOK, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			m := NewRBACMiddleware(tt.rbac)
			e.GET("/locations", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}, withIdentity(tt.id), m.RequirePermission(models.PermLocationsRead))

			rec := do(e, http.MethodGet, "/locations", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.calls, tt.rbac.calls)
		})
	}
}

func TestRequireSystemAdmin(t *testing.T) {
	for name, tc := range map[string]struct {
		id     *identity
		status int
	}{
		"anonymous": {nil, http.StatusUnauthorized},
		"tenant user": {&identity{tenantID: uuid.New(), userID: uuid.New()}, http.StatusForbidden},
		"admin":       {&identity{tenantID: uuid.New(), userID: uuid.New(), admin: true}, http.StatusOK},
	} {
		t.Run(name, func(t *testing.T) {
			e := newEcho()
			m := NewRBACMiddleware(&fakeRBAC{})
			e.GET("/admin/jobs", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}, withIdentity(tc.id), m.RequireSystemAdmin())

			assert.Equal(t, tc.status, do(e, http.MethodGet, "/admin/jobs", "").Code)
		})
	}
}

type fakeAuth struct {
	services.AuthService
	token   string
	claims  *services.TokenClaims
	revoked map[string]bool
}

func (f *fakeAuth) CheckRevoked(ctx context.Context, tokenID string) error {
	if f.revoked[tokenID] {
		return apperrors.Unauthorized("token has been revoked")
	}
	return nil
}

func (f *fakeAuth) ValidateToken(ctx context.Context, token string) (*services.TokenClaims, error) {
	if token != f.token {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}
	return f.claims, nil
}

type fakeUsers struct {
	repositories.UserRepository
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok && u.TenantID == tenantID {
		return u, nil
	}
	return nil, apperrors.NotFound("user")
}

func (f *fakeUsers) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	for _, u := range f.users {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user")
}

type fakeTenants struct {
	repositories.TenantRepository
	tenants map[uuid.UUID]*models.Tenant
}

func (f *fakeTenants) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if t, ok := f.tenants[id]; ok {
		return t, nil
	}
	return nil, apperrors.NotFound("tenant")
}

// hs256Token builds a well formed HS256 token. Validation itself is faked.
func hs256Token(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func TestJWTMiddleware(t *testing.T) {
	userID, homeTenant, otherTenant, inactiveTenant := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	exp := time.Now().Add(time.Hour)
	claims := func(admin bool) *services.TokenClaims {
		return &services.TokenClaims{
			UserID:      userID.String(),
			TenantID:    homeTenant.String(),
			Roles:       []string{models.RoleInspector},
			SystemAdmin: admin,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "jti-1",
				ExpiresAt: jwt.NewNumericDate(exp),
			},
		}
	}
	tenants := &fakeTenants{tenants: map[uuid.UUID]*models.Tenant{
		otherTenant:    {ID: otherTenant, IsActive: true},
		inactiveTenant: {ID: inactiveTenant, IsActive: false},
	}}

	valid := hs256Token(t)
	run := func(admin bool, token, override string) (*httptest.ResponseRecorder, uuid.UUID) {
		e := newEcho()
		var seen uuid.UUID
		e.GET("/me", func(c echo.Context) error {
			seen, _ = common.GetTenantIDFromContext(c.Request().Context())
			identity, ok := IdentityFromContext(c)
			require.True(t, ok)
			assert.Equal(t, "jti-1", identity.TokenID)
			return c.NoContent(http.StatusOK)
		}, JWTMiddleware(JWTConfig{AuthService: &fakeAuth{token: valid, claims: claims(admin)}, TenantRepo: tenants}))

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if token != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		if override != "" {
			req.Header.Set(TenantOverrideHeader, override)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec, seen
	}

	t.Run("missing token", func(t *testing.T) {
		rec, _ := run(false, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "missing bearer token", decodeError(t, rec).Error.Message)
	})
	t.Run("malformed token", func(t *testing.T) {
		rec, _ := run(false, "not-a-jwt", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "malformed token", decodeError(t, rec).Error.Message)
	})
	t.Run("rejected token", func(t *testing.T) {
		rec, _ := run(false, hs256Token(t)+"x", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("valid token", func(t *testing.T) {
		rec, seen := run(false, valid, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, homeTenant, seen)
	})
	t.Run("override by tenant user", func(t *testing.T) {
		rec, _ := run(false, valid, otherTenant.String())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
	t.Run("override by system admin", func(t *testing.T) {
		rec, seen := run(true, valid, otherTenant.String())
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, otherTenant, seen)
	})
	t.Run("override to inactive tenant", func(t *testing.T) {
		rec, _ := run(true, valid, inactiveTenant.String())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("override with bad uuid", func(t *testing.T) {
		rec, _ := run(true, valid, "tenant-42")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestJWTMiddleware_ExternalTokens(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	jwks := keyfunc.NewGiven(map[string]keyfunc.GivenKey{
		"idp-1": keyfunc.NewGivenRSA(&key.PublicKey, keyfunc.GivenKeyOptions{Algorithm: jwt.SigningMethodRS256.Alg()}),
	})

	tenantID := uuid.New()
	oid := "idp-subject-7"
	active := &models.User{ID: uuid.New(), TenantID: tenantID, IsActive: true, ExternalID: &oid}
	inactive := &models.User{ID: uuid.New(), TenantID: tenantID, IsActive: false}
	users := &fakeUsers{users: map[uuid.UUID]*models.User{active.ID: active, inactive.ID: inactive}}

	sign := func(claims jwt.MapClaims) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = "idp-1"
		raw, err := tok.SignedString(key)
		require.NoError(t, err)
		return raw
	}
	exp := time.Now().Add(time.Hour).Unix()

	run := func(token string) (*httptest.ResponseRecorder, *Identity) {
		e := newEcho()
		var seen *Identity
		e.GET("/me", func(c echo.Context) error {
			seen, _ = IdentityFromContext(c)
			return c.NoContent(http.StatusOK)
		}, JWTMiddleware(JWTConfig{
			AuthService: &fakeAuth{revoked: map[string]bool{"jti-revoked": true}},
			UserRepo:    users,
			TenantRepo:  &fakeTenants{},
			JWKS:        jwks,
		}))

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec, seen
	}

	t.Run("user and tenant claims", func(t *testing.T) {
		rec, seen := run(sign(jwt.MapClaims{"user_id": active.ID.String(), "tenant_id": tenantID.String(), "jti": "jti-ok", "exp": exp}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, active.ID, seen.UserID)
		assert.Equal(t, "jti-ok", seen.TokenID)
	})
	t.Run("oid claim", func(t *testing.T) {
		rec, seen := run(sign(jwt.MapClaims{"oid": oid, "jti": "jti-oid", "exp": exp}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, tenantID, seen.TenantID)
	})
	t.Run("revoked token", func(t *testing.T) {
		rec, _ := run(sign(jwt.MapClaims{"user_id": active.ID.String(), "tenant_id": tenantID.String(), "jti": "jti-revoked", "exp": exp}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "token has been revoked", decodeError(t, rec).Error.Message)
	})
	t.Run("inactive user", func(t *testing.T) {
		rec, _ := run(sign(jwt.MapClaims{"user_id": inactive.ID.String(), "tenant_id": tenantID.String(), "exp": exp}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("missing expiry", func(t *testing.T) {
		rec, _ := run(sign(jwt.MapClaims{"user_id": active.ID.String(), "tenant_id": tenantID.String()}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("foreign signing key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"user_id": active.ID.String(), "tenant_id": tenantID.String(), "exp": exp})
		tok.Header["kid"] = "idp-1"
		raw, err := tok.SignedString(other)
		require.NoError(t, err)
		rec, _ := run(raw)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestVersionRoute_SetsHeaderAndListsVersions(t *testing.T) {
	e := echo.New()
	vm := NewVersionMiddleware()
	v1 := vm.VersionRoute(e, vm.GetCurrentVersion())
	v1.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("api_version").(string))
	})
	e.GET("/versions", vm.ListVersions)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))
	assert.Equal(t, "v1", rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/versions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Current  string       `json:"current"`
		Versions []APIVersion `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "v1", body.Current)
	require.Len(t, body.Versions, 1)
	assert.Equal(t, VersionActive, body.Versions[0].Status)
}

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/i18n"
	"github.com/saikilaru/TAMcust/pkg/middleware"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/redis"
	"github.com/saikilaru/TAMcust/pkg/security"
)

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	catalog, err := i18n.Load(i18n.DefaultLocale)
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(silentLogger(), catalog)
	e.Use(middleware.Context(catalog))
	return e
}

func serve(e *echo.Echo, req *http.Request) (*httptest.ResponseRecorder, middleware.ErrorResponse) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body middleware.ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestContext(t *testing.T) {
	e := newServer(t)
	var locale, requestID string
	e.GET("/ping", func(c echo.Context) error {
		locale = appctx.GetLocale(c.Request().Context())
		requestID = appctx.GetRequestID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{"default", "/ping", "", "en"},
		{"accept language", "/ping", "pt-BR,pt;q=0.9", "pt-BR"},
		{"query wins", "/ping?locale=es", "pt-BR", "es"},
		{"unsupported", "/ping", "ja", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set(middleware.HeaderAcceptLanguage, tt.header)
			}
			rec, _ := serve(e, req)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.want, locale)
			assert.NotEmpty(t, requestID)
			assert.Equal(t, requestID, rec.Header().Get(echo.HeaderXRequestID))
		})
	}

	t.Run("keeps the caller request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(echo.HeaderXRequestID, "req-1")
		serve(e, req)
		assert.Equal(t, "req-1", requestID)
	})
}

func TestError(t *testing.T) {
	e := newServer(t)
	e.GET("/validation", func(c echo.Context) error {
		return apperrors.NewValidationError(apperrors.KeyRequired, "email").WithField("email")
	})
	e.GET("/missing", func(c echo.Context) error {
		return apperrors.NewNotFoundError("visitor", "42")
	})
	e.GET("/credentials", func(c echo.Context) error {
		return apperrors.NewInvalidCredentialsError()
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("pq: connection refused")
	})

	t.Run("validation", func(t *testing.T) {
		rec, body := serve(e, httptest.NewRequest(http.MethodGet, "/validation", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "email is required", body.Message)
		assert.Equal(t, "email", body.Meta["field"])
		assert.NotEmpty(t, body.RequestID)
	})

	t.Run("not found", func(t *testing.T) {
		rec, body := serve(e, httptest.NewRequest(http.MethodGet, "/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "visitor", body.Meta["entity"])
	})

	t.Run("invalid credentials are localized", func(t *testing.T) {
		rec, body := serve(e, httptest.NewRequest(http.MethodGet, "/credentials?locale=es", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Lo sentimos, no reconocemos sus credenciales", body.Message)
	})

	t.Run("unclassified errors do not leak", func(t *testing.T) {
		rec, body := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Ops, an error occurred", body.Message)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})

	t.Run("unknown route", func(t *testing.T) {
		rec, _ := serve(e, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type fakeAuthenticator struct {
	users map[string]*models.User
}

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	if user, ok := f.users[token]; ok {
		return user, nil
	}
	return nil, apperrors.NewUnauthorizedError(apperrors.KeyInvalidToken)
}

func (f fakeAuthenticator) ActiveUserByEmail(context.Context, string) (*models.User, error) {
	return nil, apperrors.NewUnauthorizedError(apperrors.KeyInvalidToken)
}

type fakeMemberships map[uuid.UUID]*models.TenantUser

func (f fakeMemberships) Membership(_ context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error) {
	m, ok := f[userID]
	if !ok || m.TenantID != tenantID {
		return nil, nil
	}
	return m, nil
}

func TestAuthenticationAndTenant(t *testing.T) {
	tenantID := uuid.New()
	admin := &models.User{ID: uuid.New(), Email: "admin@example.com"}
	reader := &models.User{ID: uuid.New(), Email: "reader@example.com"}
	invited := &models.User{ID: uuid.New(), Email: "invited@example.com"}

	auth := fakeAuthenticator{users: map[string]*models.User{"admin": admin, "reader": reader, "invited": invited}}
	memberships := fakeMemberships{
		admin.ID:   {TenantID: tenantID, UserID: admin.ID, Roles: []string{security.RoleAdmin}, Status: models.MembershipActive},
		reader.ID:  {TenantID: tenantID, UserID: reader.ID, Roles: []string{security.RoleReadonly}, Status: models.MembershipActive},
		invited.ID: {TenantID: tenantID, UserID: invited.ID, Roles: []string{security.RoleAdmin}, Status: models.MembershipInvited},
	}

	e := newServer(t)
	api := e.Group("/api", middleware.Authentication(auth, nil, silentLogger()))
	api.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, middleware.CurrentUser(c).Email)
	})
	tenant := api.Group("/tenant/:tenantId", middleware.Tenant(memberships, silentLogger()))
	tenant.GET("/visitor", func(c echo.Context) error {
		return c.String(http.StatusOK, appctx.GetTenantID(c.Request().Context()))
	}, middleware.Permission(security.PermissionsFor("visitor").Read))
	tenant.DELETE("/visitor", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, middleware.Permission(security.PermissionsFor("visitor").Destroy))

	request := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		rec, _ := serve(e, req)
		return rec
	}

	visitors := "/api/tenant/" + tenantID.String() + "/visitor"

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"missing token", http.MethodGet, "/api/me", "", http.StatusUnauthorized},
		{"invalid token", http.MethodGet, "/api/me", "forged", http.StatusUnauthorized},
		{"valid token", http.MethodGet, "/api/me", "admin", http.StatusOK},
		{"member reads", http.MethodGet, visitors, "reader", http.StatusOK},
		{"readonly cannot delete", http.MethodDelete, visitors, "reader", http.StatusForbidden},
		{"admin deletes", http.MethodDelete, visitors, "admin", http.StatusNoContent},
		{"invited member is not active", http.MethodGet, visitors, "invited", http.StatusForbidden},
		{"other tenant", http.MethodGet, "/api/tenant/" + uuid.NewString() + "/visitor", "admin", http.StatusForbidden},
		{"malformed tenant id", http.MethodGet, "/api/tenant/abc/visitor", "admin", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(tt.method, tt.path, tt.token)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	t.Run("tenant id is stored on the context", func(t *testing.T) {
		rec := request(http.MethodGet, visitors, "admin")
		assert.Equal(t, tenantID.String(), rec.Body.String())
	})
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int64, time.Duration) (*redis.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func TestSignInRateLimit(t *testing.T) {
	signIn := func(e *echo.Echo, email string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", strings.NewReader(`{"email":"`+email+`","password":"x"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec, _ := serve(e, req)
		return rec
	}
	handler := func(c echo.Context) error {
		var body models.SignInRequest
		if err := c.Bind(&body); err != nil {
			return err
		}
		return c.String(http.StatusOK, body.Email)
	}

	t.Run("blocks after the limit", func(t *testing.T) {
		server := miniredis.RunT(t)
		rdb := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		limiter := redis.NewRateLimiter(redis.NewFromRedis(rdb, silentLogger()), "test:")

		e := newServer(t)
		e.POST("/api/auth/sign-in", handler, middleware.SignInRateLimit(limiter, middleware.RateLimitConfig{Limit: 2, Window: time.Minute}, silentLogger()))

		first := signIn(e, "ana@example.com")
		require.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "ana@example.com", first.Body.String(), "body is restored for the handler")
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

		assert.Equal(t, http.StatusOK, signIn(e, "ANA@example.com").Code)

		blocked := signIn(e, "ana@example.com")
		assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
		assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

		assert.Equal(t, http.StatusOK, signIn(e, "other@example.com").Code)
	})

	t.Run("fails open", func(t *testing.T) {
		e := newServer(t)
		e.POST("/api/auth/sign-in", handler, middleware.SignInRateLimit(failingLimiter{}, middleware.RateLimitConfig{Limit: 1, Window: time.Minute}, silentLogger()))

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, signIn(e, "ana@example.com").Code)
		}
	})
}

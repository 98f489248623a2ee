package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikilaru/TAMcust/internal/handlers"
	"github.com/saikilaru/TAMcust/internal/services/host"
	"github.com/saikilaru/TAMcust/internal/services/servicetest"
	appctx "github.com/saikilaru/TAMcust/pkg/context"
	"github.com/saikilaru/TAMcust/pkg/middleware"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/security"
)

// asMember stands in for authentication and membership resolution.
func asMember(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := appctx.SetTenantID(c.Request().Context(), servicetest.TenantID.String())
			ctx = appctx.SetRoles(ctx, []string{role})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

type hostAPI struct {
	e    *echo.Echo
	repo *servicetest.Memory[models.Host, models.HostInput]
}

func newHostAPI(t *testing.T, role string) *hostAPI {
	t.Helper()
	catalog := servicetest.Catalog(t)
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	repo := servicetest.NewHostMemory()
	service := host.NewService(repo, servicetest.NewTxManager(repo), catalog, &servicetest.Dispatcher{}, logger)

	e := echo.New()
	e.JSONSerializer = handlers.JSONSerializer{}
	e.HTTPErrorHandler = middleware.Error(logger, catalog)
	e.Use(middleware.Context(catalog))

	g := e.Group("/api/tenant/:tenantId", asMember(role))
	handlers.NewEntityHandler[models.Host, models.HostInput](service, catalog, logger).Register(g)

	return &hostAPI{e: e, repo: repo}
}

func (a *hostAPI) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/api/tenant/"+servicetest.TenantID.String()+path, nil)
	} else {
		req = httptest.NewRequest(method, "/api/tenant/"+servicetest.TenantID.String()+path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestEntityHandler(t *testing.T) {
	api := newHostAPI(t, security.RoleAdmin)

	rec := api.do(http.MethodPost, "/host", `{"data":{"first_name":"Grace","last_name":"Hopper","email":"grace@example.com"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	grace := decode[models.Host](t, rec)
	assert.Equal(t, "grace@example.com", grace.Email)

	t.Run("find by id", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/host/"+grace.ID.String(), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, grace.ID, decode[models.Host](t, rec).ID)

		missing := api.do(http.MethodGet, "/host/00000000-0000-0000-0000-000000000001", "")
		assert.Equal(t, http.StatusNotFound, missing.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/host", `{"data":{"first_name":"Other","last_name":"Host","email":"GRACE@example.com"}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[middleware.ErrorResponse](t, rec)
		assert.Equal(t, "A host with this email already exists", body.Message)
		assert.Equal(t, "email", body.Meta["field"])
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/host", `{"data":{"first_name":"Ada"}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "last_name is required", decode[middleware.ErrorResponse](t, rec).Message)

		rec = api.do(http.MethodPost, "/host", `{"data":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := api.do(http.MethodPut, "/host/"+grace.ID.String(), `{"data":{"first_name":"Grace B.","last_name":"Hopper","email":"grace@example.com"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Grace B.", decode[models.Host](t, rec).FirstName)

		rec = api.do(http.MethodPut, "/host/not-a-uuid", `{"data":{"first_name":"X","last_name":"Y","email":"x@example.com"}}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("import", func(t *testing.T) {
		payload := `{"data":{"first_name":"Alan","last_name":"Turing","email":"alan@example.com"}`
		rec := api.do(http.MethodPost, "/host/import", payload+`}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Import hash is required", decode[middleware.ErrorResponse](t, rec).Message)

		for _, body := range []string{`{"data":{}}`, `{"data":{"first_name":"Alan"},"importHash":"  "}`} {
			rec = api.do(http.MethodPost, "/host/import", body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Import hash is required", decode[middleware.ErrorResponse](t, rec).Message, body)
		}

		rec = api.do(http.MethodPost, "/host/import", `{"data":{"first_name":"Alan"},"importHash":"H1"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "last_name is required", decode[middleware.ErrorResponse](t, rec).Message)

		rec = api.do(http.MethodPost, "/host/import", payload+`,"importHash":"H1"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = api.do(http.MethodPost, "/host/import", `{"data":{"first_name":"Other","last_name":"Row","email":"other@example.com"},"importHash":"H1"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Data already imported", decode[middleware.ErrorResponse](t, rec).Message)
	})

	t.Run("list and autocomplete", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/host?limit=1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[models.Page[models.Host]](t, rec)
		assert.Equal(t, 2, page.Count)
		assert.Len(t, page.Rows, 1)

		rec = api.do(http.MethodGet, "/host/autocomplete?query=alan", "")
		require.Equal(t, http.StatusOK, rec.Code)
		options := decode[[]models.AutocompleteOption](t, rec)
		require.Len(t, options, 1)
		assert.Equal(t, "Alan Turing", options[0].Label)
	})

	t.Run("destroy all", func(t *testing.T) {
		rec := api.do(http.MethodDelete, "/host?ids=not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(http.MethodDelete, "/host?ids="+grace.ID.String()+",00000000-0000-0000-0000-000000000001", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, 2, api.repo.Len(), "nothing is deleted when one id is unknown")

		rec = api.do(http.MethodDelete, "/host?ids[]="+grace.ID.String(), "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 1, api.repo.Len())
	})
}

func TestEntityHandlerPermissions(t *testing.T) {
	api := newHostAPI(t, security.RoleReadonly)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/host", "").Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/host", `{"data":{"first_name":"A","last_name":"B","email":"a@example.com"}}`).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/host?ids=", "").Code)
}

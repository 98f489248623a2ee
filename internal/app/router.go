package app

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/saikilaru/TAMcust/internal/handlers"
	"github.com/saikilaru/TAMcust/pkg/health"
	"github.com/saikilaru/TAMcust/pkg/i18n"
	"github.com/saikilaru/TAMcust/pkg/middleware"
	"github.com/saikilaru/TAMcust/pkg/models"
)

type RouterConfig struct {
	ServiceName  string
	AllowOrigins []string
	AllowMethods []string
	SignIn       middleware.RateLimitConfig
	// Limiter is optional. Sign-in is not limited without one.
	Limiter middleware.Limiter
	// Verifier is optional. Only locally issued tokens are accepted without one.
	Verifier middleware.IDTokenVerifier
}

// NewRouter mounts every API route on a new echo instance.
func NewRouter(cfg RouterConfig, svc *Services, catalog *i18n.Catalog, checker *health.Checker, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = handlers.JSONSerializer{}
	e.HTTPErrorHandler = middleware.Error(logger, catalog)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(middleware.Context(catalog))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	authn := middleware.Authentication(svc.Auth, cfg.Verifier, logger)

	authHandler := handlers.NewAuthHandler(svc.Auth, logger)
	authHandler.RegisterPublic(api.Group("/auth"), middleware.SignInRateLimit(cfg.Limiter, cfg.SignIn, logger))
	authHandler.Register(api.Group("/auth", authn))

	planHandler := handlers.NewPlanHandler(svc.Plan, logger)
	planHandler.Register(api.Group("/plan", authn))

	tenantHandler := handlers.NewTenantHandler(svc.Tenant, catalog, logger)
	tenants := api.Group("/tenant", authn)
	tenantHandler.Register(tenants)

	scoped := tenants.Group("/:"+middleware.ParamTenantID, middleware.Tenant(svc.Tenant, logger))
	tenantHandler.RegisterScoped(scoped)
	planHandler.RegisterScoped(scoped)

	visitors := handlers.NewEntityHandler[models.Visitor, models.VisitorInput](svc.Visitor, catalog, logger)
	handlers.NewVisitorHandler(visitors, svc.Visitor).Register(scoped)
	handlers.NewEntityHandler[models.Host, models.HostInput](svc.Host, catalog, logger).Register(scoped)
	handlers.NewEntityHandler[models.Meeting, models.MeetingInput](svc.Meeting, catalog, logger).Register(scoped)
	handlers.NewEntityHandler[models.Questionnaire, models.QuestionnaireInput](svc.Questionnaire, catalog, logger).Register(scoped)

	return e
}

package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/saikilaru/TAMcust/pkg/middleware"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/security"
	"github.com/saikilaru/TAMcust/pkg/tracing"
	"github.com/saikilaru/TAMcust/pkg/utils"
)

type PlanService interface {
	List() []models.Plan
	Change(ctx context.Context, tenantID uuid.UUID, plan models.PlanKey) (*models.Tenant, error)
}

type PlanHandler struct {
	service PlanService
	logger  ectologger.Logger
}

func NewPlanHandler(service PlanService, logger ectologger.Logger) *PlanHandler {
	return &PlanHandler{service: service, logger: logger}
}

func (h *PlanHandler) Register(g *echo.Group) {
	g.GET("", h.List)
}

// RegisterScoped mounts PUT /plan on a tenant group.
func (h *PlanHandler) RegisterScoped(g *echo.Group) {
	g.PUT("/plan", h.Change, middleware.Permission(security.PlanEdit))
}

func (h *PlanHandler) List(c echo.Context) error {
	return SuccessResponse(c, h.service.List())
}

func (h *PlanHandler) Change(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "PlanHandler.Change")
	defer span.End()

	id, err := ParseUUID(c, middleware.ParamTenantID, "tenant")
	if err != nil {
		return err
	}
	req, err := utils.BindRequest[models.ChangePlanRequest](c)
	if err != nil {
		return err
	}

	tenant, err := h.service.Change(ctx, id, req.Plan)
	if err != nil {
		return err
	}
	return SuccessResponse(c, tenant)
}

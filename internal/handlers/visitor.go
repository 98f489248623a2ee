package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/saikilaru/TAMcust/pkg/middleware"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/security"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

type VisitorService interface {
	EntityService[models.Visitor, models.VisitorInput]
	CheckIn(ctx context.Context, id uuid.UUID) (*models.Visitor, error)
	CheckOut(ctx context.Context, id uuid.UUID) (*models.Visitor, error)
}

// VisitorHandler adds the front desk check-in and check-out routes to the visitor CRUD routes.
type VisitorHandler struct {
	*EntityHandler[models.Visitor, models.VisitorInput]
	visitors VisitorService
}

func NewVisitorHandler(crud *EntityHandler[models.Visitor, models.VisitorInput], visitors VisitorService) *VisitorHandler {
	return &VisitorHandler{EntityHandler: crud, visitors: visitors}
}

func (h *VisitorHandler) Register(g *echo.Group) *echo.Group {
	vg := h.EntityHandler.Register(g)
	edit := middleware.Permission(security.PermissionsFor("visitor").Edit)
	vg.POST("/:id/check-in", h.CheckIn, edit)
	vg.POST("/:id/check-out", h.CheckOut, edit)
	return vg
}

func (h *VisitorHandler) CheckIn(c echo.Context) error {
	return h.transition(c, "CheckIn", h.visitors.CheckIn)
}

func (h *VisitorHandler) CheckOut(c echo.Context) error {
	return h.transition(c, "CheckOut", h.visitors.CheckOut)
}

func (h *VisitorHandler) transition(c echo.Context, op string, fn func(context.Context, uuid.UUID) (*models.Visitor, error)) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "VisitorHandler."+op)
	defer span.End()

	id, err := ParseUUID(c, "id", "visitor")
	if err != nil {
		return err
	}

	visitor, err := fn(ctx, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, visitor)
}

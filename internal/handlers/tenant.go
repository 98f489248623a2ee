package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/saikilaru/TAMcust/internal/services/entity"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/middleware"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/security"
	"github.com/saikilaru/TAMcust/pkg/tracing"
	"github.com/saikilaru/TAMcust/pkg/utils"
)

type TenantService interface {
	Create(ctx context.Context, in models.TenantInput) (*models.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, in models.TenantInput) (*models.Tenant, error)
	DestroyAll(ctx context.Context, ids []uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListForUser(ctx context.Context) ([]models.TenantUser, error)
	ListUsers(ctx context.Context, tenantID uuid.UUID, q models.Query) (models.Page[models.TenantUser], error)
	Invite(ctx context.Context, tenantID uuid.UUID, req models.InviteUsersRequest) ([]models.TenantUser, error)
	AcceptInvitation(ctx context.Context, token string) (*models.TenantUser, error)
	UpdateRoles(ctx context.Context, tenantID uuid.UUID, req models.UpdateRolesRequest) (*models.TenantUser, error)
	RemoveUsers(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID) error
}

type TenantHandler struct {
	service TenantService
	tr      apperrors.Translator
	logger  ectologger.Logger
}

func NewTenantHandler(service TenantService, tr apperrors.Translator, logger ectologger.Logger) *TenantHandler {
	return &TenantHandler{service: service, tr: tr, logger: logger}
}

// Register mounts the routes of /api/tenant that are not scoped to a membership.
func (h *TenantHandler) Register(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.DELETE("", h.DestroyAll)
	g.POST("/invitation/:token/accept", h.AcceptInvitation)
}

// RegisterScoped mounts the routes of /api/tenant/:tenantId. g must already resolve the membership.
func (h *TenantHandler) RegisterScoped(g *echo.Group) {
	g.GET("", h.Get)
	g.PUT("", h.Update, middleware.Permission(security.TenantEdit))
	g.POST("/user", h.Invite, middleware.Permission(security.UserCreate))
	g.PUT("/user", h.UpdateRoles, middleware.Permission(security.UserEdit))
	g.DELETE("/user", h.RemoveUsers, middleware.Permission(security.UserDestroy))
	g.GET("/user", h.ListUsers, middleware.Permission(security.UserRead))
}

func (h *TenantHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TenantHandler.Create")
	defer span.End()

	body, err := utils.BindData[models.TenantInput](c)
	if err != nil {
		return err
	}

	tenant, err := h.service.Create(ctx, body.Data)
	if err != nil {
		return err
	}
	return CreatedResponse(c, tenant)
}

func (h *TenantHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TenantHandler.List")
	defer span.End()

	memberships, err := h.service.ListForUser(ctx)
	if err != nil {
		return err
	}
	return SuccessResponse(c, memberships)
}

func (h *TenantHandler) DestroyAll(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TenantHandler.DestroyAll")
	defer span.End()

	ids, err := entity.ParseIDs(ctx, h.tr, QueryIDs(c))
	if err != nil {
		return err
	}
	if err := h.service.DestroyAll(ctx, ids); err != nil {
		return err
	}
	return NoContentResponse(c)
}

func (h *TenantHandler) AcceptInvitation(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TenantHandler.AcceptInvitation")
	defer span.End()

	membership, err := h.service.AcceptInvitation(ctx, c.Param("token"))
	if err != nil {
		return err
	}
	return SuccessResponse(c, membership)
}

func (h *TenantHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TenantHandler.Get")
	defer span.End()

	id, err := ParseUUID(c, middleware.ParamTenantID, "tenant")
	if err != nil {
		return err
	}

	tenant, err := h.service.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if tenant == nil {
		return apperrors.NewNotFoundError("tenant", id)
	}
	return SuccessResponse(c, tenant)
}

func (h *TenantHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TenantHandler.Update")
	defer span.End()

	id, err := ParseUUID(c, middleware.ParamTenantID, "tenant")
	if err != nil {
		return err
	}
	body, err := utils.BindData[models.TenantInput](c)
	if err != nil {
		return err
	}

	tenant, err := h.service.Update(ctx, id, body.Data)
	if err != nil {
		return err
	}
	return SuccessResponse(c, tenant)
}

func (h *TenantHandler) Invite(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TenantHandler.Invite")
	defer span.End()

	id, err := ParseUUID(c, middleware.ParamTenantID, "tenant")
	if err != nil {
		return err
	}
	body, err := utils.BindData[models.InviteUsersRequest](c)
	if err != nil {
		return err
	}

	memberships, err := h.service.Invite(ctx, id, body.Data)
	if err != nil {
		return err
	}
	return CreatedResponse(c, memberships)
}

func (h *TenantHandler) UpdateRoles(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TenantHandler.UpdateRoles")
	defer span.End()

	id, err := ParseUUID(c, middleware.ParamTenantID, "tenant")
	if err != nil {
		return err
	}
	body, err := utils.BindData[models.UpdateRolesRequest](c)
	if err != nil {
		return err
	}

	membership, err := h.service.UpdateRoles(ctx, id, body.Data)
	if err != nil {
		return err
	}
	return SuccessResponse(c, membership)
}

func (h *TenantHandler) RemoveUsers(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TenantHandler.RemoveUsers")
	defer span.End()

	id, err := ParseUUID(c, middleware.ParamTenantID, "tenant")
	if err != nil {
		return err
	}
	userIDs, err := entity.ParseIDs(ctx, h.tr, QueryIDs(c))
	if err != nil {
		return err
	}

	if err := h.service.RemoveUsers(ctx, id, userIDs); err != nil {
		return err
	}
	return NoContentResponse(c)
}

func (h *TenantHandler) ListUsers(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TenantHandler.ListUsers")
	defer span.End()

	id, err := ParseUUID(c, middleware.ParamTenantID, "tenant")
	if err != nil {
		return err
	}

	page, err := h.service.ListUsers(ctx, id, ParseQuery(c))
	if err != nil {
		return err
	}
	return SuccessResponse(c, page)
}

package handlers

import (
	"context"
	"strconv"

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

type EntityService[T any, I any] interface {
	Entity() string
	Create(ctx context.Context, in I) (*T, error)
	Update(ctx context.Context, id uuid.UUID, in I) (*T, error)
	DestroyAll(ctx context.Context, ids []uuid.UUID) error
	Import(ctx context.Context, in I, importHash *string) (*T, error)
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindAllAutocomplete(ctx context.Context, search string, limit int) ([]models.AutocompleteOption, error)
	FindAndCountAll(ctx context.Context, q models.Query) (models.Page[T], error)
}

// EntityHandler exposes the CRUD routes shared by every tenant-scoped entity.
type EntityHandler[T any, I any] struct {
	service EntityService[T, I]
	tr      apperrors.Translator
	perms   security.EntityPermissions
	logger  ectologger.Logger
}

func NewEntityHandler[T any, I any](service EntityService[T, I], tr apperrors.Translator, logger ectologger.Logger) *EntityHandler[T, I] {
	return &EntityHandler[T, I]{
		service: service,
		tr:      tr,
		perms:   security.PermissionsFor(service.Entity()),
		logger:  logger,
	}
}

// Register mounts the routes under /<entity> of a tenant group.
func (h *EntityHandler[T, I]) Register(g *echo.Group) *echo.Group {
	eg := g.Group("/" + h.service.Entity())
	eg.POST("", h.Create, middleware.Permission(h.perms.Create))
	eg.POST("/import", h.Import, middleware.Permission(h.perms.Import))
	eg.DELETE("", h.DestroyAll, middleware.Permission(h.perms.Destroy))
	eg.GET("/autocomplete", h.Autocomplete, middleware.Permission(h.perms.Autocomplete))
	eg.GET("", h.List, middleware.Permission(h.perms.Read))
	eg.GET("/:id", h.Get, middleware.Permission(h.perms.Read))
	eg.PUT("/:id", h.Update, middleware.Permission(h.perms.Edit))
	return eg
}

func (h *EntityHandler[T, I]) span(c echo.Context, op string) (context.Context, func()) {
	ctx, span := tracing.StartSpan(c.Request().Context(), h.service.Entity()+"Handler."+op)
	c.SetRequest(c.Request().WithContext(ctx))
	return ctx, func() { span.End() }
}

func (h *EntityHandler[T, I]) Create(c echo.Context) error {
	ctx, end := h.span(c, "Create")
	defer end()

	body, err := utils.BindData[I](c)
	if err != nil {
		return err
	}

	record, err := h.service.Create(ctx, body.Data)
	if err != nil {
		return err
	}
	return CreatedResponse(c, record)
}

func (h *EntityHandler[T, I]) Update(c echo.Context) error {
	ctx, end := h.span(c, "Update")
	defer end()

	id, err := ParseUUID(c, "id", h.service.Entity())
	if err != nil {
		return err
	}
	body, err := utils.BindData[I](c)
	if err != nil {
		return err
	}

	record, err := h.service.Update(ctx, id, body.Data)
	if err != nil {
		return err
	}
	return SuccessResponse(c, record)
}

func (h *EntityHandler[T, I]) Import(c echo.Context) error {
	ctx, end := h.span(c, "Import")
	defer end()

	// a missing hash is reported before anything about the payload
	body, err := utils.BindEnvelope[I](c)
	if err != nil {
		return err
	}
	if err := entity.RequireImportHash(ctx, h.tr, body.ImportHash); err != nil {
		return err
	}
	if _, err := utils.Validate(body.Data); err != nil {
		return err
	}

	record, err := h.service.Import(ctx, body.Data, body.ImportHash)
	if err != nil {
		return err
	}
	return CreatedResponse(c, record)
}

func (h *EntityHandler[T, I]) DestroyAll(c echo.Context) error {
	ctx, end := h.span(c, "DestroyAll")
	defer end()

	ids, err := entity.ParseIDs(ctx, h.tr, QueryIDs(c))
	if err != nil {
		return err
	}
	if err := h.service.DestroyAll(ctx, ids); err != nil {
		return err
	}
	return NoContentResponse(c)
}

func (h *EntityHandler[T, I]) Autocomplete(c echo.Context) error {
	ctx, end := h.span(c, "Autocomplete")
	defer end()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	options, err := h.service.FindAllAutocomplete(ctx, c.QueryParam("query"), limit)
	if err != nil {
		return err
	}
	return SuccessResponse(c, options)
}

func (h *EntityHandler[T, I]) List(c echo.Context) error {
	ctx, end := h.span(c, "List")
	defer end()

	page, err := h.service.FindAndCountAll(ctx, ParseQuery(c))
	if err != nil {
		return err
	}
	return SuccessResponse(c, page)
}

func (h *EntityHandler[T, I]) Get(c echo.Context) error {
	ctx, end := h.span(c, "Get")
	defer end()

	id, err := ParseUUID(c, "id", h.service.Entity())
	if err != nil {
		return err
	}

	record, err := h.service.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return apperrors.NewNotFoundError(h.service.Entity(), id)
	}
	return SuccessResponse(c, record)
}

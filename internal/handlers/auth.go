package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/tracing"
	"github.com/saikilaru/TAMcust/pkg/utils"
)

type AuthService interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.TokenResponse, error)
	SignIn(ctx context.Context, req models.SignInRequest) (*models.TokenResponse, error)
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, in models.ProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error
}

type AuthHandler struct {
	service AuthService
	logger  ectologger.Logger
}

func NewAuthHandler(service AuthService, logger ectologger.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// RegisterPublic mounts the routes that issue tokens. signIn guards sign-in, usually a rate limit.
func (h *AuthHandler) RegisterPublic(g *echo.Group, signIn ...echo.MiddlewareFunc) {
	g.POST("/sign-up", h.SignUp)
	g.POST("/sign-in", h.SignIn, signIn...)
}

// Register mounts the routes that need an authenticated user.
func (h *AuthHandler) Register(g *echo.Group) {
	g.GET("/me", h.Me)
	g.PUT("/profile", h.UpdateProfile)
	g.PUT("/change-password", h.ChangePassword)
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AuthHandler.SignUp")
	defer span.End()

	req, err := utils.BindRequest[models.SignUpRequest](c)
	if err != nil {
		return err
	}

	token, err := h.service.SignUp(ctx, req)
	if err != nil {
		return err
	}
	return CreatedResponse(c, token)
}

func (h *AuthHandler) SignIn(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AuthHandler.SignIn")
	defer span.End()

	req, err := utils.BindRequest[models.SignInRequest](c)
	if err != nil {
		return err
	}

	token, err := h.service.SignIn(ctx, req)
	if err != nil {
		return err
	}
	return SuccessResponse(c, token)
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AuthHandler.Me")
	defer span.End()

	user, err := h.service.Me(ctx)
	if err != nil {
		return err
	}
	return SuccessResponse(c, user)
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AuthHandler.UpdateProfile")
	defer span.End()

	in, err := utils.BindRequest[models.ProfileInput](c)
	if err != nil {
		return err
	}

	user, err := h.service.UpdateProfile(ctx, in)
	if err != nil {
		return err
	}
	return SuccessResponse(c, user)
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "AuthHandler.ChangePassword")
	defer span.End()

	req, err := utils.BindRequest[models.ChangePasswordRequest](c)
	if err != nil {
		return err
	}

	if err := h.service.ChangePassword(ctx, req); err != nil {
		return err
	}
	return NoContentResponse(c)
}

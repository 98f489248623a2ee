package middleware

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/security"
)

const ParamTenantID = "tenantId"

type MembershipFinder interface {
	Membership(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error)
}

// Tenant resolves the :tenantId path parameter against the current user's active membership and
// stores the tenant and the member's roles on the request context.
func Tenant(memberships MembershipFinder, logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			tenantID, err := uuid.Parse(c.Param(ParamTenantID))
			if err != nil {
				return apperrors.NewNotFoundError("tenant", c.Param(ParamTenantID))
			}
			userID, err := uuid.Parse(appctx.GetUserID(ctx))
			if err != nil {
				return apperrors.NewUnauthorizedError("")
			}

			membership, err := memberships.Membership(ctx, tenantID, userID)
			if err != nil {
				return err
			}
			if membership == nil || membership.Status != models.MembershipActive {
				logger.WithContext(ctx).WithFields(map[string]any{
					"tenant_id": tenantID,
					"user_id":   userID,
				}).Warn("user is not an active member of tenant")
				return apperrors.NewForbiddenError("")
			}

			ctx = appctx.SetTenantID(ctx, tenantID.String())
			ctx = appctx.SetRoles(ctx, membership.Roles)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// Permission requires one of the roles stored by Tenant to grant perm.
func Permission(perm security.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !security.Allowed(appctx.GetRoles(c.Request().Context()), perm) {
				return apperrors.NewForbiddenError("")
			}
			return next(c)
		}
	}
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/labstack/echo/v4"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

const currentUserKey = "current_user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
	ActiveUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// IDTokenVerifier is satisfied by *oidc.IDTokenVerifier.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type UserClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// NewOIDCVerifier discovers issuer and returns a verifier for tokens issued to clientID.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider %s: %w", issuer, err)
	}
	return provider.Verifier(&oidc.Config{ClientID: clientID}), nil
}

// Authentication requires a bearer token issued by this service or, when verifier is not nil, an
// ID token from the external identity provider whose email belongs to a local user.
func Authentication(auth Authenticator, verifier IDTokenVerifier, logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracing.StartSpan(c.Request().Context(), "middleware.Authentication")
			defer span.End()

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				logger.WithContext(ctx).Debug("request is missing bearer token")
				return apperrors.NewUnauthorizedError("")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			user, err := auth.Authenticate(ctx, raw)
			if err != nil && verifier != nil && isInvalidToken(err) {
				user, err = externalUser(ctx, auth, verifier, raw)
			}
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("token is invalid")
				return err
			}

			ctx = appctx.SetUserID(ctx, user.ID.String())
			c.Set(currentUserKey, user)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func externalUser(ctx context.Context, auth Authenticator, verifier IDTokenVerifier, raw string) (*models.User, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	idToken, err := verifier.Verify(verifyCtx, raw)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError(apperrors.KeyInvalidToken)
	}

	var claims UserClaims
	if err := idToken.Claims(&claims); err != nil || claims.Email == "" {
		return nil, apperrors.NewUnauthorizedError(apperrors.KeyInvalidToken)
	}
	return auth.ActiveUserByEmail(ctx, claims.Email)
}

func isInvalidToken(err error) bool {
	var unauthorized *apperrors.UnauthorizedError
	return errors.As(err, &unauthorized) && unauthorized.MessageKey() == apperrors.KeyInvalidToken
}

// CurrentUser returns the user resolved by Authentication, or nil.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(currentUserKey).(*models.User)
	return user
}

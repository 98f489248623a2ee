package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
)

const (
	QueryLocale          = "locale"
	HeaderAcceptLanguage = "Accept-Language"
)

// LocaleMatcher picks a supported locale for an Accept-Language value.
type LocaleMatcher interface {
	Match(acceptLanguage string) string
}

// Context stores the request id, route and negotiated locale on the request context.
func Context(locales LocaleMatcher) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			// ?locale= wins over the header
			locale := c.QueryParam(QueryLocale)
			if locale == "" {
				locale = req.Header.Get(HeaderAcceptLanguage)
			}

			ctx := req.Context()
			ctx = appctx.SetRequestID(ctx, requestID)
			ctx = appctx.SetMethod(ctx, req.Method)
			ctx = appctx.SetRoute(ctx, req.URL.Path)
			ctx = appctx.SetRemoteIP(ctx, c.RealIP())
			ctx = appctx.SetLocale(ctx, locales.Match(locale))

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
)

// Logger writes one access log line per request. Errors are handed to the echo error handler
// first so the logged status is the one sent.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			ctx := c.Request().Context()
			entry := logger.WithContext(ctx).WithFields(map[string]any{
				"request_id":    appctx.GetRequestID(ctx),
				"method":        req.Method,
				"uri":           req.RequestURI,
				"status":        res.Status,
				"route":         c.Path(),
				"remote_ip":     c.RealIP(),
				"tenant_id":     appctx.GetTenantID(ctx),
				"user_id":       appctx.GetUserID(ctx),
				"locale":        appctx.GetLocale(ctx),
				"user_agent":    req.UserAgent(),
				"latency_ms":    time.Since(start).Milliseconds(),
				"request_size":  req.Header.Get(echo.HeaderContentLength),
				"response_size": strconv.FormatInt(res.Size, 10),
			})

			if res.Status >= http.StatusInternalServerError {
				entry.Error("request failed")
			} else {
				entry.Info("request completed")
			}

			return nil
		}
	}
}

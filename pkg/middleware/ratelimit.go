package middleware

import (
	"bytes"
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/metrics"
	"github.com/saikilaru/TAMcust/pkg/redis"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redis.RateLimitResult, error)
}

type RateLimitConfig struct {
	Limit  int64
	Window time.Duration
}

// SignInRateLimit limits attempts per email and client IP. The email is read from the JSON body,
// which is restored for the handler. Limiter failures let the request through.
func SignInRateLimit(limiter Limiter, cfg RateLimitConfig, logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil || cfg.Limit <= 0 {
				return next(c)
			}

			ctx := c.Request().Context()
			key := "signin:" + signInEmail(c) + ":" + c.RealIP()

			res, err := limiter.Allow(ctx, key, cfg.Limit, cfg.Window)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("rate limiter unavailable, allowing request")
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatInt(cfg.Limit, 10))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))

			if !res.Allowed {
				metrics.RateLimitedTotal.WithLabelValues(c.Path()).Inc()
				logger.WithContext(ctx).WithField("retry_in", res.RetryIn).Warn("sign in rate limited")
				return apperrors.NewTooManyRequestsError(res.RetryIn)
			}

			return next(c)
		}
	}
}

func signInEmail(c echo.Context) string {
	req := c.Request()
	if req.Body == nil {
		return ""
	}

	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func retryAfter(err *apperrors.TooManyRequestsError) string {
	seconds := int(math.Ceil(err.RetryIn.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

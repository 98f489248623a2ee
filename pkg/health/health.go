// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Response struct {
	Status     Status                 `json:"status"`
	Version    string                 `json:"version,omitempty"`
	Uptime     string                 `json:"uptime,omitempty"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	ReportedAt time.Time              `json:"reported_at"`
}

// Pinger is anything that can prove it is reachable. *sqlx.DB and the redis client both qualify.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function into a Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Checker struct {
	checks    map[string]Pinger
	startTime time.Time
	version   string
	timeout   time.Duration

	mu    sync.RWMutex
	ready bool
}

func NewChecker(version string) *Checker {
	return &Checker{
		checks:    make(map[string]Pinger),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// Register adds a named readiness check. A nil pinger is skipped.
func (c *Checker) Register(name string, p Pinger) *Checker {
	if p != nil {
		c.checks[name] = p
	}
	return c
}

func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

func (c *Checker) LivenessHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, Response{
		Status:     StatusHealthy,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		ReportedAt: time.Now(),
	})
}

func (c *Checker) ReadinessHandler(ctx echo.Context) error {
	if !c.IsReady() {
		return ctx.JSON(http.StatusServiceUnavailable, Response{
			Status:     StatusUnhealthy,
			Version:    c.version,
			ReportedAt: time.Now(),
			Checks: map[string]CheckResult{
				"startup": {Status: StatusUnhealthy, Message: "service is still starting up"},
			},
		})
	}

	checks := c.Run(ctx.Request().Context())
	status := overall(checks)

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	return ctx.JSON(code, Response{
		Status:     status,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     checks,
		ReportedAt: time.Now(),
	})
}

// Run pings every registered dependency.
func (c *Checker) Run(ctx context.Context) map[string]CheckResult {
	results := make(map[string]CheckResult, len(c.checks))
	for name, p := range c.checks {
		start := time.Now()
		pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := p.Ping(pingCtx)
		cancel()

		result := CheckResult{Status: StatusHealthy, Latency: time.Since(start).String()}
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
		}
		results[name] = result
	}
	return results
}

func overall(checks map[string]CheckResult) Status {
	for _, check := range checks {
		if check.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
	}
	return StatusHealthy
}

// HealthHandler reports every dependency regardless of readiness.
func (c *Checker) HealthHandler(ctx echo.Context) error {
	checks := c.Run(ctx.Request().Context())
	status := overall(checks)

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	return ctx.JSON(code, Response{
		Status:     status,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     checks,
		ReportedAt: time.Now(),
	})
}

func (c *Checker) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/health")
	g.GET("", c.HealthHandler)
	g.GET("/live", c.LivenessHandler)
	g.GET("/ready", c.ReadinessHandler)
}

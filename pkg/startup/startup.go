package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is an external resource the service needs before it can accept traffic.
type Dependency interface {
	Name() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Status int

const (
	StatusPending Status = iota
	StatusStarted
	StatusStopped
	StatusFailed
)

type Startup struct {
	logger      ectologger.Logger
	order       []string
	deps        map[string]Dependency
	statuses    map[string]Status
	maxAttempts int
	backoffUnit time.Duration
}

func New(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Startup{
		logger:      logger,
		deps:        make(map[string]Dependency),
		statuses:    make(map[string]Status),
		maxAttempts: maxAttempts,
		backoffUnit: time.Second,
	}
}

// WithBackoffUnit scales the fibonacci retry delays.
func (s *Startup) WithBackoffUnit(unit time.Duration) *Startup {
	s.backoffUnit = unit
	return s
}

func (s *Startup) Add(dep Dependency) {
	if _, ok := s.deps[dep.Name()]; !ok {
		s.order = append(s.order, dep.Name())
	}
	s.deps[dep.Name()] = dep
}

func (s *Startup) Status(name string) Status {
	return s.statuses[name]
}

// Start brings up every dependency, retrying the whole set with fibonacci backoff.
func (s *Startup) Start(ctx context.Context) error {
	var lastErr error
	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithField("attempt", attempt).Infof("beginning startup attempt %d", attempt)

		lastErr = nil
		for _, name := range s.order {
			if err := s.start(ctx, name, map[string]bool{}); err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}

		if attempt == s.maxAttempts {
			break
		}

		wait := time.Duration(a) * s.backoffUnit
		s.logger.WithError(lastErr).Warnf("startup attempt %d/%d failed, retrying in %s", attempt, s.maxAttempts, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) start(ctx context.Context, name string, visiting map[string]bool) error {
	if s.statuses[name] == StatusStarted {
		return nil
	}
	dep, ok := s.deps[name]
	if !ok {
		return fmt.Errorf("unknown startup dependency %q", name)
	}
	if visiting[name] {
		return fmt.Errorf("startup dependency cycle at %q", name)
	}
	visiting[name] = true

	for _, parent := range dep.DependsOn() {
		if err := s.start(ctx, parent, visiting); err != nil {
			return err
		}
	}

	s.logger.WithField("dependency", name).Infof("starting dependency '%s'", name)
	if err := dep.Start(ctx); err != nil {
		s.statuses[name] = StatusFailed
		s.logger.WithError(err).WithField("dependency", name).Errorf("failed to start dependency '%s'", name)
		return err
	}
	s.statuses[name] = StatusStarted
	return nil
}

// Stop tears dependencies down in reverse registration order and keeps going past failures.
func (s *Startup) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(s.order) - 1; i >= 0; i-- {
		name := s.order[i]
		if s.statuses[name] != StatusStarted {
			continue
		}
		if err := s.deps[name].Stop(ctx); err != nil {
			s.logger.WithError(err).WithField("dependency", name).Errorf("failed to stop dependency '%s'", name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.statuses[name] = StatusStopped
		s.logger.WithField("dependency", name).Infof("dependency '%s' stopped", name)
	}
	return firstErr
}

// Func adapts plain functions into a Dependency.
type Func struct {
	DepName   string
	Parents   []string
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

func (f Func) Name() string        { return f.DepName }
func (f Func) DependsOn() []string { return f.Parents }

func (f Func) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}

// Package notify publishes change events to collaborators outside the request's unit of work.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/pkg/metrics"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

type EventType string

const (
	EventCreated  EventType = "created"
	EventUpdated  EventType = "updated"
	EventImported EventType = "imported"
	EventDeleted  EventType = "deleted"
)

type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	Entity     string    `json:"entity"`
	TenantID   string    `json:"tenant_id"`
	RecordID   string    `json:"entity_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Record     any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }

// Dispatcher delivers events in the background. Delivery failures are logged and counted, never
// returned to the caller.
type Dispatcher struct {
	notifier Notifier
	logger   ectologger.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, logger ectologger.Logger, timeout time.Duration) *Dispatcher {
	if notifier == nil {
		notifier = Noop{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{notifier: notifier, logger: logger, timeout: timeout}
}

// Dispatch hands evt to the notifier on its own goroutine. The delivery context keeps ctx's
// values but not its cancellation, so a finished request does not abort delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) {
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.WithContext(ctx).WithField("panic", r).Errorf("notifier panicked for %s %s", evt.Entity, evt.RecordID)
				metrics.NotificationsTotal.WithLabelValues(evt.Entity, metrics.OutcomeError).Inc()
			}
		}()

		deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		deliveryCtx, span := tracing.StartSpan(deliveryCtx, "Notifier.Dispatch")
		defer span.End()

		err := d.notifier.Notify(deliveryCtx, evt)
		metrics.NotificationsTotal.WithLabelValues(evt.Entity, metrics.Outcome(err)).Inc()
		if err != nil {
			tracing.Fail(span, err)
			d.logger.WithContext(deliveryCtx).WithError(err).WithFields(map[string]any{
				"entity":    evt.Entity,
				"record_id": evt.RecordID,
				"type":      string(evt.Type),
			}).Warn("failed to deliver change notification")
		}
	}()
}

// Wait blocks until every dispatched event has been delivered or has failed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

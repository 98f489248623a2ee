package servicetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
	"github.com/saikilaru/TAMcust/pkg/i18n"
	"github.com/saikilaru/TAMcust/pkg/notify"
)

// Dispatcher records events synchronously.
type Dispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *Dispatcher) Dispatch(_ context.Context, evt notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

func (d *Dispatcher) Events() []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Event(nil), d.events...)
}

func Catalog(t testing.TB) *i18n.Catalog {
	t.Helper()
	catalog, err := i18n.Load(i18n.DefaultLocale)
	require.NoError(t, err)
	return catalog
}

// TenantContext returns a context authorized for TenantID as userID.
func TenantContext(userID string) context.Context {
	ctx := appctx.SetTenantID(context.Background(), TenantID.String())
	if userID != "" {
		ctx = appctx.SetUserID(ctx, userID)
	}
	return ctx
}

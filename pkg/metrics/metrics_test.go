package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/saikilaru/TAMcust/pkg/metrics"
)

func TestObserveEntityOperation(t *testing.T) {
	ok := metrics.EntityOperationsTotal.WithLabelValues("visitor", "create", metrics.OutcomeSuccess)
	failed := metrics.EntityOperationsTotal.WithLabelValues("visitor", "create", metrics.OutcomeError)
	okBefore := testutil.ToFloat64(ok)
	failedBefore := testutil.ToFloat64(failed)

	metrics.ObserveEntityOperation("visitor", "create", time.Now(), nil)
	metrics.ObserveEntityOperation("visitor", "create", time.Now(), errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

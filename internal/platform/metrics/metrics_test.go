package metrics_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/platform/metrics"
)

func TestMetrics_Outcomes(t *testing.T) {
	m := metrics.New()

	m.ObserveStep(mintdom.StepAllocate, nil)
	m.ObserveStep(mintdom.StepConfigureExtension, fmt.Errorf("x: %w", mintdom.ErrFeeBasisPointsOutOfRange))
	m.ObserveStep(mintdom.StepConfigureExtension, &mintdom.ProvisionError{Step: mintdom.StepConfigureExtension, Kind: mintdom.KindOrdering, Err: errors.New("y")})
	m.ObserveResult("local", nil, 0.02)
	m.ObserveResult("rpc", errors.New("timeout"), 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepsTotal.WithLabelValues("allocate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepsTotal.WithLabelValues("configure_transfer_fee", "parameter")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepsTotal.WithLabelValues("configure_transfer_fee", "ordering")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("local", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("rpc", "host")))

	assert.Equal(t, 3, testutil.CollectAndCount(m.StepsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RunDuration))
}

func TestMetrics_RegistryIsIsolated(t *testing.T) {
	a, b := metrics.New(), metrics.New()
	a.ObserveResult("local", nil, 1)

	assert.Equal(t, 1, testutil.CollectAndCount(a.RunsTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(b.RunsTotal))
}

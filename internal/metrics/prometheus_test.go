package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/mediaflow/internal/metrics"
)

func TestObserver_Counts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	o, err := metrics.NewObserver(reg)
	require.NoError(t, err)

	o.Upload("ok")
	o.Upload("ok")
	o.Enqueue("ok", "fallback")
	o.StatusLookup("done")
	o.Duration("upload", 25*time.Millisecond)

	count, err := testutil.GatherAndCount(reg,
		"mediaflow_uploads_total",
		"mediaflow_enqueues_total",
		"mediaflow_status_lookups_total",
		"mediaflow_operation_duration_seconds",
	)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestNewObserver_ReusesRegisteredCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := metrics.NewObserver(reg)
	require.NoError(t, err)
	second, err := metrics.NewObserver(reg)
	require.NoError(t, err)

	first.Upload("ok")
	second.Upload("ok")

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "mediaflow_uploads_total" {
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue())
			return
		}
	}
	t.Fatal("mediaflow_uploads_total not gathered")
}

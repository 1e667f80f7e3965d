package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func installReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })
	return reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestRecorder_CountsLifecycleActivity(t *testing.T) {
	reader := installReader(t)

	r, err := New()
	require.NoError(t, err)

	r.Transition("Idle", "WaitingForSdk")
	r.Transition("WaitingForSdk", "ConstructingMap")
	r.Failure("SdkUnavailable")
	r.MarkersCreated(3)
	r.MarkersRemoved(1)
	r.MarkersRemoved(0)
	r.Relayout("settle")
	r.Repaint("settle")
	r.Repaint("resize")

	assert.Equal(t, int64(2), sumOf(t, reader, "mapkit.session.transitions"))
	assert.Equal(t, int64(1), sumOf(t, reader, "mapkit.session.failures"))
	assert.Equal(t, int64(4), sumOf(t, reader, "mapkit.markers.changes"))
	assert.Equal(t, int64(1), sumOf(t, reader, "mapkit.map.relayouts"))
	assert.Equal(t, int64(2), sumOf(t, reader, "mapkit.map.tile_repaints"))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.Transition("Idle", "Failed")
	r.Failure("ContainerMissing")
	r.MarkersCreated(1)
	r.MarkersRemoved(1)
	r.Relayout("resize")
	r.Repaint("resize")
}

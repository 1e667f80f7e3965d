// Package metrics records map lifecycle activity through the global OpenTelemetry meter.
// Instruments are no-ops unless the host application installs a MeterProvider.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/kickoff/mapkit/internal/metrics"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Recorder holds the lifecycle instruments. A nil *Recorder is valid and records nothing.
type Recorder struct {
	transitions metric.Int64Counter
	failures    metric.Int64Counter
	markers     metric.Int64Counter
	relayouts   metric.Int64Counter
	repaints    metric.Int64Counter
}

// New creates a Recorder from the global meter provider.
func New() (*Recorder, error) {
	m := meter()
	r := &Recorder{}

	var err error
	r.transitions, err = m.Int64Counter(
		"mapkit.session.transitions",
		metric.WithDescription("Map session state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	r.failures, err = m.Int64Counter(
		"mapkit.session.failures",
		metric.WithDescription("Map sessions that ended in Failed, by error kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}

	r.markers, err = m.Int64Counter(
		"mapkit.markers.changes",
		metric.WithDescription("Markers created or removed by the synchronizer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating markers counter: %w", err)
	}

	r.relayouts, err = m.Int64Counter(
		"mapkit.map.relayouts",
		metric.WithDescription("Relayout calls issued against the map"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relayouts counter: %w", err)
	}

	r.repaints, err = m.Int64Counter(
		"mapkit.map.tile_repaints",
		metric.WithDescription("Zoom-nudge tile repaints issued against the map"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating repaints counter: %w", err)
	}

	return r, nil
}

// Transition counts a session state change.
func (r *Recorder) Transition(from, to string) {
	if r == nil {
		return
	}
	r.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// Failure counts a session that failed with the given kind.
func (r *Recorder) Failure(kind string) {
	if r == nil {
		return
	}
	r.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// MarkersCreated counts n marker creations.
func (r *Recorder) MarkersCreated(n int) {
	r.markerChange("created", n)
}

// MarkersRemoved counts n marker removals.
func (r *Recorder) MarkersRemoved(n int) {
	r.markerChange("removed", n)
}

func (r *Recorder) markerChange(op string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.markers.Add(context.Background(), int64(n), metric.WithAttributes(attribute.String("op", op)))
}

// Relayout counts a relayout issued for cause ("settle", "resize").
func (r *Recorder) Relayout(cause string) {
	if r == nil {
		return
	}
	r.relayouts.Add(context.Background(), 1, metric.WithAttributes(attribute.String("cause", cause)))
}

// Repaint counts a tile repaint issued for cause.
func (r *Recorder) Repaint(cause string) {
	if r == nil {
		return
	}
	r.repaints.Add(context.Background(), 1, metric.WithAttributes(attribute.String("cause", cause)))
}

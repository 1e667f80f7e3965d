// Package markers reconciles the markers rendered on a map with the points the view supplies.
package markers

import (
	"fmt"
	"sort"

	"github.com/kickoff/mapkit/internal/logging"
	"github.com/kickoff/mapkit/internal/loop"
	"github.com/kickoff/mapkit/internal/metrics"
	"github.com/kickoff/mapkit/internal/sdk"
	"github.com/kickoff/mapkit/pkg/core"
)

// MapSource lends out the live map while its session is Ready.
type MapSource interface {
	Map() (sdk.Map, bool)
}

// Navigator follows a point's navigation target when its marker is activated.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

// Navigate calls f(target).
func (f NavigatorFunc) Navigate(target string) {
	f(target)
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Synchronizer) {
		s.log = logging.OrNop(l)
	}
}

// WithMetrics counts marker creations and removals on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Synchronizer) {
		s.metrics = r
	}
}

// WithImage draws every marker with img instead of the SDK default.
func WithImage(img *sdk.MarkerImage) Option {
	return func(s *Synchronizer) {
		s.image = img
	}
}

// WithNavigator sets who handles marker activation. Without one, clicks are ignored.
func WithNavigator(n Navigator) Option {
	return func(s *Synchronizer) {
		s.nav = n
	}
}

// Result summarizes one Sync.
type Result struct {
	Created   int
	Removed   int
	Unchanged int
	// Skipped lists point ids that were ignored: missing id, unusable coordinate or duplicate id.
	Skipped []string
	// Failed maps point ids to the SDK error that prevented their marker.
	Failed map[string]error
}

// Changed reports whether the sync touched the map.
func (r Result) Changed() bool {
	return r.Created > 0 || r.Removed > 0
}

type record struct {
	point  core.PointOfInterest
	handle sdk.Marker
}

// Synchronizer owns the markers of one map, keyed by point id. It must be used from one loop.
type Synchronizer struct {
	lp      loop.Loop
	sdk     sdk.MapSdk
	nav     Navigator
	image   *sdk.MarkerImage
	log     logging.Logger
	metrics *metrics.Recorder

	epoch   uint64
	bound   sdk.Map
	records map[string]*record
}

// New returns an empty synchronizer creating markers through mapSdk.
func New(lp loop.Loop, mapSdk sdk.MapSdk, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		lp:      lp,
		sdk:     mapSdk,
		log:     logging.Nop(),
		records: make(map[string]*record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync makes the rendered markers match points. It is a no-op unless src has a Ready map.
// Markers for points that were already rendered keep their handle. Removals happen before
// creations. When the same id appears more than once the first occurrence wins.
func (s *Synchronizer) Sync(src MapSource, points []core.PointOfInterest) Result {
	var res Result
	m, ok := src.Map()
	if !ok {
		s.log.Debug("marker sync skipped; map not ready", "points", len(points))
		return res
	}
	if s.bound != m {
		// Handles from a previous map instance are dead; forget them.
		if len(s.records) > 0 {
			s.log.Warn("map instance changed under existing markers", "markers", len(s.records))
			res.Removed += s.removeAll()
		}
		s.bound = m
	}

	wanted := make(map[string]core.PointOfInterest, len(points))
	order := make([]string, 0, len(points))
	for _, p := range points {
		if p.ID == "" || !p.Coordinate.Valid() {
			res.Skipped = append(res.Skipped, p.ID)
			continue
		}
		if _, dup := wanted[p.ID]; dup {
			res.Skipped = append(res.Skipped, p.ID)
			continue
		}
		wanted[p.ID] = p
		order = append(order, p.ID)
	}

	for _, id := range s.IDs() {
		if _, keep := wanted[id]; keep {
			continue
		}
		s.records[id].handle.Remove()
		delete(s.records, id)
		res.Removed++
	}

	for _, id := range order {
		if rec, exists := s.records[id]; exists {
			// Same marker, latest point: a refreshed navigation target applies to the next click.
			rec.point = wanted[id]
			res.Unchanged++
			continue
		}
		p := wanted[id]
		handle, err := s.sdk.CreateMarker(m, sdk.MarkerOptions{
			Position: p.Coordinate,
			Title:    p.Title,
			Image:    s.image,
		})
		if err != nil {
			if res.Failed == nil {
				res.Failed = make(map[string]error)
			}
			res.Failed[id] = fmt.Errorf("creating marker for %q: %w", id, err)
			s.log.Warn("marker creation failed", "point", id, "error", err)
			continue
		}
		handle.OnClick(s.onClick(id, handle))
		s.records[id] = &record{point: p, handle: handle}
		res.Created++
	}

	s.metrics.MarkersCreated(res.Created)
	s.metrics.MarkersRemoved(res.Removed)
	if res.Changed() || len(res.Skipped) > 0 || len(res.Failed) > 0 {
		s.log.Debug("markers synced",
			"created", res.Created,
			"removed", res.Removed,
			"unchanged", res.Unchanged,
			"skipped", len(res.Skipped),
			"failed", len(res.Failed),
		)
	}
	return res
}

// onClick returns the activation handler for one marker. The SDK may call it off-loop, and
// after the marker was removed; both are handled by hopping to the loop and re-checking.
func (s *Synchronizer) onClick(id string, handle sdk.Marker) func() {
	epoch := s.epoch
	return func() {
		s.lp.Post(func() {
			if s.epoch != epoch {
				return
			}
			rec, ok := s.records[id]
			if !ok || rec.handle != handle {
				return
			}
			target := rec.point.NavigationTarget
			if target == "" || s.nav == nil {
				return
			}
			s.log.Debug("marker activated", "point", id, "target", target)
			s.nav.Navigate(target)
		})
	}
}

// Clear removes every marker and returns how many were removed. Pending clicks are dropped.
func (s *Synchronizer) Clear() int {
	s.epoch++
	n := s.removeAll()
	s.bound = nil
	s.metrics.MarkersRemoved(n)
	if n > 0 {
		s.log.Debug("markers cleared", "removed", n)
	}
	return n
}

func (s *Synchronizer) removeAll() int {
	n := len(s.records)
	for _, rec := range s.records {
		rec.handle.Remove()
	}
	s.records = make(map[string]*record)
	return n
}

// IDs returns the ids of rendered markers in sorted order.
func (s *Synchronizer) IDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of rendered markers.
func (s *Synchronizer) Len() int {
	return len(s.records)
}

// Marker returns the handle rendered for id.
func (s *Synchronizer) Marker(id string) (sdk.Marker, bool) {
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return rec.handle, true
}

// Package headless is an in-memory mapping SDK. It renders nothing, but it reproduces the
// behaviour the lifecycle has to cope with: a namespace that appears before its modules finish
// loading, maps that stay blank when built inside a zero-size container, and tiles that go
// stale after a relayout until the zoom level or center actually changes.
package headless

import (
	"errors"
	"fmt"

	"github.com/kickoff/mapkit/internal/sdk"
	"github.com/kickoff/mapkit/pkg/core"
)

// ErrNotLoaded is returned when maps are requested before the SDK finished loading.
var ErrNotLoaded = errors.New("headless: sdk not loaded")

// Sdk implements sdk.MapSdk.
type Sdk struct {
	installed bool
	loaded    bool
	waiters   []func()

	// MapErr, when set, is returned by CreateMap.
	MapErr error
	// MarkerErr, when set, is consulted by CreateMarker.
	MarkerErr func(opts sdk.MarkerOptions) error

	maps       []*Map
	nextMarker int
	// LoadCalls counts Load registrations.
	LoadCalls int
}

// New returns an SDK whose namespace is not present yet.
func New() *Sdk {
	return &Sdk{}
}

// NewLoaded returns an SDK that is present and fully loaded.
func NewLoaded() *Sdk {
	return &Sdk{installed: true, loaded: true}
}

// Install makes the global namespace visible without finishing the module load.
func (s *Sdk) Install() {
	s.installed = true
}

// FinishLoading installs the namespace if needed and runs pending load callbacks.
func (s *Sdk) FinishLoading() {
	s.installed = true
	s.loaded = true
	waiters := s.waiters
	s.waiters = nil
	for _, fn := range waiters {
		fn()
	}
}

// IsReady reports whether the namespace is present.
func (s *Sdk) IsReady() bool {
	return s.installed
}

// Load runs ready now if loading finished, otherwise on FinishLoading.
func (s *Sdk) Load(ready func()) {
	s.LoadCalls++
	if s.loaded {
		ready()
		return
	}
	s.waiters = append(s.waiters, ready)
}

// CreateMap builds a Map sized to the container's current geometry.
func (s *Sdk) CreateMap(container sdk.Container, opts sdk.MapOptions) (sdk.Map, error) {
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	if s.MapErr != nil {
		return nil, s.MapErr
	}
	if container == nil {
		return nil, errors.New("headless: nil container")
	}
	m := newMap(s, container, opts)
	s.maps = append(s.maps, m)
	return m, nil
}

// CreateMarker attaches a marker to a Map created by this SDK.
func (s *Sdk) CreateMarker(m sdk.Map, opts sdk.MarkerOptions) (sdk.Marker, error) {
	hm, ok := m.(*Map)
	if !ok || hm.sdk != s {
		return nil, fmt.Errorf("headless: foreign map %T", m)
	}
	if hm.destroyed {
		return nil, errors.New("headless: map destroyed")
	}
	if s.MarkerErr != nil {
		if err := s.MarkerErr(opts); err != nil {
			return nil, err
		}
	}
	s.nextMarker++
	mk := &Marker{
		ID:       s.nextMarker,
		Position: opts.Position,
		Title:    opts.Title,
		Image:    opts.Image,
		owner:    hm,
	}
	hm.markers[mk.ID] = mk
	return mk, nil
}

// Maps returns every map constructed so far, including destroyed ones.
func (s *Sdk) Maps() []*Map {
	return s.maps
}

// Marker is a headless marker.
type Marker struct {
	ID       int
	Position core.Coordinate
	Title    string
	Image    *sdk.MarkerImage

	owner   *Map
	onClick func()
	removed bool
}

// OnClick registers the activation handler.
func (m *Marker) OnClick(fn func()) {
	m.onClick = fn
}

// Remove detaches the marker from its map.
func (m *Marker) Remove() {
	if m.removed {
		return
	}
	m.removed = true
	delete(m.owner.markers, m.ID)
}

// Removed reports whether the marker was detached.
func (m *Marker) Removed() bool {
	return m.removed
}

// Click simulates a user activating the marker. Detached markers ignore clicks.
func (m *Marker) Click() {
	if m.removed || m.onClick == nil {
		return
	}
	m.onClick()
}

// Package mapview composes the map lifecycle for one container: a session controller that
// builds the map, a resize coordinator that keeps it laid out, and a marker synchronizer
// that renders the view's points once the map is ready.
package mapview

import (
	"errors"
	"time"

	"github.com/kickoff/mapkit/internal/geo"
	"github.com/kickoff/mapkit/internal/logging"
	"github.com/kickoff/mapkit/internal/loop"
	"github.com/kickoff/mapkit/internal/markers"
	"github.com/kickoff/mapkit/internal/metrics"
	"github.com/kickoff/mapkit/internal/resize"
	"github.com/kickoff/mapkit/internal/sdk"
	"github.com/kickoff/mapkit/internal/session"
	"github.com/kickoff/mapkit/pkg/core"
)

var (
	ErrMounted    = errors.New("mapview: already mounted")
	ErrNotMounted = errors.New("mapview: not mounted")
)

// Mode is the listing layout. Switching it changes the map container's size.
type Mode int

const (
	ModeList Mode = iota
	ModeMap
)

func (m Mode) String() string {
	if m == ModeMap {
		return "map"
	}
	return "list"
}

// ParseMode accepts "list" or "map".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "list":
		return ModeList, true
	case "map":
		return ModeMap, true
	}
	return ModeList, false
}

// HomeOptions centers the listing map on center, falling back to the centroid of points.
func HomeOptions(center core.Coordinate, level int, points []core.PointOfInterest) sdk.MapOptions {
	if !center.Valid() {
		if c, ok := geo.Centroid(points); ok {
			center = c
		}
	}
	return sdk.MapOptions{Center: center, Level: level}
}

// DetailOptions centers a single-match map on the match.
func DetailOptions(p core.PointOfInterest, level int) sdk.MapOptions {
	return sdk.MapOptions{Center: p.Coordinate, Level: level}
}

// Dependencies are the collaborators a View borrows.
type Dependencies struct {
	Loop loop.Loop
	Sdk  sdk.MapSdk
	// Window is optional.
	Window    sdk.Window
	Navigator markers.Navigator
	Logger    logging.Logger
	Metrics   *metrics.Recorder
}

// Config shapes the map a View mounts.
type Config struct {
	Session     session.Config
	Debounce    time.Duration
	MapOptions  sdk.MapOptions
	MarkerImage *sdk.MarkerImage
}

// View is one mounted map. All methods must be called from the loop.
type View struct {
	deps Dependencies
	cfg  Config
	log  logging.Logger

	session *session.Controller
	resize  *resize.Coordinator
	markers *markers.Synchronizer

	container sdk.Container
	mounted   bool
	unsub     func()
	listeners []session.Listener

	points   []core.PointOfInterest
	mode     Mode
	lastSync markers.Result
}

// New returns an unmounted view.
func New(deps Dependencies, cfg Config) *View {
	log := logging.OrNop(deps.Logger)
	v := &View{
		deps: deps,
		cfg:  cfg,
		log:  log,
	}
	v.session = session.NewController(deps.Loop, deps.Sdk, cfg.Session,
		session.WithLogger(log),
		session.WithMetrics(deps.Metrics),
		session.WithMapOptions(cfg.MapOptions),
	)
	v.resize = resize.New(deps.Loop, deps.Window,
		resize.Config{Debounce: cfg.Debounce, MaxLevel: cfg.Session.MaxLevel},
		resize.WithLogger(log),
		resize.WithMetrics(deps.Metrics),
	)
	v.markers = markers.New(deps.Loop, deps.Sdk,
		markers.WithLogger(log),
		markers.WithMetrics(deps.Metrics),
		markers.WithImage(cfg.MarkerImage),
		markers.WithNavigator(deps.Navigator),
	)
	return v
}

// OnTransition registers l for session transitions of every mount.
func (v *View) OnTransition(l session.Listener) {
	v.listeners = append(v.listeners, l)
}

// Mount starts building a map in container. A nil container fails the session with
// ContainerMissing; Mount itself only errors when the view is already mounted.
func (v *View) Mount(container sdk.Container) error {
	if v.mounted {
		return ErrMounted
	}
	v.mounted = true
	v.container = container
	v.unsub = v.session.Subscribe(v.onTransition)

	if container != nil {
		if err := v.resize.Attach(v.session, container); err != nil {
			return err
		}
	}
	return v.session.Start(container)
}

// Retry starts a new session after a failure.
func (v *View) Retry() error {
	if !v.mounted {
		return ErrNotMounted
	}
	return v.session.Start(v.container)
}

func (v *View) onTransition(prev, next session.Session) {
	switch {
	case next.State == session.Ready:
		v.sync()
	case prev.State == session.Ready:
		v.markers.Clear()
	}
	for _, l := range v.listeners {
		l(prev, next)
	}
}

// SetPoints replaces the rendered points. They are synced now if the map is ready and
// otherwise on the transition into Ready.
func (v *View) SetPoints(points []core.PointOfInterest) markers.Result {
	v.points = append([]core.PointOfInterest(nil), points...)
	if !v.mounted {
		return markers.Result{}
	}
	return v.sync()
}

func (v *View) sync() markers.Result {
	v.lastSync = v.markers.Sync(v.session, v.points)
	return v.lastSync
}

// SetMode switches the listing layout and relays out the map for the new container size.
func (v *View) SetMode(m Mode) {
	if m == v.mode {
		return
	}
	v.mode = m
	v.log.Debug("view mode changed", "mode", m)
	v.resize.Notify()
}

// Mode returns the current listing layout.
func (v *View) Mode() Mode {
	return v.mode
}

// ZoomIn moves one level closer. It reports whether the level changed.
func (v *View) ZoomIn() bool {
	return v.zoom(-1)
}

// ZoomOut moves one level further out. It reports whether the level changed.
func (v *View) ZoomOut() bool {
	return v.zoom(1)
}

func (v *View) zoom(delta int) bool {
	m, ok := v.session.Map()
	if !ok {
		return false
	}
	level := m.Level()
	next := sdk.ClampLevel(level+delta, v.cfg.Session.MaxLevel)
	if next == level {
		return false
	}
	m.SetLevel(next)
	return true
}

// Unmount clears the markers, stops resize handling and disposes the session, in that order.
// Calling it on an unmounted view is a no-op.
func (v *View) Unmount() {
	if !v.mounted {
		return
	}
	v.markers.Clear()
	v.resize.Detach()
	v.session.Dispose()
	if v.unsub != nil {
		v.unsub()
		v.unsub = nil
	}
	v.container = nil
	v.mounted = false
}

// State returns the session state.
func (v *View) State() session.State {
	return v.session.State()
}

// Session returns the session snapshot.
func (v *View) Session() session.Session {
	return v.session.Session()
}

// Map returns the live map while Ready.
func (v *View) Map() (sdk.Map, bool) {
	return v.session.Map()
}

// MarkerIDs returns the ids of the rendered markers.
func (v *View) MarkerIDs() []string {
	return v.markers.IDs()
}

// LastSync returns the result of the most recent marker sync.
func (v *View) LastSync() markers.Result {
	return v.lastSync
}

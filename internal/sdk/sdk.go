// Package sdk declares the capabilities the map lifecycle needs from a mapping SDK and from the
// view layer's container and window.
//
// The SDK itself is never reached through a global: callers inject a MapSdk, which lets the
// browser binding, the headless engine and test doubles share the same lifecycle code.
// Every method is called from the lifecycle loop; implementations may assume a single caller.
package sdk

import "github.com/kickoff/mapkit/pkg/core"

// MapSdk is the mapping library's entry point.
type MapSdk interface {
	// IsReady reports whether the global entry point and its map namespace are present.
	IsReady() bool
	// Load registers ready to run once the SDK has finished loading its modules.
	// ready may be invoked synchronously, later, or from another goroutine.
	Load(ready func())
	// CreateMap constructs a map inside container.
	CreateMap(container Container, opts MapOptions) (Map, error)
	// CreateMarker constructs a marker attached to m.
	CreateMarker(m Map, opts MarkerOptions) (Marker, error)
}

// Map is a live map instance.
type Map interface {
	Center() core.Coordinate
	SetCenter(c core.Coordinate)
	// Level is the SDK zoom level; larger values are further out.
	Level() int
	SetLevel(level int)
	// Relayout recomputes the rendering size from the current container size.
	Relayout()
	// Destroy releases the map and everything attached to it.
	Destroy()
}

// Marker is a marker attached to a map.
type Marker interface {
	// OnClick registers the activation handler. It may be invoked from any goroutine.
	OnClick(fn func())
	// Remove detaches the marker from its map.
	Remove()
}

// Container is the element a map is mounted into.
type Container interface {
	// Geometry returns the currently measured size.
	Geometry() core.Geometry
	// ForceSize assigns an explicit pixel size to the container.
	ForceSize(width, height int)
	// ObserveSize calls fn whenever the container's size changes, until cancel is called.
	ObserveSize(fn func()) (cancel func())
}

// Window is the top-level viewport.
type Window interface {
	// OnResize calls fn on every viewport resize, until cancel is called.
	OnResize(fn func()) (cancel func())
}

// MapOptions configure map construction.
type MapOptions struct {
	Center core.Coordinate
	Level  int
}

// MarkerOptions configure marker construction.
type MarkerOptions struct {
	Position core.Coordinate
	Title    string
	Image    *MarkerImage
}

// MarkerImage is a custom marker icon.
type MarkerImage struct {
	URL    string
	Width  int
	Height int
}

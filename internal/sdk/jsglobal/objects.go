package jsglobal

import (
	"github.com/dop251/goja"
	"github.com/kickoff/mapkit/pkg/core"
)

// Map wraps a maps.Map instance.
type Map struct {
	sdk       *Sdk
	ns        *goja.Object
	obj       *goja.Object
	destroyed bool
}

// Object returns the underlying script object.
func (m *Map) Object() *goja.Object {
	return m.obj
}

func (m *Map) Center() core.Coordinate {
	v := m.sdk.must(m.obj, "getCenter")
	if !present(v) {
		return core.Coordinate{}
	}
	ll := v.ToObject(m.sdk.vm)
	return core.Coordinate{
		Lat: m.sdk.must(ll, "getLat").ToFloat(),
		Lng: m.sdk.must(ll, "getLng").ToFloat(),
	}
}

func (m *Map) SetCenter(c core.Coordinate) {
	ll, err := m.sdk.newLatLng(m.ns, c)
	if err != nil {
		m.sdk.log.Error("map sdk LatLng failed", "error", err)
		return
	}
	m.sdk.must(m.obj, "setCenter", ll)
}

func (m *Map) Level() int {
	return int(m.sdk.must(m.obj, "getLevel").ToInteger())
}

func (m *Map) SetLevel(level int) {
	m.sdk.must(m.obj, "setLevel", level)
}

func (m *Map) Relayout() {
	m.sdk.must(m.obj, "relayout")
}

// Destroy calls the SDK's destroy hook if it has one. The browser SDK has none; dropping the
// reference is all it needs.
func (m *Map) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	if _, ok := goja.AssertFunction(m.obj.Get("destroy")); ok {
		m.sdk.must(m.obj, "destroy")
	}
}

// Marker wraps a maps.Marker instance.
type Marker struct {
	sdk *Sdk
	ns  *goja.Object
	obj *goja.Object
}

// Object returns the underlying script object.
func (m *Marker) Object() *goja.Object {
	return m.obj
}

// OnClick registers fn through maps.event.addListener(marker, "click", fn).
func (m *Marker) OnClick(fn func()) {
	ev := m.ns.Get("event")
	if !present(ev) {
		m.sdk.log.Warn("map sdk has no event namespace; marker clicks disabled")
		return
	}
	m.sdk.must(ev.ToObject(m.sdk.vm), "addListener", m.obj, "click", fn)
}

// Remove detaches the marker with setMap(null).
func (m *Marker) Remove() {
	m.sdk.must(m.obj, "setMap", nil)
}

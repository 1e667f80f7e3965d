package headless

import "github.com/kickoff/mapkit/pkg/core"

// Container is an in-memory map container.
type Container struct {
	geometry core.Geometry
	// IgnoreForce makes ForceSize record the request without resizing, the way a container
	// behind an inactive tab keeps measuring zero.
	IgnoreForce bool

	forced    []core.Geometry
	observers observers
}

// NewContainer returns a container measuring width×height.
func NewContainer(width, height int) *Container {
	return &Container{geometry: core.Geometry{Width: width, Height: height}}
}

// Geometry returns the measured size.
func (c *Container) Geometry() core.Geometry {
	return c.geometry
}

// Resize changes the measured size and notifies observers if it changed.
func (c *Container) Resize(width, height int) {
	g := core.Geometry{Width: width, Height: height}
	if g == c.geometry {
		return
	}
	c.geometry = g
	c.observers.notify()
}

// ForceSize records an explicit size assignment and applies it unless IgnoreForce is set.
func (c *Container) ForceSize(width, height int) {
	c.forced = append(c.forced, core.Geometry{Width: width, Height: height})
	if c.IgnoreForce {
		return
	}
	c.Resize(width, height)
}

// Forced returns every explicit size assignment received.
func (c *Container) Forced() []core.Geometry {
	return c.forced
}

// ObserveSize registers fn for size changes.
func (c *Container) ObserveSize(fn func()) func() {
	return c.observers.add(fn)
}

// Observers returns the number of active size observers.
func (c *Container) Observers() int {
	return c.observers.len()
}

// Window is an in-memory viewport.
type Window struct {
	observers observers
}

// NewWindow returns a Window with no listeners.
func NewWindow() *Window {
	return &Window{}
}

// OnResize registers fn for viewport resizes.
func (w *Window) OnResize(fn func()) func() {
	return w.observers.add(fn)
}

// Resize notifies every listener.
func (w *Window) Resize() {
	w.observers.notify()
}

// Listeners returns the number of active resize listeners.
func (w *Window) Listeners() int {
	return w.observers.len()
}

type observer struct {
	fn     func()
	active bool
}

type observers struct {
	list []*observer
}

func (o *observers) add(fn func()) func() {
	ob := &observer{fn: fn, active: true}
	o.list = append(o.list, ob)
	return func() {
		if !ob.active {
			return
		}
		ob.active = false
		for i, cur := range o.list {
			if cur == ob {
				o.list = append(o.list[:i], o.list[i+1:]...)
				break
			}
		}
	}
}

func (o *observers) notify() {
	snapshot := append([]*observer(nil), o.list...)
	for _, ob := range snapshot {
		if ob.active {
			ob.fn()
		}
	}
}

func (o *observers) len() int {
	return len(o.list)
}

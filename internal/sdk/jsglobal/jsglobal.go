// Package jsglobal drives a JavaScript map SDK that publishes itself as a global object,
// the way the browser SDK installs window.kakao.maps, inside a goja runtime.
//
// The runtime is not safe for concurrent use; every call must come from the lifecycle loop.
package jsglobal

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/kickoff/mapkit/internal/logging"
	"github.com/kickoff/mapkit/internal/sdk"
	"github.com/kickoff/mapkit/pkg/core"
)

// DefaultGlobal is the name the SDK installs itself under.
const DefaultGlobal = "kakao"

// StubScript is a minimal SDK implementation. Running it installs the global; calling
// kakao.finishLoading() completes module loading.
//
//go:embed stub.js
var StubScript string

var (
	ErrNotReady    = errors.New("jsglobal: sdk namespace not present")
	ErrForeignMap  = errors.New("jsglobal: map not created by this sdk")
	ErrNotFunction = errors.New("jsglobal: not a function")
)

// Option configures an Sdk.
type Option func(*Sdk)

// WithGlobal looks the SDK up under name instead of DefaultGlobal.
func WithGlobal(name string) Option {
	return func(s *Sdk) {
		s.global = name
	}
}

// WithLogger logs script errors raised by calls that cannot return them.
func WithLogger(l logging.Logger) Option {
	return func(s *Sdk) {
		s.log = logging.OrNop(l)
	}
}

// Sdk implements sdk.MapSdk over a goja runtime.
type Sdk struct {
	vm      *goja.Runtime
	global  string
	log     logging.Logger
	loadErr error
}

// New binds to the SDK global inside vm. The global does not need to exist yet.
func New(vm *goja.Runtime, opts ...Option) *Sdk {
	s := &Sdk{vm: vm, global: DefaultGlobal, log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Runtime returns the bound runtime.
func (s *Sdk) Runtime() *goja.Runtime {
	return s.vm
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

func (s *Sdk) namespace() (*goja.Object, bool) {
	root := s.vm.Get(s.global)
	if !present(root) {
		return nil, false
	}
	maps := root.ToObject(s.vm).Get("maps")
	if !present(maps) {
		return nil, false
	}
	return maps.ToObject(s.vm), true
}

// IsReady reports whether the global and its maps namespace exist.
func (s *Sdk) IsReady() bool {
	_, ok := s.namespace()
	return ok
}

// Load hands ready to maps.load. SDK builds without a load hook are treated as loaded.
// A failing load hook still invokes ready; the error then surfaces from CreateMap.
func (s *Sdk) Load(ready func()) {
	s.loadErr = nil
	ns, ok := s.namespace()
	if !ok {
		s.loadErr = ErrNotReady
		ready()
		return
	}
	load, ok := goja.AssertFunction(ns.Get("load"))
	if !ok {
		ready()
		return
	}
	if _, err := load(ns, s.vm.ToValue(func() { ready() })); err != nil {
		s.loadErr = fmt.Errorf("jsglobal: maps.load: %w", err)
		s.log.Error("map sdk load hook failed", "error", err)
		ready()
	}
}

// newLatLng builds a maps.LatLng.
func (s *Sdk) newLatLng(ns *goja.Object, c core.Coordinate) (*goja.Object, error) {
	return s.vm.New(ns.Get("LatLng"), s.vm.ToValue(c.Lat), s.vm.ToValue(c.Lng))
}

// element exposes the container's measured size as offsetWidth and offsetHeight.
func (s *Sdk) element(container sdk.Container) (*goja.Object, error) {
	el := s.vm.NewObject()
	width := s.vm.ToValue(func() int { return container.Geometry().Width })
	height := s.vm.ToValue(func() int { return container.Geometry().Height })
	if err := el.DefineAccessorProperty("offsetWidth", width, nil, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return nil, err
	}
	if err := el.DefineAccessorProperty("offsetHeight", height, nil, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		return nil, err
	}
	return el, nil
}

// CreateMap runs new maps.Map(container, {center, level}).
func (s *Sdk) CreateMap(container sdk.Container, opts sdk.MapOptions) (sdk.Map, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	ns, ok := s.namespace()
	if !ok {
		return nil, ErrNotReady
	}
	if container == nil {
		return nil, errors.New("jsglobal: nil container")
	}
	el, err := s.element(container)
	if err != nil {
		return nil, fmt.Errorf("jsglobal: container element: %w", err)
	}
	center, err := s.newLatLng(ns, opts.Center)
	if err != nil {
		return nil, fmt.Errorf("jsglobal: LatLng: %w", err)
	}
	options := s.vm.NewObject()
	_ = options.Set("center", center)
	_ = options.Set("level", opts.Level)

	obj, err := s.vm.New(ns.Get("Map"), el, options)
	if err != nil {
		return nil, fmt.Errorf("jsglobal: new Map: %w", err)
	}
	return &Map{sdk: s, ns: ns, obj: obj}, nil
}

// CreateMarker runs new maps.Marker({map, position, title, image}).
func (s *Sdk) CreateMarker(m sdk.Map, opts sdk.MarkerOptions) (sdk.Marker, error) {
	jm, ok := m.(*Map)
	if !ok || jm.sdk != s {
		return nil, ErrForeignMap
	}
	ns := jm.ns
	position, err := s.newLatLng(ns, opts.Position)
	if err != nil {
		return nil, fmt.Errorf("jsglobal: LatLng: %w", err)
	}
	options := s.vm.NewObject()
	_ = options.Set("map", jm.obj)
	_ = options.Set("position", position)
	_ = options.Set("title", opts.Title)
	if opts.Image != nil {
		size, err := s.vm.New(ns.Get("Size"), s.vm.ToValue(opts.Image.Width), s.vm.ToValue(opts.Image.Height))
		if err != nil {
			return nil, fmt.Errorf("jsglobal: Size: %w", err)
		}
		img, err := s.vm.New(ns.Get("MarkerImage"), s.vm.ToValue(opts.Image.URL), size)
		if err != nil {
			return nil, fmt.Errorf("jsglobal: MarkerImage: %w", err)
		}
		_ = options.Set("image", img)
	}

	obj, err := s.vm.New(ns.Get("Marker"), options)
	if err != nil {
		return nil, fmt.Errorf("jsglobal: new Marker: %w", err)
	}
	return &Marker{sdk: s, ns: ns, obj: obj}, nil
}

// call invokes obj[name](args...).
func (s *Sdk) call(obj *goja.Object, name string, args ...any) (goja.Value, error) {
	fn, ok := goja.AssertFunction(obj.Get(name))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFunction, name)
	}
	vals := make([]goja.Value, len(args))
	for i, a := range args {
		vals[i] = s.vm.ToValue(a)
	}
	return fn(obj, vals...)
}

// must runs call and logs instead of returning the error, for interface methods that cannot fail.
func (s *Sdk) must(obj *goja.Object, name string, args ...any) goja.Value {
	v, err := s.call(obj, name, args...)
	if err != nil {
		s.log.Error("map sdk call failed", "method", name, "error", err)
		return goja.Undefined()
	}
	return v
}

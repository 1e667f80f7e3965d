package jsglobal

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/kickoff/mapkit/internal/sdk"
	"github.com/kickoff/mapkit/internal/sdk/headless"
	"github.com/kickoff/mapkit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seoul = core.Coordinate{Lat: 37.504, Lng: 127.049}

func installed(t *testing.T) (*Sdk, *goja.Runtime) {
	t.Helper()
	vm := goja.New()
	_, err := vm.RunString(StubScript)
	require.NoError(t, err)
	return New(vm), vm
}

func loaded(t *testing.T) (*Sdk, *goja.Runtime) {
	t.Helper()
	s, vm := installed(t)
	_, err := vm.RunString("kakao.finishLoading()")
	require.NoError(t, err)
	return s, vm
}

func eval(t *testing.T, vm *goja.Runtime, src string) goja.Value {
	t.Helper()
	v, err := vm.RunString(src)
	require.NoError(t, err)
	return v
}

func TestIsReady(t *testing.T) {
	vm := goja.New()
	s := New(vm)
	assert.False(t, s.IsReady())

	eval(t, vm, "var kakao = {}")
	assert.False(t, s.IsReady(), "namespace still missing")

	eval(t, vm, "kakao.maps = {}")
	assert.True(t, s.IsReady())
}

func TestIsReady_CustomGlobal(t *testing.T) {
	vm := goja.New()
	eval(t, vm, "var daum = { maps: {} }")

	assert.False(t, New(vm).IsReady())
	assert.True(t, New(vm, WithGlobal("daum")).IsReady())
}

func TestLoad_WaitsForModules(t *testing.T) {
	s, vm := installed(t)
	calls := 0

	s.Load(func() { calls++ })
	assert.Equal(t, 0, calls)

	_, err := s.CreateMap(headless.NewContainer(100, 100), sdk.MapOptions{Center: seoul, Level: 5})
	assert.Error(t, err, "constructing before load throws inside the sdk")

	eval(t, vm, "kakao.finishLoading()")
	assert.Equal(t, 1, calls)
}

func TestLoad_WithoutHook(t *testing.T) {
	vm := goja.New()
	eval(t, vm, "var kakao = { maps: {} }")
	calls := 0

	New(vm).Load(func() { calls++ })
	assert.Equal(t, 1, calls)
}

func TestLoad_ThrowingHookSurfacesFromCreateMap(t *testing.T) {
	vm := goja.New()
	eval(t, vm, `var kakao = { maps: { load: function () { throw new Error("cdn down"); } } }`)
	s := New(vm)
	calls := 0

	s.Load(func() { calls++ })
	assert.Equal(t, 1, calls)

	_, err := s.CreateMap(headless.NewContainer(100, 100), sdk.MapOptions{Center: seoul})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cdn down")
}

func TestMap_RoundTrip(t *testing.T) {
	s, vm := loaded(t)
	container := headless.NewContainer(0, 0)

	m, err := s.CreateMap(container, sdk.MapOptions{Center: seoul, Level: 5})
	require.NoError(t, err)
	require.NoError(t, vm.Set("m", m.(*Map).Object()))
	assert.True(t, eval(t, vm, "m.blank").ToBoolean(), "built at zero size")

	assert.Equal(t, seoul, m.Center())
	assert.Equal(t, 5, m.Level())

	m.SetLevel(6)
	assert.Equal(t, 6, m.Level())

	busan := core.Coordinate{Lat: 35.1, Lng: 129.0}
	m.SetCenter(busan)
	assert.Equal(t, busan, m.Center())

	container.Resize(420, 800)
	m.Relayout()
	assert.Equal(t, int64(420), eval(t, vm, "m.width").ToInteger())
	assert.Equal(t, int64(800), eval(t, vm, "m.height").ToInteger())
	assert.Equal(t, int64(1), eval(t, vm, "m.relayouts").ToInteger())

	m.Destroy()
	m.Destroy()
}

func TestMap_RepaintTilesThroughScript(t *testing.T) {
	s, _ := loaded(t)
	m, err := s.CreateMap(headless.NewContainer(100, 100), sdk.MapOptions{Center: seoul, Level: 3})
	require.NoError(t, err)

	sdk.RepaintTiles(m, 14)
	assert.Equal(t, 3, m.Level())
}

func TestMarker_CreateClickRemove(t *testing.T) {
	s, vm := loaded(t)
	m, err := s.CreateMap(headless.NewContainer(100, 100), sdk.MapOptions{Center: seoul, Level: 3})
	require.NoError(t, err)

	mk, err := s.CreateMarker(m, sdk.MarkerOptions{
		Position: seoul,
		Title:    "FC Gangnam vs FC Seocho",
		Image:    &sdk.MarkerImage{URL: "/img/markerStar.png", Width: 24, Height: 35},
	})
	require.NoError(t, err)
	require.NoError(t, vm.Set("m", m.(*Map).Object()))
	require.NoError(t, vm.Set("mk", mk.(*Marker).Object()))

	assert.Equal(t, int64(1), eval(t, vm, "m.markers.length").ToInteger())
	assert.Equal(t, "FC Gangnam vs FC Seocho", eval(t, vm, "mk.getTitle()").String())
	assert.Equal(t, "/img/markerStar.png", eval(t, vm, "mk.image.src").String())
	assert.Equal(t, int64(35), eval(t, vm, "mk.image.size.height").ToInteger())
	assert.InDelta(t, seoul.Lat, eval(t, vm, "mk.position.getLat()").ToFloat(), 1e-9)

	clicks := 0
	mk.OnClick(func() { clicks++ })
	eval(t, vm, `kakao.maps.event.trigger(mk, "click")`)
	assert.Equal(t, 1, clicks)

	mk.Remove()
	assert.Equal(t, int64(0), eval(t, vm, "m.markers.length").ToInteger())
	assert.True(t, goja.IsNull(eval(t, vm, "mk.getMap()")))
}

func TestCreateMarker_ForeignMap(t *testing.T) {
	s, _ := loaded(t)
	other, _ := loaded(t)
	m, err := other.CreateMap(headless.NewContainer(100, 100), sdk.MapOptions{Center: seoul, Level: 3})
	require.NoError(t, err)

	_, err = s.CreateMarker(m, sdk.MarkerOptions{Position: seoul})
	assert.ErrorIs(t, err, ErrForeignMap)
}

func TestCreateMap_NotReady(t *testing.T) {
	s := New(goja.New())

	_, err := s.CreateMap(headless.NewContainer(100, 100), sdk.MapOptions{})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestMap_MissingMethodIsLoggedNotPanicking(t *testing.T) {
	vm := goja.New()
	eval(t, vm, `var kakao = { maps: {
		LatLng: function (lat, lng) { this.lat = lat; this.lng = lng; },
		Map: function (el, opts) { this.level = opts.level; }
	} }`)
	s := New(vm)
	m, err := s.CreateMap(headless.NewContainer(10, 10), sdk.MapOptions{Center: seoul, Level: 4})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.Relayout()
		m.SetLevel(2)
		assert.Equal(t, 0, m.Level())
		assert.Equal(t, core.Coordinate{}, m.Center())
	})
}

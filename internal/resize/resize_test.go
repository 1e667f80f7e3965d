package resize

import (
	"testing"
	"time"

	"github.com/kickoff/mapkit/internal/loop"
	"github.com/kickoff/mapkit/internal/sdk"
	"github.com/kickoff/mapkit/internal/sdk/headless"
	"github.com/kickoff/mapkit/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seoul = core.Coordinate{Lat: 37.504, Lng: 127.049}

type source struct {
	m     *headless.Map
	ready bool
}

func (s *source) Map() (sdk.Map, bool) {
	if !s.ready {
		return nil, false
	}
	return s.m, true
}

type fixture struct {
	lp        *loop.Manual
	window    *headless.Window
	container *headless.Container
	src       *source
	rc        *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lp := loop.NewManual()
	window := headless.NewWindow()
	container := headless.NewContainer(200, 200)
	m, err := headless.NewLoaded().CreateMap(container, sdk.MapOptions{Center: seoul, Level: 5})
	require.NoError(t, err)

	f := &fixture{
		lp:        lp,
		window:    window,
		container: container,
		src:       &source{m: m.(*headless.Map), ready: true},
		rc:        New(lp, window, Config{Debounce: 16 * time.Millisecond, MaxLevel: 14}),
	}
	require.NoError(t, f.rc.Attach(f.src, container))
	return f
}

func TestCoordinator_WindowResizeRelayoutsAndRepaints(t *testing.T) {
	f := newFixture(t)

	f.container.Resize(420, 800)
	f.lp.Advance(10 * time.Millisecond)
	assert.Equal(t, 0, f.src.m.Relayouts, "debounced")

	f.lp.Advance(10 * time.Millisecond)
	assert.Equal(t, 1, f.src.m.Relayouts)
	assert.Equal(t, core.Geometry{Width: 420, Height: 800}, f.src.m.Size())
	assert.False(t, f.src.m.Stale())
	assert.Equal(t, seoul, f.src.m.Center())
	assert.Equal(t, 5, f.src.m.Level())
}

func TestCoordinator_CoalescesSignalsWithinOneFrame(t *testing.T) {
	f := newFixture(t)

	f.window.Resize()
	f.container.Resize(300, 300)
	f.rc.Notify()
	f.window.Resize()
	f.lp.Advance(100 * time.Millisecond)

	assert.Equal(t, 1, f.src.m.Relayouts)
	assert.Equal(t, 2, f.src.m.LevelChanges, "one repaint nudge and restore")
}

func TestCoordinator_SignalsInSeparateFrames(t *testing.T) {
	f := newFixture(t)

	f.window.Resize()
	f.lp.Advance(50 * time.Millisecond)
	f.window.Resize()
	f.lp.Advance(50 * time.Millisecond)

	assert.Equal(t, 2, f.src.m.Relayouts)
}

func TestCoordinator_NotifyForViewModeToggle(t *testing.T) {
	f := newFixture(t)

	f.rc.Notify()
	f.lp.Advance(20 * time.Millisecond)

	assert.Equal(t, 1, f.src.m.Relayouts)
}

func TestCoordinator_NoopUntilReady(t *testing.T) {
	f := newFixture(t)
	f.src.ready = false

	f.window.Resize()
	f.lp.Advance(time.Second)
	assert.Equal(t, 0, f.src.m.Relayouts)

	f.src.ready = true
	f.window.Resize()
	f.lp.Advance(time.Second)
	assert.Equal(t, 1, f.src.m.Relayouts)
}

func TestCoordinator_InvalidGeometryIsInformational(t *testing.T) {
	f := newFixture(t)

	f.container.Resize(0, 800)
	f.lp.Advance(time.Second)
	assert.Equal(t, 0, f.src.m.Relayouts)
	assert.Equal(t, core.Geometry{Width: 200, Height: 200}, f.src.m.Size())

	f.container.Resize(500, 800)
	f.lp.Advance(time.Second)
	assert.Equal(t, 1, f.src.m.Relayouts)
	assert.Equal(t, core.Geometry{Width: 500, Height: 800}, f.src.m.Size())
}

func TestCoordinator_DetachRemovesObserversAndPendingWork(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 1, f.window.Listeners())
	require.Equal(t, 1, f.container.Observers())

	f.window.Resize()
	f.lp.Flush()
	require.Equal(t, 1, f.lp.PendingTimers())

	f.rc.Detach()
	f.rc.Detach()
	assert.Equal(t, 0, f.window.Listeners())
	assert.Equal(t, 0, f.container.Observers())
	assert.Equal(t, 0, f.lp.PendingTimers())
	assert.False(t, f.rc.Attached())

	f.rc.Notify()
	f.container.Resize(640, 480)
	f.lp.Advance(time.Second)
	assert.Equal(t, 0, f.src.m.Relayouts)
}

func TestCoordinator_SignalQueuedBeforeDetachIsDropped(t *testing.T) {
	f := newFixture(t)

	f.window.Resize()
	f.rc.Detach()
	f.lp.Advance(time.Second)

	assert.Equal(t, 0, f.src.m.Relayouts)
}

func TestCoordinator_AttachRules(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.rc.Attach(f.src, f.container), ErrAttached)

	f.rc.Detach()
	assert.ErrorIs(t, f.rc.Attach(f.src, nil), ErrNoContainer)
	require.NoError(t, f.rc.Attach(f.src, f.container))

	f.window.Resize()
	f.lp.Advance(time.Second)
	assert.Equal(t, 1, f.src.m.Relayouts)
}

func TestCoordinator_NilWindow(t *testing.T) {
	lp := loop.NewManual()
	container := headless.NewContainer(100, 100)
	m, err := headless.NewLoaded().CreateMap(container, sdk.MapOptions{Center: seoul, Level: 14})
	require.NoError(t, err)
	src := &source{m: m.(*headless.Map), ready: true}

	rc := New(lp, nil, Config{MaxLevel: 14})
	require.NoError(t, rc.Attach(src, container))
	container.Resize(200, 100)
	lp.Advance(DefaultDebounce)

	assert.Equal(t, 1, src.m.Relayouts)
	assert.Equal(t, 14, src.m.Level(), "nudges inward at the outermost level")
	assert.False(t, src.m.Stale())
}

// Package session owns the lifecycle of a single map instance: waiting for the SDK,
// constructing the map inside a sized container, and letting it settle before anything
// else touches it.
//
// A Controller is confined to one loop. Every timer and SDK callback it schedules carries the
// epoch it was scheduled under, and Dispose bumps the epoch, so work left over from a disposed
// session is dropped instead of acting on a dead map.
package session

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/kickoff/mapkit/internal/logging"
	"github.com/kickoff/mapkit/internal/loop"
	"github.com/kickoff/mapkit/internal/metrics"
	"github.com/kickoff/mapkit/internal/poller"
	"github.com/kickoff/mapkit/internal/sdk"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		c.log = logging.OrNop(l)
	}
}

// WithMetrics records transitions and failures on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Controller) {
		c.metrics = r
	}
}

// WithMapOptions sets the center and level the map is built with and recentered to on settle.
func WithMapOptions(opts sdk.MapOptions) Option {
	return func(c *Controller) {
		c.mapOpts = opts
	}
}

// WithIDGenerator replaces the session id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.newID = fn
	}
}

type subscriber struct {
	id int
	fn Listener
}

// Controller drives one map session at a time through
// Idle → WaitingForSdk → ConstructingMap → Settling → Ready, or into Failed.
type Controller struct {
	lp      loop.Loop
	sdk     sdk.MapSdk
	cfg     Config
	mapOpts sdk.MapOptions
	log     logging.Logger
	metrics *metrics.Recorder
	newID   func() string

	session   Session
	epoch     uint64
	container sdk.Container
	handle    sdk.Map
	poll      *poller.Handle
	timer     loop.Timer

	subscribers []subscriber
	nextSub     int
}

// NewController returns an Idle controller. It does nothing until Start.
func NewController(lp loop.Loop, mapSdk sdk.MapSdk, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		lp:    lp,
		sdk:   mapSdk,
		cfg:   cfg,
		log:   logging.Nop(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.session = c.idle()
	return c
}

func (c *Controller) idle() Session {
	return Session{State: Idle, MaxAttempts: c.cfg.MaxAttempts, Since: c.lp.Now()}
}

// Start begins a new session mounting a map into container.
//
// While a session is in progress Start returns ErrSessionActive, and from Ready it returns
// ErrMapReady; neither changes any state. From Idle or Failed it starts a fresh session.
// A nil container fails the new session immediately with ContainerMissing.
func (c *Controller) Start(container sdk.Container) error {
	switch {
	case c.session.State.Active():
		c.log.Debug("start ignored; session in progress", "session", c.session.ID, "state", c.session.State)
		return ErrSessionActive
	case c.session.State == Ready:
		return ErrMapReady
	}

	c.epoch++
	epoch := c.epoch
	c.session = Session{
		ID:          c.newID(),
		State:       Idle,
		MaxAttempts: c.cfg.MaxAttempts,
		Since:       c.lp.Now(),
	}

	if container == nil {
		c.fail(KindContainerMissing, nil)
		return nil
	}
	c.container = container

	c.log.Info("map session starting", "session", c.session.ID, "maxAttempts", c.cfg.MaxAttempts)
	c.transition(WaitingForSdk)
	if !c.current(epoch) {
		return nil
	}

	c.poll = poller.Await(c.lp, c.sdk.IsReady, c.cfg.MaxAttempts, c.cfg.PollInterval, func(r poller.Result) {
		if !c.current(epoch) {
			return
		}
		c.poll = nil
		c.session.AttemptCount = r.Attempts
		if r.Outcome == poller.TimedOut {
			c.fail(KindSdkUnavailable, fmt.Errorf("sdk not present after %d attempts", r.Attempts))
			return
		}
		timeout := c.cfg.loadTimeout()
		c.timer = c.lp.AfterFunc(timeout, func() {
			if !c.current(epoch) || c.session.State != WaitingForSdk {
				return
			}
			c.timer = nil
			c.fail(KindSdkUnavailable, fmt.Errorf("sdk modules not loaded after %s", timeout))
		})
		c.sdk.Load(func() {
			c.lp.Post(func() { c.sdkLoaded(epoch) })
		})
	})
	return nil
}

func (c *Controller) sdkLoaded(epoch uint64) {
	if !c.current(epoch) || c.session.State != WaitingForSdk {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.transition(ConstructingMap)
	if !c.current(epoch) {
		return
	}
	c.construct(epoch)
}

// construct measures the container and builds the map once it has a size.
// A zero-size container gets the fallback size forced onto it before each retry.
func (c *Controller) construct(epoch uint64) {
	g := c.container.Geometry()
	if !g.Valid() {
		c.session.GeometryAttempts++
		if c.session.GeometryAttempts >= c.cfg.geometryAttempts() {
			c.fail(KindContainerNeverSized, fmt.Errorf("container measured %dx%d after %d attempts",
				g.Width, g.Height, c.session.GeometryAttempts))
			return
		}
		c.log.Debug("container not sized yet; forcing fallback size",
			"session", c.session.ID,
			"attempt", c.session.GeometryAttempts,
			"width", c.cfg.FallbackWidth,
			"height", c.cfg.FallbackHeight,
		)
		c.container.ForceSize(c.cfg.FallbackWidth, c.cfg.FallbackHeight)
		c.timer = c.lp.AfterFunc(c.cfg.GeometryRetryInterval, func() {
			if !c.current(epoch) {
				return
			}
			c.timer = nil
			c.construct(epoch)
		})
		return
	}

	m, err := c.sdk.CreateMap(c.container, c.mapOpts)
	if err != nil {
		c.fail(KindConstructionError, err)
		return
	}
	c.handle = m
	c.log.Debug("map constructed", "session", c.session.ID, "width", g.Width, "height", g.Height)

	c.transition(Settling)
	if !c.current(epoch) {
		return
	}
	c.timer = c.lp.AfterFunc(c.cfg.SettleDelay, func() {
		if !c.current(epoch) {
			return
		}
		c.timer = nil
		c.settle()
	})
}

// settle re-measures the map against its final container size, restores the center the
// relayout may have shifted, and repaints tiles the relayout left stale.
func (c *Controller) settle() {
	center := c.mapOpts.Center
	if !center.Valid() {
		center = c.handle.Center()
	}
	c.handle.Relayout()
	c.metrics.Relayout("settle")
	c.handle.SetCenter(center)
	sdk.RepaintTiles(c.handle, c.cfg.MaxLevel)
	c.metrics.Repaint("settle")
	c.transition(Ready)
}

func (c *Controller) fail(kind Kind, err error) {
	c.cancelPending()
	if c.handle != nil {
		c.handle.Destroy()
		c.handle = nil
	}
	e := &Error{Kind: kind, Err: err}
	c.session.LastError = e
	c.log.Warn("map session failed", "session", c.session.ID, "kind", kind, "error", e)
	c.metrics.Failure(kind.String())
	c.transition(Failed)
}

// Dispose tears the current session down: pending timers and polls are cancelled, the map is
// destroyed, and the controller returns to a fresh Idle. Calling it again is a no-op.
func (c *Controller) Dispose() {
	c.epoch++
	c.cancelPending()
	destroyed := c.handle != nil
	if destroyed {
		c.handle.Destroy()
		c.handle = nil
	}
	c.container = nil

	if c.session.State == Idle && c.session.ID == "" {
		return
	}
	prev := c.Session()
	c.session = c.idle()
	c.log.Debug("map session disposed", "session", prev.ID, "state", prev.State, "destroyedMap", destroyed)
	c.notify(prev, c.Session())
}

func (c *Controller) cancelPending() {
	if c.poll != nil {
		c.poll.Cancel()
		c.poll = nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) current(epoch uint64) bool {
	return c.epoch == epoch
}

func (c *Controller) transition(to State) {
	prev := c.Session()
	c.session.State = to
	c.session.Since = c.lp.Now()
	next := c.Session()

	c.log.Debug("map session transition", "session", next.ID, "from", prev.State, "to", to)
	c.metrics.Transition(prev.State.String(), to.String())
	c.notify(prev, next)
}

func (c *Controller) notify(prev, next Session) {
	subs := make([]subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	for _, s := range subs {
		s.fn(prev, next)
	}
}

// Subscribe registers l for every transition. Listeners run synchronously in registration
// order. The returned function unregisters l and may be called more than once.
func (c *Controller) Subscribe(l Listener) (unsubscribe func()) {
	c.nextSub++
	id := c.nextSub
	c.subscribers = append(c.subscribers, subscriber{id: id, fn: l})
	return func() {
		for i, s := range c.subscribers {
			if s.id == id {
				c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
				return
			}
		}
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.session.State
}

// Session returns a snapshot of the current session.
func (c *Controller) Session() Session {
	s := c.session
	if c.poll != nil {
		s.AttemptCount = c.poll.Attempts()
	}
	return s
}

// Map returns the live map, only while Ready.
func (c *Controller) Map() (sdk.Map, bool) {
	if c.session.State != Ready || c.handle == nil {
		return nil, false
	}
	return c.handle, true
}

// Package resize keeps a ready map's rendering size in step with its container.
//
// The SDK neither notices container size changes nor repaints tiles after a relayout, so every
// window resize, container mutation or view-mode toggle has to be turned into an explicit
// relayout, a center restore and a tile repaint.
package resize

import (
	"errors"
	"time"

	"github.com/kickoff/mapkit/internal/logging"
	"github.com/kickoff/mapkit/internal/loop"
	"github.com/kickoff/mapkit/internal/metrics"
	"github.com/kickoff/mapkit/internal/sdk"
)

var (
	// ErrAttached is returned by Attach when the coordinator is already attached.
	ErrAttached = errors.New("resize: already attached")
	// ErrNoContainer is returned by Attach without a container.
	ErrNoContainer = errors.New("resize: nil container")
)

// DefaultDebounce is about one animation frame.
const DefaultDebounce = 16 * time.Millisecond

// MapSource lends out the live map while its session is Ready.
// *session.Controller satisfies it.
type MapSource interface {
	Map() (sdk.Map, bool)
}

// Config tunes the coordinator.
type Config struct {
	// Debounce is the window in which signals are coalesced into one relayout.
	Debounce time.Duration
	MaxLevel int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) {
		c.log = logging.OrNop(l)
	}
}

// WithMetrics records relayouts and repaints on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Coordinator) {
		c.metrics = r
	}
}

// Coordinator turns size signals into relayouts. It must be used from one loop.
type Coordinator struct {
	lp      loop.Loop
	window  sdk.Window
	cfg     Config
	log     logging.Logger
	metrics *metrics.Recorder

	epoch     uint64
	attached  bool
	src       MapSource
	container sdk.Container
	cancels   []func()
	timer     loop.Timer
	signals   int
}

// New returns a detached coordinator. window may be nil when the host has no viewport events.
func New(lp loop.Loop, window sdk.Window, cfg Config, opts ...Option) *Coordinator {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	c := &Coordinator{
		lp:     lp,
		window: window,
		cfg:    cfg,
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach starts observing the window and container on behalf of src.
func (c *Coordinator) Attach(src MapSource, container sdk.Container) error {
	if c.attached {
		return ErrAttached
	}
	if container == nil {
		return ErrNoContainer
	}
	c.epoch++
	epoch := c.epoch
	c.attached = true
	c.src = src
	c.container = container

	// Observers may fire off-loop; hop back before touching state.
	signal := func() {
		c.lp.Post(func() {
			if c.current(epoch) {
				c.schedule(epoch)
			}
		})
	}
	if c.window != nil {
		c.cancels = append(c.cancels, c.window.OnResize(signal))
	}
	c.cancels = append(c.cancels, container.ObserveSize(signal))
	return nil
}

// Notify signals a size change the observers cannot see, such as a view-mode toggle.
// It is a no-op while detached.
func (c *Coordinator) Notify() {
	if !c.attached {
		return
	}
	c.schedule(c.epoch)
}

// Detach removes every observer and drops any pending relayout. Safe to call repeatedly.
func (c *Coordinator) Detach() {
	c.epoch++
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.attached = false
	c.src = nil
	c.container = nil
	c.signals = 0
}

// Attached reports whether the coordinator is observing.
func (c *Coordinator) Attached() bool {
	return c.attached
}

func (c *Coordinator) current(epoch uint64) bool {
	return c.attached && c.epoch == epoch
}

// schedule coalesces every signal within one debounce window into a single apply.
func (c *Coordinator) schedule(epoch uint64) {
	c.signals++
	if c.timer != nil {
		return
	}
	c.timer = c.lp.AfterFunc(c.cfg.Debounce, func() {
		if !c.current(epoch) {
			return
		}
		c.timer = nil
		signals := c.signals
		c.signals = 0
		c.apply(signals)
	})
}

func (c *Coordinator) apply(signals int) {
	m, ok := c.src.Map()
	if !ok {
		c.log.Debug("resize ignored; map not ready", "signals", signals)
		return
	}
	g := c.container.Geometry()
	if !g.Valid() {
		c.log.Info("resize ignored; container has no size", "width", g.Width, "height", g.Height)
		return
	}

	center := m.Center()
	m.Relayout()
	c.metrics.Relayout("resize")
	m.SetCenter(center)
	sdk.RepaintTiles(m, c.cfg.MaxLevel)
	c.metrics.Repaint("resize")
	c.log.Debug("map relaid out", "width", g.Width, "height", g.Height, "signals", signals)
}

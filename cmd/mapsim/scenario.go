package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/kickoff/mapkit/internal/config"
	"github.com/kickoff/mapkit/internal/logging"
	"github.com/kickoff/mapkit/internal/loop"
	"github.com/kickoff/mapkit/internal/mapview"
	"github.com/kickoff/mapkit/internal/markers"
	"github.com/kickoff/mapkit/internal/metrics"
	"github.com/kickoff/mapkit/internal/sdk"
	"github.com/kickoff/mapkit/internal/sdk/headless"
	"github.com/kickoff/mapkit/internal/sdk/jsglobal"
	"github.com/kickoff/mapkit/internal/session"
	"github.com/kickoff/mapkit/pkg/core"
)

// Scenario describes one simulated mount.
type Scenario struct {
	// Engine is "headless" or "js".
	Engine string
	// View is "home" or "detail".
	View string
	// SdkDelay is when the SDK global appears; LoadDelay is how long its modules take after that.
	SdkDelay  time.Duration
	LoadDelay time.Duration
	// NoSdk keeps the SDK from ever appearing.
	NoSdk bool

	Width, Height int
	// ResizeAt, when positive, resizes the container to ResizeWidth×ResizeHeight.
	ResizeAt                  time.Duration
	ResizeWidth, ResizeHeight int

	Points []core.PointOfInterest
	// Mode is applied once the map is ready.
	Mode mapview.Mode
	// Hold keeps the map mounted after it settles, before unmounting.
	Hold    time.Duration
	Timeout time.Duration
}

// Summary is the outcome of a scenario run.
type Summary struct {
	SessionID        string           `json:"sessionId"`
	State            string           `json:"state"`
	Error            string           `json:"error,omitempty"`
	ErrorKind        string           `json:"errorKind,omitempty"`
	Attempts         int              `json:"attempts"`
	GeometryAttempts int              `json:"geometryAttempts"`
	Elapsed          time.Duration    `json:"elapsedNs"`
	Markers          []string         `json:"markers"`
	Skipped          []string         `json:"skipped,omitempty"`
	Level            int              `json:"level,omitempty"`
	Center           *core.Coordinate `json:"center,omitempty"`
	Navigations      []string         `json:"navigations,omitempty"`
}

// ErrTimedOut is returned when the session reaches neither Ready nor Failed in time.
var ErrTimedOut = errors.New("scenario timed out before the map settled")

func sessionConfig(mc config.MapConfig) session.Config {
	return session.Config{
		MaxAttempts:           mc.Sdk.MaxAttempts,
		PollInterval:          mc.Sdk.PollInterval,
		LoadTimeout:           mc.Sdk.LoadTimeout,
		GeometryAttempts:      mc.Geometry.MaxAttempts,
		GeometryRetryInterval: mc.Geometry.RetryInterval,
		FallbackWidth:         mc.Geometry.FallbackWidth,
		FallbackHeight:        mc.Geometry.FallbackHeight,
		SettleDelay:           mc.SettleDelay,
		MaxLevel:              mc.MaxLevel,
	}
}

func markerImage(mc config.MapConfig) *sdk.MarkerImage {
	if mc.Marker.ImageURL == "" {
		return nil
	}
	return &sdk.MarkerImage{URL: mc.Marker.ImageURL, Width: mc.Marker.ImageWidth, Height: mc.Marker.ImageHeight}
}

func mapOptions(sc Scenario, mc config.MapConfig) (sdk.MapOptions, error) {
	switch sc.View {
	case "", "home":
		return mapview.HomeOptions(mc.HomeCenter, mc.HomeLevel, sc.Points), nil
	case "detail":
		for _, p := range sc.Points {
			if p.Coordinate.Valid() {
				return mapview.DetailOptions(p, mc.DetailLevel), nil
			}
		}
		return sdk.MapOptions{}, errors.New("detail view needs a point with a location")
	default:
		return sdk.MapOptions{}, fmt.Errorf("unknown view %q", sc.View)
	}
}

// installSdk schedules the SDK's arrival on lp and returns it.
func installSdk(lp loop.Loop, sc Scenario, log logging.Logger) (sdk.MapSdk, error) {
	switch sc.Engine {
	case "", "headless":
		s := headless.New()
		if !sc.NoSdk {
			lp.AfterFunc(sc.SdkDelay, s.Install)
			lp.AfterFunc(sc.SdkDelay+sc.LoadDelay, s.FinishLoading)
		}
		return s, nil
	case "js":
		vm := goja.New()
		s := jsglobal.New(vm, jsglobal.WithLogger(log))
		if !sc.NoSdk {
			lp.AfterFunc(sc.SdkDelay, func() {
				if _, err := vm.RunString(jsglobal.StubScript); err != nil {
					log.Error("sdk script failed", "error", err)
				}
			})
			lp.AfterFunc(sc.SdkDelay+sc.LoadDelay, func() {
				if _, err := vm.RunString(jsglobal.DefaultGlobal + ".finishLoading()"); err != nil {
					log.Error("sdk load failed", "error", err)
				}
			})
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", sc.Engine)
	}
}

// Run mounts a map per sc on a real event loop, reports every transition to out and returns
// the state the map ended in before it was unmounted.
func Run(ctx context.Context, sc Scenario, mc config.MapConfig, log logging.Logger, rec *metrics.Recorder, out io.Writer) (Summary, error) {
	log = logging.OrNop(log)
	opts, err := mapOptions(sc, mc)
	if err != nil {
		return Summary{}, err
	}
	if sc.Timeout <= 0 {
		sc.Timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lp := loop.New()
	loopDone := make(chan error, 1)
	go func() { loopDone <- lp.Run(ctx) }()
	defer func() {
		cancel()
		<-loopDone
	}()

	mapSdk, err := installSdk(lp, sc, log)
	if err != nil {
		return Summary{}, err
	}

	var navigations []string
	container := headless.NewContainer(sc.Width, sc.Height)
	window := headless.NewWindow()
	view := mapview.New(mapview.Dependencies{
		Loop:   lp,
		Sdk:    mapSdk,
		Window: window,
		Navigator: markers.NavigatorFunc(func(target string) {
			navigations = append(navigations, target)
			log.Info("navigate", "target", target)
		}),
		Logger:  log,
		Metrics: rec,
	}, mapview.Config{
		Session:     sessionConfig(mc),
		Debounce:    mc.ResizeDebounce,
		MapOptions:  opts,
		MarkerImage: markerImage(mc),
	})

	started := time.Now()
	settled := make(chan struct{})
	var settledOnce atomic.Bool
	view.OnTransition(func(prev, next session.Session) {
		activeSession.Store(next.ID)
		fmt.Fprintf(out, "%8s  %-15s -> %s\n", time.Since(started).Truncate(time.Millisecond), prev.State, next.State)
		if next.State == session.Ready || next.State == session.Failed {
			if settledOnce.CompareAndSwap(false, true) {
				close(settled)
			}
		}
	})

	lp.Post(func() {
		view.SetPoints(sc.Points)
		if err := view.Mount(container); err != nil {
			log.Error("mount failed", "error", err)
		}
		if sc.ResizeAt > 0 {
			lp.AfterFunc(sc.ResizeAt, func() { container.Resize(sc.ResizeWidth, sc.ResizeHeight) })
		}
	})

	timeout := time.NewTimer(sc.Timeout)
	defer timeout.Stop()
	select {
	case <-settled:
	case <-timeout.C:
		return collect(lp, view, started, &navigations, true)
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}

	lp.Post(func() {
		if view.State() != session.Ready {
			return
		}
		view.SetMode(sc.Mode)
		window.Resize()
		// Activate the first marker the way a tap would.
		if ids := view.MarkerIDs(); len(ids) > 0 {
			if m, ok := view.Map(); ok {
				if hm, ok := m.(*headless.Map); ok && len(hm.Markers()) > 0 {
					hm.Markers()[0].Click()
				}
			}
		}
	})

	hold := time.NewTimer(sc.Hold)
	defer hold.Stop()
	select {
	case <-hold.C:
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
	return collect(lp, view, started, &navigations, false)
}

// collect snapshots the view on the loop, then unmounts it.
// navigations is only touched on the loop.
func collect(lp loop.Loop, view *mapview.View, started time.Time, navigations *[]string, timedOut bool) (Summary, error) {
	result := make(chan Summary, 1)
	lp.Post(func() {
		snap := view.Session()
		s := Summary{
			SessionID:        snap.ID,
			State:            snap.State.String(),
			Attempts:         snap.AttemptCount,
			GeometryAttempts: snap.GeometryAttempts,
			Elapsed:          time.Since(started),
			Markers:          view.MarkerIDs(),
			Skipped:          view.LastSync().Skipped,
			Navigations:      append([]string(nil), (*navigations)...),
		}
		if snap.LastError != nil {
			s.Error = snap.LastError.Error()
			s.ErrorKind = session.KindOf(snap.LastError).String()
		}
		if m, ok := view.Map(); ok {
			center := m.Center()
			s.Center = &center
			s.Level = m.Level()
		}
		view.Unmount()
		result <- s
	})
	s := <-result
	if timedOut {
		return s, ErrTimedOut
	}
	return s, nil
}

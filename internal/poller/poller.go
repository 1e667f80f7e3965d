// Package poller detects when an externally loaded mapping SDK becomes available.
// The SDK offers no readiness event, so presence is polled on a bounded schedule.
package poller

import (
	"time"

	"github.com/kickoff/mapkit/internal/loop"
)

// Outcome is the result of a readiness wait.
type Outcome int

const (
	// Ready means the SDK namespace was found.
	Ready Outcome = iota
	// TimedOut means every attempt failed.
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "Ready"
	case TimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// Probe reports whether the SDK is present. sdk.MapSdk's IsReady satisfies it.
type Probe func() bool

// Result is delivered exactly once unless the wait is cancelled first.
type Result struct {
	Outcome Outcome
	// Attempts is the number of scheduled retries that ran; an immediate hit reports zero.
	Attempts int
}

// Handle controls an in-flight wait.
type Handle struct {
	timer     loop.Timer
	cancelled bool
	done      bool
	attempts  int
}

// Cancel stops the wait. No further probes run and the callback is never invoked.
// Safe to call more than once, and after completion.
func (h *Handle) Cancel() {
	if h == nil || h.cancelled {
		return
	}
	h.cancelled = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// Attempts returns the number of retries run so far.
func (h *Handle) Attempts() int {
	return h.attempts
}

// Done reports whether the result was delivered.
func (h *Handle) Done() bool {
	return h.done
}

// Await checks probe immediately, then every interval for up to maxAttempts retries.
// onResult runs on lp with Ready on the first hit or TimedOut after the last miss.
// It never panics on a bad budget: maxAttempts < 0 is treated as zero retries.
func Await(lp loop.Loop, probe Probe, maxAttempts int, interval time.Duration, onResult func(Result)) *Handle {
	h := &Handle{}
	if maxAttempts < 0 {
		maxAttempts = 0
	}

	finish := func(o Outcome) {
		h.done = true
		h.timer = nil
		onResult(Result{Outcome: o, Attempts: h.attempts})
	}

	var tick func()
	tick = func() {
		if h.cancelled {
			return
		}
		h.attempts++
		if probe() {
			finish(Ready)
			return
		}
		if h.attempts >= maxAttempts {
			finish(TimedOut)
			return
		}
		h.timer = lp.AfterFunc(interval, tick)
	}

	if probe() {
		lp.Post(func() {
			if h.cancelled {
				return
			}
			finish(Ready)
		})
		return h
	}
	if maxAttempts == 0 {
		lp.Post(func() {
			if h.cancelled {
				return
			}
			finish(TimedOut)
		})
		return h
	}
	h.timer = lp.AfterFunc(interval, tick)
	return h
}

// Package loop provides the single-threaded scheduling model the map lifecycle runs on.
//
// Every lifecycle callback (SDK polling ticks, settle delays, debounce windows, observer
// notifications) is delivered as a task on one Loop, so the components never need locks of
// their own. Code outside the loop hands work over with Post.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
)

// Timer is a scheduled task that can be cancelled before it runs.
type Timer interface {
	// Stop prevents the task from running. It reports whether the task was still pending.
	Stop() bool
}

// Loop schedules tasks for serial execution.
type Loop interface {
	// Post queues fn to run on the loop. Safe to call from any goroutine.
	Post(fn func())
	// AfterFunc runs fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Now returns the loop's current time.
	Now() time.Time
}

// EventLoop is a Loop backed by wall-clock timers and a single runner goroutine.
type EventLoop struct {
	mu    sync.Mutex
	tasks *queue.Queue
	wake  chan struct{}
}

// New creates an EventLoop. Tasks execute only while Run is active.
func New() *EventLoop {
	return &EventLoop{
		tasks: queue.New(),
		wake:  make(chan struct{}, 1),
	}
}

// Post queues fn and wakes the runner.
func (l *EventLoop) Post(fn func()) {
	l.mu.Lock()
	l.tasks.Add(fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc arms a wall-clock timer that posts fn when it fires.
func (l *EventLoop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &wallTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.Load() {
				return
			}
			fn()
		})
	})
	return t
}

// Now returns the wall-clock time.
func (l *EventLoop) Now() time.Time {
	return time.Now()
}

// Run executes queued tasks until ctx is cancelled.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		l.drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Len returns the number of queued tasks.
func (l *EventLoop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tasks.Length()
}

func (l *EventLoop) drain() {
	for {
		l.mu.Lock()
		if l.tasks.Length() == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.tasks.Remove().(func())
		l.mu.Unlock()
		fn()
	}
}

type wallTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

// Stop also suppresses a task that fired but has not run yet.
func (t *wallTimer) Stop() bool {
	t.stopped.Store(true)
	return t.timer.Stop()
}

package loop

import (
	"container/heap"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// Manual is a Loop on virtual time. Nothing runs until the owner calls Flush or Advance,
// and tasks run on the caller's goroutine.
type Manual struct {
	mu     sync.Mutex
	start  time.Time
	now    time.Time
	tasks  *queue.Queue
	timers timerHeap
	seq    uint64
}

// NewManual creates a Manual loop starting at the Unix epoch.
func NewManual() *Manual {
	start := time.Unix(0, 0).UTC()
	return &Manual{
		start: start,
		now:   start,
		tasks: queue.New(),
	}
}

// Post queues fn for the next Flush or Advance.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks.Add(fn)
}

// AfterFunc schedules fn at now+d on the virtual clock.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{owner: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	heap.Push(&m.timers, t)
	return t
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Elapsed returns the virtual time passed since creation.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now.Sub(m.start)
}

// PendingTimers returns the number of armed timers.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Flush runs queued tasks, including tasks they post, without moving the clock.
func (m *Manual) Flush() {
	for {
		m.mu.Lock()
		if m.tasks.Length() == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.tasks.Remove().(func())
		m.mu.Unlock()
		fn()
	}
}

// Advance moves the clock forward by d, firing due timers in deadline order.
// Timers with equal deadlines fire in the order they were scheduled.
func (m *Manual) Advance(d time.Duration) {
	m.Flush()

	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if len(m.timers) == 0 || m.timers[0].at.After(target) {
			m.now = target
			m.mu.Unlock()
			break
		}
		t := heap.Pop(&m.timers).(*manualTimer)
		m.now = t.at
		m.mu.Unlock()

		t.fn()
		m.Flush()
	}
	m.Flush()
}

type manualTimer struct {
	owner *Manual
	at    time.Time
	seq   uint64
	fn    func()
	index int
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&t.owner.timers, t.index)
	return true
}

type timerHeap []*manualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

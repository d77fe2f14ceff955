// Package schedule runs cancelable one-shot and repeating tasks on a virtual
// clock. The owner advances the clock once per logic tick; tasks fire on the
// owner's goroutine from inside Advance, so nothing else needs locking.
//
// A Scheduler is not safe for concurrent use.
package schedule

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// MinInterval is the shortest gap between two firings of a repeating task.
const MinInterval = time.Millisecond

// Handle identifies a scheduled task. The zero Handle refers to nothing.
type Handle struct {
	id uuid.UUID
}

// Valid reports whether h was returned by After or Repeat.
func (h Handle) Valid() bool { return h.id != uuid.Nil }

func (h Handle) String() string { return h.id.String() }

type task struct {
	id    uuid.UUID
	due   time.Duration
	seq   uint64
	fn    func()
	next  func() time.Duration // nil for one-shot tasks
	index int
}

// Scheduler is a virtual-time timer queue.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	queue taskQueue
	live  map[uuid.UUID]*task
}

// New creates a scheduler whose clock starts at zero.
func New() *Scheduler {
	return &Scheduler{live: make(map[uuid.UUID]*task)}
}

// Now returns the virtual time.
func (s *Scheduler) Now() time.Duration { return s.now }

// After runs fn once, d after the current virtual time. A non-positive d
// fires on the next Advance.
func (s *Scheduler) After(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	return s.push(s.now+d, fn, nil)
}

// Repeat runs fn repeatedly. next is called to draw each interval, including
// the first, so the loop can jitter. Intervals shorter than MinInterval are
// raised to it.
func (s *Scheduler) Repeat(next func() time.Duration, fn func()) Handle {
	return s.push(s.now+interval(next), fn, next)
}

func (s *Scheduler) push(due time.Duration, fn func(), next func() time.Duration) Handle {
	s.seq++
	t := &task{id: uuid.New(), due: due, seq: s.seq, fn: fn, next: next}
	heap.Push(&s.queue, t)
	s.live[t.id] = t
	return Handle{id: t.id}
}

// Cancel stops the task behind h. It returns false when the task already
// fired or was canceled. Canceling from inside the task itself is allowed.
func (s *Scheduler) Cancel(h Handle) bool {
	t, ok := s.live[h.id]
	if !ok {
		return false
	}
	delete(s.live, h.id)
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
	return true
}

// Pending reports whether the task behind h will still fire.
func (s *Scheduler) Pending(h Handle) bool {
	_, ok := s.live[h.id]
	return ok
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int { return len(s.live) }

// Advance moves the clock forward by dt and fires every task that comes due,
// in due order (ties in scheduling order). The clock reads the task's due
// time while it runs, so tasks scheduled from a callback are relative to it.
// It returns the number of callbacks run.
func (s *Scheduler) Advance(dt time.Duration) int {
	if dt < 0 {
		dt = 0
	}
	target := s.now + dt
	fired := 0

	for len(s.queue) > 0 && s.queue[0].due <= target {
		t := heap.Pop(&s.queue).(*task)
		if t.next == nil {
			delete(s.live, t.id)
		}
		if t.due > s.now {
			s.now = t.due
		}
		t.fn()
		fired++

		if t.next != nil {
			if _, ok := s.live[t.id]; ok {
				s.seq++
				t.seq = s.seq
				t.due = s.now + interval(t.next)
				heap.Push(&s.queue, t)
			}
		}
	}

	s.now = target
	return fired
}

// Reset cancels everything without firing.
func (s *Scheduler) Reset() {
	s.queue = nil
	s.live = make(map[uuid.UUID]*task)
}

func interval(next func() time.Duration) time.Duration {
	d := next()
	if d < MinInterval {
		return MinInterval
	}
	return d
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due == q[j].due {
		return q[i].seq < q[j].seq
	}
	return q[i].due < q[j].due
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

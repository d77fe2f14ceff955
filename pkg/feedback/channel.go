package feedback

import (
	"time"

	"github.com/teslashibe/go-companion/pkg/schedule"
)

// Channel is a delayed on/off switch with at most one outstanding
// transition. Requesting the opposite state cancels a pending transition;
// requesting the current target is a no-op.
type Channel struct {
	name       string
	sched      *schedule.Scheduler
	startDelay time.Duration
	stopDelay  time.Duration
	onStart    func()
	onStop     func()

	active  bool
	pending schedule.Handle
}

// NewChannel creates an inactive channel. onStart and onStop run from the
// scheduler once their delay elapses, or immediately for a zero delay.
func NewChannel(name string, sched *schedule.Scheduler, startDelay, stopDelay time.Duration, onStart, onStop func()) *Channel {
	return &Channel{
		name:       name,
		sched:      sched,
		startDelay: startDelay,
		stopDelay:  stopDelay,
		onStart:    onStart,
		onStop:     onStop,
	}
}

// Request sets the target state and reports whether a transition was issued.
func (c *Channel) Request(active bool) bool {
	if active == c.active {
		return false
	}
	c.sched.Cancel(c.pending)
	c.pending = schedule.Handle{}
	c.active = active

	fn, delay := c.onStop, c.stopDelay
	if active {
		fn, delay = c.onStart, c.startDelay
	}
	if fn == nil {
		return true
	}
	if delay <= 0 {
		fn()
		return true
	}
	c.pending = c.sched.After(delay, func() {
		c.pending = schedule.Handle{}
		fn()
	})
	return true
}

// Active returns the requested target state.
func (c *Channel) Active() bool { return c.active }

// Pending reports whether a transition is waiting on its delay.
func (c *Channel) Pending() bool { return c.sched.Pending(c.pending) }

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Cancel drops any pending transition without running it.
func (c *Channel) Cancel() {
	c.sched.Cancel(c.pending)
	c.pending = schedule.Handle{}
}

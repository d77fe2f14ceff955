package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfterFiresInDueOrder(t *testing.T) {
	s := New()
	var got []string

	s.After(300*time.Millisecond, func() { got = append(got, "c") })
	s.After(100*time.Millisecond, func() { got = append(got, "a") })
	s.After(100*time.Millisecond, func() { got = append(got, "b") })

	assert.Equal(t, 0, s.Advance(50*time.Millisecond))
	assert.Empty(t, got)

	assert.Equal(t, 2, s.Advance(100*time.Millisecond))
	assert.Equal(t, []string{"a", "b"}, got)

	assert.Equal(t, 1, s.Advance(time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1150*time.Millisecond, s.Now())
}

func TestCancel(t *testing.T) {
	s := New()
	fired := false
	h := s.After(time.Second, func() { fired = true })

	require.True(t, s.Pending(h))
	assert.True(t, s.Cancel(h))
	assert.False(t, s.Cancel(h))
	assert.False(t, s.Pending(h))

	s.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.False(t, s.Cancel(Handle{}))
	assert.False(t, Handle{}.Valid())
	assert.True(t, h.Valid())
}

func TestNestedScheduleIsRelativeToFiringTime(t *testing.T) {
	s := New()
	var at []time.Duration

	s.After(100*time.Millisecond, func() {
		at = append(at, s.Now())
		s.After(100*time.Millisecond, func() { at = append(at, s.Now()) })
	})

	// one big step fires both, the second at 200ms virtual
	s.Advance(time.Second)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, at)
}

func TestRepeatRedrawsInterval(t *testing.T) {
	s := New()
	intervals := []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 200 * time.Millisecond}
	draws := 0
	next := func() time.Duration {
		d := intervals[draws%len(intervals)]
		draws++
		return d
	}
	var at []time.Duration
	h := s.Repeat(next, func() { at = append(at, s.Now()) })

	s.Advance(950 * time.Millisecond)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		400 * time.Millisecond,
		600 * time.Millisecond,
		700 * time.Millisecond,
	}, at)
	assert.True(t, s.Pending(h))

	s.Cancel(h)
	s.Advance(time.Second)
	assert.Len(t, at, 4)
}

func TestRepeatCancelFromInside(t *testing.T) {
	s := New()
	count := 0
	var h Handle
	h = s.Repeat(func() time.Duration { return 10 * time.Millisecond }, func() {
		count++
		if count == 3 {
			s.Cancel(h)
		}
	})

	s.Advance(time.Second)
	assert.Equal(t, 3, count)
	assert.Equal(t, 0, s.Len())
}

func TestRepeatFloorsInterval(t *testing.T) {
	s := New()
	count := 0
	s.Repeat(func() time.Duration { return 0 }, func() { count++ })

	s.Advance(10 * time.Millisecond)
	assert.Equal(t, 10, count)
}

func TestReset(t *testing.T) {
	s := New()
	fired := false
	s.After(0, func() { fired = true })
	s.Reset()
	s.Advance(time.Second)
	assert.False(t, fired)
	assert.Equal(t, 0, s.Len())
}

package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const tick = 100 * time.Millisecond

func TestSignalDwell(t *testing.T) {
	s := NewSignal(time.Second, 0)

	for i := 0; i < 10; i++ {
		assert.False(t, s.Update(true, tick), "tick %d", i)
	}
	// exactly 1s held: not yet, activation needs strictly more
	assert.False(t, s.Value())
	assert.InDelta(t, 1.0, s.Progress(), 1e-9)

	assert.True(t, s.Update(true, tick))
	assert.True(t, s.Value())
}

func TestSignalDwellInterrupted(t *testing.T) {
	s := NewSignal(time.Second, 0)
	for i := 0; i < 9; i++ {
		s.Update(true, tick)
	}
	s.Update(false, tick)
	assert.Equal(t, 0.0, s.Progress())
	for i := 0; i < 10; i++ {
		s.Update(true, tick)
	}
	assert.False(t, s.Value())
}

func TestSignalImmediateRelease(t *testing.T) {
	s := NewSignal(0, 0)
	assert.True(t, s.Update(true, tick))
	assert.True(t, s.Update(false, tick))
	assert.False(t, s.Value())
}

func TestSignalGrace(t *testing.T) {
	s := NewSignal(0, 330*time.Millisecond)
	s.Force(true)

	assert.False(t, s.Update(false, tick))
	assert.False(t, s.Update(false, tick))
	assert.False(t, s.Update(false, tick))
	// reappearing clears the grace timer
	assert.False(t, s.Update(true, tick))
	assert.False(t, s.Update(false, tick))
	assert.False(t, s.Update(false, tick))
	assert.False(t, s.Update(false, tick))
	assert.True(t, s.Value())

	assert.True(t, s.Update(false, tick))
	assert.False(t, s.Value())
}

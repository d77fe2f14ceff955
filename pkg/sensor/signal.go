package sensor

import "time"

// Signal debounces a boolean condition. It turns on once the condition has
// held for longer than Threshold (immediately when Threshold is zero) and
// turns off after the condition has been absent for longer than Grace
// (immediately when Grace is zero).
type Signal struct {
	Threshold time.Duration
	Grace     time.Duration

	value      bool
	timer      time.Duration
	graceTimer time.Duration
}

// NewSignal creates a signal with the given activation dwell and release grace.
func NewSignal(threshold, grace time.Duration) Signal {
	return Signal{Threshold: threshold, Grace: grace}
}

// Update feeds one tick of the raw condition and reports whether the
// debounced value changed.
func (s *Signal) Update(cond bool, dt time.Duration) bool {
	if cond {
		s.graceTimer = 0
		if s.value {
			return false
		}
		s.timer += dt
		if s.Threshold == 0 || s.timer > s.Threshold {
			s.value = true
			s.timer = 0
			return true
		}
		return false
	}

	s.timer = 0
	if !s.value {
		return false
	}
	s.graceTimer += dt
	if s.Grace == 0 || s.graceTimer > s.Grace {
		s.value = false
		s.graceTimer = 0
		return true
	}
	return false
}

// Value returns the debounced state.
func (s *Signal) Value() bool { return s.value }

// Progress returns how far the dwell has advanced towards activation, in [0,1].
func (s *Signal) Progress() float64 {
	if s.value {
		return 1
	}
	if s.Threshold <= 0 {
		return 0
	}
	p := float64(s.timer) / float64(s.Threshold)
	if p > 1 {
		return 1
	}
	return p
}

// Force sets the value directly and clears both timers.
func (s *Signal) Force(v bool) {
	s.value = v
	s.timer = 0
	s.graceTimer = 0
}

// Reset returns the signal to off.
func (s *Signal) Reset() { s.Force(false) }

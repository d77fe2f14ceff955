package sensor

import (
	"sync"
	"time"
)

// Latest holds the most recent sample delivered by a producer goroutine
// (network ingest, a replay file) for a consumer that polls once per frame.
// A sample older than the staleness timeout is not returned.
type Latest struct {
	mu         sync.Mutex
	sample     Sample
	at         time.Time
	has        bool
	updates    uint64
	staleAfter time.Duration
	now        func() time.Time
}

// NewLatest creates a store. A non-positive staleAfter never expires samples.
func NewLatest(staleAfter time.Duration) *Latest {
	return &Latest{staleAfter: staleAfter, now: time.Now}
}

// Store replaces the current sample.
func (l *Latest) Store(s Sample) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sample = s
	l.at = l.now()
	l.has = true
	l.updates++
}

// Poll returns the current sample if it is fresh. It never blocks on the
// producer for longer than the mutex hold.
func (l *Latest) Poll() (Sample, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.has {
		return Sample{}, false
	}
	if l.staleAfter > 0 && l.now().Sub(l.at) > l.staleAfter {
		return l.sample, false
	}
	return l.sample, true
}

// Get returns the current sample or ErrSourceUnavailable.
func (l *Latest) Get() (Sample, error) {
	s, ok := l.Poll()
	if !ok {
		return s, ErrSourceUnavailable
	}
	return s, nil
}

// Clear drops the stored sample, for example when the producer disconnects.
func (l *Latest) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.has = false
}

// Updates returns how many samples have been stored.
func (l *Latest) Updates() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}

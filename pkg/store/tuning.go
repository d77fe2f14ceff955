package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/teslashibe/go-companion/pkg/movement"
)

// Tuning keeps the last tuning applied at runtime.
type Tuning struct {
	mu    sync.Mutex
	store Store
}

// NewTuning wraps a backend.
func NewTuning(s Store) *Tuning {
	return &Tuning{store: s}
}

// Apply overlays the saved tuning onto base. Nothing saved returns base
// unchanged.
func (t *Tuning) Apply(base movement.Tuning) (movement.Tuning, error) {
	t.mu.Lock()
	data, err := t.store.Load()
	t.mu.Unlock()
	if err != nil {
		return base, err
	}
	if len(data) == 0 {
		return base, nil
	}

	var saved movement.Tuning
	if err := json.Unmarshal(data, &saved); err != nil {
		return base, fmt.Errorf("decode tuning: %w", err)
	}
	merged := base.Merge(saved)
	if err := merged.Validate(); err != nil {
		return base, fmt.Errorf("saved tuning: %w", err)
	}
	return merged, nil
}

// SaveTuning persists tun.
func (t *Tuning) SaveTuning(tun movement.Tuning) error {
	data, err := json.MarshalIndent(tun, "", "  ")
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Save(data)
}

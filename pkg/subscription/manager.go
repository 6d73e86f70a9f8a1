package subscription

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/adsim-project/adsim-go/pkg/registry"
)

// Manager owns the subscription set.
type Manager struct {
	mu sync.Mutex

	subs       map[uint32]*Subscription
	order      []uint32
	nextHandle uint32
}

// NewManager creates an empty manager. The first handle issued is 1.
func NewManager() *Manager {
	return &Manager{subs: make(map[uint32]*Subscription)}
}

// Add registers a subscription and returns its handle. A non-positive
// cycle time is replaced by DefaultCycleTime.
func (m *Manager) Add(addr registry.Address, cycle time.Duration, target Target, now time.Time) (uint32, error) {
	if target == nil {
		return 0, ErrNilTarget
	}
	if cycle <= 0 {
		cycle = DefaultCycleTime
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextHandle++
	handle := m.nextHandle

	m.subs[handle] = &Subscription{
		Handle:     handle,
		Address:    addr,
		Target:     target,
		CycleTime:  cycle,
		CreatedAt:  now,
		LastSentAt: now,
	}
	m.order = append(m.order, handle)

	return handle, nil
}

// Delete removes a subscription.
func (m *Manager) Delete(handle uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[handle]; !ok {
		return fmt.Errorf("%w: %d", ErrHandleNotFound, handle)
	}
	m.remove(handle)
	return nil
}

// RemoveTarget removes every subscription of target and returns how many
// were removed.
func (m *Manager) RemoveTarget(target Target) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var handles []uint32
	for _, h := range m.order {
		if m.subs[h].Target == target {
			handles = append(handles, h)
		}
	}
	for _, h := range handles {
		m.remove(h)
	}
	return len(handles)
}

// Get returns a copy of a subscription.
func (m *Manager) Get(handle uint32) (Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.subs[handle]
	if !ok {
		return Subscription{}, false
	}
	return *s, true
}

// Due returns copies of the subscriptions due at now, in insertion order.
func (m *Manager) Due(now time.Time) []Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []Subscription
	for _, h := range m.order {
		if s := m.subs[h]; s.IsDue(now) {
			due = append(due, *s)
		}
	}
	return due
}

// MarkSent records a delivery attempt. It reports false when the
// subscription was deleted in the meantime.
func (m *Manager) MarkSent(handle uint32, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.subs[handle]
	if !ok {
		return false
	}
	s.LastSentAt = now
	return true
}

// Count returns the number of active subscriptions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Handles returns the active handles in insertion order.
func (m *Manager) Handles() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order)
}

// remove deletes a handle. Callers hold the lock.
func (m *Manager) remove(handle uint32) {
	delete(m.subs, handle)
	if i := slices.Index(m.order, handle); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
}

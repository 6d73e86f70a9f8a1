package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adsim-project/adsim-go/pkg/registry"
	"github.com/adsim-project/adsim-go/pkg/simulation"
	"github.com/adsim-project/adsim-go/pkg/topology"
	"github.com/adsim-project/adsim-go/pkg/wire"
)

type mockTarget struct {
	mock.Mock
	id string
}

func (m *mockTarget) ID() string { return m.id }

func (m *mockTarget) Deliver(n *wire.Notification) error {
	return m.Called(n).Error(0)
}

// recordingTarget collects notifications without expectations.
type recordingTarget struct {
	mu     sync.Mutex
	id     string
	notifs []*wire.Notification
}

func (r *recordingTarget) ID() string { return r.id }

func (r *recordingTarget) Deliver(n *wire.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifs = append(r.notifs, n)
	return nil
}

func (r *recordingTarget) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notifs)
}

var t0 = time.Unix(1000, 0)

func addr(m, s uint16) registry.Address { return registry.Address{Module: m, Sensor: s} }

func TestHandleLifecycle(t *testing.T) {
	m := NewManager()
	target := &recordingTarget{id: "a"}

	h1, err := m.Add(addr(1, 1), time.Second, target, t0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), h1)

	h2, err := m.Add(addr(1, 2), time.Second, target, t0)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), h2)

	require.NoError(t, m.Delete(h1))
	assert.ErrorIs(t, m.Delete(h1), ErrHandleNotFound)

	// Handles are never reused.
	h3, err := m.Add(addr(1, 1), time.Second, target, t0)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), h3)

	assert.Equal(t, 2, m.Count())
	assert.Equal(t, []uint32{2, 3}, m.Handles())
	assert.ErrorIs(t, m.Delete(99), ErrHandleNotFound)
}

func TestAddDefaults(t *testing.T) {
	m := NewManager()

	h, err := m.Add(addr(1, 1), 0, &recordingTarget{}, t0)
	require.NoError(t, err)

	sub, ok := m.Get(h)
	require.True(t, ok)
	assert.Equal(t, DefaultCycleTime, sub.CycleTime)
	assert.Equal(t, t0, sub.CreatedAt)
	assert.Equal(t, t0, sub.LastSentAt)

	_, err = m.Add(addr(1, 1), time.Second, nil, t0)
	assert.ErrorIs(t, err, ErrNilTarget)
}

func TestDueOrderAndWindow(t *testing.T) {
	m := NewManager()
	target := &recordingTarget{}

	fast, _ := m.Add(addr(1, 1), 100*time.Millisecond, target, t0)
	slow, _ := m.Add(addr(1, 2), time.Second, target, t0)
	second, _ := m.Add(addr(2, 1), 100*time.Millisecond, target, t0)

	assert.Empty(t, m.Due(t0))
	assert.Empty(t, m.Due(t0.Add(99*time.Millisecond)))

	due := m.Due(t0.Add(100 * time.Millisecond))
	require.Len(t, due, 2)
	assert.Equal(t, fast, due[0].Handle)
	assert.Equal(t, second, due[1].Handle)

	due = m.Due(t0.Add(time.Second))
	require.Len(t, due, 3)
	assert.Equal(t, []uint32{fast, slow, second}, []uint32{due[0].Handle, due[1].Handle, due[2].Handle})

	assert.True(t, m.MarkSent(fast, t0.Add(time.Second)))
	assert.False(t, m.MarkSent(42, t0))
}

func TestRemoveTarget(t *testing.T) {
	m := NewManager()
	a := &recordingTarget{id: "a"}
	b := &recordingTarget{id: "b"}

	m.Add(addr(1, 1), time.Second, a, t0)
	hb, _ := m.Add(addr(1, 2), time.Second, b, t0)
	m.Add(addr(1, 3), time.Second, a, t0)

	assert.Equal(t, 2, m.RemoveTarget(a))
	assert.Equal(t, []uint32{hb}, m.Handles())
	assert.Equal(t, 0, m.RemoveTarget(a))
}

func newScheduler(t *testing.T) (*Scheduler, *registry.Registry) {
	t.Helper()
	reg := registry.Build(topology.Default(), t0, nil)
	return NewScheduler(NewManager(), reg, SchedulerConfig{}), reg
}

func TestSchedulerDeliversOncePerCycle(t *testing.T) {
	s, reg := newScheduler(t)
	target := &recordingTarget{id: "conn"}

	h, err := s.Manager().Add(addr(2, 1), time.Second, target, t0)
	require.NoError(t, err)

	// Nothing before the first cycle has elapsed.
	for ms := 0; ms < 1000; ms += 100 {
		assert.Equal(t, 0, s.Tick(t0.Add(time.Duration(ms)*time.Millisecond)))
	}

	assert.Equal(t, 1, s.Tick(t0.Add(time.Second)))
	require.Equal(t, 1, target.count())

	// No second delivery inside a 999ms window.
	for ms := 1100; ms <= 1999; ms += 100 {
		s.Tick(t0.Add(time.Duration(ms) * time.Millisecond))
	}
	assert.Equal(t, 1, target.count())

	assert.Equal(t, 1, s.Tick(t0.Add(2*time.Second)))
	assert.Equal(t, 2, target.count())

	n := target.notifs[0]
	snap, _ := reg.Lookup(addr(2, 1))
	assert.Equal(t, h, n.Handle)
	assert.Equal(t, uint16(2), n.Module)
	assert.Equal(t, uint16(1), n.Sensor)
	assert.Equal(t, wire.EncodeFloat32(snap.Value), n.Data)
	assert.Equal(t, t0.Add(time.Second), n.Timestamp)
}

func TestSchedulerCarriesWrittenValue(t *testing.T) {
	s, reg := newScheduler(t)
	target := &recordingTarget{}

	s.Manager().Add(addr(1, 1), 100*time.Millisecond, target, t0)
	require.NoError(t, reg.Write(addr(1, 1), 12.5, t0))

	s.Tick(t0.Add(100 * time.Millisecond))
	require.Equal(t, 1, target.count())
	assert.Equal(t, 12.5, target.notifs[0].Value())
}

func TestSchedulerDeliveryFailureKeepsSubscription(t *testing.T) {
	s, _ := newScheduler(t)
	target := &mockTarget{id: "broken"}
	target.On("Deliver", mock.AnythingOfType("*wire.Notification")).Return(errors.New("connection reset")).Once()
	target.On("Deliver", mock.AnythingOfType("*wire.Notification")).Return(nil)

	h, _ := s.Manager().Add(addr(1, 3), time.Second, target, t0)

	assert.Equal(t, 0, s.Tick(t0.Add(time.Second)))

	sub, ok := s.Manager().Get(h)
	require.True(t, ok, "subscription should survive a failed delivery")
	assert.Equal(t, t0.Add(time.Second), sub.LastSentAt)

	// Not retried before the next cycle.
	assert.Equal(t, 0, s.Tick(t0.Add(1500*time.Millisecond)))
	assert.Equal(t, 1, s.Tick(t0.Add(2*time.Second)))

	target.AssertNumberOfCalls(t, "Deliver", 2)
}

func TestSchedulerDeletedSubscriptionNotDelivered(t *testing.T) {
	s, _ := newScheduler(t)
	target := &mockTarget{id: "a"}

	h, _ := s.Manager().Add(addr(1, 1), time.Second, target, t0)
	require.NoError(t, s.Manager().Delete(h))

	assert.Equal(t, 0, s.Tick(t0.Add(5*time.Second)))
	target.AssertNotCalled(t, "Deliver", mock.Anything)
}

func TestSchedulerRun(t *testing.T) {
	reg := registry.Build(topology.Default(), t0, nil)
	clock := simulation.NewManualClock(t0)
	s := NewScheduler(NewManager(), reg, SchedulerConfig{Interval: 2 * time.Millisecond, Clock: clock})
	target := &recordingTarget{}
	s.Manager().Add(addr(1, 1), time.Second, target, t0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	clock.Advance(time.Second)
	deadline := time.Now().Add(2 * time.Second)
	for target.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduler did not deliver")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	assert.Equal(t, 1, target.count())
}

package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/adsim-project/adsim-go/pkg/registry"
	"github.com/adsim-project/adsim-go/pkg/topology"
	"github.com/adsim-project/adsim-go/pkg/waveform"
)

func TestNewRefresherDefaults(t *testing.T) {
	r := NewRefresher(registry.Build(topology.Default(), time.Unix(0, 0), nil), RefresherConfig{})

	if r.Interval() != 5*time.Second {
		t.Errorf("Interval() = %v, want 5s", r.Interval())
	}
	if _, ok := r.config.Clock.(SystemClock); !ok {
		t.Errorf("Clock = %T, want SystemClock", r.config.Clock)
	}
}

func TestWriteThenTickOverrides(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	reg := registry.Build(topology.Default(), clock.Now(), nil)
	r := NewRefresher(reg, RefresherConfig{Clock: clock})

	addr := registry.Address{Module: 1, Sensor: 1}
	if err := reg.Write(addr, 42, clock.Now()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	s, _ := reg.Lookup(addr)
	if s.Value != 42 {
		t.Fatalf("Value after write = %v, want 42", s.Value)
	}

	now := clock.Advance(time.Second)
	r.Tick(now)

	s, _ = reg.Lookup(addr)
	want := waveform.Generate(s.Kind, s.Config, 1000, s.Min, s.Max, nil)
	if s.Value != want {
		t.Errorf("Value after tick = %v, want %v", s.Value, want)
	}
	if !s.LastUpdated.Equal(now) {
		t.Errorf("LastUpdated = %v, want %v", s.LastUpdated, now)
	}
	if r.Ticks() != 1 {
		t.Errorf("Ticks() = %d, want 1", r.Ticks())
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	reg := registry.Build(topology.Default(), time.Now(), nil)
	r := NewRefresher(reg, RefresherConfig{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for r.Ticks() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("refresher did not tick")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestManualClock(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewManualClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}
	if got := c.Advance(1500 * time.Millisecond); !got.Equal(start.Add(1500 * time.Millisecond)) {
		t.Errorf("Advance() = %v", got)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("Set() did not reset clock")
	}
}

func TestOnTickHook(t *testing.T) {
	calls := 0
	r := NewRefresher(registry.Build(topology.Default(), time.Unix(0, 0), nil), RefresherConfig{
		OnTick: func() { calls++ },
	})

	r.Tick(time.Unix(1, 0))
	r.Tick(time.Unix(2, 0))

	if calls != 2 {
		t.Errorf("OnTick calls = %d, want 2", calls)
	}
}

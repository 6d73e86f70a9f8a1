package simulation

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adsim-project/adsim-go/pkg/registry"
	"github.com/adsim-project/adsim-go/pkg/topology"
	"github.com/adsim-project/adsim-go/pkg/waveform"
)

// RefresherConfig configures a Refresher.
type RefresherConfig struct {
	// Interval between refreshes. Defaults to 5s.
	Interval time.Duration

	// Clock defaults to SystemClock.
	Clock Clock

	// Rand drives the noisy-sine noise. Nil disables noise.
	Rand waveform.Rand

	// Logger is optional.
	Logger *slog.Logger

	// OnTick, if set, runs after every refresh.
	OnTick func()
}

// Refresher periodically recomputes every sensor value in a registry.
type Refresher struct {
	registry *registry.Registry
	config   RefresherConfig

	// rand sources are not safe for concurrent use; Tick may be called
	// from tests while Run is active.
	randMu sync.Mutex

	ticks atomic.Uint64
}

// NewRefresher creates a refresher for reg.
func NewRefresher(reg *registry.Registry, config RefresherConfig) *Refresher {
	if config.Interval <= 0 {
		config.Interval = topology.DefaultUpdateInterval
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}
	return &Refresher{registry: reg, config: config}
}

// Interval returns the refresh interval.
func (r *Refresher) Interval() time.Duration {
	return r.config.Interval
}

// Ticks returns how many refreshes have run.
func (r *Refresher) Ticks() uint64 {
	return r.ticks.Load()
}

// Tick recomputes all values at now.
func (r *Refresher) Tick(now time.Time) {
	r.randMu.Lock()
	r.registry.Refresh(now, r.config.Rand)
	r.randMu.Unlock()

	n := r.ticks.Add(1)
	r.debugLog("values refreshed", "tick", n, "sensors", r.registry.Len())

	if r.config.OnTick != nil {
		r.config.OnTick()
	}
}

// Run refreshes at the configured interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.debugLog("refresher started", "interval", r.config.Interval)

	for {
		select {
		case <-ctx.Done():
			r.debugLog("refresher stopped")
			return nil
		case <-ticker.C:
			r.Tick(r.config.Clock.Now())
		}
	}
}

func (r *Refresher) debugLog(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, args...)
	}
}

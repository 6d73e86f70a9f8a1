package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/adsim-project/adsim-go/pkg/log"
	"github.com/adsim-project/adsim-go/pkg/metrics"
	"github.com/adsim-project/adsim-go/pkg/registry"
	"github.com/adsim-project/adsim-go/pkg/simulation"
	"github.com/adsim-project/adsim-go/pkg/wire"
)

// ValueSource provides current sensor values.
type ValueSource interface {
	Lookup(addr registry.Address) (registry.Snapshot, bool)
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Interval is the due-check tick. Defaults to 100ms.
	Interval time.Duration

	// Clock defaults to simulation.SystemClock.
	Clock simulation.Clock

	// Logger is optional.
	Logger *slog.Logger

	// ProtocolLogger receives one event per delivered notification.
	ProtocolLogger log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Scheduler pushes due notifications to their targets.
type Scheduler struct {
	manager *Manager
	source  ValueSource
	config  SchedulerConfig
}

// NewScheduler creates a scheduler over a manager and value source.
func NewScheduler(manager *Manager, source ValueSource, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultTickInterval
	}
	if config.Clock == nil {
		config.Clock = simulation.SystemClock{}
	}
	config.ProtocolLogger = log.OrNoop(config.ProtocolLogger)
	return &Scheduler{manager: manager, source: source, config: config}
}

// Manager returns the scheduler's subscription manager.
func (s *Scheduler) Manager() *Manager {
	return s.manager
}

// Tick delivers every subscription due at now and returns the number of
// successful deliveries. Delivery happens outside the manager lock.
func (s *Scheduler) Tick(now time.Time) int {
	delivered := 0

	for _, sub := range s.manager.Due(now) {
		snap, ok := s.source.Lookup(sub.Address)
		if !ok {
			s.warnLog("subscribed address vanished", "handle", sub.Handle, "address", sub.Address.String())
			s.manager.MarkSent(sub.Handle, now)
			continue
		}

		notif := &wire.Notification{
			Handle:    sub.Handle,
			Module:    sub.Address.Module,
			Sensor:    sub.Address.Sensor,
			Data:      wire.EncodeFloat32(snap.Value),
			Timestamp: now,
		}

		err := sub.Target.Deliver(notif)
		s.manager.MarkSent(sub.Handle, now)
		s.config.Metrics.ObserveNotification(err == nil)

		if err != nil {
			s.warnLog("notification delivery failed",
				"handle", sub.Handle,
				"target", sub.Target.ID(),
				"error", err)
			continue
		}

		delivered++
		s.config.ProtocolLogger.Log(log.NotificationEvent(sub.Target.ID(), notif))
	}

	return delivered
}

// Run ticks at the configured interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(s.config.Clock.Now())
		}
	}
}

func (s *Scheduler) warnLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, args...)
	}
}

package subscription

import (
	"errors"
	"time"

	"github.com/adsim-project/adsim-go/pkg/registry"
	"github.com/adsim-project/adsim-go/pkg/wire"
)

// Subscription errors.
var (
	ErrHandleNotFound = errors.New("notification handle not found")
	ErrNilTarget      = errors.New("nil notification target")
)

// Defaults.
const (
	// DefaultCycleTime replaces a zero cycle time.
	DefaultCycleTime = time.Second

	// DefaultTickInterval is the scheduler's due-check interval.
	DefaultTickInterval = 100 * time.Millisecond
)

// Target receives pushed notifications. Implemented by transport
// connections; compared by identity.
type Target interface {
	// ID identifies the target in logs.
	ID() string

	// Deliver sends a notification. It must not block for long; it is
	// called from the scheduler goroutine.
	Deliver(notif *wire.Notification) error
}

// Subscription is a copy of one registered subscription.
type Subscription struct {
	Handle     uint32
	Address    registry.Address
	Target     Target
	CycleTime  time.Duration
	CreatedAt  time.Time
	LastSentAt time.Time
}

// IsDue reports whether the cycle time has elapsed at now.
func (s Subscription) IsDue(now time.Time) bool {
	return now.Sub(s.LastSentAt) >= s.CycleTime
}

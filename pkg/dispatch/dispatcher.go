package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adsim-project/adsim-go/pkg/datastore"
	"github.com/adsim-project/adsim-go/pkg/log"
	"github.com/adsim-project/adsim-go/pkg/metrics"
	"github.com/adsim-project/adsim-go/pkg/registry"
	"github.com/adsim-project/adsim-go/pkg/simulation"
	"github.com/adsim-project/adsim-go/pkg/subscription"
	"github.com/adsim-project/adsim-go/pkg/version"
	"github.com/adsim-project/adsim-go/pkg/wire"
)

// DefaultWriteTimeout bounds one background datastore write.
const DefaultWriteTimeout = 5 * time.Second

// ErrNilRequest is reported when HandleRequest is given no request.
var ErrNilRequest = errors.New("nil request")

// Config configures a Dispatcher.
type Config struct {
	// DeviceName is reported by ReadDeviceInfo. Defaults to version.DeviceName.
	DeviceName string

	// Version is reported by ReadDeviceInfo. Defaults to version.MustCurrent().
	Version *version.Version

	// Store receives client writes. Defaults to datastore.Noop.
	Store datastore.Store

	// WriteTimeout bounds a datastore write. Defaults to 5s.
	WriteTimeout time.Duration

	// Clock defaults to simulation.SystemClock.
	Clock simulation.Clock

	// Logger is optional.
	Logger *slog.Logger

	// ProtocolLogger receives request and response events.
	ProtocolLogger log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Dispatcher routes requests to their handlers.
type Dispatcher struct {
	registry *registry.Registry
	subs     *subscription.Manager
	config   Config
	info     wire.DeviceInfo

	// pending tracks background datastore writes.
	pending sync.WaitGroup
}

// New creates a dispatcher over a registry and subscription manager.
func New(reg *registry.Registry, subs *subscription.Manager, config Config) *Dispatcher {
	if config.DeviceName == "" {
		config.DeviceName = version.DeviceName
	}
	if config.Version == nil {
		v := version.MustCurrent()
		config.Version = &v
	}
	if config.Store == nil {
		config.Store = datastore.Noop{}
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.Clock == nil {
		config.Clock = simulation.SystemClock{}
	}
	config.ProtocolLogger = log.OrNoop(config.ProtocolLogger)

	return &Dispatcher{
		registry: reg,
		subs:     subs,
		config:   config,
		info: wire.DeviceInfo{
			Name:  config.DeviceName,
			Major: config.Version.Major,
			Minor: config.Version.Minor,
			Build: config.Version.Build,
		},
	}
}

// HandleRequest processes one request on behalf of target and returns its
// response. target may be nil for transports without push support; an
// AddNotification from such a caller is answered SERVICE_NOT_SUPPORTED.
func (d *Dispatcher) HandleRequest(target subscription.Target, req *wire.Request) (resp *wire.Response) {
	start := time.Now()
	connID := targetID(target)

	if req == nil {
		d.config.ProtocolLogger.Log(log.ErrorEvent(connID, log.LayerService, ErrNilRequest, "dispatch"))
		return &wire.Response{Status: wire.StatusServiceNotSupported}
	}

	d.config.ProtocolLogger.Log(log.RequestEvent(connID, req))

	defer func() {
		if r := recover(); r != nil {
			d.errorLog("request handler panicked",
				"command", req.Command.String(),
				"messageId", req.MessageID,
				"panic", fmt.Sprint(r))
			d.config.ProtocolLogger.Log(log.ErrorEvent(connID, log.LayerService,
				fmt.Errorf("panic: %v", r), "handle "+req.Command.String()))
			resp = d.status(req, wire.StatusServiceNotSupported)
		}

		elapsed := time.Since(start)
		d.config.Metrics.ObserveRequest(req.Command.String(), resp.Status.String(), elapsed)
		d.config.ProtocolLogger.Log(log.ResponseEvent(connID, resp, elapsed))
	}()

	switch req.Command {
	case wire.CmdRead:
		return d.handleRead(req)
	case wire.CmdWrite:
		return d.handleWrite(connID, req)
	case wire.CmdReadWrite:
		return d.handleReadWrite(req)
	case wire.CmdReadDeviceInfo:
		return d.handleReadDeviceInfo(req)
	case wire.CmdReadState:
		return d.handleReadState(req)
	case wire.CmdWriteControl:
		return d.handleWriteControl(req)
	case wire.CmdAddNotification:
		return d.handleAddNotification(target, req)
	case wire.CmdDeleteNotification:
		return d.handleDeleteNotification(req)
	default:
		d.debugLog("unsupported command", "command", uint16(req.Command), "messageId", req.MessageID)
		return d.status(req, wire.StatusServiceNotSupported)
	}
}

// Wait blocks until all background datastore writes have finished.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

func (d *Dispatcher) handleRead(req *wire.Request) *wire.Response {
	snap, ok := d.registry.Lookup(address(req))
	if !ok {
		return d.status(req, wire.StatusSymbolNotFound)
	}
	return d.value(req, snap.Value)
}

func (d *Dispatcher) handleWrite(connID string, req *wire.Request) *wire.Response {
	addr := address(req)
	value := wire.DecodeFloat32(req.Data)
	now := d.config.Clock.Now()

	if err := d.registry.Write(addr, value, now); err != nil {
		return d.status(req, wire.StatusSymbolNotFound)
	}

	snap, _ := d.registry.Lookup(addr)
	d.recordWrite(connID, datastore.WriteRecord{
		Module: addr.Module,
		Sensor: addr.Sensor,
		Name:   snap.Name,
		Value:  value,
		At:     now,
	})

	return d.status(req, wire.StatusSuccess)
}

// handleReadWrite ignores the write data and returns the current value.
func (d *Dispatcher) handleReadWrite(req *wire.Request) *wire.Response {
	snap, ok := d.registry.Lookup(address(req))
	if !ok {
		return d.status(req, wire.StatusSymbolNotFound)
	}
	return d.value(req, snap.Value)
}

func (d *Dispatcher) handleReadDeviceInfo(req *wire.Request) *wire.Response {
	resp := d.status(req, wire.StatusSuccess)
	info := d.info
	resp.DeviceInfo = &info
	return resp
}

func (d *Dispatcher) handleReadState(req *wire.Request) *wire.Response {
	resp := d.status(req, wire.StatusSuccess)
	resp.State = &wire.DeviceState{AdsState: wire.AdsStateRun, DeviceState: 0}
	return resp
}

// handleWriteControl accepts any control payload without changing state.
func (d *Dispatcher) handleWriteControl(req *wire.Request) *wire.Response {
	d.debugLog("write control ignored", "bytes", len(req.Data))
	return d.status(req, wire.StatusSuccess)
}

func (d *Dispatcher) handleAddNotification(target subscription.Target, req *wire.Request) *wire.Response {
	addr := address(req)
	if _, ok := d.registry.Lookup(addr); !ok {
		return d.status(req, wire.StatusSymbolNotFound)
	}
	if target == nil {
		return d.status(req, wire.StatusServiceNotSupported)
	}

	cycle := time.Duration(req.CycleTimeMs) * time.Millisecond
	handle, err := d.subs.Add(addr, cycle, target, d.config.Clock.Now())
	if err != nil {
		return d.status(req, wire.StatusServiceNotSupported)
	}
	d.config.Metrics.SetSubscriptions(d.subs.Count())

	d.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: target.ID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerService,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			NewState: "added",
			Reason:   fmt.Sprintf("handle %d for %s", handle, addr),
		},
	})

	resp := d.status(req, wire.StatusSuccess)
	resp.Handle = handle
	return resp
}

func (d *Dispatcher) handleDeleteNotification(req *wire.Request) *wire.Response {
	if err := d.subs.Delete(req.Handle); err != nil {
		return d.status(req, wire.StatusInvalidNotificationHandle)
	}
	d.config.Metrics.SetSubscriptions(d.subs.Count())
	return d.status(req, wire.StatusSuccess)
}

// recordWrite hands a write to the datastore without blocking the caller.
func (d *Dispatcher) recordWrite(connID string, rec datastore.WriteRecord) {
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.config.WriteTimeout)
		defer cancel()

		if err := d.config.Store.RecordWrite(ctx, rec); err != nil {
			d.config.Metrics.ObserveDatastoreFailure()
			if d.config.Logger != nil {
				d.config.Logger.Warn("datastore write failed",
					"module", rec.Module,
					"sensor", rec.Sensor,
					"error", err)
			}
			d.config.ProtocolLogger.Log(log.ErrorEvent(connID, log.LayerService, err,
				fmt.Sprintf("datastore write %d/%d", rec.Module, rec.Sensor)))
		}
	}()
}

func (d *Dispatcher) status(req *wire.Request, status wire.Status) *wire.Response {
	return &wire.Response{
		MessageID: req.MessageID,
		Status:    status,
		Command:   req.Command,
	}
}

func (d *Dispatcher) value(req *wire.Request, v float64) *wire.Response {
	resp := d.status(req, wire.StatusSuccess)
	resp.Data = wire.EncodeFloat32(v)
	return resp
}

func (d *Dispatcher) debugLog(msg string, args ...any) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, args...)
	}
}

func (d *Dispatcher) errorLog(msg string, args ...any) {
	if d.config.Logger != nil {
		d.config.Logger.Error(msg, args...)
	}
}

func address(req *wire.Request) registry.Address {
	return registry.Address{Module: req.Module, Sensor: req.Sensor}
}

func targetID(t subscription.Target) string {
	if t == nil {
		return ""
	}
	return t.ID()
}

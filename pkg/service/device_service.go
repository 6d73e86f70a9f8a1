package service

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/adsim-project/adsim-go/pkg/datastore"
	"github.com/adsim-project/adsim-go/pkg/discovery"
	"github.com/adsim-project/adsim-go/pkg/dispatch"
	"github.com/adsim-project/adsim-go/pkg/log"
	"github.com/adsim-project/adsim-go/pkg/metrics"
	"github.com/adsim-project/adsim-go/pkg/registry"
	"github.com/adsim-project/adsim-go/pkg/retry"
	"github.com/adsim-project/adsim-go/pkg/simulation"
	"github.com/adsim-project/adsim-go/pkg/subscription"
	"github.com/adsim-project/adsim-go/pkg/topology"
	"github.com/adsim-project/adsim-go/pkg/transport"
	"github.com/adsim-project/adsim-go/pkg/version"
	"github.com/adsim-project/adsim-go/pkg/wire"
)

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// DeviceService orchestrates a simulated device.
type DeviceService struct {
	mu sync.RWMutex

	config DeviceConfig
	state  ServiceState

	topology   *topology.Topology
	store      datastore.Store
	registry   *registry.Registry
	subs       *subscription.Manager
	dispatcher *dispatch.Dispatcher
	refresher  *simulation.Refresher
	scheduler  *subscription.Scheduler
	server     *transport.Server

	metrics       *metrics.Metrics
	promRegistry  *prometheus.Registry
	metricsServer *metrics.Server
	advertiser    *discovery.MDNSAdvertiser

	eventHandlers []EventHandler

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewDeviceService creates a new device service.
func NewDeviceService(config DeviceConfig) (*DeviceService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = simulation.SystemClock{}
	}
	if config.BindRetry.MaxAttempts <= 0 {
		config.BindRetry = retry.DefaultPolicy()
	}

	promRegistry := prometheus.NewRegistry()
	m, err := metrics.New(promRegistry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &DeviceService{
		config:       config,
		state:        StateIdle,
		metrics:      m,
		promRegistry: promRegistry,
	}, nil
}

// State returns the current service state.
func (s *DeviceService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnEvent registers a handler for service events.
func (s *DeviceService) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventHandlers = append(s.eventHandlers, handler)
}

// Start brings the device up. It returns once the transport is listening.
func (s *DeviceService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.mu.Unlock()

	if err := s.start(ctx); err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
	return nil
}

func (s *DeviceService) start(ctx context.Context) error {
	cfg := s.config
	now := cfg.Clock.Now()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	s.topology = topology.NewStore(cfg.TopologyPath, cfg.Logger).Load()

	sqlite := s.openStores()

	rows, err := s.store.LoadSensors(ctx)
	if err != nil {
		s.warnLog("datastore load failed", "error", err)
	}
	reg, fromRows := registry.BuildFromRows(rows, s.topology, now, rng)
	s.registry = reg
	if fromRows {
		s.infoLog("registry loaded from datastore", "sensors", reg.Len())
	} else if len(rows) > 0 {
		s.warnLog("datastore rows incomplete, using topology", "rows", len(rows))
	}
	if sqlite != nil {
		if seeded, err := sqlite.SeedSensors(ctx, reg.Rows()); err != nil {
			s.warnLog("sqlite seed failed", "error", err)
		} else if seeded {
			s.infoLog("sqlite sensor table seeded", "rows", reg.Len())
		}
	}

	s.subs = subscription.NewManager()
	ver := version.MustCurrent()
	s.dispatcher = dispatch.New(reg, s.subs, dispatch.Config{
		DeviceName:     cfg.DeviceName,
		Version:        &ver,
		Store:          s.store,
		Clock:          cfg.Clock,
		Logger:         cfg.Logger,
		ProtocolLogger: cfg.ProtocolLogger,
		Metrics:        s.metrics,
	})
	s.refresher = simulation.NewRefresher(reg, simulation.RefresherConfig{
		Interval: s.topology.UpdateInterval(),
		Clock:    cfg.Clock,
		Rand:     rng,
		Logger:   cfg.Logger,
		OnTick:   s.metrics.ObserveRefresh,
	})
	s.scheduler = subscription.NewScheduler(s.subs, reg, subscription.SchedulerConfig{
		Interval:       cfg.NotificationInterval,
		Clock:          cfg.Clock,
		Logger:         cfg.Logger,
		ProtocolLogger: cfg.ProtocolLogger,
		Metrics:        s.metrics,
	})

	s.ctx, s.cancel = context.WithCancel(ctx)
	var gctx context.Context
	s.group, gctx = errgroup.WithContext(s.ctx)
	s.group.Go(func() error { return s.refresher.Run(gctx) })
	s.group.Go(func() error { return s.scheduler.Run(gctx) })

	server, err := s.bind(s.ctx)
	if err != nil {
		s.cancel()
		s.group.Wait()
		s.store.Close()
		return err
	}
	s.server = server

	s.infoLog("device listening",
		"address", server.Addr().String(),
		"modules", reg.ModuleCount(),
		"sensors", reg.Len(),
		"refresh", s.refresher.Interval())

	if cfg.Advertise {
		s.advertise()
	}
	if cfg.MetricsAddress != "" {
		s.metricsServer = metrics.NewServer(cfg.MetricsAddress, s.promRegistry)
		if err := s.metricsServer.Start(); err != nil {
			s.warnLog("metrics endpoint disabled", "address", cfg.MetricsAddress, "error", err)
			s.metricsServer = nil
		}
	}
	return nil
}

// openStores builds s.store from the config and returns the SQLite store
// when one was opened.
func (s *DeviceService) openStores() *datastore.SQLiteStore {
	var stores []datastore.Store
	var sqlite *datastore.SQLiteStore

	if s.config.SQLitePath != "" {
		st, err := datastore.NewSQLiteStore(s.config.SQLitePath)
		if err != nil {
			s.warnLog("sqlite datastore disabled", "path", s.config.SQLitePath, "error", err)
		} else {
			sqlite = st
			stores = append(stores, st)
		}
	}
	if s.config.Influx.URL != "" {
		stores = append(stores, datastore.NewInfluxStore(s.config.Influx))
	}
	stores = append(stores, s.config.Stores...)

	if len(stores) == 0 {
		s.store = datastore.Noop{}
	} else {
		s.store = datastore.NewMulti(stores...)
	}
	return sqlite
}

// bind starts the transport on the first candidate port that accepts,
// retrying the whole list per the bind policy.
func (s *DeviceService) bind(ctx context.Context) (*transport.Server, error) {
	policy := s.config.BindRetry
	policy.OnFailure = func(attempt int, err error) {
		s.warnLog("bind failed", "attempt", attempt, "error", err)
	}

	server, err := retry.FirstOf(ctx, policy, s.config.Ports, func(ctx context.Context, port int) (*transport.Server, error) {
		srv := transport.NewServer(transport.ServerConfig{
			Address:      net.JoinHostPort(s.config.Host, strconv.Itoa(port)),
			WriteTimeout: s.config.WriteTimeout,
			Logger:       s.config.ProtocolLogger,
			OnConnect:    s.handleConnect,
			OnDisconnect: s.handleDisconnect,
			OnMessage:    s.handleMessage,
			OnError:      s.handleTransportError,
		})
		if err := srv.Start(ctx); err != nil {
			return nil, err
		}
		return srv, nil
	})
	if err != nil {
		return nil, fmt.Errorf("transport bind: %w", err)
	}
	return server, nil
}

func (s *DeviceService) advertise() {
	s.advertiser = discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
		Interface: s.config.AdvertiseInterface,
		TTL:       discovery.DefaultTTL,
		Logger:    s.config.Logger,
	})
	err := s.advertiser.Advertise(s.ctx, &discovery.DeviceInfo{
		DeviceName:       s.config.DeviceName,
		Version:          version.MustCurrent().String(),
		Port:             s.Port(),
		ModuleCount:      s.registry.ModuleCount(),
		SensorsPerModule: topology.SensorsPerModule,
	})
	if err != nil {
		s.warnLog("mdns advertisement disabled", "error", err)
		s.advertiser = nil
	}
}

// Stop shuts the device down and waits for its loops to exit.
func (s *DeviceService) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	s.mu.Unlock()

	if s.advertiser != nil {
		s.advertiser.Stop()
	}

	s.cancel()
	serverErr := s.server.Stop()
	loopErr := s.group.Wait()
	s.dispatcher.Wait()

	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		s.metricsServer.Stop(ctx)
		cancel()
	}

	storeErr := s.store.Close()
	if storeErr != nil {
		s.warnLog("datastore close failed", "error", storeErr)
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	if serverErr != nil {
		return serverErr
	}
	return loopErr
}

// Addr returns the transport listen address, or nil before Start.
func (s *DeviceService) Addr() net.Addr {
	if s.server == nil {
		return nil
	}
	return s.server.Addr()
}

// Port returns the bound TCP port, or 0 before Start.
func (s *DeviceService) Port() uint16 {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return uint16(tcp.Port)
	}
	return 0
}

// MetricsAddr returns the metrics endpoint address, or nil when disabled.
func (s *DeviceService) MetricsAddr() net.Addr {
	if s.metricsServer == nil {
		return nil
	}
	return s.metricsServer.Addr()
}

// Topology returns the topology the device was built from.
func (s *DeviceService) Topology() *topology.Topology {
	return s.topology
}

// Registry returns the sensor registry.
func (s *DeviceService) Registry() *registry.Registry {
	return s.registry
}

// Subscriptions returns the subscription manager.
func (s *DeviceService) Subscriptions() *subscription.Manager {
	return s.subs
}

// Metrics returns the device metrics.
func (s *DeviceService) Metrics() *metrics.Metrics {
	return s.metrics
}

// Gatherer exposes the device's Prometheus registry.
func (s *DeviceService) Gatherer() prometheus.Gatherer {
	return s.promRegistry
}

func (s *DeviceService) handleConnect(conn *transport.ServerConn) {
	s.metrics.ConnectionOpened()
	s.debugLog("client connected", "conn", conn.ID(), "remote", conn.RemoteAddr().String())
	s.emitEvent(Event{
		Type:         EventConnected,
		ConnectionID: conn.ID(),
		RemoteAddr:   conn.RemoteAddr().String(),
	})
}

func (s *DeviceService) handleDisconnect(conn *transport.ServerConn) {
	removed := s.subs.RemoveTarget(conn)
	s.metrics.ConnectionClosed()
	s.metrics.SetSubscriptions(s.subs.Count())
	s.debugLog("client disconnected", "conn", conn.ID(), "subscriptionsRemoved", removed)
	s.emitEvent(Event{
		Type:          EventDisconnected,
		ConnectionID:  conn.ID(),
		RemoteAddr:    conn.RemoteAddr().String(),
		Subscriptions: removed,
	})
}

func (s *DeviceService) handleMessage(conn *transport.ServerConn, msg []byte) {
	req, err := wire.DecodeRequest(msg)
	if err != nil {
		s.debugLog("dropping undecodable frame", "conn", conn.ID(), "error", err)
		s.protocolLog(log.ErrorEvent(conn.ID(), log.LayerWire, err, "decode request"))
		return
	}

	resp := s.dispatcher.HandleRequest(conn, req)
	if err := conn.SendResponse(resp); err != nil {
		s.debugLog("response not sent", "conn", conn.ID(), "messageId", resp.MessageID, "error", err)
	}
}

func (s *DeviceService) handleTransportError(conn *transport.ServerConn, err error) {
	if conn == nil {
		s.warnLog("transport error", "error", err)
		s.protocolLog(log.ErrorEvent("", log.LayerTransport, err, "accept"))
		return
	}
	s.debugLog("connection error", "conn", conn.ID(), "error", err)
	event := log.ErrorEvent(conn.ID(), log.LayerTransport, err, "read frame")
	event.RemoteAddr = conn.RemoteAddr().String()
	s.protocolLog(event)
}

func (s *DeviceService) protocolLog(event log.Event) {
	if s.config.ProtocolLogger != nil {
		s.config.ProtocolLogger.Log(event)
	}
}

func (s *DeviceService) emitEvent(event Event) {
	s.mu.RLock()
	handlers := s.eventHandlers
	s.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}

func (s *DeviceService) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

func (s *DeviceService) infoLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, args...)
	}
}

func (s *DeviceService) warnLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, args...)
	}
}

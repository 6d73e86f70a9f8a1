// Package metrics exposes Prometheus collectors for the simulated device.
//
// A nil *Metrics is valid and records nothing, so components take an
// optional *Metrics without checking for it.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adsim"

// Notification delivery results.
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
)

// Metrics holds the device collectors.
type Metrics struct {
	Requests          *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	Notifications     *prometheus.CounterVec
	Subscriptions     prometheus.Gauge
	Connections       prometheus.Gauge
	Refreshes         prometheus.Counter
	DatastoreFailures prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "requests_total",
				Help:      "Total number of handled requests",
			},
			[]string{"command", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "request_duration_seconds",
				Help:      "Request handling duration in seconds",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
			[]string{"command"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "subscription",
				Name:      "notifications_total",
				Help:      "Total number of notification deliveries by result",
			},
			[]string{"result"},
		),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "active",
			Help:      "Number of active notification subscriptions",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connections",
			Help:      "Number of open client connections",
		}),
		Refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "refreshes_total",
			Help:      "Total number of value refresh cycles",
		}),
		DatastoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datastore",
			Name:      "write_failures_total",
			Help:      "Total number of failed datastore writes",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Requests, m.RequestDuration, m.Notifications,
		m.Subscriptions, m.Connections, m.Refreshes, m.DatastoreFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(command, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(command, status).Inc()
	m.RequestDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ObserveNotification records one delivery attempt.
func (m *Metrics) ObserveNotification(delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.Notifications.WithLabelValues(ResultDelivered).Inc()
	} else {
		m.Notifications.WithLabelValues(ResultFailed).Inc()
	}
}

// SetSubscriptions sets the active subscription gauge.
func (m *Metrics) SetSubscriptions(n int) {
	if m == nil {
		return
	}
	m.Subscriptions.Set(float64(n))
}

// ConnectionOpened increments the connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.Connections.Inc()
}

// ConnectionClosed decrements the connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.Connections.Dec()
}

// ObserveRefresh counts one refresh cycle.
func (m *Metrics) ObserveRefresh() {
	if m == nil {
		return
	}
	m.Refreshes.Inc()
}

// ObserveDatastoreFailure counts one failed datastore write.
func (m *Metrics) ObserveDatastoreFailure() {
	if m == nil {
		return
	}
	m.DatastoreFailures.Inc()
}

// Server serves /metrics and /health over HTTP.
type Server struct {
	addr     string
	gatherer prometheus.Gatherer

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a metrics server for addr (e.g. ":9090").
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	return &Server{addr: addr, gatherer: gatherer}
}

// Handler returns the HTTP handler with the metrics and health routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("metrics server already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.listener = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	srv := s.server
	go func() { _ = srv.Serve(ln) }()
	return nil
}

// Addr returns the bound address, or nil when not running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	return err
}

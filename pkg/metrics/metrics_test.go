package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("Read", "SUCCESS", time.Millisecond)
	m.ObserveNotification(true)
	m.SetSubscriptions(3)
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.ObserveRefresh()
	m.ObserveDatastoreFailure()
}

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveRequest("Read", "SUCCESS", time.Millisecond)
	m.ObserveRequest("Read", "SUCCESS", time.Millisecond)
	m.ObserveRequest("Write", "SYMBOL_NOT_FOUND", time.Millisecond)
	m.ObserveNotification(true)
	m.ObserveNotification(false)
	m.SetSubscriptions(4)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.ObserveRefresh()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("Read", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("Write", "SYMBOL_NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(ResultFailed)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Subscriptions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.ObserveRefresh()

	srv := NewServer("127.0.0.1:0", reg)
	require.NoError(t, srv.Start())
	defer srv.Stop(context.Background())

	assert.Error(t, srv.Start(), "second Start should fail")

	base := "http://" + srv.Addr().String()

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "adsim_simulation_refreshes_total"))

	resp, err = http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(context.Background()))
	assert.Nil(t, srv.Addr())
}

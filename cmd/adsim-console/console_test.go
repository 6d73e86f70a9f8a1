package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adsim-project/adsim-go/pkg/discovery"
	"github.com/adsim-project/adsim-go/pkg/interaction"
	"github.com/adsim-project/adsim-go/pkg/retry"
	"github.com/adsim-project/adsim-go/pkg/service"
	"github.com/adsim-project/adsim-go/pkg/transport"
)

// syncBuffer guards a bytes.Buffer against concurrent notification output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func newTestConsole(t *testing.T) (*Console, *syncBuffer) {
	t.Helper()

	cfg := service.DefaultDeviceConfig()
	cfg.Ports = []int{0}
	cfg.BindRetry = retry.Policy{MaxAttempts: 1}
	cfg.NotificationInterval = 10 * time.Millisecond
	cfg.Seed = 1

	svc, err := service.NewDeviceService(cfg)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { svc.Stop() })

	conn, err := transport.NewClient(transport.ClientConfig{}).Connect(context.Background(), svc.Addr().String())
	require.NoError(t, err)
	client := interaction.NewClient(conn)
	client.SetTimeout(2 * time.Second)
	t.Cleanup(func() { client.Close() })

	out := &syncBuffer{}
	return NewConsole(client, out), out
}

func TestConsoleDeviceCommands(t *testing.T) {
	c, out := newTestConsole(t)
	ctx := context.Background()

	assert.False(t, c.Execute(ctx, "info"))
	assert.Contains(t, out.String(), "ADSim 1.0.1")

	out.Reset()
	c.Execute(ctx, "state")
	assert.Contains(t, out.String(), "ADS state: RUN")

	out.Reset()
	c.Execute(ctx, "control 0500")
	assert.Contains(t, out.String(), "OK")
}

func TestConsoleWriteThenRead(t *testing.T) {
	c, out := newTestConsole(t)
	ctx := context.Background()

	c.Execute(ctx, "write 1 2 42.5")
	assert.Contains(t, out.String(), "1/2 <- 42.5")

	out.Reset()
	c.Execute(ctx, "read 1 2")
	assert.Contains(t, out.String(), "1/2 = 42.5")

	out.Reset()
	c.Execute(ctx, "rw 1 2 99")
	assert.Contains(t, out.String(), "1/2 = 42.5")
}

func TestConsoleReportsDeviceErrors(t *testing.T) {
	c, out := newTestConsole(t)
	ctx := context.Background()

	c.Execute(ctx, "read 99 1")
	assert.Contains(t, out.String(), "SYMBOL_NOT_FOUND")

	out.Reset()
	c.Execute(ctx, "unsub 12345")
	assert.Contains(t, out.String(), "INVALID_NOTIFICATION_HANDLE")

	out.Reset()
	c.Execute(ctx, "raw 42")
	assert.Contains(t, out.String(), "SERVICE_NOT_SUPPORTED (0x701)")
}

func TestConsoleRejectsBadArguments(t *testing.T) {
	c, out := newTestConsole(t)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"read 1", "expected 2 arguments"},
		{"read x 1", "invalid module"},
		{"read 1 x", "invalid sensor"},
		{"write 1 1 abc", "invalid value"},
		{"sub 1 1 soon", "invalid cycle time"},
		{"unsub", "usage: unsub"},
		{"control zz", "invalid hex payload"},
		{"raw", "usage: raw"},
		{"frobnicate", "Unknown command: frobnicate"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out.Reset()
			c.Execute(ctx, tt.line)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestConsoleSubscriptionLifecycle(t *testing.T) {
	c, out := newTestConsole(t)
	ctx := context.Background()

	c.Execute(ctx, "sub 1 1 20ms")
	assert.Contains(t, out.String(), "Subscribed 1/1 (handle 1)")

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "handle 1  1/1 = ")
	}, 2*time.Second, 10*time.Millisecond)

	out.Reset()
	c.Execute(ctx, "subs")
	assert.Contains(t, out.String(), "1  1/1")

	out.Reset()
	c.Execute(ctx, "unsub 1")
	assert.Contains(t, out.String(), "Unsubscribed handle 1")

	out.Reset()
	c.Execute(ctx, "subs")
	assert.Contains(t, out.String(), "No subscriptions")
}

func TestConsoleQuitAndHelp(t *testing.T) {
	c, out := newTestConsole(t)
	ctx := context.Background()

	assert.False(t, c.Execute(ctx, "   "))
	assert.False(t, c.Execute(ctx, "help"))
	assert.Contains(t, out.String(), "ADSim Console Commands")
	assert.True(t, c.Execute(ctx, "quit"))
	assert.True(t, c.Execute(ctx, "EXIT"))
}

func TestDialAddress(t *testing.T) {
	svc := &discovery.DeviceService{Host: "plant.local.", Port: 48898}
	assert.Equal(t, "plant.local.:48898", dialAddress(svc))

	svc.Addresses = []string{"fe80::1", "192.168.1.20"}
	assert.Equal(t, "[fe80::1]:48898", dialAddress(svc))
}

func TestPrintDevice(t *testing.T) {
	var buf bytes.Buffer
	printDevice(&buf, &discovery.DeviceService{
		InstanceName: "ADSim-48898",
		Host:         "plant.local.",
		Port:         48898,
		Addresses:    []string{"192.168.1.20"},
		Info:         discovery.DeviceInfo{DeviceName: "ADSim", Version: "1.0.1", ModuleCount: 5, SensorsPerModule: 3},
	})
	out := buf.String()
	assert.Contains(t, out, "ADSim-48898")
	assert.Contains(t, out, "192.168.1.20:48898")
	assert.Contains(t, out, "5 x 3 sensors")
}

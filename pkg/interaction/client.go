package interaction

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adsim-project/adsim-go/pkg/wire"
)

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// Conn is the framed connection a Client runs on.
// Implemented by transport.ClientConn.
type Conn interface {
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

// Client issues requests over one connection.
type Client struct {
	mu sync.RWMutex

	conn    Conn
	timeout time.Duration

	nextMsgID atomic.Uint32

	pending   map[uint32]chan *wire.Response
	pendingMu sync.Mutex

	notifyHandler func(*wire.Notification)

	closed  bool
	done    chan struct{}
	readErr error
}

// NewClient wraps conn and starts its read loop.
func NewClient(conn Conn) *Client {
	c := &Client{
		conn:    conn,
		timeout: 10 * time.Second,
		pending: make(map[uint32]chan *wire.Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// SetTimeout sets the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// SetNotificationHandler sets the handler for pushed notifications. The
// handler runs on the read loop and must not issue requests synchronously.
func (c *Client) SetNotificationHandler(handler func(*wire.Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyHandler = handler
}

// Close closes the connection and fails all pending requests.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

// Done is closed once the read loop has stopped.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the read loop, if any.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readErr
}

func (c *Client) readLoop() {
	defer func() {
		c.pendingMu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		close(c.done)
		c.pendingMu.Unlock()
	}()

	for {
		data, err := c.conn.Receive(0)
		if err != nil {
			c.mu.Lock()
			if !c.closed {
				c.readErr = err
			}
			c.mu.Unlock()
			return
		}

		msgType, err := wire.PeekMessageType(data)
		if err != nil {
			continue
		}
		switch msgType {
		case wire.MessageTypeNotification:
			if n, err := wire.DecodeNotification(data); err == nil {
				c.HandleNotification(n)
			}
		case wire.MessageTypeResponse:
			if resp, err := wire.DecodeResponse(data); err == nil {
				c.HandleResponse(resp)
			}
		}
	}
}

// HandleResponse routes a response to its pending request.
func (c *Client) HandleResponse(resp *wire.Response) error {
	c.pendingMu.Lock()
	ch, exists := c.pending[resp.MessageID]
	if exists {
		delete(c.pending, resp.MessageID)
	}
	c.pendingMu.Unlock()

	if !exists {
		return ErrUnexpectedReply
	}
	ch <- resp
	return nil
}

// HandleNotification passes a notification to the registered handler.
func (c *Client) HandleNotification(notif *wire.Notification) {
	c.mu.RLock()
	handler := c.notifyHandler
	c.mu.RUnlock()

	if handler != nil {
		handler(notif)
	}
}

// Do sends req with a fresh message id and waits for its response. The
// response is returned as-is, whatever its status.
func (c *Client) Do(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClientClosed
	}
	timeout := c.timeout
	c.mu.RUnlock()

	req.MessageID = c.nextMsgID.Add(1)
	respCh := make(chan *wire.Response, 1)

	c.pendingMu.Lock()
	select {
	case <-c.done:
		c.pendingMu.Unlock()
		return nil, ErrClientClosed
	default:
	}
	c.pending[req.MessageID] = respCh
	c.pendingMu.Unlock()

	abandon := func() {
		c.pendingMu.Lock()
		delete(c.pending, req.MessageID)
		c.pendingMu.Unlock()
	}

	data, err := wire.EncodeRequest(req)
	if err != nil {
		abandon()
		return nil, err
	}
	if err := c.conn.Send(data); err != nil {
		abandon()
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	case <-timer.C:
		abandon()
		return nil, ErrRequestTimeout
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrClientClosed
		}
		return resp, nil
	}
}

func (c *Client) call(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// ReadDeviceInfo returns the device name and version.
func (c *Client) ReadDeviceInfo(ctx context.Context) (wire.DeviceInfo, error) {
	resp, err := c.call(ctx, &wire.Request{Command: wire.CmdReadDeviceInfo})
	if err != nil {
		return wire.DeviceInfo{}, err
	}
	if resp.DeviceInfo == nil {
		return wire.DeviceInfo{}, ErrUnexpectedReply
	}
	return *resp.DeviceInfo, nil
}

// ReadState returns the device run state.
func (c *Client) ReadState(ctx context.Context) (wire.DeviceState, error) {
	resp, err := c.call(ctx, &wire.Request{Command: wire.CmdReadState})
	if err != nil {
		return wire.DeviceState{}, err
	}
	if resp.State == nil {
		return wire.DeviceState{}, ErrUnexpectedReply
	}
	return *resp.State, nil
}

// Read returns the current value of a sensor.
func (c *Client) Read(ctx context.Context, module, sensor uint16) (float64, error) {
	resp, err := c.call(ctx, &wire.Request{
		Command: wire.CmdRead,
		Module:  module,
		Sensor:  sensor,
		Length:  wire.ValueSize,
	})
	if err != nil {
		return 0, err
	}
	return resp.Value(), nil
}

// Write overrides a sensor value until the next refresh.
func (c *Client) Write(ctx context.Context, module, sensor uint16, value float64) error {
	_, err := c.call(ctx, &wire.Request{
		Command: wire.CmdWrite,
		Module:  module,
		Sensor:  sensor,
		Length:  wire.ValueSize,
		Data:    wire.EncodeFloat32(value),
	})
	return err
}

// ReadWrite sends value and returns the current sensor value. The device
// does not apply the written value.
func (c *Client) ReadWrite(ctx context.Context, module, sensor uint16, value float64) (float64, error) {
	resp, err := c.call(ctx, &wire.Request{
		Command: wire.CmdReadWrite,
		Module:  module,
		Sensor:  sensor,
		Length:  wire.ValueSize,
		Data:    wire.EncodeFloat32(value),
	})
	if err != nil {
		return 0, err
	}
	return resp.Value(), nil
}

// WriteControl sends a control payload.
func (c *Client) WriteControl(ctx context.Context, data []byte) error {
	_, err := c.call(ctx, &wire.Request{Command: wire.CmdWriteControl, Data: data})
	return err
}

// AddNotification subscribes to a sensor and returns the handle. A zero
// cycle selects the device default.
func (c *Client) AddNotification(ctx context.Context, module, sensor uint16, cycle time.Duration) (uint32, error) {
	resp, err := c.call(ctx, &wire.Request{
		Command:     wire.CmdAddNotification,
		Module:      module,
		Sensor:      sensor,
		CycleTimeMs: uint32(cycle / time.Millisecond),
	})
	if err != nil {
		return 0, err
	}
	return resp.Handle, nil
}

// DeleteNotification removes a subscription.
func (c *Client) DeleteNotification(ctx context.Context, handle uint32) error {
	_, err := c.call(ctx, &wire.Request{Command: wire.CmdDeleteNotification, Handle: handle})
	return err
}

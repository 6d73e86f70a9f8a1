package transport

import (
	"context"
	"net"

	"github.com/adsim-project/adsim-go/pkg/subscription"
	"github.com/adsim-project/adsim-go/pkg/wire"
)

// Peer is the device-side view of one client: something that can be
// answered, notified and dropped.
type Peer interface {
	subscription.Target

	RemoteAddr() net.Addr
	SendResponse(resp *wire.Response) error
	Close() error
	Done() <-chan struct{}
}

// Listener is a running device endpoint.
type Listener interface {
	Start(ctx context.Context) error
	Stop() error
	Addr() net.Addr
	ConnectionCount() int
}

var (
	_ Peer     = (*ServerConn)(nil)
	_ Listener = (*Server)(nil)
)

package transport

import (
	"github.com/ValentinKolb/dMsg/rpc/common"
)

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// Conn is one persistent, framed duplex connection
type Conn interface {
	// Send queues one frame. The data is copied, the caller may reuse the slice.
	Send(data []byte) error
	// Close closes the connection, calling it more than once is harmless
	Close() error
	// Done is closed once the connection is closed
	Done() <-chan struct{}
	// RemoteAddr returns the address of the peer
	RemoteAddr() string
}

// MessageHandler is called with every inbound frame of a connection. Frames of one
// connection are delivered serially in arrival order. The data is only valid during the call.
type MessageHandler func(data []byte)

// ConnHandler is called by a server transport for every accepted connection. It returns the
// handler for the frames of the connection and an optional function that is called once
// the connection is closed.
type ConnHandler func(conn Conn) (onMessage MessageHandler, onClose func())

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IServerTransport accepts connections and hands them to the registered ConnHandler
type IServerTransport interface {
	// RegisterHandler registers the handler for new connections, it must be called before Listen
	RegisterHandler(handler ConnHandler)
	// Listen starts accepting connections and blocks until the transport is closed
	Listen(config common.TransportConfig) error
	// Close stops accepting connections and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientTransport establishes connections to a server
type IClientTransport interface {
	// Connect opens a connection and starts delivering inbound frames to onMessage
	Connect(config common.TransportConfig, onMessage MessageHandler) (Conn, error)
}

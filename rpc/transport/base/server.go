package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dMsg/rpc/common"
	"github.com/ValentinKolb/dMsg/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.TransportConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.TransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	handler   transport.ConnHandler
	config    common.TransportConfig

	mu       sync.Mutex // guards listener
	listener net.Listener
	closed   atomic.Bool
	conns    *xsync.MapOf[*connection, struct{}]
	wg       sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with the specified connector
func NewBaseServerTransport(connector IServerConnector) transport.IServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     xsync.NewMapOf[*connection, struct{}](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ConnHandler) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.TransportConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no connection handler registered")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	t.mu.Lock()
	if t.closed.Load() {
		t.mu.Unlock()
		listener.Close()
		return nil
	}
	t.listener = listener
	t.mu.Unlock()

	Logger.Infof("starting %s server on %s", t.connector.GetName(), listener.Addr())

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.closed.Load() {
				t.wg.Wait()
				return nil
			}
			Logger.Errorf("accept error: %v", err)
			continue
		}

		// Handle the connection in a goroutine
		t.wg.Add(1)
		go t.handleConnection(conn)
	}
}

func (t *serverTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	t.mu.Lock()
	if t.listener != nil {
		err = t.listener.Close()
	}
	t.mu.Unlock()

	t.conns.Range(func(c *connection, _ struct{}) bool {
		c.Close()
		return true
	})
	return err
}

// Addr returns the address the transport listens on (nil before Listen)
func (t *serverTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection serves one accepted connection until it is closed
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer t.wg.Done()

	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		Logger.Errorf("failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	c := newConnection(conn, t.config)
	t.conns.Store(c, struct{}{})
	defer t.conns.Delete(c)
	if t.closed.Load() {
		c.Close()
	}

	Logger.Debugf("accepted connection from %s", c.remote)

	onMessage, onClose := t.handler(c)
	err := c.readLoop(onMessage)

	switch {
	// Case EOF: Connection closed by client
	case errors.Is(err, io.EOF):
		Logger.Infof("connection closed by %s", c.remote)
	// Case closed by us
	case errors.Is(err, net.ErrClosed):
		Logger.Debugf("connection to %s closed", c.remote)
	default:
		Logger.Errorf("error reading from %s: %v", c.remote, err)
	}

	c.Close()
	if onClose != nil {
		onClose()
	}
}

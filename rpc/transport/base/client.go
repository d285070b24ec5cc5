package base

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"time"

	"github.com/ValentinKolb/dMsg/rpc/common"
	"github.com/ValentinKolb/dMsg/rpc/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.TransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector IClientConnector
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.TransportConfig, onMessage transport.MessageHandler) (transport.Conn, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("no endpoint provided")
	}
	if onMessage == nil {
		return nil, fmt.Errorf("no message handler provided")
	}

	conn, err := t.dial(config)
	if err != nil {
		return nil, err
	}

	c := newConnection(conn, config)
	Logger.Infof("connected to %s using %s transport", config.Endpoint, t.connector.GetName())

	go func() {
		err := c.readLoop(onMessage)
		select {
		case <-c.done:
			// closed by us
		default:
			if errors.Is(err, io.EOF) {
				Logger.Infof("connection closed by %s", config.Endpoint)
			} else {
				Logger.Errorf("error reading from %s: %v", config.Endpoint, err)
			}
		}
		c.Close()
	}()

	return c, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dial connects to the endpoint, retrying with exponential backoff
func (t *clientTransport) dial(config common.TransportConfig) (net.Conn, error) {
	var lastErr error

	// We always try at least once, and up to maxRetries times
	maxRetries := config.RetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}

	// Initial backoff duration in milliseconds
	backoffMs := 50

	for i := 0; i < maxRetries; i++ {
		conn, err := t.connector.Connect(config.Endpoint)
		if err == nil {
			// Upgrade the connection with protocol-specific settings
			if err = t.connector.UpgradeConnection(conn, config); err == nil {
				return conn, nil
			}
			conn.Close()
		}

		lastErr = err
		Logger.Debugf("connection attempt %d/%d to %s failed: %v", i+1, maxRetries, config.Endpoint, err)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	// All attempts failed
	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %v", config.Endpoint, maxRetries, lastErr)
}

package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMaxFrameSize  = 1 << 20 // 1 MiB
	DefaultSendQueueSize = 1024
	DefaultFlushInterval = 25 * time.Millisecond
	DefaultMaxJSONBytes  = 4096
)

// --------------------------------------------------------------------------
// Transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds settings shared by all socket based transports
type SocketConf struct {
	WriteBufferSize int // OS socket write buffer, 0 = OS default
	ReadBufferSize  int // size of the buffered reader and OS socket read buffer, 0 = default
	MaxFrameSize    int // frames larger than this close the connection
	SendQueueSize   int // outbound frames queued per connection
}

// TCPConf holds tcp specific socket settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // < 0 = OS default
}

// TransportConfig configures the transport layer of a server or client
type TransportConfig struct {
	Type          string // "tcp" or "unix"
	Endpoint      string
	TimeoutSecond int // read/write deadline per frame, 0 = no timeout
	RetryCount    int // client only: connection attempts

	SocketConf
	TCPConf
}

// DefaultTransportConfig returns a tcp transport config with default values
func DefaultTransportConfig(endpoint string) TransportConfig {
	return TransportConfig{
		Type:       "tcp",
		Endpoint:   endpoint,
		RetryCount: 3,
		SocketConf: SocketConf{
			MaxFrameSize:  DefaultMaxFrameSize,
			SendQueueSize: DefaultSendQueueSize,
		},
		TCPConf: TCPConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
	}
}

// Timeout returns the per frame deadline as duration
func (c TransportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the game server
type ServerConfig struct {
	Transport TransportConfig

	// Message layer
	FlushInterval time.Duration // interval of the default buffer scheduler
	MaxJSONBytes  int           // working buffer of json and msgpack messages

	// Metrics endpoint (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	c.Transport.write(addSection, addField)

	// Message layer
	addSection("Messages")
	addField("Flush Interval", c.FlushInterval.String())
	addField("Max JSON Bytes", strconv.Itoa(c.MaxJSONBytes))

	// Metrics
	addSection("Metrics")
	if c.MetricsEndpoint == "" {
		addField("Endpoint", "disabled")
	} else {
		addField("Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of a game client
type ClientConfig struct {
	Transport TransportConfig

	FlushInterval time.Duration
	MaxJSONBytes  int
	LogLevel      string
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	c.Transport.write(addSection, addField)
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))

	addSection("Messages")
	addField("Flush Interval", c.FlushInterval.String())
	addField("Max JSON Bytes", strconv.Itoa(c.MaxJSONBytes))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// write adds the transport sections
func (c TransportConfig) write(addSection func(string), addField func(string, string)) {
	addSection("Transport")
	addField("Type", c.Type)
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("Socket")
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))
	addField("Send Queue Size", strconv.Itoa(c.SendQueueSize))
	addField("Read Buffer Size", bufferString(c.ReadBufferSize))
	addField("Write Buffer Size", bufferString(c.WriteBufferSize))

	if c.Type == "tcp" {
		addSection("TCP")
		addField("No Delay", strconv.FormatBool(c.TCPNoDelay))
		addField("Keep Alive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
		addField("Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
	}
}

func bufferString(size int) string {
	if size <= 0 {
		return "default"
	}
	return fmt.Sprintf("%d bytes", size)
}

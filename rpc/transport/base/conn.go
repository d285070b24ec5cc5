package base

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/ValentinKolb/dMsg/rpc/common"
	"github.com/ValentinKolb/dMsg/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

var (
	framesInTotal  = metrics.GetOrCreateCounter("dmsg_transport_frames_received_total")
	framesOutTotal = metrics.GetOrCreateCounter("dmsg_transport_frames_sent_total")
	writesTotal    = metrics.GetOrCreateCounter("dmsg_transport_writes_total")
)

// ErrClosed is returned when sending on a closed connection
var ErrClosed = errors.New("connection is closed")

// maxBatch limits the number of frames combined into one write
const maxBatch = 64

// connection implements transport.Conn on top of a net.Conn.
// Outbound frames are queued and written by a single writer goroutine that combines
// all pending frames into one write.
type connection struct {
	conn         net.Conn
	remote       string
	queue        chan []byte
	timeout      time.Duration
	maxFrameSize int
	readBuffer   int

	closeOnce sync.Once
	done      chan struct{}
}

// newConnection wraps conn and starts the writer goroutine
func newConnection(conn net.Conn, config common.TransportConfig) *connection {
	queueSize := config.SendQueueSize
	if queueSize <= 0 {
		queueSize = common.DefaultSendQueueSize
	}
	maxFrameSize := config.MaxFrameSize
	if maxFrameSize <= 0 {
		maxFrameSize = common.DefaultMaxFrameSize
	}

	c := &connection{
		conn:         conn,
		remote:       conn.RemoteAddr().String(),
		queue:        make(chan []byte, queueSize),
		timeout:      config.Timeout(),
		maxFrameSize: maxFrameSize,
		readBuffer:   config.ReadBufferSize,
		done:         make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.Conn)
// --------------------------------------------------------------------------

func (c *connection) Send(data []byte) error {
	if len(data) > c.maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds maximum of %d bytes", len(data), c.maxFrameSize)
	}

	frame := newFrame(data)
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.queue <- frame:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return fmt.Errorf("send queue of %s is full", c.remote)
	}
}

func (c *connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *connection) Done() <-chan struct{} {
	return c.done
}

func (c *connection) RemoteAddr() string {
	return c.remote
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// writeLoop writes queued frames until the connection is closed
func (c *connection) writeLoop() {
	batch := make(net.Buffers, 0, maxBatch)

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.queue:
			batch = append(batch[:0], frame)

			// combine everything that is already pending
		drain:
			for len(batch) < maxBatch {
				select {
				case next := <-c.queue:
					batch = append(batch, next)
				default:
					break drain
				}
			}

			if c.timeout > 0 {
				if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
					Logger.Errorf("failed to set write deadline for %s: %v", c.remote, err)
					c.Close()
					return
				}
			}

			n := len(batch)
			bufs := batch // WriteTo consumes the slice header
			if _, err := bufs.WriteTo(c.conn); err != nil {
				select {
				case <-c.done:
				default:
					Logger.Errorf("failed to write to %s: %v", c.remote, err)
				}
				c.Close()
				return
			}
			framesOutTotal.Add(n)
			writesTotal.Inc()

			clear(batch)
		}
	}
}

// readLoop reads frames and calls onMessage for each of them until the connection fails
func (c *connection) readLoop(onMessage transport.MessageHandler) error {
	size := c.readBuffer
	if size <= 0 {
		size = 64 * 1024
	}
	reader := bufio.NewReaderSize(c.conn, size)

	var buf []byte
	for {
		if c.timeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
				return fmt.Errorf("failed to set read deadline: %v", err)
			}
		}

		data, next, err := readFrame(reader, buf, c.maxFrameSize)
		buf = next
		if err != nil {
			return err
		}

		framesInTotal.Inc()
		onMessage(data)
	}
}

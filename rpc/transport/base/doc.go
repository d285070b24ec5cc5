// Package base provides the protocol independent part of the stream transports (TCP,
// Unix sockets). Protocol-specific connectors only create and tune sockets, everything
// else is implemented here.
//
// Frame format:
//
//	+----------------+------------------------+
//	| length (4B BE) | payload (length bytes) |
//	+----------------+------------------------+
//
// The payload is one encoded message. Frames larger than SocketConf.MaxFrameSize are
// rejected on send and close the connection on receive.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - connection: Implements transport.Conn. Send copies the payload into a new frame and
//     queues it without blocking, a full queue is reported as an error. A single writer
//     goroutine drains the queue.
//
//   - clientTransport: Dials the endpoint with retries and exponential backoff, then
//     reads frames in a dedicated goroutine.
//
//   - serverTransport: Accepts connections and serves each of them in its own goroutine.
//
// Performance Optimizations:
//
//   - Write Batching: All frames pending in the send queue are written with a single
//     net.Buffers write, so a buffer flush of many messages costs one syscall.
//
//   - Buffer Reuse: The read loop reuses its frame buffer. Inbound data is only valid
//     during the MessageHandler call.
//
// Thread Safety:
//
//	Send and Close may be called from any goroutine. Inbound frames of one connection
//	are delivered serially in arrival order.
package base

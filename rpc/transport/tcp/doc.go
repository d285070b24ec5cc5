// Package tcp implements the TCP socket based transport of the message server and client.
// It provides concrete implementations of the base package's connector interfaces.
//
// All framing, send queues and write batching are inherited from the base package. This
// package only creates sockets and applies the TCPConf and SocketConf settings
// (no delay, keep-alive, linger, OS buffer sizes) to every connection, on both sides.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// Real-time games send many small frames, so TCPNoDelay is enabled by default
// (see common.DefaultTransportConfig).
package tcp

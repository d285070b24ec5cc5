// Package unix implements the transport of the message server and client using Unix
// domain sockets. It is meant for game servers and bots running on the same machine.
//
// The package extends the base transport with Unix socket-specific connectors while
// inheriting framing, send queues and write batching from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners, an existing socket file at the
//     endpoint is removed first
package unix

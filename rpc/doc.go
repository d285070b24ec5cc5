// Package rpc provides the network layer of dMsg. It carries encoded messages between a
// server and its clients over persistent connections and binds an emitter to every
// connection.
//
// The package is organized into several subpackages:
//
//   - common: Configuration structures of server, client and transport, and the logger
//     factory used by all packages.
//
//   - transport: Framed duplex connections with pluggable implementations
//     (TCP, Unix sockets).
//
//   - server: Accepts connections and dispatches their messages through one emitter per
//     connection. All emitters share the registry, message pool and buffer pool.
//
//   - client: Connects to a server and dispatches the messages of the server through the
//     emitter of the client.
package rpc

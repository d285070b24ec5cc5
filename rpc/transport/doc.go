// Package transport defines the interfaces of the connection layer that carries encoded
// messages between server and clients.
//
// A connection is a persistent duplex stream of frames. Each frame holds exactly one
// encoded message (type tag followed by the body), the transport never looks into it.
//
// Key Components:
//
//   - Conn: One open connection. Send queues a frame, Close ends the connection.
//
//   - IServerTransport: Accepts connections and calls the registered ConnHandler for each
//     of them. The handler returns the MessageHandler for the inbound frames of that
//     connection and a function that runs once the connection is gone.
//
//   - IClientTransport: Opens a connection and delivers inbound frames to a MessageHandler.
//
// Implementations live in the tcp and unix packages, both built on the base package.
package transport

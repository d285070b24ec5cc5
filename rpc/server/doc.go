// Package server implements the message server. It accepts connections through a
// transport.IServerTransport and binds one emitter.Emitter to every connection.
//
// All emitters of a server share one core.Context: the type registry, the message pool
// and the buffer pool with its periodic scheduler. Shared scoped buffers can therefore
// be used to coalesce broadcasts over all connections, while instance scoped buffers stay
// private to one connection.
//
// Per connection:
//
//   - inbound frames are parsed and dispatched by the parser of the emitter
//     (Emitter.CreateMessageParser), serially and in arrival order
//
//   - handlers of the Application are auto-registered on first use of a type
//
//   - ignored messages are logged as warnings, dispatch errors as errors
//
//   - once the connection is closed, Application.Disconnected is called and the instance
//     scoped buffers of the emitter are dropped
//
// If ServerConfig.MetricsEndpoint is set, Serve also exposes all counters of the process
// in the prometheus text format on http://<endpoint>/metrics.
package server

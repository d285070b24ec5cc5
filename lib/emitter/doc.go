// Package emitter provides the publish/subscribe dispatcher of the dMsg message framework.
// An Emitter is bound to one communication channel (usually one connection): it parses
// inbound bytes, routes the decoded messages to listeners keyed by type name and sends
// outbound messages either directly or through the buffering layer.
//
// Dispatch:
//
//   - On/Once register persistent and one-shot listeners, Off removes them.
//   - Emit invokes the listeners of a message synchronously in registration order.
//   - EmitAsync routes like Emit and returns once every listener completed. Listeners are
//     invoked one at a time in registration order.
//   - Messages without listeners fire the Ignored meta-event exactly once and never Error.
//   - Listener errors and panics are returned as joined handler errors.
//
// Auto-registration:
//
//	Before the first dispatch of a type name the emitter asks its HandlerLookup for a Setup
//	function and runs it once. The attempt is cached per type name before the setup runs,
//	so a setup may dispatch messages of its own type. A missing handler is
//	skipped silently, a nil setup or a failing setup is reported through Error and the
//	message is still delivered to the existing listeners (or marked ignored).
//
//	  handlers := emitter.HandlerMap{
//	      "Join": func(e *emitter.Emitter) error {
//	          e.On("Join", onJoin)
//	          return nil
//	      },
//	  }
//	  e := emitter.New(emitter.Options{Registry: registry, Send: conn.Send, Handlers: handlers.Lookup})
//
// Parsing:
//
//	CreateMessageParser returns the function a transport calls with every inbound frame:
//	parse, EmitAsync, release. Parse and dispatch errors fire Error.
//
// Sending:
//
//	Send packs and forwards a message immediately, SendBuffered stores it in a buffer of the
//	emitter's instance scope or the shared scope (see package buffer). Both fail with
//	not_configured if the emitter has no send function.
//
// Metrics: dmsg_emitter_received_total, dmsg_emitter_sent_total, dmsg_emitter_ignored_total
// and dmsg_emitter_errors_total.
package emitter

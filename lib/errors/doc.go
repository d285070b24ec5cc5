// Package errors defines the structured error taxonomy shared by the dMsg lib packages.
//
// Every error carries the Phase in which it occurred (register, resolve, pack, unpack,
// buffer, dispatch, send) and a Kind. Kinds are compared by errors.Is against the
// exported sentinel values:
//
//	if errors.Is(err, dmsgerrors.ErrUnknownID) { ... }
//
// Errors of the kinds DuplicateID, AlreadyInitialized, MissingScheduler, InvalidConfig
// and Unsupported form the configuration class (see IsConfiguration). They are raised
// at startup or on first use of a buffer and are fatal for the application. All other
// kinds are raised per message and are surfaced by the emitter's Error event.
//
// Errors render as
//
//	[resolve] unknown_id: received invalid type id 255
//	[pack] payload_too_large (GameInfo): encoded size 5120 exceeds 4096 bytes
package errors

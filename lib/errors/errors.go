package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // type registration / hook generation
	PhaseResolve  Phase = "resolve"  // tag lookup and lazy loading
	PhasePack     Phase = "pack"     // message to bytes
	PhaseUnpack   Phase = "unpack"   // bytes to message
	PhaseBuffer   Phase = "buffer"   // coalescing layer
	PhaseDispatch Phase = "dispatch" // emitter listeners and handler setup
	PhaseSend     Phase = "send"     // handing bytes to the transport
)

// Kind categorizes the error
type Kind string

const (
	KindDuplicateID        Kind = "duplicate_id"
	KindAlreadyInitialized Kind = "already_initialized"
	KindMissingScheduler   Kind = "missing_scheduler"
	KindInvalidConfig      Kind = "invalid_config"
	KindUnsupported        Kind = "unsupported"
	KindUnknownID          Kind = "unknown_id"
	KindLoadFailure        Kind = "load_failure"
	KindInvalidExport      Kind = "invalid_export"
	KindNotConfigured      Kind = "not_configured"
	KindPayloadTooLarge    Kind = "payload_too_large"
	KindCodecNotBound      Kind = "codec_not_bound"
	KindInvalidData        Kind = "invalid_data"
	KindHandler            Kind = "handler"
)

// Sentinel values for errors.Is. Only the Kind is compared.
var (
	ErrDuplicateID        = &Error{Kind: KindDuplicateID}
	ErrAlreadyInitialized = &Error{Kind: KindAlreadyInitialized}
	ErrMissingScheduler   = &Error{Kind: KindMissingScheduler}
	ErrInvalidConfig      = &Error{Kind: KindInvalidConfig}
	ErrUnsupported        = &Error{Kind: KindUnsupported}
	ErrUnknownID          = &Error{Kind: KindUnknownID}
	ErrLoadFailure        = &Error{Kind: KindLoadFailure}
	ErrInvalidExport      = &Error{Kind: KindInvalidExport}
	ErrNotConfigured      = &Error{Kind: KindNotConfigured}
	ErrPayloadTooLarge    = &Error{Kind: KindPayloadTooLarge}
	ErrCodecNotBound      = &Error{Kind: KindCodecNotBound}
	ErrInvalidData        = &Error{Kind: KindInvalidData}
	ErrHandler            = &Error{Kind: KindHandler}
)

// Error is the structured error type used by all lib packages
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string // message type name, if known
	Detail string
}

// Error implements the error interface.
// The format is "[phase] kind (type): detail: cause"
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Type != "" {
		b.WriteString(" (")
		b.WriteString(e.Type)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Configuration reports whether the error belongs to the configuration class,
// i.e. it is raised at startup or first use and is not caused by a single message.
func (e *Error) Configuration() bool {
	switch e.Kind {
	case KindDuplicateID, KindAlreadyInitialized, KindMissingScheduler, KindInvalidConfig, KindUnsupported:
		return true
	default:
		return false
	}
}

// IsConfiguration reports whether err (or any error it wraps) is a configuration error
func IsConfiguration(err error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Configuration() {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// --------------------------------------------------------------------------
// Builder
// --------------------------------------------------------------------------

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Type sets the message type name
func (b *Builder) Type(name string) *Builder {
	b.err.Type = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

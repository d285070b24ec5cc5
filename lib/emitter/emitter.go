package emitter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ValentinKolb/dMsg/lib/buffer"
	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/pool"
	"github.com/ValentinKolb/dMsg/lib/schema"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sourcegraph/conc/panics"
)

var Logger = logger.GetLogger("emitter")

// Listener handles a dispatched message. The message must not be used after the
// listener returned, it is released by the caller of Emit.
type Listener func(m *schema.Message) error

// Options configures an Emitter
type Options struct {
	Registry *schema.Registry // required for CreateMessageParser
	Pool     *pool.Pool       // defaults to a private pool
	Buffers  *buffer.Pool     // required for SendBuffered
	Send     buffer.SendFunc  // required for Send and SendBuffered
	Handlers HandlerLookup    // optional auto-registration of handlers
}

// registration is one registered listener
type registration struct {
	fn   Listener
	once bool
}

// Emitter is a publish/subscribe dispatcher for messages keyed by type name. It ties
// parsing, dispatching and sending of one communication channel together.
type Emitter struct {
	registry *schema.Registry
	pool     *pool.Pool
	buffers  *buffer.Pool
	instance *buffer.Buffers
	send     buffer.SendFunc
	handlers HandlerLookup

	mu        sync.RWMutex // guards the listener tables
	listeners map[string][]*registration
	onError   []func(error)
	onIgnored []Listener

	loaded *xsync.MapOf[string, struct{}]
}

// New creates an emitter
func New(opts Options) *Emitter {
	e := &Emitter{
		registry:  opts.Registry,
		pool:      opts.Pool,
		buffers:   opts.Buffers,
		send:      opts.Send,
		handlers:  opts.Handlers,
		listeners: make(map[string][]*registration),
		loaded:    xsync.NewMapOf[string, struct{}](),
	}
	if e.pool == nil {
		e.pool = pool.New()
	}
	if e.buffers != nil {
		e.instance = e.buffers.NewInstance()
	}
	return e
}

// Registry returns the registry the emitter resolves inbound tags with
func (e *Emitter) Registry() *schema.Registry {
	return e.registry
}

// Pool returns the message pool of the emitter
func (e *Emitter) Pool() *pool.Pool {
	return e.pool
}

// --------------------------------------------------------------------------
// Listener Registration
// --------------------------------------------------------------------------

// On registers a persistent listener for messages of the named type
func (e *Emitter) On(name string, fn Listener) {
	e.add(name, fn, false)
}

// Once registers a listener that is removed after its first invocation
func (e *Emitter) Once(name string, fn Listener) {
	e.add(name, fn, true)
}

// Off removes all listeners of the named type
func (e *Emitter) Off(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, name)
}

// OnError registers a listener for the Error meta-event
func (e *Emitter) OnError(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = append(e.onError, fn)
}

// OnIgnored registers a listener for the Ignored meta-event, fired for messages without listener
func (e *Emitter) OnIgnored(fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onIgnored = append(e.onIgnored, fn)
}

// Listeners returns the number of listeners registered for the named type
func (e *Emitter) Listeners(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[name])
}

// --------------------------------------------------------------------------
// Dispatch
// --------------------------------------------------------------------------

// Emit dispatches m synchronously to all listeners of its type in registration order.
// Messages without listener fire Ignored. Listener errors are joined and returned.
func (e *Emitter) Emit(m *schema.Message) error {
	return e.dispatch(m)
}

// EmitAsync dispatches m like Emit and returns once every listener completed, so the
// caller may release m afterwards. Listeners run one after another in registration
// order, a listener that blocks delays the ones registered after it.
func (e *Emitter) EmitAsync(m *schema.Message) error {
	return e.dispatch(m)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dispatch invokes the listeners of m in registration order and joins their errors
func (e *Emitter) dispatch(m *schema.Message) error {
	regs := e.prepare(m)
	if len(regs) == 0 {
		e.ignored(m)
		return nil
	}

	var errs []error
	for _, r := range regs {
		if err := call(r.fn, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Emitter) add(name string, fn Listener, once bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[name] = append(e.listeners[name], &registration{fn: fn, once: once})
}

// prepare runs the auto-registration of the message type and returns the listeners to
// invoke. One-shot listeners are removed before they run.
func (e *Emitter) prepare(m *schema.Message) []*registration {
	name := m.Name()
	e.autoload(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	regs := e.listeners[name]
	if len(regs) == 0 {
		return nil
	}

	snapshot := make([]*registration, len(regs))
	copy(snapshot, regs)

	kept := regs[:0]
	for _, r := range regs {
		if !r.once {
			kept = append(kept, r)
		}
	}
	if len(kept) != len(regs) {
		// the snapshot holds the only reference to the removed listeners
		clear(regs[len(kept):])
		e.listeners[name] = kept
	}
	return snapshot
}

// ignored fires the Ignored meta-event
func (e *Emitter) ignored(m *schema.Message) {
	ignoredTotal.Inc()

	e.mu.RLock()
	fns := e.onIgnored
	e.mu.RUnlock()

	if len(fns) == 0 {
		Logger.Debugf("ignoring %s message without listener", m.Name())
		return
	}
	for _, fn := range fns {
		if err := call(fn, m); err != nil {
			e.fail(err)
		}
	}
}

// fail fires the Error meta-event
func (e *Emitter) fail(err error) {
	errorsTotal.Inc()

	e.mu.RLock()
	fns := e.onError
	e.mu.RUnlock()

	if len(fns) == 0 {
		Logger.Errorf("unhandled emitter error: %v", err)
		return
	}
	for _, fn := range fns {
		fn(err)
	}
}

// call invokes a listener and converts errors and panics into handler errors
func call(fn Listener, m *schema.Message) error {
	var (
		err error
		pc  panics.Catcher
	)
	pc.Try(func() { err = fn(m) })

	if rec := pc.Recovered(); rec != nil {
		return dmsgerrors.New(dmsgerrors.PhaseDispatch, dmsgerrors.KindHandler).
			Type(m.Name()).
			Detail("listener panicked").
			Cause(fmt.Errorf("%v", rec.Value)).
			Build()
	}
	if err != nil {
		return dmsgerrors.New(dmsgerrors.PhaseDispatch, dmsgerrors.KindHandler).
			Type(m.Name()).
			Cause(err).
			Build()
	}
	return nil
}

package emitter

import (
	"fmt"

	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/sourcegraph/conc/panics"
)

// Setup registers the listeners of a handler on an emitter
type Setup func(e *Emitter) error

// HandlerLookup returns the handler setup for a type name. ok is false if the application
// has no handler for the type, a nil setup with ok == true is reported as an error.
type HandlerLookup func(typeName string) (setup Setup, ok bool)

// HandlerMap is an explicit table of handler setups keyed by type name
type HandlerMap map[string]Setup

// Lookup implements HandlerLookup
func (h HandlerMap) Lookup(typeName string) (Setup, bool) {
	setup, ok := h[typeName]
	return setup, ok
}

// autoload runs the handler setup of a type at most once per emitter. The attempt is
// recorded before the setup runs, so a setup may dispatch messages of its own type. Those
// messages and messages dispatched concurrently by other goroutines only reach the
// listeners registered so far.
func (e *Emitter) autoload(name string) {
	if e.handlers == nil {
		return
	}
	if _, attempted := e.loaded.LoadOrStore(name, struct{}{}); attempted {
		return
	}

	setup, ok := e.handlers(name)
	if !ok {
		return
	}
	if setup == nil {
		e.fail(dmsgerrors.New(dmsgerrors.PhaseDispatch, dmsgerrors.KindInvalidExport).
			Type(name).
			Detail("event handler for %s must export a setup function", name).
			Build())
		return
	}
	if err := runSetup(setup, e); err != nil {
		e.fail(dmsgerrors.New(dmsgerrors.PhaseDispatch, dmsgerrors.KindLoadFailure).
			Type(name).
			Detail("failed to auto-load event handler for %s", name).
			Cause(err).
			Build())
		return
	}
	Logger.Debugf("auto-loaded event handler for %s", name)
}

// runSetup calls setup and converts a panic into an error
func runSetup(setup Setup, e *Emitter) error {
	var (
		err error
		pc  panics.Catcher
	)
	pc.Try(func() { err = setup(e) })
	if rec := pc.Recovered(); rec != nil {
		return fmt.Errorf("panic: %v", rec.Value)
	}
	return err
}

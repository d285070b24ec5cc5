package emitter

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dMsg/lib/buffer"
	"github.com/ValentinKolb/dMsg/lib/codec"
	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/pool"
	"github.com/ValentinKolb/dMsg/lib/schema"
)

// fixture bundles the types and collaborators used by the emitter tests
type fixture struct {
	registry *schema.Registry
	pool     *pool.Pool
	join     *schema.Type
	move     *schema.Type

	mu     sync.Mutex
	sent   [][]byte
	errors []error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := schema.NewRegistry()
	return &fixture{
		registry: r,
		pool:     pool.New(),
		join: r.MustRegister(schema.Define(3, "Join", codec.NewJSONFormat(),
			schema.Attr("nickname", schema.String),
			schema.Attr("color", schema.Uint8))),
		move: r.MustRegister(schema.Define(7, "Move", codec.NewBinaryFormat(),
			schema.Attr("x", schema.Int32),
			schema.Attr("y", schema.Int32))),
	}
}

func (f *fixture) send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, bytes.Clone(data))
	return nil
}

func (f *fixture) onError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, err)
}

func (f *fixture) errorsSeen() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.errors...)
}

func (f *fixture) emitter(handlers HandlerLookup) *Emitter {
	e := New(Options{
		Registry: f.registry,
		Pool:     f.pool,
		Send:     f.send,
		Handlers: handlers,
	})
	e.OnError(f.onError)
	return e
}

func TestIgnored(t *testing.T) {
	f := newFixture(t)
	e := f.emitter(nil)

	var ignored []string
	e.OnIgnored(func(m *schema.Message) error {
		ignored = append(ignored, m.Name())
		return nil
	})

	m := f.pool.Create(f.move, schema.Fields{"x": 1})
	if err := e.Emit(m); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if !reflect.DeepEqual(ignored, []string{"Move"}) {
		t.Errorf("Ignored fired %v, want exactly once for Move", ignored)
	}
	if len(f.errorsSeen()) != 0 {
		t.Errorf("Error fired for ignored message: %v", f.errorsSeen())
	}
}

func TestListenerOrder(t *testing.T) {
	f := newFixture(t)
	e := f.emitter(nil)

	var calls []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		e.On("Move", func(m *schema.Message) error {
			calls = append(calls, name)
			return nil
		})
	}
	e.On("Join", func(m *schema.Message) error {
		calls = append(calls, "join")
		return nil
	})

	if err := e.Emit(f.pool.Claim(f.move)); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if !reflect.DeepEqual(calls, []string{"a", "b", "c"}) {
		t.Errorf("listeners called in order %v", calls)
	}
}

func TestOnceAndOff(t *testing.T) {
	f := newFixture(t)
	e := f.emitter(nil)

	onceCalls, onCalls := 0, 0
	e.Once("Move", func(m *schema.Message) error { onceCalls++; return nil })
	e.On("Move", func(m *schema.Message) error { onCalls++; return nil })

	for i := 0; i < 3; i++ {
		_ = e.Emit(f.pool.Claim(f.move))
	}
	if onceCalls != 1 || onCalls != 3 {
		t.Errorf("once called %d times, on called %d times", onceCalls, onCalls)
	}
	if e.Listeners("Move") != 1 {
		t.Errorf("Listeners() = %d, want 1", e.Listeners("Move"))
	}

	e.Off("Move")
	if e.Listeners("Move") != 0 {
		t.Errorf("Off did not remove listeners")
	}
}

func TestListenerErrors(t *testing.T) {
	f := newFixture(t)
	e := f.emitter(nil)

	reached := false
	e.On("Move", func(m *schema.Message) error { return fmt.Errorf("invalid move") })
	e.On("Move", func(m *schema.Message) error { panic("boom") })
	e.On("Move", func(m *schema.Message) error { reached = true; return nil })

	err := e.Emit(f.pool.Claim(f.move))
	if !errors.Is(err, dmsgerrors.ErrHandler) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid move") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("joined error misses a listener error: %v", err)
	}
	if !reached {
		t.Errorf("failing listener stopped the dispatch")
	}
}

func TestEmitAsyncWaits(t *testing.T) {
	f := newFixture(t)
	e := f.emitter(nil)

	var done atomic.Int32
	for i := 0; i < 4; i++ {
		e.On("Move", func(m *schema.Message) error {
			time.Sleep(10 * time.Millisecond)
			done.Add(1)
			return nil
		})
	}
	e.On("Move", func(m *schema.Message) error { return fmt.Errorf("rejected") })

	err := e.EmitAsync(f.pool.Claim(f.move))
	if done.Load() != 4 {
		t.Errorf("EmitAsync returned before all listeners completed (%d/4)", done.Load())
	}
	if !errors.Is(err, dmsgerrors.ErrHandler) {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestEmitAsyncOrder(t *testing.T) {
	f := newFixture(t)
	e := f.emitter(nil)

	const listeners = 8
	var (
		mu    sync.Mutex
		calls []int
	)
	for i := 0; i < listeners; i++ {
		e.On("Move", func(m *schema.Message) error {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, i)
			return nil
		})
	}

	want := make([]int, listeners)
	for i := range want {
		want[i] = i
	}
	for run := 0; run < 50; run++ {
		calls = calls[:0]
		if err := e.EmitAsync(f.pool.Claim(f.move)); err != nil {
			t.Fatalf("EmitAsync failed: %v", err)
		}
		if !reflect.DeepEqual(calls, want) {
			t.Fatalf("run %d: listeners called in order %v", run, calls)
		}
	}
}

func TestSetupDispatchesOwnType(t *testing.T) {
	f := newFixture(t)

	var received []int
	handlers := HandlerMap{
		"Move": func(e *Emitter) error {
			e.On("Move", func(m *schema.Message) error {
				received = append(received, m.Int("x"))
				return nil
			})
			// replays a pending move while the setup is still running
			return e.Emit(f.pool.Create(f.move, schema.Fields{"x": 1}))
		},
	}
	e := f.emitter(handlers.Lookup)

	done := make(chan error, 1)
	go func() {
		done <- e.Emit(f.pool.Create(f.move, schema.Fields{"x": 2}))
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatch from inside the handler setup deadlocked")
	}
	if !reflect.DeepEqual(received, []int{1, 2}) {
		t.Errorf("received %v, want [1 2]", received)
	}
	if errs := f.errorsSeen(); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestAutoRegistration(t *testing.T) {
	f := newFixture(t)

	setups := 0
	var received []int
	handlers := HandlerMap{
		"Move": func(e *Emitter) error {
			setups++
			e.On("Move", func(m *schema.Message) error {
				received = append(received, m.Int("x"))
				return nil
			})
			return nil
		},
	}
	e := f.emitter(handlers.Lookup)

	for x := 1; x <= 3; x++ {
		if err := e.Emit(f.pool.Create(f.move, schema.Fields{"x": x})); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}
	if setups != 1 {
		t.Errorf("setup ran %d times, want 1", setups)
	}
	// the listener registered by the setup already receives the first message
	if !reflect.DeepEqual(received, []int{1, 2, 3}) {
		t.Errorf("received %v", received)
	}

	// types without handler are skipped silently
	ignored := 0
	e.OnIgnored(func(m *schema.Message) error { ignored++; return nil })
	_ = e.Emit(f.pool.Claim(f.join))
	if ignored != 1 || len(f.errorsSeen()) != 0 {
		t.Errorf("missing handler: ignored=%d errors=%v", ignored, f.errorsSeen())
	}
}

func TestAutoRegistrationFailures(t *testing.T) {
	testCases := []struct {
		name    string
		setup   Setup
		kind    *dmsgerrors.Error
		message string
	}{
		{
			name:    "nil setup",
			setup:   nil,
			kind:    dmsgerrors.ErrInvalidExport,
			message: "event handler for Move must export a setup function",
		},
		{
			name:    "setup error",
			setup:   func(e *Emitter) error { return fmt.Errorf("database unavailable") },
			kind:    dmsgerrors.ErrLoadFailure,
			message: "failed to auto-load event handler for Move: database unavailable",
		},
		{
			name:    "setup panic",
			setup:   func(e *Emitter) error { panic("nil map") },
			kind:    dmsgerrors.ErrLoadFailure,
			message: "failed to auto-load event handler for Move: panic: nil map",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			e := f.emitter(HandlerMap{"Move": tc.setup}.Lookup)

			ignored := 0
			e.OnIgnored(func(m *schema.Message) error { ignored++; return nil })

			for i := 0; i < 2; i++ {
				if err := e.Emit(f.pool.Claim(f.move)); err != nil {
					t.Fatalf("Emit failed: %v", err)
				}
			}

			// reported once, the message is still marked as ignored
			errs := f.errorsSeen()
			if len(errs) != 1 {
				t.Fatalf("expected exactly one error, got %v", errs)
			}
			if !errors.Is(errs[0], tc.kind) {
				t.Errorf("error kind = %v, want %s", errs[0], tc.kind.Kind)
			}
			if !strings.Contains(errs[0].Error(), tc.message) {
				t.Errorf("error %q does not contain %q", errs[0].Error(), tc.message)
			}
			if ignored != 2 {
				t.Errorf("ignored fired %d times, want 2", ignored)
			}
		})
	}
}

func TestSend(t *testing.T) {
	f := newFixture(t)
	e := f.emitter(nil)

	if err := e.Send(f.join, schema.Fields{"nickname": "a", "color": 1}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	want := append([]byte{3}, `{"nickname":"a","color":1}`...)
	if len(f.sent) != 1 || !bytes.Equal(f.sent[0], want) {
		t.Errorf("sent %q, want %q", f.sent, want)
	}
	if f.pool.Free(f.join) != 1 {
		t.Errorf("sent message was not released")
	}
}

func TestSendNotConfigured(t *testing.T) {
	f := newFixture(t)
	e := New(Options{Registry: f.registry, Pool: f.pool})

	err := e.Send(f.move, nil)
	if !errors.Is(err, dmsgerrors.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
	if !strings.Contains(err.Error(), "instance not configured with a send function") {
		t.Errorf("unexpected message: %v", err)
	}
	if err := e.SendBuffered(f.move, nil, buffer.Config{}); !errors.Is(err, dmsgerrors.ErrNotConfigured) {
		t.Errorf("expected not configured for buffered send, got %v", err)
	}
}

func TestSendBuffered(t *testing.T) {
	f := newFixture(t)
	scheduler := buffer.NewManualScheduler()
	e := New(Options{
		Registry: f.registry,
		Pool:     f.pool,
		Buffers:  buffer.NewPool(f.pool, scheduler),
		Send:     f.send,
	})

	config := buffer.Config{Scope: buffer.ScopeInstance, ID: 1, Strategy: buffer.Overwrite()}
	for x := 1; x <= 3; x++ {
		if err := e.SendBuffered(f.move, schema.Fields{"x": x, "y": 0}, config); err != nil {
			t.Fatalf("SendBuffered failed: %v", err)
		}
	}
	if len(f.sent) != 0 {
		t.Fatalf("buffered messages sent before tick")
	}

	scheduler.Tick()
	if len(f.sent) != 1 || f.sent[0][4] != 3 {
		t.Errorf("sent %v, want only the latest move", f.sent)
	}

	// closing drops pending entries
	_ = e.SendBuffered(f.move, schema.Fields{"x": 9}, config)
	e.Close()
	scheduler.Tick()
	if len(f.sent) != 1 {
		t.Errorf("closed emitter still sent buffered messages")
	}
}

func TestMessageParser(t *testing.T) {
	f := newFixture(t)
	e := f.emitter(nil)
	parse := e.CreateMessageParser()

	var got []string
	e.On("Join", func(m *schema.Message) error {
		got = append(got, fmt.Sprintf("%s/%d", m.String("nickname"), m.Int("color")))
		return nil
	})
	e.On("Move", func(m *schema.Message) error {
		got = append(got, fmt.Sprintf("move %d,%d", m.Int("x"), m.Int("y")))
		return nil
	})

	parse(append([]byte{3}, `{"nickname":"a","color":1}`...))
	parse([]byte{7, 0, 0, 0, 10, 255, 255, 255, 254})
	parse(append([]byte{3}, `{"nickname":"b","color":2}`...))

	want := []string{"a/1", "move 10,-2", "b/2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dispatched %v, want %v", got, want)
	}

	// parsed messages are released after dispatch
	if f.pool.Free(f.join) != 1 || f.pool.Free(f.move) != 1 {
		t.Errorf("parsed messages were not released: join=%d move=%d", f.pool.Free(f.join), f.pool.Free(f.move))
	}
}

func TestMessageParserErrors(t *testing.T) {
	f := newFixture(t)
	e := f.emitter(nil)
	parse := e.CreateMessageParser()

	e.On("Move", func(m *schema.Message) error { return fmt.Errorf("out of bounds") })

	parse([]byte{255})
	parse([]byte{7, 1})
	parse([]byte{7, 0, 0, 0, 10, 255, 255, 255, 254})

	errs := f.errorsSeen()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %v", errs)
	}
	if !errors.Is(errs[0], dmsgerrors.ErrUnknownID) || !strings.Contains(errs[0].Error(), "received invalid type id 255") {
		t.Errorf("unexpected first error: %v", errs[0])
	}
	if !errors.Is(errs[1], dmsgerrors.ErrInvalidData) {
		t.Errorf("unexpected second error: %v", errs[1])
	}
	if !errors.Is(errs[2], dmsgerrors.ErrHandler) {
		t.Errorf("unexpected third error: %v", errs[2])
	}
}

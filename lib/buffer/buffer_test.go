package buffer

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dMsg/lib/codec"
	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/pool"
	"github.com/ValentinKolb/dMsg/lib/schema"
)

// recorder collects the x values of all packed Pos messages it receives
type recorder struct {
	mu   sync.Mutex
	xs   []int8
	sent chan struct{}
}

func newRecorder() *recorder {
	return &recorder{sent: make(chan struct{}, 64)}
}

func (r *recorder) send(data []byte) error {
	if len(data) != 2 {
		return fmt.Errorf("unexpected message length %d", len(data))
	}
	r.mu.Lock()
	r.xs = append(r.xs, int8(data[1]))
	r.mu.Unlock()
	r.sent <- struct{}{}
	return nil
}

func (r *recorder) values() []int8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int8(nil), r.xs...)
}

// posType registers a one byte binary type
func posType(t *testing.T) *schema.Type {
	t.Helper()
	return schema.NewRegistry().MustRegister(schema.Define(1, "Pos", codec.NewBinaryFormat(),
		schema.Attr("x", schema.Int8)))
}

func entry(typ *schema.Type, x int, send SendFunc, config Config) Entry {
	return Entry{
		Type:   typ,
		Fields: schema.Fields{"x": x},
		Send:   send,
		Config: config,
	}
}

func TestCapacityFlush(t *testing.T) {
	typ := posType(t)
	rec := newRecorder()
	p := NewPool(pool.New(), NewManualScheduler())
	instance := p.NewInstance()
	config := Config{Scope: ScopeInstance, ID: 1, Strategy: Capacity(3)}

	for x := 1; x <= 2; x++ {
		if err := p.Store(instance, entry(typ, x, rec.send, config)); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	if len(rec.values()) != 0 {
		t.Fatalf("flushed before capacity was reached: %v", rec.values())
	}

	if err := p.Store(instance, entry(typ, 3, rec.send, config)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if got, want := rec.values(), []int8{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("sent %v, want %v", got, want)
	}

	// state was reset by the flush
	if err := p.Store(instance, entry(typ, 4, rec.send, config)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if got := rec.values(); len(got) != 3 {
		t.Errorf("unexpected second flush: %v", got)
	}
}

func TestCapacityIgnoresTicks(t *testing.T) {
	typ := posType(t)
	rec := newRecorder()
	scheduler := NewPeriodicScheduler(2 * time.Millisecond)
	p := NewPool(pool.New(), scheduler)
	config := Config{Scope: ScopeShared, ID: 1, Strategy: Capacity(3)}

	scheduler.Start()
	defer scheduler.Stop()

	for x := 1; x <= 2; x++ {
		if err := p.Store(nil, entry(typ, x, rec.send, config)); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	time.Sleep(20 * time.Millisecond)
	if got := rec.values(); len(got) != 0 {
		t.Fatalf("flushed before capacity was reached: %v", got)
	}

	if err := p.Store(nil, entry(typ, 3, rec.send, config)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if got, want := rec.values(), []int8{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("sent %v, want %v", got, want)
	}

	// a forced flush still sends a partial batch
	_ = p.Store(nil, entry(typ, 4, rec.send, config))
	b, ok := p.Shared().Lookup(1)
	if !ok {
		t.Fatalf("buffer not created")
	}
	if err := b.Schedule(); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if got, want := rec.values(), []int8{1, 2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("sent %v, want %v", got, want)
	}
}

func TestOverwriteScheduledFlush(t *testing.T) {
	typ := posType(t)
	rec := newRecorder()
	scheduler := NewManualScheduler()
	p := NewPool(pool.New(), nil)
	instance := p.NewInstance()
	config := Config{Scope: ScopeInstance, ID: 1, Strategy: Overwrite(), Scheduler: scheduler}

	for x := 1; x <= 3; x++ {
		if err := p.Store(instance, entry(typ, x, rec.send, config)); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	if len(rec.values()) != 0 {
		t.Fatalf("overwrite strategy flushed by itself")
	}

	scheduler.Tick()
	if got, want := rec.values(), []int8{3}; !reflect.DeepEqual(got, want) {
		t.Errorf("sent %v, want %v", got, want)
	}

	// nothing new to send
	scheduler.Tick()
	if got := rec.values(); len(got) != 1 {
		t.Errorf("empty cycle sent %v", got)
	}

	// forced flush
	_ = p.Store(instance, entry(typ, 9, rec.send, config))
	b, ok := instance.Lookup(1)
	if !ok {
		t.Fatalf("buffer not created")
	}
	if err := b.Schedule(); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if got, want := rec.values(), []int8{3, 9}; !reflect.DeepEqual(got, want) {
		t.Errorf("sent %v, want %v", got, want)
	}
}

func TestMissingScheduler(t *testing.T) {
	typ := posType(t)
	p := NewPool(pool.New(), nil)

	err := p.Store(nil, entry(typ, 1, newRecorder().send, Config{Scope: ScopeShared, ID: 1, Strategy: Capacity(1)}))
	if !errors.Is(err, dmsgerrors.ErrMissingScheduler) {
		t.Fatalf("expected missing scheduler, got %v", err)
	}
	if !dmsgerrors.IsConfiguration(err) {
		t.Errorf("missing scheduler must be a configuration error")
	}
}

func TestInvalidConfig(t *testing.T) {
	typ := posType(t)
	p := NewPool(pool.New(), NewManualScheduler())
	rec := newRecorder()

	testCases := []struct {
		name   string
		entry  Entry
		target *dmsgerrors.Error
	}{
		{"zero capacity", entry(typ, 1, rec.send, Config{Scope: ScopeShared, ID: 1, Strategy: Capacity(0)}), dmsgerrors.ErrInvalidConfig},
		{"negative capacity", entry(typ, 1, rec.send, Config{Scope: ScopeShared, ID: 2, Strategy: Capacity(-3)}), dmsgerrors.ErrInvalidConfig},
		{"no strategy", entry(typ, 1, rec.send, Config{Scope: ScopeShared, ID: 3}), dmsgerrors.ErrInvalidConfig},
		{"no instance scope", entry(typ, 1, rec.send, Config{Scope: ScopeInstance, ID: 4, Strategy: Overwrite()}), dmsgerrors.ErrInvalidConfig},
		{"no type", entry(nil, 1, rec.send, Config{Scope: ScopeShared, ID: 5, Strategy: Overwrite()}), dmsgerrors.ErrInvalidConfig},
		{"no send function", entry(typ, 1, nil, Config{Scope: ScopeShared, ID: 6, Strategy: Overwrite()}), dmsgerrors.ErrNotConfigured},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := p.Store(nil, tc.entry); !errors.Is(err, tc.target) {
				t.Errorf("Store() error = %v, want kind %s", err, tc.target.Kind)
			}
		})
	}
}

func TestScopes(t *testing.T) {
	typ := posType(t)
	scheduler := NewManualScheduler()
	p := NewPool(pool.New(), scheduler)
	recA, recB := newRecorder(), newRecorder()
	a, b := p.NewInstance(), p.NewInstance()

	instanceConfig := Config{Scope: ScopeInstance, ID: 1, Strategy: Overwrite()}
	_ = p.Store(a, entry(typ, 1, recA.send, instanceConfig))
	_ = p.Store(b, entry(typ, 2, recB.send, instanceConfig))

	// same id in the shared scope is another buffer, shared by both instances
	sharedConfig := Config{Scope: ScopeShared, ID: 1, Strategy: Overwrite()}
	_ = p.Store(a, entry(typ, 5, recA.send, sharedConfig))
	_ = p.Store(b, entry(typ, 6, recB.send, sharedConfig))

	if a.Len() != 1 || b.Len() != 1 || p.Shared().Len() != 1 {
		t.Errorf("unexpected scope sizes: a=%d b=%d shared=%d", a.Len(), b.Len(), p.Shared().Len())
	}
	if scheduler.Len() != 3 {
		t.Errorf("scheduler has %d buffers, want 3", scheduler.Len())
	}

	scheduler.Tick()
	// the shared buffer kept only the latest entry, sent with the latest send function
	if got := recA.values(); !reflect.DeepEqual(got, []int8{1}) {
		t.Errorf("instance a sent %v", got)
	}
	gotB := recB.values()
	if len(gotB) != 2 || !containsAll(gotB, 2, 6) {
		t.Errorf("instance b sent %v", gotB)
	}
}

func TestFieldsCopiedOnStore(t *testing.T) {
	typ := posType(t)
	rec := newRecorder()
	scheduler := NewManualScheduler()
	p := NewPool(pool.New(), scheduler)

	fields := schema.Fields{"x": 7}
	_ = p.Store(nil, Entry{Type: typ, Fields: fields, Send: rec.send, Config: Config{Scope: ScopeShared, ID: 1, Strategy: Overwrite()}})
	fields["x"] = 8

	scheduler.Tick()
	if got := rec.values(); !reflect.DeepEqual(got, []int8{7}) {
		t.Errorf("sent %v, want [7]", got)
	}
}

func TestDispose(t *testing.T) {
	typ := posType(t)
	rec := newRecorder()
	scheduler := NewManualScheduler()
	p := NewPool(pool.New(), scheduler)
	instance := p.NewInstance()

	_ = p.Store(instance, entry(typ, 1, rec.send, Config{Scope: ScopeInstance, ID: 1, Strategy: Capacity(5)}))
	_ = p.Store(instance, entry(typ, 2, rec.send, Config{Scope: ScopeInstance, ID: 2, Strategy: Overwrite()}))
	instance.Dispose()

	if scheduler.Len() != 0 {
		t.Errorf("disposed buffers still attached: %d", scheduler.Len())
	}
	if instance.Len() != 0 {
		t.Errorf("disposed scope still holds %d buffers", instance.Len())
	}

	scheduler.Tick()
	if got := rec.values(); len(got) != 0 {
		t.Errorf("disposed entries were sent: %v", got)
	}
}

func TestSendErrorReturned(t *testing.T) {
	typ := posType(t)
	p := NewPool(pool.New(), NewManualScheduler())
	failing := func([]byte) error { return fmt.Errorf("connection closed") }

	err := p.Store(nil, entry(typ, 1, failing, Config{Scope: ScopeShared, ID: 1, Strategy: Capacity(1)}))
	if err == nil {
		t.Fatalf("expected send error")
	}
}

func TestPeriodicScheduler(t *testing.T) {
	typ := posType(t)
	rec := newRecorder()
	scheduler := NewPeriodicScheduler(5 * time.Millisecond)
	p := NewPool(pool.New(), scheduler)

	scheduler.Start()
	scheduler.Start() // no-op
	defer scheduler.Stop()

	_ = p.Store(nil, entry(typ, 4, rec.send, Config{Scope: ScopeShared, ID: 1, Strategy: Overwrite()}))

	select {
	case <-rec.sent:
	case <-time.After(time.Second):
		t.Fatalf("periodic scheduler did not flush")
	}
	if got := rec.values(); !reflect.DeepEqual(got, []int8{4}) {
		t.Errorf("sent %v, want [4]", got)
	}

	scheduler.Stop()
	scheduler.Stop() // no-op
}

func TestDefaultInterval(t *testing.T) {
	if got := NewPeriodicScheduler(0).Interval(); got != DefaultInterval {
		t.Errorf("Interval() = %s, want %s", got, DefaultInterval)
	}
}

func containsAll(values []int8, want ...int8) bool {
	for _, w := range want {
		found := false
		for _, v := range values {
			if v == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

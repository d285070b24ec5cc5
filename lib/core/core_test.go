package core

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dMsg/lib/buffer"
	"github.com/ValentinKolb/dMsg/lib/codec"
	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/schema"
)

func TestNewWithoutScheduler(t *testing.T) {
	ctx, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ctx.Scheduler != nil {
		t.Errorf("unexpected default scheduler")
	}

	// the registry was initialized by New
	if err := ctx.Registry.Init(nil, nil); !errors.Is(err, dmsgerrors.ErrAlreadyInitialized) {
		t.Errorf("expected already initialized, got %v", err)
	}

	move := ctx.Registry.MustRegister(schema.Define(7, "Move", codec.NewBinaryFormat(), schema.Attr("x", schema.Int8)))
	e := ctx.NewEmitter(func([]byte) error { return nil }, nil)
	err = e.SendBuffered(move, nil, buffer.Config{Scope: buffer.ScopeShared, ID: 1, Strategy: buffer.Overwrite()})
	if !errors.Is(err, dmsgerrors.ErrMissingScheduler) {
		t.Errorf("expected missing scheduler, got %v", err)
	}
}

func TestDefaultScheduler(t *testing.T) {
	ctx, err := New(Config{DefaultScheduler: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ctx.Scheduler == nil || ctx.Scheduler.Interval() != buffer.DefaultInterval {
		t.Fatalf("expected default scheduler with %s interval", buffer.DefaultInterval)
	}
}

func TestEndToEnd(t *testing.T) {
	ctx, err := New(Config{
		Names: map[schema.ID]string{7: "Move"},
		Loader: schema.MapLoader{
			"Move": func(*schema.Registry) (*schema.Definition, error) {
				def := schema.Define(7, "Move", codec.NewBinaryFormat(),
					schema.Attr("x", schema.Int32),
					schema.Attr("y", schema.Int32))
				return &def, nil
			},
		},
		FlushInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx.Start()
	defer ctx.Stop()

	// two emitters wired back to back
	var mu sync.Mutex
	var wire [][]byte
	sender := ctx.NewEmitter(func(data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		wire = append(wire, bytes.Clone(data))
		return nil
	}, nil)

	received := make(chan [2]int, 4)
	receiver := ctx.NewEmitter(nil, nil)
	receiver.On("Move", func(m *schema.Message) error {
		received <- [2]int{m.Int("x"), m.Int("y")}
		return nil
	})
	parse := receiver.CreateMessageParser()

	move, err := ctx.Registry.Resolve(7)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	config := buffer.Config{Scope: buffer.ScopeInstance, ID: 1, Strategy: buffer.Overwrite()}
	_ = sender.SendBuffered(move, schema.Fields{"x": 1, "y": 1}, config)
	_ = sender.SendBuffered(move, schema.Fields{"x": 10, "y": -2}, config)

	// the first move may already be flushed on its own, wait for the latest one
	want := []byte{7, 0, 0, 0, 10, 255, 255, 255, 254}
	deadline := time.After(time.Second)
	var frame []byte
	for frame == nil {
		mu.Lock()
		for _, f := range wire {
			if bytes.Equal(f, want) {
				frame = f
			}
		}
		mu.Unlock()
		if frame != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("buffered move was not flushed")
		case <-time.After(time.Millisecond):
		}
	}

	parse(frame)
	select {
	case got := <-received:
		if got != [2]int{10, -2} {
			t.Errorf("received %v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("move was not dispatched")
	}
}

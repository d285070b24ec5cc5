package pool

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ValentinKolb/dMsg/lib/codec"
	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/schema"
)

// testTypes registers a small inheritance chain Move <- Moved and an unrelated Join type
func testTypes(t *testing.T) (*schema.Registry, *schema.Type, *schema.Type, *schema.Type) {
	t.Helper()
	r := schema.NewRegistry()
	move := r.MustRegister(schema.Define(7, "Move", codec.NewBinaryFormat(),
		schema.Attr("x", schema.Int32),
		schema.Attr("y", schema.Int32)))
	moved := r.MustRegister(schema.Define(8, "Moved", codec.NewBinaryFormat(),
		schema.Attr("playerId", schema.Uint8)).Extends(move))
	join := r.MustRegister(schema.Define(3, "Join", codec.NewJSONFormat(),
		schema.Attr("nickname", schema.String),
		schema.Attr("color", schema.Uint8)))
	return r, move, moved, join
}

func TestClaimReleaseLIFO(t *testing.T) {
	_, move, _, _ := testTypes(t)
	p := New()

	a := p.Claim(move)
	b := p.Claim(move)
	if a == b {
		t.Fatalf("two claims returned the same message")
	}

	a.Release()
	b.Release()
	if p.Free(move) != 2 {
		t.Errorf("Free() = %d, want 2", p.Free(move))
	}

	// last released is claimed first
	if got := p.Claim(move); got != b {
		t.Errorf("expected most recently released message")
	}
	if got := p.Claim(move); got != a {
		t.Errorf("expected second most recently released message")
	}
	if p.Free(move) != 0 {
		t.Errorf("Free() = %d, want 0", p.Free(move))
	}
}

func TestReleaseClearsFields(t *testing.T) {
	_, move, _, _ := testTypes(t)
	p := New()

	m := p.Create(move, schema.Fields{"x": 1, "y": 2})
	m.Release()

	again := p.Claim(move)
	if again != m {
		t.Fatalf("expected reuse of released message")
	}
	if len(again.Fields()) != 0 {
		t.Errorf("fields survived release: %v", again.Fields())
	}
}

func TestDoubleReleaseIgnored(t *testing.T) {
	_, move, _, _ := testTypes(t)
	p := New()

	m := p.Claim(move)
	m.Release()
	m.Release()
	p.Release(schema.NewMessage(move, nil))

	if p.Free(move) != 1 {
		t.Errorf("Free() = %d, want 1", p.Free(move))
	}
}

func TestPoolIsolation(t *testing.T) {
	_, move, moved, join := testTypes(t)
	p := New()

	for _, typ := range []*schema.Type{move, moved, join} {
		p.Claim(typ).Release()
	}

	// every type gets back only its own instances
	for _, typ := range []*schema.Type{moved, join, move} {
		m := p.Claim(typ)
		if m.Type() != typ {
			t.Errorf("claimed %s, got instance of %s", typ.Name, m.Type().Name)
		}
	}

	// a parent's free-list never serves a child
	p.Claim(move).Release()
	if child := p.Claim(moved); child.Type() != moved {
		t.Errorf("child claim returned parent instance")
	}
	if p.Free(move) != 1 {
		t.Errorf("parent free-list was touched by child claim")
	}
}

func TestParse(t *testing.T) {
	r, move, _, join := testTypes(t)
	p := New()

	data, err := p.Create(move, schema.Fields{"x": 10, "y": -2}).Pack()
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if !bytes.Equal(data, []byte{7, 0, 0, 0, 10, 255, 255, 255, 254}) {
		t.Fatalf("unexpected packed bytes %v", data)
	}

	m, err := p.Parse(r, bytes.Clone(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.Type() != move || m.Int("x") != 10 || m.Int("y") != -2 {
		t.Errorf("Parse() = %s %v", m.Name(), m.Fields())
	}

	joinData := append([]byte{3}, `{"nickname":"a","color":1}`...)
	m, err = p.Parse(r, joinData)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.Type() != join || m.String("nickname") != "a" || m.Int("color") != 1 {
		t.Errorf("Parse() = %s %v", m.Name(), m.Fields())
	}
}

func TestParseErrors(t *testing.T) {
	r, move, _, _ := testTypes(t)
	p := New()

	if _, err := p.Parse(r, nil); !errors.Is(err, dmsgerrors.ErrInvalidData) {
		t.Errorf("expected invalid data for empty input, got %v", err)
	}
	if _, err := p.Parse(r, []byte{255}); !errors.Is(err, dmsgerrors.ErrUnknownID) {
		t.Errorf("expected unknown id, got %v", err)
	}

	// short payload releases the claimed message again
	if _, err := p.Parse(r, []byte{7, 0, 0}); !errors.Is(err, dmsgerrors.ErrInvalidData) {
		t.Errorf("expected invalid data for short payload, got %v", err)
	}
	if p.Free(move) != 1 {
		t.Errorf("failed parse did not release the message")
	}
}

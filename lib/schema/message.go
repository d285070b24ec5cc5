package schema

import (
	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/spf13/cast"
)

// Fields holds the attribute values of a message keyed by attribute name
type Fields map[string]any

// Releaser returns a message to the pool it was claimed from
type Releaser interface {
	Release(m *Message)
}

// Message is a reusable instance of a registered type. Messages are normally obtained
// from a pool.Pool and returned with Release; a message must not be used after release.
//
// The zero Message is not bound to any codec, Pack and Unpack return a
// codec_not_bound error.
type Message struct {
	typ     *Type
	fields  Fields
	storage []byte
	owner   Releaser
	claimed bool
}

// NewMessage allocates a message bound to t's hooks. owner may be nil for messages that
// are not managed by a pool.
func NewMessage(t *Type, owner Releaser) *Message {
	m := &Message{
		typ:    t,
		fields: make(Fields, len(t.Attributes)),
		owner:  owner,
	}
	if t.hooks.Create != nil {
		m.storage = t.hooks.Create(t.Size)
	}
	return m
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Type returns the type of the message (nil for unbound messages)
func (m *Message) Type() *Type {
	return m.typ
}

// Name returns the type name or "" for unbound messages
func (m *Message) Name() string {
	if m.typ == nil {
		return ""
	}
	return m.typ.Name
}

// Fields returns the live field map of the message
func (m *Message) Fields() Fields {
	if m.fields == nil {
		m.fields = make(Fields)
	}
	return m.fields
}

// Get returns the value of a field
func (m *Message) Get(name string) (any, bool) {
	v, ok := m.fields[name]
	return v, ok
}

// Set assigns a single field and returns the message for chaining
func (m *Message) Set(name string, value any) *Message {
	m.Fields()[name] = value
	return m
}

// Apply shallow-merges fields into the message and returns the message for chaining
func (m *Message) Apply(fields Fields) *Message {
	f := m.Fields()
	for k, v := range fields {
		f[k] = v
	}
	return m
}

// Int returns the field coerced to an int (0 if absent or not numeric)
func (m *Message) Int(name string) int {
	return cast.ToInt(m.fields[name])
}

// Float returns the field coerced to a float64
func (m *Message) Float(name string) float64 {
	return cast.ToFloat64(m.fields[name])
}

// String returns the field coerced to a string
func (m *Message) String(name string) string {
	return cast.ToString(m.fields[name])
}

// Bool returns the field coerced to a bool
func (m *Message) Bool(name string) bool {
	return cast.ToBool(m.fields[name])
}

// --------------------------------------------------------------------------
// Codec
// --------------------------------------------------------------------------

func (m *Message) bound() bool {
	return m.typ != nil && m.typ.hooks.Pack != nil && m.typ.hooks.Unpack != nil
}

// Pack encodes the message. The returned slice may alias the message's working storage
// and is only valid until the next Pack or Release.
func (m *Message) Pack() ([]byte, error) {
	if !m.bound() {
		return nil, dmsgerrors.New(dmsgerrors.PhasePack, dmsgerrors.KindCodecNotBound).
			Detail("message was not created by a registered type").
			Build()
	}
	data, err := m.typ.hooks.Pack(m, m.storage)
	if err != nil {
		return nil, err
	}
	// formats may grow the storage, keep it for the next pack
	if cap(data) > cap(m.storage) {
		m.storage = data[:cap(data)]
	}
	return data, nil
}

// Unpack decodes data (tag byte included) onto the message
func (m *Message) Unpack(data []byte) error {
	if !m.bound() {
		return dmsgerrors.New(dmsgerrors.PhaseUnpack, dmsgerrors.KindCodecNotBound).
			Detail("message was not created by a registered type").
			Build()
	}
	return m.typ.hooks.Unpack(m, data)
}

// --------------------------------------------------------------------------
// Pool Support
// --------------------------------------------------------------------------

// Release returns the message to its pool. Messages without a pool are only reset.
func (m *Message) Release() {
	if m.owner != nil {
		m.owner.Release(m)
		return
	}
	m.Reset()
}

// Reset removes all field values
func (m *Message) Reset() {
	clear(m.fields)
}

// Claimed reports whether the message is currently handed out by its pool
func (m *Message) Claimed() bool {
	return m.claimed
}

// SetClaimed is used by pools to track the claim state of a message
func (m *Message) SetClaimed(claimed bool) {
	m.claimed = claimed
}

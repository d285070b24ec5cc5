package schema

// Hooks is the immutable triple of codec functions generated for one type.
//
//   - Create allocates the working storage of a new message instance
//   - Pack encodes the message into bytes; the result may alias storage
//   - Unpack decodes data (including the tag byte) onto the message
type Hooks struct {
	Create func(size int) []byte
	Pack   func(m *Message, storage []byte) ([]byte, error)
	Unpack func(m *Message, data []byte) error
}

// Format is a serialization format. Build is called exactly once per type during
// registration, all schema interpretation happens there so that the returned hooks
// only execute precomputed field operations.
type Format interface {
	// Name returns the name of the format (e.g. "binary", "json")
	Name() string
	// Build generates the hooks for a type with the given tag, fixed size and attribute layout
	Build(id ID, size int, attributes []Attribute) (Hooks, error)
}

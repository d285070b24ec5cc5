package schema

// Kind is the primitive kind of a message attribute
type Kind uint8

const (
	Invalid Kind = iota
	Int8
	Int16
	Int32
	Uint8
	Uint16
	Uint32
	Float32
	Float64

	// variable width kinds, only usable with self-describing formats (json, msgpack)

	String
	Bool
	Any
)

var kindNames = [...]string{
	Invalid: "invalid",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Float32: "float32",
	Float64: "float64",
	String:  "string",
	Bool:    "bool",
	Any:     "any",
}

var kindWidths = [...]int{
	Int8:    1,
	Int16:   2,
	Int32:   4,
	Uint8:   1,
	Uint16:  2,
	Uint32:  4,
	Float32: 4,
	Float64: 8,
	String:  0,
	Bool:    0,
	Any:     0,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Valid reports whether k is a declared kind
func (k Kind) Valid() bool {
	return k > Invalid && int(k) < len(kindNames)
}

// Width returns the number of bytes the kind occupies in a fixed layout.
// Variable width kinds return 0.
func (k Kind) Width() int {
	if !k.Valid() {
		return 0
	}
	return kindWidths[k]
}

// Fixed reports whether the kind has a fixed wire width
func (k Kind) Fixed() bool {
	return k.Width() > 0
}

// Signed reports whether the kind is a signed integer
func (k Kind) Signed() bool {
	return k == Int8 || k == Int16 || k == Int32
}

// Float reports whether the kind is an IEEE754 float
func (k Kind) Float() bool {
	return k == Float32 || k == Float64
}

package schema

import "fmt"

// ID is the wire tag of a message type. It is written as byte 0 of every packed message.
type ID uint8

// Attribute is a single (field name, kind) pair of a message type
type Attribute struct {
	Name string
	Kind Kind
}

// Attr is a shorthand constructor for an Attribute
func Attr(name string, kind Kind) Attribute {
	return Attribute{Name: name, Kind: kind}
}

// --------------------------------------------------------------------------
// Definition
// --------------------------------------------------------------------------

// Definition is the declarative description of a message type. It is evaluated once by
// Registry.Register which turns it into an immutable *Type.
//
// Usage:
//
//	move := registry.MustRegister(schema.Define(7, "Move", codec.NewBinaryFormat(),
//		schema.Attr("x", schema.Int32),
//		schema.Attr("y", schema.Int32),
//	))
type Definition struct {
	ID         ID
	Name       string
	Format     Format
	Attributes []Attribute // own attributes, in declaration order
	Parent     *Type       // optional, must be registered in the same registry
}

// Define creates a Definition without parent
func Define(id ID, name string, format Format, attrs ...Attribute) Definition {
	return Definition{
		ID:         id,
		Name:       name,
		Format:     format,
		Attributes: attrs,
	}
}

// Extends returns a copy of the definition that inherits all attributes of parent
func (d Definition) Extends(parent *Type) Definition {
	d.Parent = parent
	return d
}

// --------------------------------------------------------------------------
// Type
// --------------------------------------------------------------------------

// Type is a registered message type descriptor. All fields are immutable after
// registration.
//
// The attribute layout of a subtype is its own attributes in declaration order
// followed by a copy of the parent's full attribute list. Size is the sum of the
// fixed widths along the same chain.
type Type struct {
	ID         ID
	Name       string
	Attributes []Attribute
	Size       int
	Parent     *Type
	Format     Format

	hooks Hooks
}

// Hooks returns the codec hooks generated for this type at registration
func (t *Type) Hooks() Hooks {
	return t.hooks
}

// IsA reports whether t is other or inherits from it
func (t *Type) IsA(other *Type) bool {
	for cur := t; cur != nil; cur = cur.Parent {
		if cur == other {
			return true
		}
	}
	return false
}

// Attribute returns the attribute with the given name
func (t *Type) Attribute(name string) (Attribute, bool) {
	for _, attr := range t.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

func (t *Type) String() string {
	return fmt.Sprintf("%s(%d)", t.Name, t.ID)
}

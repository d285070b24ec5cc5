// Package schema provides the type registry of the dMsg message framework. It maps
// numeric wire tags to message type descriptors, computes the attribute layout of
// each type including inherited attributes and binds the codec hooks generated by
// a Format to the type.
//
// Key Components:
//
//   - Registry: Maps type ids (0-255) to *Type. Types are registered eagerly with
//     Register/MustRegister or loaded lazily on first Resolve through a Loader and the
//     name table passed to Init.
//
//   - Definition: Declarative description of a type (id, name, format, own attributes,
//     optional parent). Definitions are evaluated exactly once.
//
//   - Type: Immutable descriptor. The attribute list of a subtype is its own attributes in
//     declaration order followed by the parent's full list, Size is additive along the chain.
//
//   - Format / Hooks: Contract for serialization formats. A format turns a layout into
//     Create/Pack/Unpack hooks once at registration, see package codec.
//
//   - Message: Reusable instance of a type holding its field values and the working
//     storage of its codec. Messages are claimed from and released to a pool.Pool.
//
// Lazy Loading:
//
//	Tags that are not registered are resolved by looking up their logical name in the
//	name table and asking the loader for a definition:
//
//	  registry := schema.NewRegistry()
//	  _ = registry.Init(map[schema.ID]string{3: "Join"}, schema.MapLoader{
//	      "Join": func(*schema.Registry) (*schema.Definition, error) {
//	          def := schema.Define(3, "Join", codec.NewJSONFormat(),
//	              schema.Attr("nickname", schema.String),
//	              schema.Attr("color", schema.Uint8))
//	          return &def, nil
//	      },
//	  })
//	  join, err := registry.Resolve(3)
//
//	Loader errors and panics surface as load_failure, a nil or mismatching definition as
//	invalid_export. Successfully loaded types stay registered.
//
// Thread Safety:
//
//	Registry is safe for concurrent use. Type is immutable. A Message is owned by exactly
//	one goroutine between claim and release.
package schema

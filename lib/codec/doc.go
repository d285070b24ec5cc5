// Package codec provides the serialization formats of the dMsg message framework.
// Every format implements schema.Format: when a type is registered the format is asked
// once to turn the type's attribute layout into Create/Pack/Unpack hooks. All layout
// decisions (offsets, widths, per-field read and write functions) are made at that point,
// packing and unpacking a message only walks the precomputed field table.
//
// All formats share the same framing: byte 0 is the type tag, the rest is the payload.
//
// Formats:
//
//   - Binary (NewBinaryFormat): Fixed-width layout of exactly 1+size bytes. Attributes are
//     written big-endian at their cumulative offsets. Only the fixed width kinds
//     (Int8..Float64) are accepted, other kinds fail registration with unsupported.
//     Values are coerced with spf13/cast and truncated to the declared width, e.g.
//     256 in a Uint8 attribute is packed as 0.
//
//   - JSON (NewJSONFormat): The payload is a json object. Declared attributes are written
//     first in layout order, all other fields follow in sorted key order. The working buffer
//     has a fixed capacity (DefaultCapacity), larger messages fail with payload_too_large.
//     Unpacking shallow-merges the decoded object onto the message.
//
//   - MsgPack (NewMsgPackFormat): Same semantics as JSON with a MessagePack map body using
//     sorted keys. Smaller and faster than JSON for numeric payloads.
//
// For the self-describing formats declared attributes are normalized to the Go type of
// their kind on pack and unpack (Uint8 -> uint8, String -> string, ...). Undeclared fields
// are passed through unchanged.
//
// Usage:
//
//	registry := schema.NewRegistry()
//	move := registry.MustRegister(schema.Define(7, "Move", codec.NewBinaryFormat(),
//	    schema.Attr("x", schema.Int32),
//	    schema.Attr("y", schema.Int32)))
//
//	m := schema.NewMessage(move, nil).Apply(schema.Fields{"x": 10, "y": -2})
//	data, _ := m.Pack() // [7 0 0 0 10 255 255 255 254]
//
// Thread Safety:
//
//	Formats and the hooks they generate are stateless and safe for concurrent use. The
//	working storage belongs to a single message.
package codec

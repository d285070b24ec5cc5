package codec

import (
	"encoding/binary"
	"math"

	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/schema"
)

// NewBinaryFormat creates the fixed-width binary format. Messages are encoded as the
// type tag followed by every attribute at its precomputed offset in big-endian order.
func NewBinaryFormat() schema.Format {
	return &binaryFormat{}
}

// binaryFormat implements schema.Format using a fixed-width layout
type binaryFormat struct {
}

// binaryField is one precomputed entry of a binary field table
type binaryField struct {
	name   string
	offset int // relative to the first byte after the tag
	write  func(dst []byte, v any) error
	read   func(src []byte) any
}

// --------------------------------------------------------------------------
// Interface Methods (docu see schema.Format)
// --------------------------------------------------------------------------

func (b *binaryFormat) Name() string {
	return "binary"
}

func (b *binaryFormat) Build(id schema.ID, size int, attributes []schema.Attribute) (schema.Hooks, error) {
	fields := make([]binaryField, 0, len(attributes))
	offset := 0

	for _, attr := range attributes {
		if !attr.Kind.Fixed() {
			return schema.Hooks{}, dmsgerrors.New(dmsgerrors.PhaseRegister, dmsgerrors.KindUnsupported).
				Detail("binary format does not support kind %s of attribute %s", attr.Kind, attr.Name).
				Build()
		}
		write, read := binaryAccessors(attr.Kind)
		fields = append(fields, binaryField{
			name:   attr.Name,
			offset: offset,
			write:  write,
			read:   read,
		})
		offset += attr.Kind.Width()
	}

	if offset != size {
		return schema.Hooks{}, dmsgerrors.New(dmsgerrors.PhaseRegister, dmsgerrors.KindInvalidConfig).
			Detail("attribute widths sum up to %d bytes but type size is %d", offset, size).
			Build()
	}

	length := 1 + size
	tag := byte(id)

	return schema.Hooks{
		Create: func(size int) []byte {
			return make([]byte, 1+size)
		},
		Pack: func(m *schema.Message, storage []byte) ([]byte, error) {
			if len(storage) < length {
				storage = make([]byte, length)
			}
			buf := storage[:length]
			buf[0] = tag

			values := m.Fields()
			for i := range fields {
				f := &fields[i]
				if err := f.write(buf[1+f.offset:], values[f.name]); err != nil {
					return nil, dmsgerrors.New(dmsgerrors.PhasePack, dmsgerrors.KindInvalidData).
						Type(m.Name()).
						Detail("attribute %s", f.name).
						Cause(err).
						Build()
				}
			}
			return buf, nil
		},
		Unpack: func(m *schema.Message, data []byte) error {
			if len(data) < length {
				return dmsgerrors.New(dmsgerrors.PhaseUnpack, dmsgerrors.KindInvalidData).
					Type(m.Name()).
					Detail("payload of %d bytes is shorter than %d bytes", len(data), length).
					Build()
			}

			values := m.Fields()
			for i := range fields {
				f := &fields[i]
				values[f.name] = f.read(data[1+f.offset:])
			}
			return nil
		},
	}, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// binaryAccessors returns the writer and reader of a fixed width kind.
// Integers are truncated to the width of the kind.
func binaryAccessors(kind schema.Kind) (func([]byte, any) error, func([]byte) any) {
	switch kind {
	case schema.Int8, schema.Uint8:
		write := func(dst []byte, v any) error {
			n, err := toInt64(v)
			dst[0] = byte(n)
			return err
		}
		if kind == schema.Int8 {
			return write, func(src []byte) any { return int8(src[0]) }
		}
		return write, func(src []byte) any { return src[0] }

	case schema.Int16, schema.Uint16:
		write := func(dst []byte, v any) error {
			n, err := toInt64(v)
			binary.BigEndian.PutUint16(dst, uint16(n))
			return err
		}
		if kind == schema.Int16 {
			return write, func(src []byte) any { return int16(binary.BigEndian.Uint16(src)) }
		}
		return write, func(src []byte) any { return binary.BigEndian.Uint16(src) }

	case schema.Int32, schema.Uint32:
		write := func(dst []byte, v any) error {
			n, err := toInt64(v)
			binary.BigEndian.PutUint32(dst, uint32(n))
			return err
		}
		if kind == schema.Int32 {
			return write, func(src []byte) any { return int32(binary.BigEndian.Uint32(src)) }
		}
		return write, func(src []byte) any { return binary.BigEndian.Uint32(src) }

	case schema.Float32:
		return func(dst []byte, v any) error {
				f, err := toFloat64(v)
				binary.BigEndian.PutUint32(dst, math.Float32bits(float32(f)))
				return err
			}, func(src []byte) any {
				return math.Float32frombits(binary.BigEndian.Uint32(src))
			}

	default: // schema.Float64
		return func(dst []byte, v any) error {
				f, err := toFloat64(v)
				binary.BigEndian.PutUint64(dst, math.Float64bits(f))
				return err
			}, func(src []byte) any {
				return math.Float64frombits(binary.BigEndian.Uint64(src))
			}
	}
}

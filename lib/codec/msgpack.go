package codec

import (
	"bytes"

	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/schema"
	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgPackFormat creates the MessagePack format with the default capacity
func NewMsgPackFormat() schema.Format {
	return NewMsgPackFormatWithLimit(DefaultCapacity)
}

// NewMsgPackFormatWithLimit creates the MessagePack format. The body is a map with
// sorted keys, the capacity rules are the same as for the json format.
func NewMsgPackFormatWithLimit(capacity int) schema.Format {
	if capacity <= 1 {
		capacity = DefaultCapacity
	}
	return &msgpackFormat{capacity: capacity}
}

// msgpackFormat implements schema.Format using MessagePack encoding
type msgpackFormat struct {
	capacity int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see schema.Format)
// --------------------------------------------------------------------------

func (f *msgpackFormat) Name() string {
	return "msgpack"
}

func (f *msgpackFormat) Build(id schema.ID, _ int, attributes []schema.Attribute) (schema.Hooks, error) {
	fields, _, err := declaredFields(attributes)
	if err != nil {
		return schema.Hooks{}, err
	}

	capacity := f.capacity
	tag := byte(id)

	return schema.Hooks{
		Create: func(int) []byte {
			return make([]byte, 0, capacity)
		},
		Pack: func(m *schema.Message, storage []byte) ([]byte, error) {
			values := m.Fields()

			body := make(map[string]any, len(values))
			for name, v := range values {
				body[name] = v
			}
			for i := range fields {
				fd := &fields[i]
				v, ok := body[fd.name]
				if !ok {
					continue
				}
				n, err := fd.normalize(v)
				if err != nil {
					return nil, invalidData(dmsgerrors.PhasePack, m, fd.name, err)
				}
				body[fd.name] = n
			}

			buf := bytes.NewBuffer(storage[:0])
			buf.WriteByte(tag)

			enc := msgpack.GetEncoder()
			defer msgpack.PutEncoder(enc)
			enc.Reset(buf)
			enc.SetSortMapKeys(true)

			if err := enc.Encode(body); err != nil {
				return nil, invalidData(dmsgerrors.PhasePack, m, "", err)
			}
			if buf.Len() > capacity {
				return nil, tooLarge(m, buf.Len(), capacity)
			}
			return buf.Bytes(), nil
		},
		Unpack: func(m *schema.Message, data []byte) error {
			if len(data) < 2 {
				return invalidData(dmsgerrors.PhaseUnpack, m, "", errEmptyPayload)
			}
			var decoded map[string]any
			if err := msgpack.Unmarshal(data[1:], &decoded); err != nil {
				return invalidData(dmsgerrors.PhaseUnpack, m, "", err)
			}
			return merge(m, fields, decoded)
		},
	}, nil
}

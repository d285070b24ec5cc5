package codec

import (
	"encoding/json"
	"sort"

	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/schema"
)

// DefaultCapacity is the default size of the working buffer of json and msgpack messages
const DefaultCapacity = 4096

// NewJSONFormat creates the json format with the default capacity
func NewJSONFormat() schema.Format {
	return NewJSONFormatWithLimit(DefaultCapacity)
}

// NewJSONFormatWithLimit creates the json format. Packed messages (tag included) larger
// than capacity bytes fail with a payload_too_large error.
func NewJSONFormatWithLimit(capacity int) schema.Format {
	if capacity <= 1 {
		capacity = DefaultCapacity
	}
	return &jsonFormat{capacity: capacity}
}

// jsonFormat implements schema.Format using json encoding
type jsonFormat struct {
	capacity int
}

// declaredField is one precomputed entry of a self-describing field table
type declaredField struct {
	name      string
	key       []byte // quoted json key incl. colon
	normalize normalizer
}

// --------------------------------------------------------------------------
// Interface Methods (docu see schema.Format)
// --------------------------------------------------------------------------

func (j *jsonFormat) Name() string {
	return "json"
}

func (j *jsonFormat) Build(id schema.ID, _ int, attributes []schema.Attribute) (schema.Hooks, error) {
	fields, declared, err := declaredFields(attributes)
	if err != nil {
		return schema.Hooks{}, err
	}

	capacity := j.capacity
	tag := byte(id)

	return schema.Hooks{
		Create: func(int) []byte {
			return make([]byte, 0, capacity)
		},
		Pack: func(m *schema.Message, storage []byte) ([]byte, error) {
			values := m.Fields()
			buf := append(storage[:0], tag, '{')
			first := true

			appendValue := func(key []byte, v any) error {
				encoded, err := json.Marshal(v)
				if err != nil {
					return err
				}
				if !first {
					buf = append(buf, ',')
				}
				first = false
				buf = append(buf, key...)
				buf = append(buf, encoded...)
				return nil
			}

			// declared attributes in layout order
			for i := range fields {
				f := &fields[i]
				v, ok := values[f.name]
				if !ok {
					continue
				}
				v, err := f.normalize(v)
				if err == nil {
					err = appendValue(f.key, v)
				}
				if err != nil {
					return nil, invalidData(dmsgerrors.PhasePack, m, f.name, err)
				}
			}

			// everything else in sorted key order
			for _, name := range extraKeys(values, declared) {
				key, _ := json.Marshal(name)
				if err := appendValue(append(key, ':'), values[name]); err != nil {
					return nil, invalidData(dmsgerrors.PhasePack, m, name, err)
				}
			}

			buf = append(buf, '}')
			if len(buf) > capacity {
				return nil, tooLarge(m, len(buf), capacity)
			}
			return buf, nil
		},
		Unpack: func(m *schema.Message, data []byte) error {
			if len(data) < 2 {
				return invalidData(dmsgerrors.PhaseUnpack, m, "", errEmptyPayload)
			}
			var decoded map[string]any
			if err := json.Unmarshal(data[1:], &decoded); err != nil {
				return invalidData(dmsgerrors.PhaseUnpack, m, "", err)
			}
			return merge(m, fields, decoded)
		},
	}, nil
}

// --------------------------------------------------------------------------
// Helper Methods (shared by the self-describing formats)
// --------------------------------------------------------------------------

// declaredFields builds the field table of a self-describing format
func declaredFields(attributes []schema.Attribute) ([]declaredField, map[string]struct{}, error) {
	fields := make([]declaredField, 0, len(attributes))
	declared := make(map[string]struct{}, len(attributes))
	for _, attr := range attributes {
		key, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, nil, dmsgerrors.New(dmsgerrors.PhaseRegister, dmsgerrors.KindInvalidConfig).
				Detail("attribute name %q", attr.Name).
				Cause(err).
				Build()
		}
		fields = append(fields, declaredField{
			name:      attr.Name,
			key:       append(key, ':'),
			normalize: normalizerFor(attr.Kind),
		})
		declared[attr.Name] = struct{}{}
	}
	return fields, declared, nil
}

// extraKeys returns the sorted names of all fields that are not declared attributes
func extraKeys(values schema.Fields, declared map[string]struct{}) []string {
	if len(values) <= len(declared) {
		// fast path: all present keys may be declared
		extra := false
		for name := range values {
			if _, ok := declared[name]; !ok {
				extra = true
				break
			}
		}
		if !extra {
			return nil
		}
	}

	keys := make([]string, 0, len(values))
	for name := range values {
		if _, ok := declared[name]; !ok {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys
}

// merge shallow-merges decoded values onto the message, declared attributes are normalized
func merge(m *schema.Message, fields []declaredField, decoded map[string]any) error {
	values := m.Fields()
	for i := range fields {
		f := &fields[i]
		v, ok := decoded[f.name]
		if !ok {
			continue
		}
		n, err := f.normalize(v)
		if err != nil {
			return invalidData(dmsgerrors.PhaseUnpack, m, f.name, err)
		}
		decoded[f.name] = n
	}
	for name, v := range decoded {
		values[name] = v
	}
	return nil
}

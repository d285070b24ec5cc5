package codec

import (
	"errors"
	"fmt"
	"strings"

	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/schema"
)

var errEmptyPayload = errors.New("payload has no body")

// ByName returns the format with the given name ("binary", "json" or "msgpack").
// capacity is used by the self-describing formats, values <= 1 select DefaultCapacity.
func ByName(name string, capacity int) (schema.Format, error) {
	switch strings.ToLower(name) {
	case "binary":
		return NewBinaryFormat(), nil
	case "json":
		return NewJSONFormatWithLimit(capacity), nil
	case "msgpack":
		return NewMsgPackFormatWithLimit(capacity), nil
	default:
		return nil, fmt.Errorf("unknown format: %s. must be one of binary, json, msgpack", name)
	}
}

// invalidData wraps a coercion or decoding error
func invalidData(phase dmsgerrors.Phase, m *schema.Message, attr string, cause error) error {
	b := dmsgerrors.New(phase, dmsgerrors.KindInvalidData).Type(m.Name()).Cause(cause)
	if attr != "" {
		b.Detail("attribute %s", attr)
	}
	return b.Build()
}

// tooLarge reports an encoded message exceeding the working buffer
func tooLarge(m *schema.Message, size, capacity int) error {
	return dmsgerrors.New(dmsgerrors.PhasePack, dmsgerrors.KindPayloadTooLarge).
		Type(m.Name()).
		Detail("encoded size %d exceeds %d bytes", size, capacity).
		Build()
}

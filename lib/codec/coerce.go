package codec

import (
	"fmt"

	"github.com/ValentinKolb/dMsg/lib/schema"
	"github.com/spf13/cast"
)

// normalizer converts a field value to the canonical Go type of an attribute kind
type normalizer func(v any) (any, error)

// normalizerFor returns the normalizer of a kind. Integer kinds wrap around to their
// declared width, nil values stay nil.
func normalizerFor(kind schema.Kind) normalizer {
	integer := func(conv func(n int64) any) normalizer {
		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			n, err := cast.ToInt64E(v)
			if err != nil {
				return nil, err
			}
			return conv(n), nil
		}
	}

	switch kind {
	case schema.Int8:
		return integer(func(n int64) any { return int8(n) })
	case schema.Int16:
		return integer(func(n int64) any { return int16(n) })
	case schema.Int32:
		return integer(func(n int64) any { return int32(n) })
	case schema.Uint8:
		return integer(func(n int64) any { return uint8(n) })
	case schema.Uint16:
		return integer(func(n int64) any { return uint16(n) })
	case schema.Uint32:
		return integer(func(n int64) any { return uint32(n) })
	case schema.Float32:
		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			f, err := cast.ToFloat64E(v)
			return float32(f), err
		}
	case schema.Float64:
		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			return cast.ToFloat64E(v)
		}
	case schema.String:
		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			return cast.ToStringE(v)
		}
	case schema.Bool:
		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			return cast.ToBoolE(v)
		}
	default:
		return func(v any) (any, error) { return v, nil }
	}
}

// toInt64 coerces v for the binary writers, absent values encode as zero
func toInt64(v any) (int64, error) {
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to an integer: %w", v, err)
	}
	return n, nil
}

// toFloat64 coerces v for the binary writers, absent values encode as zero
func toFloat64(v any) (float64, error) {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to a float: %w", v, err)
	}
	return f, nil
}

package hashfunc

import (
	"encoding/hex"
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/blake2b"
)

// fingerprintSize is the BLAKE2b digest length in bytes.
const fingerprintSize = 16

// maxExactInt bounds the floats that are rendered as integers.
const maxExactInt = 1 << 53

// fingerprint returns the hex BLAKE2b-128 digest of
// name|canonical(args)|canonical(kwargs), where canonical is the RFC 8785
// form of the normalized values.
func fingerprint(name string, args []any, kwargs map[string]any) (string, error) {
	canonArgs, err := canonicalJSON(args)
	if err != nil {
		return "", err
	}
	canonKwargs, err := canonicalJSON(kwargs)
	if err != nil {
		return "", err
	}
	h, _ := blake2b.New(fingerprintSize, nil)
	h.Write([]byte(name))
	h.Write([]byte{'|'})
	h.Write(canonArgs)
	h.Write([]byte{'|'})
	h.Write(canonKwargs)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalJSON encodes v and rewrites it with sorted keys and ES6 number
// formatting.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode parameters: %w", ErrInvalidParams, err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalize parameters: %w", ErrInvalidParams, err)
	}
	return canon, nil
}

// normalizeValue converts parameter values to the types JSON decoding
// produces, with integral numbers as int64, so a value survives a database
// round trip unchanged.
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrInvalidParams, t)
		}
		return int64(t), nil
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidParams, t, err)
		}
		return normalizeFloat(f)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := normalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			n, err := normalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported parameter type %T", ErrInvalidParams, v)
	}
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v is not representable in JSON", ErrInvalidParams, f)
	}
	if f == math.Trunc(f) && math.Abs(f) < maxExactInt {
		return int64(f), nil
	}
	return f, nil
}

package hashfunc

import (
	"fmt"
	"math"
	"slices"
)

// Params gives an algorithm constructor typed access to its arguments.
// A value is taken from the positional arguments first, then from the
// keyword arguments, then from the supplied default. A nil value counts as
// absent.
type Params struct {
	names  []string
	args   []any
	kwargs map[string]any
}

func newParams(names []string, args []any, kwargs map[string]any) (Params, error) {
	if len(args) > len(names) {
		return Params{}, fmt.Errorf("%w: %d positional arguments given, at most %d accepted", ErrInvalidParams, len(args), len(names))
	}
	for key := range kwargs {
		idx := slices.Index(names, key)
		if idx < 0 {
			return Params{}, fmt.Errorf("%w: unexpected keyword %q", ErrInvalidParams, key)
		}
		if idx < len(args) {
			return Params{}, fmt.Errorf("%w: %q given both positionally and by keyword", ErrInvalidParams, key)
		}
	}
	return Params{names: names, args: args, kwargs: kwargs}, nil
}

func (p Params) lookup(name string) (any, bool) {
	if idx := slices.Index(p.names, name); idx >= 0 && idx < len(p.args) && p.args[idx] != nil {
		return p.args[idx], true
	}
	if v, ok := p.kwargs[name]; ok && v != nil {
		return v, true
	}
	return nil, false
}

// Int returns the integer parameter name. Integral floats are accepted since
// JSON decoding yields float64.
func (p Params) Int(name string, def int) (int, error) {
	v, ok := p.lookup(name)
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s=%v is not an integer", ErrInvalidParams, name, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %s=%v (%T) is not an integer", ErrInvalidParams, name, v, v)
	}
}

// Bool returns the boolean parameter name.
func (p Params) Bool(name string, def bool) (bool, error) {
	v, ok := p.lookup(name)
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s=%v (%T) is not a boolean", ErrInvalidParams, name, v, v)
	}
	return b, nil
}

// String returns the string parameter name.
func (p Params) String(name string, def string) (string, error) {
	v, ok := p.lookup(name)
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s=%v (%T) is not a string", ErrInvalidParams, name, v, v)
	}
	return s, nil
}

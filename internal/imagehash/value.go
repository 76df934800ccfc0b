package imagehash

import (
	"fmt"
	"strings"
)

// Kind distinguishes hash value shapes.
type Kind int

const (
	KindBits Kind = iota + 1
	KindColor
)

func (k Kind) String() string {
	switch k {
	case KindBits:
		return "bits"
	case KindColor:
		return "color"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a computed hash. Values are immutable.
type Value interface {
	Kind() Kind
	// Len is the number of bits for a BitHash and the number of buckets for
	// a ColorHash.
	Len() int
	// String returns the textual encoding stored in the database.
	String() string
	// Distance returns the raw dissimilarity to other. It fails with
	// ErrShapeMismatch when the shapes differ.
	Distance(other Value) (float64, error)
}

func shapeError(a, b Value) error {
	return fmt.Errorf("%w: %s/%d vs %s/%d", ErrShapeMismatch, a.Kind(), a.Len(), b.Kind(), b.Len())
}

const hexDigits = "0123456789abcdef"

// encodeBits renders bits MSB first as hex, left padded with zero bits to a
// whole number of digits.
func encodeBits(n int, bit func(int) bool) string {
	digits := (n + 3) / 4
	pad := digits*4 - n
	var b strings.Builder
	b.Grow(digits)
	for d := 0; d < digits; d++ {
		var nibble byte
		for j := 0; j < 4; j++ {
			pos := d*4 + j - pad
			nibble <<= 1
			if pos >= 0 && bit(pos) {
				nibble |= 1
			}
		}
		b.WriteByte(hexDigits[nibble])
	}
	return b.String()
}

// decodeBits is the inverse of encodeBits. The leading padding bits must be
// zero.
func decodeBits(text string, n int) ([]bool, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	digits := (n + 3) / 4
	if n <= 0 || len(text) != digits {
		return nil, fmt.Errorf("%w: %q is not %d hex digits", ErrInvalidHash, text, digits)
	}
	pad := digits*4 - n
	bits := make([]bool, n)
	for d := 0; d < digits; d++ {
		nibble := strings.IndexByte(hexDigits, text[d])
		if nibble < 0 {
			return nil, fmt.Errorf("%w: %q contains non-hex character %q", ErrInvalidHash, text, text[d])
		}
		for j := 0; j < 4; j++ {
			set := nibble&(1<<(3-j)) != 0
			pos := d*4 + j - pad
			if pos < 0 {
				if set {
					return nil, fmt.Errorf("%w: %q exceeds %d bits", ErrInvalidHash, text, n)
				}
				continue
			}
			bits[pos] = set
		}
	}
	return bits, nil
}

package imagehash

import (
	"github.com/steakknife/hamming"
	"github.com/yyyoichi/bitstream-go"
)

// BitHash is a fixed-length bit vector.
type BitHash struct {
	words []uint64
	bits  int
}

// NewBitHash packs bits in order.
func NewBitHash(bits []bool) BitHash {
	w := bitstream.NewBitWriter[uint64](0, 0)
	for _, v := range bits {
		w.WriteBool(v)
	}
	return BitHash{words: w.Data(), bits: len(bits)}
}

// ParseBitHash decodes the hex text of a BitHash with the given bit count.
func ParseBitHash(text string, bits int) (BitHash, error) {
	decoded, err := decodeBits(text, bits)
	if err != nil {
		return BitHash{}, err
	}
	return NewBitHash(decoded), nil
}

func (h BitHash) Kind() Kind { return KindBits }

func (h BitHash) Len() int { return h.bits }

// Bit reports the value of bit i.
func (h BitHash) Bit(i int) bool {
	if i < 0 || i >= h.bits {
		return false
	}
	reader := bitstream.NewBitReader(h.words, 0, 0)
	reader.SetBits(h.bits)
	v, _ := reader.ReadBitAt(i)
	return v
}

// Bools unpacks the hash.
func (h BitHash) Bools() []bool {
	reader := bitstream.NewBitReader(h.words, 0, 0)
	reader.SetBits(h.bits)
	out := make([]bool, h.bits)
	for i := range out {
		out[i], _ = reader.ReadBitAt(i)
	}
	return out
}

func (h BitHash) String() string {
	bits := h.Bools()
	return encodeBits(h.bits, func(i int) bool { return bits[i] })
}

// Distance returns the Hamming distance to other.
func (h BitHash) Distance(other Value) (float64, error) {
	o, ok := other.(BitHash)
	if !ok || o.bits != h.bits {
		return 0, shapeError(h, other)
	}
	total := 0
	for i := range h.words {
		var ow uint64
		if i < len(o.words) {
			ow = o.words[i]
		}
		total += hamming.Uint64(h.words[i], ow)
	}
	return float64(total), nil
}

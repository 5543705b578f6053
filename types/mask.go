package types

import "math/bits"

const wordBits = 64

// Mask is a growable bitmap with one bit per component type plus the reserved
// active bit at position 0. The zero value is an empty mask.
type Mask []uint64

// NewMask returns a mask able to hold at least width bits without growing.
func NewMask(width int) Mask {
	return make(Mask, (width+wordBits-1)/wordBits)
}

// Set enables the given bit, growing the mask as needed.
func (m *Mask) Set(bit int) {
	word := bit / wordBits
	for len(*m) <= word {
		*m = append(*m, 0)
	}
	(*m)[word] |= uint64(1) << (bit % wordBits)
}

// Unset disables the given bit. Bits beyond the mask's width are already
// unset, so no growth happens.
func (m *Mask) Unset(bit int) {
	word := bit / wordBits
	if word < len(*m) {
		(*m)[word] &^= uint64(1) << (bit % wordBits)
	}
}

// Has reports whether the given bit is set.
func (m Mask) Has(bit int) bool {
	word := bit / wordBits
	return word < len(m) && m[word]&(uint64(1)<<(bit%wordBits)) != 0
}

// ContainsAll reports whether every bit set in sub is also set in m.
func (m Mask) ContainsAll(sub Mask) bool {
	for i, w := range sub {
		if i >= len(m) {
			if w != 0 {
				return false
			}
			continue
		}
		if m[i]&w != w {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// Reset clears every bit while keeping the allocated width.
func (m Mask) Reset() {
	for i := range m {
		m[i] = 0
	}
}

// Clone returns an independent copy of the mask.
func (m Mask) Clone() Mask {
	out := make(Mask, len(m))
	copy(out, m)
	return out
}

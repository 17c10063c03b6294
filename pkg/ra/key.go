package ra

import (
	"fmt"

	"github.com/gitrdm/gorecon/internal/raerr"
)

// Key is a fixed-width packed state vector addressing one joint state of
// a VariableList: each variable's value occupies its own bit slice,
// most-significant word first. The sentinel DontCare, stored across an
// entire slice, means "marginalize over this variable".
type Key struct {
	words []uint32
}

// NewKey returns a Key with every variable set to DontCare.
func NewKey(vl *VariableList) Key {
	k := Key{words: make([]uint32, vl.KeySize())}
	for i := 0; i < vl.Len(); i++ {
		k.SetValue(vl, VariableIndex(i), int(DontCare))
	}
	return k
}

// wordIndex splits a global bit offset into the big-endian word index
// (word 0 is the most significant) and the bit offset within that word,
// counting from the word's least significant bit.
func (vl *VariableList) wordIndex(offset int) (word, bit int) {
	n := vl.KeySize()
	word = n - 1 - offset/KeyWordBits
	bit = offset % KeyWordBits
	return
}

func sliceMask(width int) uint32 {
	if width >= KeyWordBits {
		return 0xFFFFFFFF
	}
	return (uint32(1) << uint(width)) - 1
}

// GetValue extracts the slice for variable v: the width-masked all-ones
// value (e.g. 3 for a 2-bit slice, not the raw 0xFFFFFFFF DontCare
// constant) if the variable is marginalized in this key. Callers must
// not compare the result against DontCare directly; SetValue is the
// only place that sentinel is meaningful as a full 32-bit value. Slices
// never straddle a word boundary: when the variable list computes its
// layout, a slice that would not fit in the rest of the current word
// starts at the next word instead.
func (k Key) GetValue(vl *VariableList, v VariableIndex) int {
	offset, width := vl.layout(v)
	word, bit := vl.wordIndex(offset)
	mask := sliceMask(width)
	return int((k.words[word] >> uint(bit)) & mask)
}

// IsDontCare reports whether variable v is marginalized in k. Since
// GetValue returns the width-masked sentinel for v's own slice (e.g. 3
// for a 2-bit slice, never the raw 0xFFFFFFFF DontCare constant except
// for a full 32-bit-wide variable), callers must check marginalization
// through this method rather than comparing GetValue's result against
// DontCare directly.
func (k Key) IsDontCare(vl *VariableList, v VariableIndex) bool {
	_, width := vl.layout(v)
	return k.GetValue(vl, v) == int(sliceMask(width))
}

// SetValue writes the slice for variable v. x must be 0 <= x <
// cardinality(v) or equal to int(DontCare); any other value is an
// invariant violation.
func (k *Key) SetValue(vl *VariableList, v VariableIndex, x int) {
	offset, width := vl.layout(v)
	word, bit := vl.wordIndex(offset)
	mask := sliceMask(width)
	variable := vl.At(v)
	if x != int(DontCare) && (x < 0 || x >= int(variable.Cardinality)) {
		panic(fmt.Sprintf("ra: value %d out of range for variable %q (cardinality %d)", x, variable.Name, variable.Cardinality))
	}
	seg := uint32(x) & mask
	k.words[word] &^= mask << uint(bit)
	k.words[word] |= seg << uint(bit)
}

// BuildKey constructs a Key from a set of (variable, value) assignments;
// any variable not mentioned defaults to DontCare.
func BuildKey(vl *VariableList, assignments map[VariableIndex]int) Key {
	k := NewKey(vl)
	for v, x := range assignments {
		k.SetValue(vl, v, x)
	}
	return k
}

// Equal reports whether two keys have identical raw words.
func (k Key) Equal(o Key) bool {
	if len(k.words) != len(o.words) {
		return false
	}
	for i := range k.words {
		if k.words[i] != o.words[i] {
			return false
		}
	}
	return true
}

// Compare returns -1, 0 or 1 comparing k and o lexicographically,
// most-significant word first.
func (k Key) Compare(o Key) int {
	for i := range k.words {
		if k.words[i] < o.words[i] {
			return -1
		}
		if k.words[i] > o.words[i] {
			return 1
		}
	}
	return 0
}

// Hash computes an FNV-1a hash over the key's raw words.
func (k Key) Hash() uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, w := range k.words {
		for shift := 24; shift >= 0; shift -= 8 {
			b := byte(w >> uint(shift))
			h ^= uint64(b)
			h *= prime64
		}
	}
	return h
}

// Clone returns a deep copy of the key's word slice.
func (k Key) Clone() Key {
	words := make([]uint32, len(k.words))
	copy(words, k.words)
	return Key{words: words}
}

// validateLayout is used by ContingencyTable operations to reject
// mismatched key widths before they corrupt a sort/merge.
func validateLayout(vl *VariableList, k Key) error {
	if len(k.words) != vl.KeySize() {
		return fmt.Errorf("%w: key has %d words, variable list expects %d", raerr.InvariantViolated, len(k.words), vl.KeySize())
	}
	return nil
}

package ra

import (
	"fmt"
	"strings"

	"github.com/gitrdm/gorecon/internal/raerr"
)

// VarType classifies how a variable participates in a model: excluded
// variables are dropped before any relation/model construction, dependent
// variables are grouped into the bottom reference model's single joint
// relation, independent variables each get their own singleton relation.
type VarType int

const (
	Excluded VarType = iota
	Independent
	Dependent
)

// Variable is one column of the dataset: a name, a short unique
// abbreviation used in relation/model printing, a cardinality, and the
// ordered list of value labels backing that cardinality.
type Variable struct {
	Name        string
	Abbrev      string
	Cardinality Cardinality
	IsDependent bool
	ValueMap    []string
	Type        VarType
}

// valueIndex returns the position of label within ValueMap, or -1.
func (v *Variable) valueIndex(label string) int {
	for i, l := range v.ValueMap {
		if l == label {
			return i
		}
	}
	return -1
}

// VariableList is an ordered, frozen-after-use sequence of Variables.
// Each entry's bit-field layout (offset and width within a Key) is
// computed once, the first time a Key is built against the list; adding
// a variable after that point is an invariant violation.
type VariableList struct {
	vars    []Variable
	offsets []int // bit offset of each variable, valid only once frozen
	widths  []int // bit width of each variable
	keySize int    // number of 32-bit words a Key needs
	frozen  bool
}

// NewVariableList returns an empty, unfrozen list.
func NewVariableList() *VariableList {
	return &VariableList{}
}

// Add appends a variable. It returns a raerr.InvariantViolated error if
// the list has already been frozen by a Key allocation.
func (vl *VariableList) Add(v Variable) error {
	if vl.frozen {
		return fmt.Errorf("%w: cannot add variable %q to a frozen VariableList", raerr.InvariantViolated, v.Name)
	}
	if len(v.Name) > 32 {
		return fmt.Errorf("%w: variable name %q exceeds 32 characters", raerr.InvalidInput, v.Name)
	}
	if len(v.Abbrev) > 8 {
		return fmt.Errorf("%w: variable abbrev %q exceeds 8 characters", raerr.InvalidInput, v.Abbrev)
	}
	if v.Cardinality < 2 {
		return fmt.Errorf("%w: variable %q has cardinality < 2", raerr.InvalidInput, v.Name)
	}
	if len(v.ValueMap) != int(v.Cardinality) {
		return fmt.Errorf("%w: variable %q has %d value labels but cardinality %d", raerr.InvalidInput, v.Name, len(v.ValueMap), v.Cardinality)
	}
	for _, existing := range vl.vars {
		if existing.Abbrev == v.Abbrev {
			return fmt.Errorf("%w: duplicate abbrev %q", raerr.InvalidInput, v.Abbrev)
		}
	}
	vl.vars = append(vl.vars, v)
	return nil
}

// Len returns the number of variables.
func (vl *VariableList) Len() int { return len(vl.vars) }

// At returns the variable at index i.
func (vl *VariableList) At(i VariableIndex) Variable { return vl.vars[i] }

// IndexOf returns the VariableIndex of the variable with the given
// abbrev, or -1 if none matches.
func (vl *VariableList) IndexOf(abbrev string) VariableIndex {
	for i, v := range vl.vars {
		if v.Abbrev == abbrev {
			return VariableIndex(i)
		}
	}
	return -1
}

// ensureFrozen computes the bit-field layout on first use and marks the
// list frozen, refusing any further Add calls.
func (vl *VariableList) ensureFrozen() {
	if vl.frozen {
		return
	}
	offsets := make([]int, len(vl.vars))
	widths := make([]int, len(vl.vars))
	bitPos := 0
	for i, v := range vl.vars {
		w := BitsFor(v.Cardinality)
		if rem := bitPos % KeyWordBits; rem+w > KeyWordBits {
			bitPos += KeyWordBits - rem
		}
		widths[i] = w
		offsets[i] = bitPos
		bitPos += w
	}
	vl.offsets = offsets
	vl.widths = widths
	vl.keySize = (bitPos + KeyWordBits - 1) / KeyWordBits
	if vl.keySize == 0 {
		vl.keySize = 1
	}
	vl.frozen = true
}

// KeySize returns the number of 32-bit words a Key over this list needs,
// freezing the list if it has not already been frozen.
func (vl *VariableList) KeySize() int {
	vl.ensureFrozen()
	return vl.keySize
}

func (vl *VariableList) layout(i VariableIndex) (offset, width int) {
	vl.ensureFrozen()
	return vl.offsets[i], vl.widths[i]
}

// MaxEntropy returns log2 of the product of all variable cardinalities:
// the entropy of the uniform distribution over the full joint state
// space.
func (vl *VariableList) MaxEntropy() float64 {
	total := 0.0
	for _, v := range vl.vars {
		total += log2(float64(v.Cardinality))
	}
	return total
}

// Abbrevs renders a sorted-by-index set of variable indices as
// concatenated abbreviations, e.g. {0,2} -> "AC".
func (vl *VariableList) Abbrevs(indices []VariableIndex) string {
	var b strings.Builder
	for _, i := range indices {
		b.WriteString(vl.vars[i].Abbrev)
	}
	return b.String()
}

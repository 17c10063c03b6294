package ra

import (
	"fmt"
	"sort"

	"github.com/gitrdm/gorecon/internal/raerr"
)

// Relation is a sorted, duplicate-free, non-empty subset of variable
// indices: the set of variables whose joint marginal a model preserves.
type Relation struct {
	vars []VariableIndex
}

// NewRelation sorts, deduplicates and validates indices, rejecting an
// empty relation.
func NewRelation(indices []VariableIndex) (Relation, error) {
	if len(indices) == 0 {
		return Relation{}, fmt.Errorf("%w: empty relation", raerr.InvalidInput)
	}
	cp := append([]VariableIndex(nil), indices...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := cp[:1]
	for _, v := range cp[1:] {
		if out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	return Relation{vars: out}, nil
}

// Vars returns the relation's sorted variable indices. The returned
// slice must not be mutated by callers.
func (r Relation) Vars() []VariableIndex { return r.vars }

// Size returns the number of variables in the relation.
func (r Relation) Size() int { return len(r.vars) }

// Contains reports whether v is a member of r.
func (r Relation) Contains(v VariableIndex) bool {
	for _, x := range r.vars {
		if x == v {
			return true
		}
	}
	return false
}

// Equal reports whether two relations contain exactly the same
// variables.
func (r Relation) Equal(o Relation) bool {
	if len(r.vars) != len(o.vars) {
		return false
	}
	for i := range r.vars {
		if r.vars[i] != o.vars[i] {
			return false
		}
	}
	return true
}

// intersectionSize returns |r ∩ o|.
func (r Relation) intersectionSize(o Relation) int {
	n := 0
	for _, v := range r.vars {
		if o.Contains(v) {
			n++
		}
	}
	return n
}

// Name renders the relation using the variable list's abbreviations, in
// index order.
func (r Relation) Name(vl *VariableList) string {
	return vl.Abbrevs(r.vars)
}

// compareRelations orders relations by their first differing variable
// index, the ordering used to canonicalize a Model's relation set.
func compareRelations(a, b Relation) int {
	for i := 0; i < len(a.vars) && i < len(b.vars); i++ {
		if a.vars[i] != b.vars[i] {
			if a.vars[i] < b.vars[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a.vars) < len(b.vars):
		return -1
	case len(a.vars) > len(b.vars):
		return 1
	default:
		return 0
	}
}

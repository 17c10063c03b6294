package ra

import (
	"fmt"
	"sort"

	"github.com/gitrdm/gorecon/internal/raerr"
)

// entry is one (key, weight) pair of a ContingencyTable.
type entry struct {
	key    Key
	weight float64
}

// ContingencyTable is a sequence of (Key, weight) pairs. Before sort()
// is called it is build-only (add appends without ordering); after
// sort() it is a strictly-increasing-by-key, read-mostly table
// supporting O(log n) lookup.
type ContingencyTable struct {
	vl      *VariableList
	entries []entry
	sorted  bool
}

// NewContingencyTable returns an empty table over vl with capacityHint
// pre-allocated entries.
func NewContingencyTable(vl *VariableList, capacityHint int) *ContingencyTable {
	return &ContingencyTable{vl: vl, entries: make([]entry, 0, capacityHint)}
}

// Add appends a (key, weight) pair without maintaining order. Call
// Sort afterwards before reading with Find or iterating in key order.
func (t *ContingencyTable) Add(k Key, w float64) error {
	if err := validateLayout(t.vl, k); err != nil {
		return err
	}
	t.entries = append(t.entries, entry{key: k, weight: w})
	t.sorted = false
	return nil
}

// Len returns the number of distinct keys (post-Sort) or raw entries
// (pre-Sort).
func (t *ContingencyTable) Len() int { return len(t.entries) }

// At returns the i'th (key, weight) pair in current order.
func (t *ContingencyTable) At(i int) (Key, float64) {
	return t.entries[i].key, t.entries[i].weight
}

// Sum returns the sum of all weights.
func (t *ContingencyTable) Sum() float64 {
	s := 0.0
	for _, e := range t.entries {
		s += e.weight
	}
	return s
}

// Sort stably sorts the table by key and merges duplicate keys by
// summing their weights. Idempotent.
func (t *ContingencyTable) Sort() {
	sort.SliceStable(t.entries, func(i, j int) bool {
		return t.entries[i].key.Compare(t.entries[j].key) < 0
	})
	merged := t.entries[:0:0]
	for _, e := range t.entries {
		if n := len(merged); n > 0 && merged[n-1].key.Equal(e.key) {
			merged[n-1].weight += e.weight
		} else {
			merged = append(merged, e)
		}
	}
	t.entries = merged
	t.sorted = true
}

// Normalize divides every weight by the table's sum. The table must
// already be sorted and the sum must be positive.
func (t *ContingencyTable) Normalize() error {
	sum := t.Sum()
	if sum <= 0 {
		return fmt.Errorf("%w: cannot normalize a table with non-positive sum %v", raerr.InvariantViolated, sum)
	}
	for i := range t.entries {
		t.entries[i].weight /= sum
	}
	return nil
}

// Find performs a binary search for k in a sorted table, returning the
// weight and true if present.
func (t *ContingencyTable) Find(k Key) (float64, bool) {
	if !t.sorted {
		t.Sort()
	}
	lo, hi := 0, len(t.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		switch t.entries[mid].key.Compare(k) {
		case 0:
			return t.entries[mid].weight, true
		case -1:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// Project produces a new, sorted table whose keys have DontCare in every
// slice not in subset, with weights summed across the marginalized
// values. It does not mutate the receiver.
func (t *ContingencyTable) Project(subset []VariableIndex) (*ContingencyTable, error) {
	if len(subset) == 0 {
		return nil, fmt.Errorf("%w: project onto an empty subset", raerr.InvariantViolated)
	}
	keep := make(map[VariableIndex]bool, len(subset))
	for _, v := range subset {
		keep[v] = true
	}
	out := NewContingencyTable(t.vl, len(t.entries))
	for _, e := range t.entries {
		nk := e.key.Clone()
		for i := 0; i < t.vl.Len(); i++ {
			vi := VariableIndex(i)
			if !keep[vi] {
				nk.SetValue(t.vl, vi, int(DontCare))
			}
		}
		if err := out.Add(nk, e.weight); err != nil {
			return nil, err
		}
	}
	out.Sort()
	return out, nil
}

package ra

// Filter selects which neighbours of a seed model the generator accepts.
type Filter int

const (
	FilterFull Filter = iota
	FilterLoopless
	FilterDisjoint
	FilterChain
)

// GenerateNeighbors enumerates the neighbours of model m under the
// "refine one relation by adding one variable" operator: for each
// relation r in m and each variable v not already in r, it proposes
// M' = (M \ {r}) ∪ {r ∪ {v}}, keeping M' only if it passes filter.
// Results are deduplicated by canonical print name.
func GenerateNeighbors(vl *VariableList, m Model, filter Filter) []Model {
	seen := map[string]bool{}
	var out []Model

	for _, r := range m.Relations() {
		for vi := 0; vi < vl.Len(); vi++ {
			v := VariableIndex(vi)
			if r.Contains(v) {
				continue
			}
			expanded, err := NewRelation(append(append([]VariableIndex(nil), r.Vars()...), v))
			if err != nil {
				continue
			}

			var rest []Relation
			for _, other := range m.Relations() {
				if !other.Equal(r) {
					rest = append(rest, other)
				}
			}
			rest = append(rest, expanded)

			candidate, err := NewModel(rest)
			if err != nil {
				continue
			}
			if !passesFilter(candidate, filter) {
				continue
			}
			name := candidate.PrintName(vl)
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, candidate)
		}
	}
	return out
}

func passesFilter(m Model, filter Filter) bool {
	switch filter {
	case FilterFull:
		return true
	case FilterLoopless:
		return m.IsLoopless()
	case FilterDisjoint:
		return m.IsDisjoint()
	case FilterChain:
		return m.IsChain()
	default:
		return true
	}
}

package ra

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gitrdm/gorecon/internal/raerr"
)

// Model is a sorted, duplicate-free, non-empty set of Relations: a
// hypothesis about how a joint distribution decomposes into lower-order
// marginals.
type Model struct {
	relations []Relation
}

// NewModel sorts relations canonically (by compareRelations) and
// deduplicates by Relation.Equal, rejecting an empty model.
func NewModel(relations []Relation) (Model, error) {
	if len(relations) == 0 {
		return Model{}, fmt.Errorf("%w: empty model", raerr.InvalidInput)
	}
	cp := append([]Relation(nil), relations...)
	sort.Slice(cp, func(i, j int) bool { return compareRelations(cp[i], cp[j]) < 0 })
	out := cp[:1]
	for _, r := range cp[1:] {
		if !out[len(out)-1].Equal(r) {
			out = append(out, r)
		}
	}
	return Model{relations: out}, nil
}

// Relations returns the model's sorted relation set. Callers must not
// mutate the returned slice.
func (m Model) Relations() []Relation { return m.relations }

// Len returns the number of relations.
func (m Model) Len() int { return len(m.relations) }

// Equal reports whether two models contain the same set of relations.
func (m Model) Equal(o Model) bool {
	if len(m.relations) != len(o.relations) {
		return false
	}
	for i := range m.relations {
		if !m.relations[i].Equal(o.relations[i]) {
			return false
		}
	}
	return true
}

// PrintName joins the relation names with ':', e.g. "AB:BC".
func (m Model) PrintName(vl *VariableList) string {
	parts := make([]string, len(m.relations))
	for i, r := range m.relations {
		parts[i] = r.Name(vl)
	}
	return strings.Join(parts, ":")
}

// variables returns the sorted, deduplicated set of every variable
// appearing in any relation of the model.
func (m Model) variables() []VariableIndex {
	seen := map[VariableIndex]bool{}
	var out []VariableIndex
	for _, r := range m.relations {
		for _, v := range r.Vars() {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsLoopless reports whether the model's relation hypergraph reduces to
// a tree under GYO (Graham) reduction: repeatedly (1) drop any relation
// that is a subset of another, then (2) drop any single variable that
// occurs in exactly one remaining relation, shrinking that relation (and
// dropping it entirely if it becomes empty), until neither rule applies
// any further. The model is loopless iff this process empties the
// relation set (or leaves at most one relation behind).
func (m Model) IsLoopless() bool {
	remaining := append([]Relation(nil), m.relations...)
	for {
		removed := false

		// Drop any relation that is a subset of another.
		for i := 0; i < len(remaining); i++ {
			for j := 0; j < len(remaining); j++ {
				if i == j {
					continue
				}
				if isSubsetOf(remaining[i], remaining[j]) && !remaining[i].Equal(remaining[j]) {
					remaining = append(remaining[:i], remaining[i+1:]...)
					removed = true
					break
				}
			}
			if removed {
				break
			}
		}
		if removed {
			continue
		}

		// Drop a vertex occurring in exactly one remaining relation,
		// shrinking that relation (or removing it if it vanishes).
		if v, ri, ok := findLoneVertex(remaining); ok {
			shrunk := removeVar(remaining[ri], v)
			if shrunk.Size() == 0 {
				remaining = append(remaining[:ri], remaining[ri+1:]...)
			} else {
				remaining[ri] = shrunk
			}
			removed = true
		}
		if !removed {
			break
		}
	}
	return len(remaining) <= 1
}

func isSubsetOf(a, b Relation) bool {
	for _, v := range a.Vars() {
		if !b.Contains(v) {
			return false
		}
	}
	return true
}

// findLoneVertex scans remaining for a variable that occurs in exactly
// one relation, returning that variable and the index of its relation.
func findLoneVertex(remaining []Relation) (VariableIndex, int, bool) {
	for i, r := range remaining {
		for _, v := range r.Vars() {
			occurrences := 0
			for _, other := range remaining {
				if other.Contains(v) {
					occurrences++
				}
			}
			if occurrences == 1 {
				return v, i, true
			}
		}
	}
	return 0, 0, false
}

// removeVar returns r with v removed, or an empty (size-0) Relation if v
// was r's only variable.
func removeVar(r Relation, v VariableIndex) Relation {
	var rest []VariableIndex
	for _, x := range r.Vars() {
		if x != v {
			rest = append(rest, x)
		}
	}
	if len(rest) == 0 {
		return Relation{}
	}
	out, _ := NewRelation(rest)
	return out
}

// IsChain reports whether every relation has exactly two variables and
// the induced variable graph is connected, acyclic, and has maximum
// degree 2 (i.e. is a simple path).
func (m Model) IsChain() bool {
	for _, r := range m.relations {
		if r.Size() != 2 {
			return false
		}
	}
	vars := m.variables()
	if len(vars) == 0 {
		return false
	}
	degree := map[VariableIndex]int{}
	adj := map[VariableIndex][]VariableIndex{}
	for _, r := range m.relations {
		a, b := r.Vars()[0], r.Vars()[1]
		degree[a]++
		degree[b]++
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for _, d := range degree {
		if d > 2 {
			return false
		}
	}
	if len(m.relations) != len(vars)-1 {
		return false
	}
	// BFS connectivity check.
	visited := map[VariableIndex]bool{vars[0]: true}
	queue := []VariableIndex{vars[0]}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range adj[cur] {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return len(visited) == len(vars)
}

// IsDisjoint reports whether the model's relations are pairwise
// disjoint (share no variable).
func (m Model) IsDisjoint() bool {
	for i := 0; i < len(m.relations); i++ {
		for j := i + 1; j < len(m.relations); j++ {
			if m.relations[i].intersectionSize(m.relations[j]) > 0 {
				return false
			}
		}
	}
	return true
}

// ChainOrder extracts the unique linearisation v0-v1-...-v(n-1) of a
// chain model: it finds the two degree-1 endpoints and walks the graph.
// For a palindromic chain either direction is a valid result.
func (m Model) ChainOrder() ([]VariableIndex, error) {
	if !m.IsChain() {
		return nil, fmt.Errorf("%w: model is not a chain", raerr.InvalidInput)
	}
	adj := map[VariableIndex][]VariableIndex{}
	degree := map[VariableIndex]int{}
	for _, r := range m.relations {
		a, b := r.Vars()[0], r.Vars()[1]
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
		degree[a]++
		degree[b]++
	}
	vars := m.variables()
	if len(vars) == 1 {
		return vars, nil
	}
	var start VariableIndex = -1
	for _, v := range vars {
		if degree[v] == 1 {
			start = v
			break
		}
	}
	if start == -1 {
		return nil, fmt.Errorf("%w: chain has no endpoint", raerr.InvariantViolated)
	}
	order := []VariableIndex{start}
	visited := map[VariableIndex]bool{start: true}
	cur := start
	for len(order) < len(vars) {
		advanced := false
		for _, n := range adj[cur] {
			if !visited[n] {
				order = append(order, n)
				visited[n] = true
				cur = n
				advanced = true
				break
			}
		}
		if !advanced {
			break
		}
	}
	return order, nil
}

// GenerateAllChains enumerates every distinct chain model over the n
// variables 0..n-1, identifying a permutation with its reverse. There
// are n!/2 such models for n >= 2 (0 for n<=1, per the source formula
// 0,1,3,12,60,360,...).
func GenerateAllChains(n int) []Model {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return nil
	}
	indices := make([]VariableIndex, n)
	for i := range indices {
		indices[i] = VariableIndex(i)
	}
	seen := map[string]bool{}
	var models []Model
	permute(indices, 0, func(perm []VariableIndex) {
		key := chainKey(perm)
		if seen[key] {
			return
		}
		reversed := reverseIndices(perm)
		seen[key] = true
		seen[chainKey(reversed)] = true

		var rels []Relation
		for i := 0; i+1 < len(perm); i++ {
			rel, _ := NewRelation([]VariableIndex{perm[i], perm[i+1]})
			rels = append(rels, rel)
		}
		model, err := NewModel(rels)
		if err == nil {
			models = append(models, model)
		}
	})
	return models
}

func chainKey(perm []VariableIndex) string {
	var b strings.Builder
	for _, p := range perm {
		fmt.Fprintf(&b, "%d,", p)
	}
	return b.String()
}

func reverseIndices(perm []VariableIndex) []VariableIndex {
	out := make([]VariableIndex, len(perm))
	for i, v := range perm {
		out[len(perm)-1-i] = v
	}
	return out
}

// permute calls visit once for every permutation of indices, by
// recursive swap-and-restore backtracking in place on a working copy.
func permute(indices []VariableIndex, k int, visit func([]VariableIndex)) {
	work := append([]VariableIndex(nil), indices...)
	var rec func(k int)
	rec = func(k int) {
		if k == len(work) {
			cp := append([]VariableIndex(nil), work...)
			visit(cp)
			return
		}
		for i := k; i < len(work); i++ {
			work[k], work[i] = work[i], work[k]
			rec(k + 1)
			work[k], work[i] = work[i], work[k]
		}
	}
	rec(k)
}

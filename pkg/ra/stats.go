package ra

import "math"

// H computes the Shannon entropy, in bits, of a normalized
// ContingencyTable, skipping entries below ProbMin (the 0*log(0)
// convention).
func H(p *ContingencyTable) float64 {
	h := 0.0
	for i := 0; i < p.Len(); i++ {
		_, w := p.At(i)
		if w < ProbMin {
			continue
		}
		h -= w * log2(w)
	}
	return h
}

// Transmission computes the Kullback-Leibler divergence Σ p·log2(p/q)
// between two normalized tables sharing the same key layout and both
// sorted. Terms where q is zero (or below ProbMin) while p is not are
// skipped rather than treated as +∞; see SPEC_FULL.md / DESIGN.md for
// why callers in this codebase may rely on q dominating p's support.
func Transmission(p, q *ContingencyTable) float64 {
	t := 0.0
	for i := 0; i < p.Len(); i++ {
		k, pw := p.At(i)
		if pw < ProbMin {
			continue
		}
		qw, ok := q.Find(k)
		if !ok || qw < ProbMin {
			continue
		}
		t += pw * log2(pw/qw)
	}
	return t
}

// PearsonChiSquared computes N·Σ (O-E)²/E over the union of keys present
// in observed and expected, aligned by key. Cells with E==0 are
// skipped; cells with O==0 contribute N·E.
func PearsonChiSquared(observed, expected *ContingencyTable, n float64) float64 {
	p2 := 0.0
	for i := 0; i < observed.Len(); i++ {
		k, o := observed.At(i)
		e, ok := expected.Find(k)
		if !ok || e == 0 {
			continue
		}
		d := o - e
		p2 += n * d * d / e
	}
	for i := 0; i < expected.Len(); i++ {
		k, e := expected.At(i)
		if e == 0 {
			continue
		}
		if _, ok := observed.Find(k); !ok {
			p2 += n * e
		}
	}
	return p2
}

// LikelihoodRatio computes 2·N·ln(2)·Transmission(observed, expected),
// the LR χ² statistic for comparing a fitted model's projection to the
// observed table.
func LikelihoodRatio(observed, expected *ContingencyTable, n float64) float64 {
	return 2 * n * math.Ln2 * Transmission(observed, expected)
}

// DF computes the relational-analysis degrees of freedom for a model:
// the sum over relations of (product of cardinalities - 1), corrected
// by inclusion-exclusion over relation *intersections* so that variables
// shared between relations are not double counted.
func DF(m Model, vl *VariableList) int {
	df := 0
	rels := m.Relations()
	n := len(rels)
	// Inclusion-exclusion over every non-empty subset of relations:
	// df = Σ_S (-1)^(|S|+1) * (product of cardinalities of ∩ vars in S - 1)
	// with the empty intersection's product taken as 1 (the 0-DF of a
	// relation with no variables).
	for mask := 1; mask < (1 << n); mask++ {
		var inter []VariableIndex
		first := true
		bits := 0
		for i := 0; i < n; i++ {
			if mask&(1<<i) == 0 {
				continue
			}
			bits++
			if first {
				inter = rels[i].Vars()
				first = false
			} else {
				inter = intersectVars(inter, rels[i].Vars())
			}
		}
		states := 1
		for _, v := range inter {
			states *= int(vl.At(v).Cardinality)
		}
		term := states - 1
		if bits%2 == 1 {
			df += term
		} else {
			df -= term
		}
	}
	return df
}

// intersectVars returns the sorted intersection of two sorted, duplicate-
// free VariableIndex slices.
func intersectVars(a, b []VariableIndex) []VariableIndex {
	var out []VariableIndex
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// AIC computes LR - 2·DF.
func AIC(lr float64, df int) float64 {
	return lr - 2*float64(df)
}

// BIC computes LR - DF·ln(N).
func BIC(lr float64, df int, n float64) float64 {
	return lr - float64(df)*math.Log(n)
}

// Stats is the {H, T, DF, LR, P², AIC, BIC} statistics record for a
// (model, data) pair.
type Stats struct {
	H   float64
	T   float64
	DF  int
	LR  float64
	P2  float64
	AIC float64
	BIC float64
}

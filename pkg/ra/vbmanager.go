package ra

import (
	"fmt"
	"strings"

	"github.com/gitrdm/gorecon/internal/raerr"
)

// ipfMaxIterations bounds Iterative Proportional Fitting before it is
// reported as non-convergent.
const ipfMaxIterations = 500

// ipfTolerance is the maximum relative per-cell change tolerated between
// IPF iterations before the fit is considered converged.
const ipfTolerance = 1e-10

// VBManager computes, for a fixed VariableList and normalized input
// table, the maximum-entropy projection implied by a model's relation
// marginals and the information-theoretic statistics that compare it to
// the observed data. Relation projections are memoized per instance;
// share one VariableList/ContingencyTable across many VBManagers (one
// per search worker) rather than one VBManager across goroutines.
type VBManager struct {
	vl    *VariableList
	input *ContingencyTable

	relationCache map[string]*ContingencyTable
	n             float64 // total sample size (pre-normalization sum)
}

// NewVBManager returns a manager over a normalized input table. n is the
// original total sample size (needed by LR/P²/BIC), which the caller
// must supply since the table itself is normalized to sum 1.
func NewVBManager(vl *VariableList, input *ContingencyTable, n float64) *VBManager {
	return &VBManager{
		vl:            vl,
		input:         input,
		relationCache: make(map[string]*ContingencyTable),
		n:             n,
	}
}

func relationFingerprint(r Relation) string {
	var b strings.Builder
	for _, v := range r.Vars() {
		fmt.Fprintf(&b, "%d,", v)
	}
	return b.String()
}

// ComputeProjection returns (and caches) the input table's projection
// onto relation's variables.
func (vb *VBManager) ComputeProjection(r Relation) (*ContingencyTable, error) {
	fp := relationFingerprint(r)
	if t, ok := vb.relationCache[fp]; ok {
		return t, nil
	}
	t, err := vb.input.Project(r.Vars())
	if err != nil {
		return nil, err
	}
	vb.relationCache[fp] = t
	return t, nil
}

// BottomRefModel returns the independence model: one singleton relation
// per independent variable, plus (if any dependent variables exist) one
// relation containing all of them together. If the variable list has no
// declared dependents, this is simply the all-singletons model.
func (vb *VBManager) BottomRefModel() (Model, error) {
	var rels []Relation
	var dependents []VariableIndex
	for i := 0; i < vb.vl.Len(); i++ {
		v := vb.vl.At(VariableIndex(i))
		if v.IsDependent {
			dependents = append(dependents, VariableIndex(i))
			continue
		}
		rel, err := NewRelation([]VariableIndex{VariableIndex(i)})
		if err != nil {
			return Model{}, err
		}
		rels = append(rels, rel)
	}
	if len(dependents) > 0 {
		rel, err := NewRelation(dependents)
		if err != nil {
			return Model{}, err
		}
		rels = append(rels, rel)
	}
	return NewModel(rels)
}

// fullJointKeys enumerates every explicit (no DontCare) key over vl, in
// ascending lexicographic order of variable value assignment.
func fullJointKeys(vl *VariableList) []Key {
	n := vl.Len()
	cards := make([]int, n)
	for i := 0; i < n; i++ {
		cards[i] = int(vl.At(VariableIndex(i)).Cardinality)
	}
	total := 1
	for _, c := range cards {
		total *= c
	}
	keys := make([]Key, 0, total)
	counters := make([]int, n)
	for {
		k := NewKey(vl)
		for i := 0; i < n; i++ {
			k.SetValue(vl, VariableIndex(i), counters[i])
		}
		keys = append(keys, k)

		i := n - 1
		for i >= 0 {
			counters[i]++
			if counters[i] < cards[i] {
				break
			}
			counters[i] = 0
			i--
		}
		if i < 0 {
			break
		}
	}
	return keys
}

// ComputeModelProjection returns the maximum-entropy joint distribution
// whose marginals on each of the model's relations match the observed
// projections, computed by Iterative Proportional Fitting from a
// uniform start. This closed-form-equals-IPF-fixed-point approach is
// correct for both loopless and loopy models; loopless models simply
// converge in very few passes.
func (vb *VBManager) ComputeModelProjection(m Model) (*ContingencyTable, error) {
	keys := fullJointKeys(vb.vl)
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: model projection over empty variable list", raerr.InvariantViolated)
	}

	marginals := make([]*ContingencyTable, len(m.Relations()))
	for i, r := range m.Relations() {
		proj, err := vb.ComputeProjection(r)
		if err != nil {
			return nil, err
		}
		marginals[i] = proj
	}

	weights := make([]float64, len(keys))
	init := 1.0 / float64(len(keys))
	for i := range weights {
		weights[i] = init
	}

	for iter := 0; iter < ipfMaxIterations; iter++ {
		maxDelta := 0.0
		for ri, r := range m.Relations() {
			current := NewContingencyTable(vb.vl, len(keys))
			for i, k := range keys {
				_ = current.Add(k, weights[i])
			}
			current.Sort()
			projected, err := current.Project(r.Vars())
			if err != nil {
				return nil, err
			}
			target := marginals[ri]

			for i, k := range keys {
				pk := k.Clone()
				for v := 0; v < vb.vl.Len(); v++ {
					vi := VariableIndex(v)
					if !r.Contains(vi) {
						pk.SetValue(vb.vl, vi, int(DontCare))
					}
				}
				curMass, ok := projected.Find(pk)
				if !ok || curMass < ProbMin {
					continue
				}
				tgtMass, ok := target.Find(pk)
				if !ok {
					tgtMass = 0
				}
				ratio := tgtMass / curMass
				newW := weights[i] * ratio
				delta := abs(newW-weights[i]) / maxFloat(weights[i], ProbMin)
				if delta > maxDelta {
					maxDelta = delta
				}
				weights[i] = newW
			}
		}
		if maxDelta < ipfTolerance {
			out := NewContingencyTable(vb.vl, len(keys))
			for i, k := range keys {
				_ = out.Add(k, weights[i])
			}
			out.Sort()
			_ = out.Normalize()
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: IPF did not converge within %d iterations", raerr.NumericDivergence, ipfMaxIterations)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// ComputeH returns the entropy of the model's max-entropy projection.
func (vb *VBManager) ComputeH(m Model) (float64, error) {
	proj, err := vb.ComputeModelProjection(m)
	if err != nil {
		return 0, err
	}
	return H(proj), nil
}

// ComputeStats computes the full {H,T,DF,LR,P²,AIC,BIC} record comparing
// the model's max-entropy projection to the observed input table.
func (vb *VBManager) ComputeStats(m Model) (Stats, error) {
	proj, err := vb.ComputeModelProjection(m)
	if err != nil {
		return Stats{}, err
	}
	h := H(proj)
	t := Transmission(vb.input, proj)
	df := DF(m, vb.vl)
	lr := LikelihoodRatio(vb.input, proj, vb.n)
	p2 := PearsonChiSquared(vb.input, proj, vb.n)
	// LR and P² are non-negative in exact arithmetic: a value at most
	// negativeTolerance below zero is floating-point noise and is clamped
	// to zero; anything further below is reported as a numeric failure.
	const negativeTolerance = 1e-10
	if lr < -negativeTolerance || p2 < -negativeTolerance {
		return Stats{}, fmt.Errorf("%w: negative LR %v or Pearson chi-squared %v", raerr.NumericDivergence, lr, p2)
	}
	lr = maxFloat(lr, 0)
	p2 = maxFloat(p2, 0)
	return Stats{
		H:   h,
		T:   t,
		DF:  df,
		LR:  lr,
		P2:  p2,
		AIC: AIC(lr, df),
		BIC: BIC(lr, df, vb.n),
	}, nil
}

// MakeModel parses a colon-delimited short model name such as "AB:BC"
// using the variable list's abbreviations.
func (vb *VBManager) MakeModel(shortName string) (Model, error) {
	parts := strings.Split(shortName, ":")
	var rels []Relation
	for _, p := range parts {
		if p == "" {
			return Model{}, fmt.Errorf("%w: empty relation in model %q", raerr.InvalidInput, shortName)
		}
		var indices []VariableIndex
		i := 0
		for i < len(p) {
			matched := false
			for vi := 0; vi < vb.vl.Len(); vi++ {
				ab := vb.vl.At(VariableIndex(vi)).Abbrev
				if strings.HasPrefix(p[i:], ab) {
					indices = append(indices, VariableIndex(vi))
					i += len(ab)
					matched = true
					break
				}
			}
			if !matched {
				return Model{}, fmt.Errorf("%w: cannot parse relation %q at offset %d", raerr.InvalidInput, p, i)
			}
		}
		rel, err := NewRelation(indices)
		if err != nil {
			return Model{}, err
		}
		rels = append(rels, rel)
	}
	return NewModel(rels)
}

// RelationMetrics reports the entropy and cardinality of a single
// relation's observed projection.
type RelationMetrics struct {
	Name     string
	States   int
	Entropy  float64
}

// GetRelationMetrics reports summary metrics for one relation's observed
// marginal.
func (vb *VBManager) GetRelationMetrics(r Relation) (RelationMetrics, error) {
	proj, err := vb.ComputeProjection(r)
	if err != nil {
		return RelationMetrics{}, err
	}
	states := 1
	for _, v := range r.Vars() {
		states *= int(vb.vl.At(v).Cardinality)
	}
	return RelationMetrics{
		Name:    r.Name(vb.vl),
		States:  states,
		Entropy: H(proj),
	}, nil
}

// GetModelRelationMetrics reports RelationMetrics for every relation in
// the model, in model order.
func (vb *VBManager) GetModelRelationMetrics(m Model) ([]RelationMetrics, error) {
	out := make([]RelationMetrics, 0, len(m.Relations()))
	for _, r := range m.Relations() {
		rm, err := vb.GetRelationMetrics(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, nil
}

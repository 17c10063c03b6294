package ra

import (
	"fmt"

	"github.com/gitrdm/gorecon/internal/raerr"
)

// ForwardBackward computes the n single-variable marginals of a chain
// model in O(n·k²) time (k = max cardinality) by combining a forward
// pass (prefix marginals) and a backward pass (suffix marginals),
// instead of materializing the O(k^n) full joint that
// VBManager.ComputeModelProjection would require.
func (vb *VBManager) ForwardBackward(m Model) ([]*ContingencyTable, error) {
	order, err := m.ChainOrder()
	if err != nil {
		return nil, err
	}
	n := len(order)
	if n == 0 {
		return nil, fmt.Errorf("%w: chain has no variables", raerr.InvariantViolated)
	}

	pairwise := make(map[[2]VariableIndex]*ContingencyTable, n-1)
	for i := 0; i+1 < n; i++ {
		rel, err := NewRelation([]VariableIndex{order[i], order[i+1]})
		if err != nil {
			return nil, err
		}
		proj, err := vb.ComputeProjection(rel)
		if err != nil {
			return nil, err
		}
		pairwise[[2]VariableIndex{order[i], order[i+1]}] = proj
	}

	single := make(map[VariableIndex]*ContingencyTable, n)
	for _, v := range order {
		rel, err := NewRelation([]VariableIndex{v})
		if err != nil {
			return nil, err
		}
		proj, err := vb.ComputeProjection(rel)
		if err != nil {
			return nil, err
		}
		single[v] = proj
	}

	alpha, err := vb.forwardPass(order, pairwise, single)
	if err != nil {
		return nil, err
	}
	beta, err := vb.backwardPass(order, pairwise, single)
	if err != nil {
		return nil, err
	}

	results := make([]*ContingencyTable, n)
	for i, v := range order {
		card := int(vb.vl.At(v).Cardinality)
		out := NewContingencyTable(vb.vl, card)
		for x := 0; x < card; x++ {
			k := NewKey(vb.vl)
			k.SetValue(vb.vl, v, x)
			mass := alpha[i][x] * beta[i][x]
			if err := out.Add(k, mass); err != nil {
				return nil, err
			}
		}
		out.Sort()
		if err := out.Normalize(); err != nil {
			return nil, err
		}
		results[i] = out
	}
	return results, nil
}

// forwardPass returns, for each position i, a distribution over v_i's
// values proportional to the marginal of the prefix v0..vi, obtained by
// chaining the pairwise conditionals implied by the chain's pairwise
// marginals.
func (vb *VBManager) forwardPass(order []VariableIndex, pairwise map[[2]VariableIndex]*ContingencyTable, single map[VariableIndex]*ContingencyTable) ([][]float64, error) {
	n := len(order)
	alpha := make([][]float64, n)
	card0 := int(vb.vl.At(order[0]).Cardinality)
	alpha[0] = make([]float64, card0)
	for x := 0; x < card0; x++ {
		k := NewKey(vb.vl)
		k.SetValue(vb.vl, order[0], x)
		w, _ := single[order[0]].Find(k)
		alpha[0][x] = w
	}
	for i := 1; i < n; i++ {
		prevCard := int(vb.vl.At(order[i-1]).Cardinality)
		card := int(vb.vl.At(order[i]).Cardinality)
		pair := pairwise[[2]VariableIndex{order[i-1], order[i]}]
		prevMarginal := make([]float64, prevCard)
		for x := 0; x < prevCard; x++ {
			k := NewKey(vb.vl)
			k.SetValue(vb.vl, order[i-1], x)
			w, _ := single[order[i-1]].Find(k)
			prevMarginal[x] = w
		}

		alpha[i] = make([]float64, card)
		for y := 0; y < card; y++ {
			sum := 0.0
			for x := 0; x < prevCard; x++ {
				if prevMarginal[x] < ProbMin {
					continue
				}
				k := NewKey(vb.vl)
				k.SetValue(vb.vl, order[i-1], x)
				k.SetValue(vb.vl, order[i], y)
				joint, _ := pair.Find(k)
				cond := joint / prevMarginal[x]
				sum += alpha[i-1][x] * cond
			}
			alpha[i][y] = sum
		}
		normalizeVector(alpha[i])
	}
	normalizeVector(alpha[0])
	return alpha, nil
}

// backwardPass mirrors forwardPass from the right end of the chain.
func (vb *VBManager) backwardPass(order []VariableIndex, pairwise map[[2]VariableIndex]*ContingencyTable, single map[VariableIndex]*ContingencyTable) ([][]float64, error) {
	n := len(order)
	beta := make([][]float64, n)
	lastCard := int(vb.vl.At(order[n-1]).Cardinality)
	beta[n-1] = make([]float64, lastCard)
	for x := range beta[n-1] {
		beta[n-1][x] = 1
	}
	for i := n - 2; i >= 0; i-- {
		card := int(vb.vl.At(order[i]).Cardinality)
		nextCard := int(vb.vl.At(order[i+1]).Cardinality)
		pair := pairwise[[2]VariableIndex{order[i], order[i+1]}]
		curMarginal := make([]float64, card)
		for x := 0; x < card; x++ {
			k := NewKey(vb.vl)
			k.SetValue(vb.vl, order[i], x)
			w, _ := single[order[i]].Find(k)
			curMarginal[x] = w
		}

		beta[i] = make([]float64, card)
		for x := 0; x < card; x++ {
			if curMarginal[x] < ProbMin {
				beta[i][x] = 0
				continue
			}
			sum := 0.0
			for y := 0; y < nextCard; y++ {
				k := NewKey(vb.vl)
				k.SetValue(vb.vl, order[i], x)
				k.SetValue(vb.vl, order[i+1], y)
				joint, _ := pair.Find(k)
				cond := joint / curMarginal[x]
				sum += cond * beta[i+1][y]
			}
			beta[i][x] = sum
		}
		normalizeVector(beta[i])
	}
	return beta, nil
}

func normalizeVector(v []float64) {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}

package ra

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binaryVarList(t *testing.T, names ...string) *VariableList {
	t.Helper()
	vl := NewVariableList()
	for _, name := range names {
		err := vl.Add(Variable{
			Name:        name,
			Abbrev:      name,
			Cardinality: 2,
			ValueMap:    []string{"0", "1"},
			Type:        Independent,
		})
		require.NoError(t, err)
	}
	return vl
}

func tableFrom(t *testing.T, vl *VariableList, rows map[[2]int]float64, vars []VariableIndex) *ContingencyTable {
	t.Helper()
	table := NewContingencyTable(vl, len(rows))
	for assignment, w := range rows {
		k := NewKey(vl)
		for i, vi := range vars {
			k.SetValue(vl, vi, assignment[i])
		}
		require.NoError(t, table.Add(k, w))
	}
	table.Sort()
	return table
}

// Scenario 1: single binary variable, P=(0.5, 0.5).
func TestEntropySingleBinaryUniform(t *testing.T) {
	vl := binaryVarList(t, "A")
	table := tableFrom(t, vl, map[[2]int]float64{
		{0}: 0.5,
		{1}: 0.5,
	}, []VariableIndex{0})

	assert.InDelta(t, 1.0, H(table), 1e-10)
	assert.InDelta(t, 1.0, vl.MaxEntropy(), 1e-10)
}

// Quantified invariant: 0 <= H(P) <= log2(stateSpace).
func TestEntropyBounds(t *testing.T) {
	vl := binaryVarList(t, "A", "B")
	table := tableFrom(t, vl, map[[2]int]float64{
		{0, 0}: 0.1,
		{0, 1}: 0.2,
		{1, 0}: 0.3,
		{1, 1}: 0.4,
	}, []VariableIndex{0, 1})

	h := H(table)
	assert.GreaterOrEqual(t, h, 0.0)
	assert.LessOrEqual(t, h, vl.MaxEntropy())
}

// Quantified invariant: transmission(P, P) = 0, transmission(P, Q) >= 0.
func TestTransmissionIdentityAndNonNegativity(t *testing.T) {
	vl := binaryVarList(t, "A", "B")
	p := tableFrom(t, vl, map[[2]int]float64{
		{0, 0}: 0.1,
		{0, 1}: 0.2,
		{1, 0}: 0.3,
		{1, 1}: 0.4,
	}, []VariableIndex{0, 1})
	q := tableFrom(t, vl, map[[2]int]float64{
		{0, 0}: 0.25,
		{0, 1}: 0.25,
		{1, 0}: 0.25,
		{1, 1}: 0.25,
	}, []VariableIndex{0, 1})

	assert.InDelta(t, 0.0, Transmission(p, p), 1e-10)
	assert.GreaterOrEqual(t, Transmission(p, q), -1e-10)
}

// Scenario 2: two independent binary variables, uniform joint.
func TestTransmissionIndependentVariables(t *testing.T) {
	vl := binaryVarList(t, "A", "B")
	joint := tableFrom(t, vl, map[[2]int]float64{
		{0, 0}: 0.25,
		{0, 1}: 0.25,
		{1, 0}: 0.25,
		{1, 1}: 0.25,
	}, []VariableIndex{0, 1})

	a, err := joint.Project([]VariableIndex{0})
	require.NoError(t, err)
	b, err := joint.Project([]VariableIndex{1})
	require.NoError(t, err)

	independence := productTable(t, vl, a, b)
	transmission := Transmission(joint, independence)
	assert.InDelta(t, 0.0, transmission, 1e-10)
}

// Scenario 3: perfect correlation A=B, uniform margin: I(A;B) = 1.
func TestTransmissionPerfectCorrelation(t *testing.T) {
	vl := binaryVarList(t, "A", "B")
	joint := tableFrom(t, vl, map[[2]int]float64{
		{0, 0}: 0.5,
		{1, 1}: 0.5,
	}, []VariableIndex{0, 1})

	a, err := joint.Project([]VariableIndex{0})
	require.NoError(t, err)
	b, err := joint.Project([]VariableIndex{1})
	require.NoError(t, err)
	independence := productTable(t, vl, a, b)

	hA := H(a)
	hB := H(b)
	hAB := H(joint)
	assert.InDelta(t, 1.0, hA+hB-hAB, 1e-10)
	assert.InDelta(t, 1.0, Transmission(joint, independence), 1e-10)
}

// productTable builds the independence table P(A)*P(B) over the joint
// layout, used as the "expected" table for transmission tests.
func productTable(t *testing.T, vl *VariableList, a, b *ContingencyTable) *ContingencyTable {
	t.Helper()
	out := NewContingencyTable(vl, a.Len()*b.Len())
	for i := 0; i < a.Len(); i++ {
		ka, wa := a.At(i)
		for j := 0; j < b.Len(); j++ {
			kb, wb := b.At(j)
			k := NewKey(vl)
			for vi := 0; vi < vl.Len(); vi++ {
				v := VariableIndex(vi)
				if !ka.IsDontCare(vl, v) {
					k.SetValue(vl, v, ka.GetValue(vl, v))
				}
				if !kb.IsDontCare(vl, v) {
					k.SetValue(vl, v, kb.GetValue(vl, v))
				}
			}
			require.NoError(t, out.Add(k, wa*wb))
		}
	}
	out.Sort()
	return out
}

// Scenario 4: observed/expected chi-squared scales linearly with N.
func TestPearsonChiSquaredScenario4(t *testing.T) {
	vl := NewVariableList()
	require.NoError(t, vl.Add(Variable{Name: "A", Abbrev: "A", Cardinality: 4, ValueMap: []string{"0", "1", "2", "3"}, Type: Independent}))

	build := func(vals []float64) *ContingencyTable {
		table := NewContingencyTable(vl, len(vals))
		for i, w := range vals {
			k := NewKey(vl)
			k.SetValue(vl, 0, i)
			require.NoError(t, table.Add(k, w))
		}
		table.Sort()
		return table
	}

	observed := build([]float64{0.10, 0.20, 0.30, 0.40})
	expected := build([]float64{0.25, 0.25, 0.25, 0.25})

	p2 := PearsonChiSquared(observed, expected, 100)
	assert.InDelta(t, 20.0, p2, 1e-9)

	p2Double := PearsonChiSquared(observed, expected, 200)
	assert.InDelta(t, 2*p2, p2Double, 1e-9)
}

func TestAICBIC(t *testing.T) {
	assert.InDelta(t, 10.0-2*3, AIC(10.0, 3), 1e-12)
	n := 50.0
	assert.InDelta(t, 10.0-3*math.Log(n), BIC(10.0, 3, n), 1e-12)
}

// DF is inclusion-exclusion over relation *intersections*, not unions:
// {A}:{B} (disjoint, binary) has no shared variables, so DF is just the
// sum of each relation's own (card-1); {AB}:{BC} (binary) share B, so the
// shared relation's DF is subtracted once.
func TestDegreesOfFreedom(t *testing.T) {
	vl := binaryVarList(t, "A", "B", "C")

	a := rel(t, 0)
	b := rel(t, 1)
	independence, err := NewModel([]Relation{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, DF(independence, vl))

	ab := rel(t, 0, 1)
	bc := rel(t, 1, 2)
	chain, err := NewModel([]Relation{ab, bc})
	require.NoError(t, err)
	assert.Equal(t, 5, DF(chain, vl))
}

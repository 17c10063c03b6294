package ra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainVarList(t *testing.T, n int) *VariableList {
	t.Helper()
	vl := NewVariableList()
	names := []string{"A", "B", "C", "D", "E"}
	for i := 0; i < n; i++ {
		require.NoError(t, vl.Add(Variable{
			Name:        names[i],
			Abbrev:      names[i],
			Cardinality: 2,
			ValueMap:    []string{"0", "1"},
			Type:        Independent,
		}))
	}
	return vl
}

func TestMakeModelAndBottomRefModel(t *testing.T) {
	vl := chainVarList(t, 3)
	table := NewContingencyTable(vl, 8)
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			for c := 0; c < 2; c++ {
				k := NewKey(vl)
				k.SetValue(vl, 0, a)
				k.SetValue(vl, 1, b)
				k.SetValue(vl, 2, c)
				require.NoError(t, table.Add(k, 1))
			}
		}
	}
	table.Sort()
	require.NoError(t, table.Normalize())

	vb := NewVBManager(vl, table, 8)

	m, err := vb.MakeModel("AB:BC")
	require.NoError(t, err)
	assert.Equal(t, "AB:BC", m.PrintName(vl))

	bottom, err := vb.BottomRefModel()
	require.NoError(t, err)
	assert.Equal(t, 3, bottom.Len())
}

func TestComputeStatsSaturatedModelIsExact(t *testing.T) {
	vl := chainVarList(t, 2)
	table := NewContingencyTable(vl, 4)
	weights := map[[2]int]float64{
		{0, 0}: 0.1,
		{0, 1}: 0.2,
		{1, 0}: 0.3,
		{1, 1}: 0.4,
	}
	for assignment, w := range weights {
		k := NewKey(vl)
		k.SetValue(vl, 0, assignment[0])
		k.SetValue(vl, 1, assignment[1])
		require.NoError(t, table.Add(k, w))
	}
	table.Sort()
	require.NoError(t, table.Normalize())

	vb := NewVBManager(vl, table, 100)
	saturated, err := vb.MakeModel("AB")
	require.NoError(t, err)

	stats, err := vb.ComputeStats(saturated)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, stats.T, 1e-8)
	assert.InDelta(t, 0.0, stats.LR, 1e-6)
}

// Forward-backward marginals on a chain equal direct projections to
// entropy tolerance 1e-10.
func TestForwardBackwardMatchesDirectProjection(t *testing.T) {
	vl := chainVarList(t, 3)
	table := NewContingencyTable(vl, 8)
	weights := []float64{0.05, 0.10, 0.05, 0.20, 0.15, 0.05, 0.30, 0.10}
	i := 0
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			for c := 0; c < 2; c++ {
				k := NewKey(vl)
				k.SetValue(vl, 0, a)
				k.SetValue(vl, 1, b)
				k.SetValue(vl, 2, c)
				require.NoError(t, table.Add(k, weights[i]))
				i++
			}
		}
	}
	table.Sort()
	require.NoError(t, table.Normalize())

	vb := NewVBManager(vl, table, 1)
	chain, err := vb.MakeModel("AB:BC")
	require.NoError(t, err)

	fb, err := vb.ForwardBackward(chain)
	require.NoError(t, err)
	require.Len(t, fb, 3)

	for i := 0; i < 3; i++ {
		direct, err := table.Project([]VariableIndex{VariableIndex(i)})
		require.NoError(t, err)
		assert.InDelta(t, H(direct), H(fb[i]), 1e-10)
	}
}

package ra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeVarTable(t *testing.T) (*VariableList, *ContingencyTable) {
	t.Helper()
	vl := NewVariableList()
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, vl.Add(Variable{
			Name: name, Abbrev: name, Cardinality: 2,
			ValueMap: []string{"0", "1"}, Type: Independent,
		}))
	}
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
	return vl, table
}

// Quantified invariant: for subsets S subset-of S',
// project(project(P, S'), S) = project(P, S).
func TestProjectIsTransitive(t *testing.T) {
	_, table := threeVarTable(t)

	viaAB, err := table.Project([]VariableIndex{0, 1})
	require.NoError(t, err)
	viaABToA, err := viaAB.Project([]VariableIndex{0})
	require.NoError(t, err)

	direct, err := table.Project([]VariableIndex{0})
	require.NoError(t, err)

	require.Equal(t, direct.Len(), viaABToA.Len())
	for i := 0; i < direct.Len(); i++ {
		k, w := direct.At(i)
		w2, ok := viaABToA.Find(k)
		require.True(t, ok)
		assert.InDelta(t, w, w2, 1e-10)
	}
}

func TestSortMergesDuplicateKeys(t *testing.T) {
	vl := NewVariableList()
	require.NoError(t, vl.Add(Variable{Name: "A", Abbrev: "A", Cardinality: 2, ValueMap: []string{"0", "1"}, Type: Independent}))

	table := NewContingencyTable(vl, 2)
	k := NewKey(vl)
	k.SetValue(vl, 0, 1)
	require.NoError(t, table.Add(k, 0.3))
	require.NoError(t, table.Add(k, 0.2))

	table.Sort()
	assert.Equal(t, 1, table.Len())
	_, w := table.At(0)
	assert.InDelta(t, 0.5, w, 1e-12)
}

func TestNormalizeRejectsNonPositiveSum(t *testing.T) {
	vl := NewVariableList()
	require.NoError(t, vl.Add(Variable{Name: "A", Abbrev: "A", Cardinality: 2, ValueMap: []string{"0", "1"}, Type: Independent}))
	table := NewContingencyTable(vl, 1)
	assert.Error(t, table.Normalize())
}

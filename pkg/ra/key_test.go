package ra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitsForReservesSentinel(t *testing.T) {
	cases := []struct {
		card Cardinality
		bits int
	}{
		{2, 2},
		{3, 2},
		{4, 3},
		{7, 3},
		{8, 4},
	}
	for _, c := range cases {
		bits := BitsFor(c.card)
		assert.Equal(t, c.bits, bits, "cardinality %d", c.card)
		// The all-ones value of `bits` bits must exceed the highest valid
		// value so DontCare never collides with a real code.
		assert.Greater(t, (1<<bits)-1, int(c.card)-1)
	}
}

func TestKeySetGetRoundTrip(t *testing.T) {
	vl := NewVariableList()
	require.NoError(t, vl.Add(Variable{Name: "A", Abbrev: "A", Cardinality: 3, ValueMap: []string{"0", "1", "2"}, Type: Independent}))
	require.NoError(t, vl.Add(Variable{Name: "B", Abbrev: "B", Cardinality: 5, ValueMap: []string{"0", "1", "2", "3", "4"}, Type: Independent}))

	k := NewKey(vl)
	assert.True(t, k.IsDontCare(vl, 0))
	assert.True(t, k.IsDontCare(vl, 1))

	k.SetValue(vl, 0, 2)
	k.SetValue(vl, 1, 4)
	assert.Equal(t, 2, k.GetValue(vl, 0))
	assert.Equal(t, 4, k.GetValue(vl, 1))
	assert.False(t, k.IsDontCare(vl, 0))
	assert.False(t, k.IsDontCare(vl, 1))
}

func TestKeyCompareAndEqual(t *testing.T) {
	vl := NewVariableList()
	require.NoError(t, vl.Add(Variable{Name: "A", Abbrev: "A", Cardinality: 2, ValueMap: []string{"0", "1"}, Type: Independent}))

	a := NewKey(vl)
	a.SetValue(vl, 0, 0)
	b := NewKey(vl)
	b.SetValue(vl, 0, 1)

	assert.True(t, a.Compare(b) < 0)
	assert.False(t, a.Equal(b))

	c := a.Clone()
	assert.True(t, a.Equal(c))
}

package ra

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataSpecRoundTrip(t *testing.T) {
	doc := `{
		"name": "toy",
		"variables": [
			{"name": "A", "abbrev": "A", "cardinality": 2, "values": ["lo", "hi"]},
			{"name": "B", "abbrev": "B", "cardinality": 2, "values": ["lo", "hi"], "isDependent": true}
		],
		"data": [["lo", "lo"], ["lo", "hi"], ["hi", "lo"], ["hi", "hi"]],
		"counts": [10, 20, 30, 40]
	}`

	spec, err := ParseDataSpec(strings.NewReader(doc))
	require.NoError(t, err)

	vl, err := spec.ToVariableList()
	require.NoError(t, err)
	assert.Equal(t, 2, vl.Len())
	assert.True(t, vl.At(1).IsDependent)

	table, err := spec.ToTable(vl)
	require.NoError(t, err)
	assert.Equal(t, 100.0, table.Sum())
}

func TestParseDataSpecRejectsMismatchedCounts(t *testing.T) {
	doc := `{"name":"bad","variables":[{"name":"A","abbrev":"A","cardinality":2,"values":["0","1"]}],"data":[["0"],["1"]],"counts":[1]}`
	spec, err := ParseDataSpec(strings.NewReader(doc))
	require.NoError(t, err)
	vl, err := spec.ToVariableList()
	require.NoError(t, err)
	_, err = spec.ToTable(vl)
	assert.Error(t, err)
}

// Scenario 7: 15 declared variables, 8 active (type != 0), product of
// active cardinalities = 5832 (matching a bw21t08-style legacy dataset).
func TestParseLegacyInActiveVariableProduct(t *testing.T) {
	var b strings.Builder
	b.WriteString(":action analyze\n")
	b.WriteString(":nominal\n")
	// 8 active variables: cardinalities 6,3,3,3,3,3,2,2 -> product 5832.
	active := []struct {
		name string
		card int
	}{
		{"V1", 6}, {"V2", 3}, {"V3", 3}, {"V4", 3},
		{"V5", 3}, {"V6", 3}, {"V7", 2}, {"V8", 2},
	}
	for i, v := range active {
		typ := 1
		if i%2 == 1 {
			typ = 2
		}
		b.WriteString(v.name + "," + strconv.Itoa(v.card) + "," + strconv.Itoa(typ) + "," + v.name + "\n")
	}
	// 7 excluded variables (type=0) padding the declared count to 15.
	for i := 0; i < 7; i++ {
		name := "X" + strconv.Itoa(i)
		b.WriteString(name + ",2,0," + name + "\n")
	}
	b.WriteString(":no-frequency\n")
	b.WriteString(":data\n")
	b.WriteString("0,0,0,0,0,0,0,0,0,0,0,0,0,0,0\n")

	legacy, err := ParseLegacyIn(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Len(t, legacy.Nominal, 15)

	activeCount := 0
	product := 1
	for _, nom := range legacy.Nominal {
		if nom.Type != Excluded {
			activeCount++
			product *= nom.Cardinality
		}
	}
	assert.Equal(t, 8, activeCount)
	assert.Equal(t, 5832, product)

	spec, err := legacy.ToJSON(true)
	require.NoError(t, err)
	assert.Len(t, spec.Variables, 8)
}


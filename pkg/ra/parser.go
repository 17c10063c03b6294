package ra

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gitrdm/gorecon/internal/raerr"
)

// DataSpec is the JSON dataset document: the stable external interface
// described in SPEC_FULL.md §6.
type DataSpec struct {
	Name       string          `json:"name"`
	SampleSize float64         `json:"sampleSize,omitempty"`
	Variables  []VariableSpec  `json:"variables"`
	Data       [][]interface{} `json:"data"`
	Counts     []float64       `json:"counts"`
}

// VariableSpec is one entry of DataSpec.Variables.
type VariableSpec struct {
	Name        string   `json:"name"`
	Abbrev      string   `json:"abbrev"`
	Cardinality int      `json:"cardinality"`
	Values      []string `json:"values"`
	IsDependent bool     `json:"isDependent,omitempty"`
}

// ParseDataSpec decodes a JSON dataset document from r.
func ParseDataSpec(r io.Reader) (*DataSpec, error) {
	var spec DataSpec
	dec := json.NewDecoder(r)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: invalid dataset JSON: %v", raerr.InvalidInput, err)
	}
	return &spec, nil
}

// ToVariableList builds a frozen-on-first-use VariableList from the spec.
func (s *DataSpec) ToVariableList() (*VariableList, error) {
	vl := NewVariableList()
	for _, vs := range s.Variables {
		if vs.Cardinality < 2 {
			return nil, fmt.Errorf("%w: variable %q has cardinality < 2", raerr.InvalidInput, vs.Name)
		}
		if len(vs.Values) != vs.Cardinality {
			return nil, fmt.Errorf("%w: variable %q declares cardinality %d but has %d value labels", raerr.InvalidInput, vs.Name, vs.Cardinality, len(vs.Values))
		}
		varType := Independent
		if vs.IsDependent {
			varType = Dependent
		}
		v := Variable{
			Name:        vs.Name,
			Abbrev:      vs.Abbrev,
			Cardinality: Cardinality(vs.Cardinality),
			IsDependent: vs.IsDependent,
			ValueMap:    append([]string(nil), vs.Values...),
			Type:        varType,
		}
		if err := vl.Add(v); err != nil {
			return nil, err
		}
	}
	return vl, nil
}

// ToTable converts the spec's data rows (and parallel counts) into an
// unsorted ContingencyTable over vl. Row length must equal the number of
// variables; counts length must equal the number of rows; every value
// must resolve against its variable's valueMap (string labels) or be a
// valid integer index directly.
func (s *DataSpec) ToTable(vl *VariableList) (*ContingencyTable, error) {
	if len(s.Counts) != 0 && len(s.Counts) != len(s.Data) {
		return nil, fmt.Errorf("%w: counts length %d does not match data length %d", raerr.InvalidInput, len(s.Counts), len(s.Data))
	}
	table := NewContingencyTable(vl, len(s.Data))
	for rowIdx, row := range s.Data {
		if len(row) != vl.Len() {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", raerr.InvalidInput, rowIdx, len(row), vl.Len())
		}
		k := NewKey(vl)
		for col, raw := range row {
			vi := VariableIndex(col)
			v := vl.At(vi)
			idx, err := resolveValue(raw, v)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", raerr.InvalidInput, rowIdx, col, err)
			}
			k.SetValue(vl, vi, idx)
		}
		weight := 1.0
		if len(s.Counts) != 0 {
			weight = s.Counts[rowIdx]
		}
		if err := table.Add(k, weight); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func resolveValue(raw interface{}, v Variable) (int, error) {
	switch x := raw.(type) {
	case string:
		idx := v.valueIndex(x)
		if idx < 0 {
			return 0, fmt.Errorf("value %q not in variable %q's value list", x, v.Name)
		}
		return idx, nil
	case float64:
		idx := int(x)
		if idx < 0 || idx >= int(v.Cardinality) {
			return 0, fmt.Errorf("integer value %d out of range for variable %q", idx, v.Name)
		}
		return idx, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T for variable %q", raw, v.Name)
	}
}

// LegacyIn is the line-oriented legacy dataset document described in
// SPEC_FULL.md §4.9: sections introduced by a ":action" line, followed
// by rows until the next directive.
type LegacyIn struct {
	Action         string
	Nominal        []legacyNominal
	ShortModel     string
	SearchWidth    int
	SearchLevels   int
	NoFrequency    bool
	Data           [][]string
}

type legacyNominal struct {
	Name        string
	Cardinality int
	Type        VarType
	Abbrev      string
}

// ParseLegacyIn reads a ".in" dataset document.
func ParseLegacyIn(r io.Reader) (*LegacyIn, error) {
	result := &LegacyIn{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var section string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, ":") {
			section = line
			if strings.HasPrefix(section, ":action") {
				fields := strings.Fields(section)
				if len(fields) > 1 {
					result.Action = fields[1]
				}
			} else if strings.HasPrefix(section, ":short-model") {
				fields := strings.SplitN(section, " ", 2)
				if len(fields) > 1 {
					result.ShortModel = strings.TrimSpace(fields[1])
				}
			} else if strings.HasPrefix(section, ":optimize-search-width") {
				result.SearchWidth = parseTrailingInt(section)
			} else if strings.HasPrefix(section, ":search-levels") {
				result.SearchLevels = parseTrailingInt(section)
			} else if strings.HasPrefix(section, ":no-frequency") {
				result.NoFrequency = true
			}
			continue
		}
		switch {
		case strings.HasPrefix(section, ":nominal"):
			nom, err := parseNominalLine(line)
			if err != nil {
				return nil, err
			}
			result.Nominal = append(result.Nominal, nom)
		case strings.HasPrefix(section, ":data"):
			fields := strings.Split(line, ",")
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}
			result.Data = append(result.Data, fields)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading .in file: %v", raerr.InvalidInput, err)
	}
	return result, nil
}

func parseTrailingInt(s string) int {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(fields[len(fields)-1])
	return n
}

func parseNominalLine(line string) (legacyNominal, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return legacyNominal{}, fmt.Errorf("%w: malformed :nominal line %q", raerr.InvalidInput, line)
	}
	name := strings.TrimSpace(fields[0])
	card, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return legacyNominal{}, fmt.Errorf("%w: non-integer cardinality in %q", raerr.InvalidInput, line)
	}
	typeNum, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return legacyNominal{}, fmt.Errorf("%w: non-integer type in %q", raerr.InvalidInput, line)
	}
	abbrev := strings.TrimSpace(fields[3])
	var vt VarType
	switch typeNum {
	case 0:
		vt = Excluded
	case 1:
		vt = Independent
	case 2:
		vt = Dependent
	default:
		return legacyNominal{}, fmt.Errorf("%w: unknown variable type %d in %q", raerr.InvalidInput, typeNum, line)
	}
	return legacyNominal{Name: name, Cardinality: card, Type: vt, Abbrev: abbrev}, nil
}

// ToJSON re-emits the legacy document as a DataSpec, dropping
// varType==Excluded variables by default (excludeType0) and truncating
// each data row to match.
func (l *LegacyIn) ToJSON(excludeType0 bool) (*DataSpec, error) {
	keepIdx := make([]int, 0, len(l.Nominal))
	var variables []VariableSpec
	for i, nom := range l.Nominal {
		if excludeType0 && nom.Type == Excluded {
			continue
		}
		keepIdx = append(keepIdx, i)
		values := make([]string, nom.Cardinality)
		for j := range values {
			values[j] = strconv.Itoa(j)
		}
		variables = append(variables, VariableSpec{
			Name:        nom.Name,
			Abbrev:      nom.Abbrev,
			Cardinality: nom.Cardinality,
			Values:      values,
			IsDependent: nom.Type == Dependent,
		})
	}

	spec := &DataSpec{Name: "legacy", Variables: variables}
	for _, row := range l.Data {
		var kept []interface{}
		var count float64 = 1
		dataLen := len(keepIdx)
		if !l.NoFrequency && len(row) > dataLen {
			c, err := strconv.ParseFloat(row[len(row)-1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: non-numeric frequency in row %v", raerr.InvalidInput, row)
			}
			count = c
		}
		for _, idx := range keepIdx {
			if idx >= len(row) {
				return nil, fmt.Errorf("%w: data row shorter than declared nominal count", raerr.InvalidInput)
			}
			kept = append(kept, row[idx])
		}
		spec.Data = append(spec.Data, kept)
		spec.Counts = append(spec.Counts, count)
	}
	return spec, nil
}

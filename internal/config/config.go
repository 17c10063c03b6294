// Package config loads a search run's parameters (SPEC_FULL.md §3 "Run
// configuration record") from an optional YAML sidecar file, a legacy
// ".in" file's frontmatter directives, and CLI flag overrides, in that
// increasing order of precedence.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gorecon/internal/raerr"
	"github.com/gitrdm/gorecon/pkg/ra"
)

// Format names the dataset document format a run reads from.
type Format string

const (
	FormatJSON   Format = "json"
	FormatLegacy Format = "legacy-in"
)

// Run is the run configuration record: everything the CLI needs to
// parameterize a search and nothing a search driver couldn't otherwise
// be constructed from directly.
type Run struct {
	DatasetPath string `yaml:"datasetPath"`
	Format      Format `yaml:"format"`
	Width       int    `yaml:"width"`
	MaxLevels   int    `yaml:"maxLevels"`
	Statistic   string `yaml:"statistic"`
	Filter      string `yaml:"filter"`
	Direction   string `yaml:"direction"`
	Workers     int    `yaml:"workers"`
}

// Defaults returns the built-in defaults applied before any file or flag
// overrides are layered on.
func Defaults() Run {
	return Run{
		Format:    FormatJSON,
		Width:     3,
		MaxLevels: 10,
		Statistic: "aic",
		Filter:    "full",
		Direction: "ascending",
		Workers:   4,
	}
}

// Load reads an optional YAML sidecar file at path into base, returning
// base unchanged (not an error) if path is empty. A present file that
// fails to parse is an InvalidInput error.
func Load(path string, base Run) (Run, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("%w: reading config %q: %v", raerr.InvalidInput, path, err)
	}
	if err := yaml.Unmarshal(data, &base); err != nil {
		return base, fmt.Errorf("%w: parsing config %q: %v", raerr.InvalidInput, path, err)
	}
	return base, nil
}

// MergeLegacyDirectives overlays search-relevant directives parsed from a
// legacy ".in" file's frontmatter onto r, but only where the directive
// was actually present (a zero value from the parser means "unset", not
// "zero").
func MergeLegacyDirectives(r Run, legacy *ra.LegacyIn) Run {
	if legacy == nil {
		return r
	}
	if legacy.SearchWidth > 0 {
		r.Width = legacy.SearchWidth
	}
	if legacy.SearchLevels > 0 {
		r.MaxLevels = legacy.SearchLevels
	}
	return r
}

// StatisticFromString maps the run config's statistic name to ra.Statistic.
func StatisticFromString(s string) (ra.Statistic, error) {
	switch s {
	case "aic", "":
		return ra.StatAIC, nil
	case "bic":
		return ra.StatBIC, nil
	case "lr":
		return ra.StatLR, nil
	default:
		return 0, fmt.Errorf("%w: unknown statistic %q", raerr.InvalidInput, s)
	}
}

// FilterFromString maps the run config's filter name to ra.Filter.
func FilterFromString(s string) (ra.Filter, error) {
	switch s {
	case "full", "":
		return ra.FilterFull, nil
	case "loopless":
		return ra.FilterLoopless, nil
	case "disjoint":
		return ra.FilterDisjoint, nil
	case "chain":
		return ra.FilterChain, nil
	default:
		return 0, fmt.Errorf("%w: unknown filter %q", raerr.InvalidInput, s)
	}
}

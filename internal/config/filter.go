// Package config loads an optional filter-policy override from a YAML file,
// layered on top of callgraph.DefaultFilter.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maxgio92/stcompress/callgraph"
)

// FilterFile is the YAML shape of a --filter-config override file. Any
// field left at its zero value keeps the compiled-in default for that
// field; IncludeNames and ExcludeKeywords, if given, replace (not merge
// with) the default lists.
type FilterFile struct {
	IncludeNames                      []string `yaml:"include_names"`
	ExcludeKeywords                   []string `yaml:"exclude_keywords"`
	ExcludeUnknownIndirTargets        *bool    `yaml:"exclude_unknown_indir_targets"`
	ExcludeIndirCallsToUnknownTargets *bool    `yaml:"exclude_indir_calls_to_unknown_targets"`
	ExcludeUnknownIndirCalls          *bool    `yaml:"exclude_unknown_indir_calls"`
}

// LoadFilter reads path and overlays it onto callgraph.DefaultFilter.
func LoadFilter(path string) (callgraph.Filter, error) {
	f := callgraph.DefaultFilter()

	data, err := os.ReadFile(path)
	if err != nil {
		return callgraph.Filter{}, fmt.Errorf("config: read filter file: %w", err)
	}

	var ff FilterFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return callgraph.Filter{}, fmt.Errorf("config: parse filter file %s: %w", path, err)
	}

	if len(ff.IncludeNames) > 0 {
		names := make(map[string]struct{}, len(ff.IncludeNames))
		for _, n := range ff.IncludeNames {
			names[n] = struct{}{}
		}
		f.IncludeCallsToFunctionsWithName = names
	}
	if len(ff.ExcludeKeywords) > 0 {
		f.ExcludeFuncsWithKeywordInName = ff.ExcludeKeywords
	}
	if ff.ExcludeUnknownIndirTargets != nil {
		f.ExcludeUnknownIndirTargets = *ff.ExcludeUnknownIndirTargets
	}
	if ff.ExcludeIndirCallsToUnknownTargets != nil {
		f.ExcludeIndirCallsToUnknownTargets = *ff.ExcludeIndirCallsToUnknownTargets
	}
	if ff.ExcludeUnknownIndirCalls != nil {
		f.ExcludeUnknownIndirCalls = *ff.ExcludeUnknownIndirCalls
	}

	return f, nil
}

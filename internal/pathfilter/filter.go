// Package pathfilter applies include/exclude glob rules to changed-file paths.
package pathfilter

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter decides which paths enter the review. Exclusion wins over inclusion
// when both match; with no inclusion rules, every path not excluded is in.
type Filter struct {
	include []string
	exclude []string
}

// New validates the glob patterns and returns a Filter.
func New(include, exclude []string) (*Filter, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid path pattern %q", p)
		}
	}
	return &Filter{include: include, exclude: exclude}, nil
}

// Match reports whether path passes the filter.
func (f *Filter) Match(path string) bool {
	for _, p := range f.exclude {
		if ok, _ := doublestar.Match(p, path); ok {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}
	for _, p := range f.include {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

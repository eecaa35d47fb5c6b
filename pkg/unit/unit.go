// Package unit compiles and applies the regular expressions that constrain
// string representations of integer, float, and string property values.
//
// Compilation uses github.com/dlclark/regexp2 rather than the standard
// library's regexp package. Several unit patterns in practice need
// look-ahead (e.g. a duration suffix of "ms" that must not also match a
// bare "m"), which RE2 — and therefore regexp — cannot express. regexp2
// implements a backtracking, .NET-flavored engine that supports it.
package unit

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Unit is a named, compiled value-shape constraint, e.g. "duration" or
// "memory_size".
type Unit struct {
	Name     string
	Pattern  string
	Examples []string

	re *regexp2.Regexp
}

// Compile builds a Unit from its declared regex pattern. It is the only
// place in the engine that can fail on a malformed pattern; callers
// surface that failure as a schema-load error.
func Compile(name, pattern string, examples []string) (*Unit, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("unit %q: invalid regex %q: %w", name, pattern, err)
	}
	return &Unit{
		Name:     name,
		Pattern:  pattern,
		Examples: examples,
		re:       re,
	}, nil
}

// Matches reports whether value is matched by the unit's pattern across its
// entire length — a partial match (the pattern matching only a prefix or
// substring) does not count.
func (u *Unit) Matches(value string) bool {
	m, err := u.re.FindStringMatch(value)
	if err != nil || m == nil {
		return false
	}
	// regexp2 reports Index and Length in runes, not bytes.
	return m.Index == 0 && m.Length == len([]rune(value))
}

// Package version implements the total order over product version strings
// used to select schema defaults, recommendations, and role windows.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a dotted, non-negative integer tuple, e.g. "1.2.3" -> [1,2,3].
// Missing trailing components compare as zero.
type Version []int64

// Parse splits a dotted version string into its numeric components.
// Non-numeric or negative components are rejected — the corpus does not
// exercise pre-release suffixes, so we reject rather than guess an ordering.
func Parse(s string) (Version, error) {
	if s == "" {
		return nil, fmt.Errorf("version: empty string")
	}
	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("version: invalid component %q in %q", p, s)
		}
		v[i] = n
	}
	return v, nil
}

// MustParse panics if s does not parse. Intended for schema-load code paths
// that have already validated the string, and for tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = strconv.FormatInt(c, 10)
	}
	return strings.Join(parts, ".")
}

func at(v Version, i int) int64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than b,
// comparing component by component with missing components treated as 0.
func Compare(a, b Version) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai, bi := at(a, i), at(b, i)
		if ai < bi {
			return -1
		}
		if ai > bi {
			return 1
		}
	}
	return 0
}

// Equal reports tuple equality (missing components treated as 0).
func Equal(a, b Version) bool { return Compare(a, b) == 0 }

// Less reports whether a sorts strictly before b.
func Less(a, b Version) bool { return Compare(a, b) < 0 }

// Range is the half-open interval [From, To). A nil To means unbounded above.
type Range struct {
	From Version
	To   Version // nil = unbounded
}

// Contains reports whether v falls in [From, To).
func (r Range) Contains(v Version) bool {
	if Compare(v, r.From) < 0 {
		return false
	}
	if r.To != nil && Compare(v, r.To) >= 0 {
		return false
	}
	return true
}

// Overlaps reports whether two half-open ranges share any version.
func (r Range) Overlaps(other Range) bool {
	// r starts before other ends (or other is unbounded) AND
	// other starts before r ends (or r is unbounded).
	rStartsBeforeOtherEnds := other.To == nil || Compare(r.From, other.To) < 0
	otherStartsBeforeREnds := r.To == nil || Compare(other.From, r.To) < 0
	return rStartsBeforeOtherEnds && otherStartsBeforeREnds
}

// Package defaults picks the default and recommended value for a property
// at a given product version from its version-ranged value lists.
package defaults

import (
	"github.com/platinummonkey/propconf/pkg/schema"
	"github.com/platinummonkey/propconf/pkg/version"
)

// For returns the declared default value for p at product version v, if any
// of its version-ranged default entries cover v. Schema loading has already
// guaranteed these ranges do not overlap, so at most one can match.
func For(p *schema.Property, v version.Version) (string, bool) {
	return pick(p.DefaultValues, v)
}

// RecommendedFor returns the declared recommended value for p at product
// version v, if any of its version-ranged recommendation entries cover v.
func RecommendedFor(p *schema.Property, v version.Version) (string, bool) {
	return pick(p.RecommendedValues, v)
}

func pick(values []schema.VersionedValue, v version.Version) (string, bool) {
	for _, vv := range values {
		if vv.Range.Contains(v) {
			return vv.Value, true
		}
	}
	return "", false
}

// Package expand implements the dependency-expansion algorithm: given a set
// of user-supplied property values, a role, and a product version, it walks
// each property's expandsTo graph to build the full effective set of
// properties that must be resolved, filling in unfilled expansion targets
// from schema defaults or recommendations and detecting conflicts along the
// way.
//
// expand has no knowledge of datatype validation — it only decides which
// properties are in play and what value each starts with. pkg/validate
// layers the per-value datatype/allowed-values checks on top of its Result.
package expand

import (
	"github.com/platinummonkey/propconf/pkg/defaults"
	"github.com/platinummonkey/propconf/pkg/outcome"
	"github.com/platinummonkey/propconf/pkg/schema"
	"github.com/platinummonkey/propconf/pkg/version"
)

// Source records where an Entry's value came from.
type Source int

const (
	SourceUser Source = iota
	SourceExpansionForced
	SourceExpansionDefault
	SourceExpansionRecommended
	SourceSchemaDefault
	SourceSchemaRecommended
)

// UserValue is one caller-supplied (name, value) pair. Callers pass a slice
// rather than a map so that input order is preserved into the outcome map.
type UserValue struct {
	Name  string
	Value string
}

// Entry is one property in the effective set, with the value it should be
// checked against and where that value came from.
type Entry struct {
	Property *schema.Property
	Value    string
	Source   Source
}

// Diagnostic is a warning or error keyed to a property name that did not
// (or did not only) result in a validated Entry. Property is nil only for
// UnknownProperty, where the supplied name matches no declared property.
type Diagnostic struct {
	Name      string
	Property  *schema.Property
	ErrorKind outcome.ErrorKind
	WarnKind  outcome.WarnKind
}

// Result is the output of Run.
type Result struct {
	// Entries is the effective set, in the order properties were first
	// added: user-supplied first in input order, then expansion-introduced
	// properties in expansion order, then required-but-never-triggered
	// properties in schema declaration order.
	Entries  []Entry
	Warnings []Diagnostic
	Errors   []Diagnostic
}

type pending struct {
	property *schema.Property
	value    string
	hasValue bool
	source   Source
}

// Run computes the effective property set for one validate() call.
func Run(s *schema.Schema, role string, v version.Version, userValues []UserValue) *Result {
	r := &Result{}
	var work []*pending
	index := make(map[*schema.Property]int)

	// Step 1-3: normalize user input, drop role-inapplicable and
	// not-yet-introduced properties, warn on deprecated ones.
	for _, uv := range userValues {
		p, ok := s.Lookup(uv.Name)
		if !ok {
			r.Errors = append(r.Errors, Diagnostic{Name: uv.Name, ErrorKind: outcome.ErrUnknownProperty})
			continue
		}
		if _, hasRole := p.RoleBinding(role); !hasRole {
			r.Warnings = append(r.Warnings, Diagnostic{Name: p.PrimaryName(), Property: p, WarnKind: outcome.WarnNotApplicableToRole})
			continue
		}
		if version.Less(v, p.AsOfVersion) {
			r.Errors = append(r.Errors, Diagnostic{Name: p.PrimaryName(), Property: p, ErrorKind: outcome.ErrVersionTooLow})
			continue
		}
		if isDeprecated(p, v) {
			r.Warnings = append(r.Warnings, Diagnostic{Name: p.PrimaryName(), Property: p, WarnKind: outcome.WarnDeprecated})
		}

		if i, exists := index[p]; exists {
			work[i].value = uv.Value
			continue
		}
		work = append(work, &pending{property: p, value: uv.Value, hasValue: true, source: SourceUser})
		index[p] = len(work) - 1
	}

	// Step 4: expansion loop. work grows as expandsTo targets are
	// discovered; ranging by index (not range) lets newly appended entries
	// themselves be processed.
	for i := 0; i < len(work); i++ {
		p := work[i].property
		for _, exp := range p.ExpandsTo {
			target := exp.Target
			if existingIdx, exists := index[target]; exists {
				existing := work[existingIdx]
				if existing.source == SourceUser && exp.ForcedValue != nil && existing.value != *exp.ForcedValue {
					r.Errors = append(r.Errors, Diagnostic{Name: target.PrimaryName(), Property: target, ErrorKind: outcome.ErrConflictingExpansion})
				}
				continue
			}
			np := &pending{property: target}
			if exp.ForcedValue != nil {
				np.value = *exp.ForcedValue
				np.hasValue = true
				np.source = SourceExpansionForced
			}
			work = append(work, np)
			index[target] = len(work) - 1
		}
	}

	// Step 5: resolve expansion targets that got no forced value.
	kept := make([]*pending, 0, len(work))
	for _, w := range work {
		if w.hasValue {
			kept = append(kept, w)
			continue
		}
		if d, ok := defaults.For(w.property, v); ok {
			w.value, w.hasValue, w.source = d, true, SourceExpansionDefault
			kept = append(kept, w)
			continue
		}
		if rec, ok := defaults.RecommendedFor(w.property, v); ok {
			w.value, w.hasValue, w.source = rec, true, SourceExpansionRecommended
			kept = append(kept, w)
			continue
		}
		if rb, hasRole := w.property.RoleBinding(role); hasRole && rb.Required {
			r.Errors = append(r.Errors, Diagnostic{Name: w.property.PrimaryName(), Property: w.property, ErrorKind: outcome.ErrMissingRequired})
		}
		// Not required and nothing to resolve it with: drop silently.
	}
	work = kept

	// Step 6 (defensive): a schema that passed Load can contain no cycle in
	// its static expandsTo graph, so the loop above always terminates.
	// Nothing further to check here.

	// Required properties that were never triggered by user input or
	// expansion still must be resolved for the active role.
	alreadySeen := func(p *schema.Property) bool {
		_, ok := index[p]
		return ok
	}
	for _, p := range s.Properties {
		if alreadySeen(p) {
			continue
		}
		rb, hasRole := p.RoleBinding(role)
		if !hasRole || !rb.Required {
			continue
		}
		if version.Less(v, p.AsOfVersion) {
			continue
		}
		if d, ok := defaults.For(p, v); ok {
			work = append(work, &pending{property: p, value: d, hasValue: true, source: SourceSchemaDefault})
			index[p] = len(work) - 1
			continue
		}
		if rec, ok := defaults.RecommendedFor(p, v); ok {
			work = append(work, &pending{property: p, value: rec, hasValue: true, source: SourceSchemaRecommended})
			index[p] = len(work) - 1
			continue
		}
		r.Errors = append(r.Errors, Diagnostic{Name: p.PrimaryName(), Property: p, ErrorKind: outcome.ErrMissingRequired})
	}

	// Step 7 (no_copy) is applied by pkg/validate once the role binding for
	// the validated role is known per entry — expand has already resolved
	// the value each entry needs.

	for _, w := range work {
		r.Entries = append(r.Entries, Entry{Property: w.property, Value: w.value, Source: w.source})
	}
	return r
}

func isDeprecated(p *schema.Property, v version.Version) bool {
	if p.DeprecatedSince == nil {
		return false
	}
	return !version.Less(v, p.DeprecatedSince)
}

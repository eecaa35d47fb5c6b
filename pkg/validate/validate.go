// Package validate wires together the version, unit, datatype, schema,
// defaults, expand, and outcome packages into the single entry point the
// rest of the system calls: running one schema against one caller's
// product version, role, file target, and value set.
package validate

import (
	"github.com/platinummonkey/propconf/pkg/datatype"
	"github.com/platinummonkey/propconf/pkg/defaults"
	"github.com/platinummonkey/propconf/pkg/expand"
	"github.com/platinummonkey/propconf/pkg/outcome"
	"github.com/platinummonkey/propconf/pkg/schema"
	"github.com/platinummonkey/propconf/pkg/version"
)

// TargetKind distinguishes projecting onto the environment-variable names
// from projecting onto a specific named file's property names.
type TargetKind int

const (
	TargetEnv TargetKind = iota
	TargetFile
)

// Target selects which of a property's declared names end up in the
// returned outcome.Map.
type Target struct {
	Kind TargetKind
	File string // set when Kind == TargetFile
}

// Run validates userValues against s for the given product version, role,
// and file target, returning every property's outcome in a stable,
// deterministic order. It never returns an error: schema-load problems are
// caught by schema.Load, not here — every input here, however malformed,
// resolves to an outcome.Map describing what happened.
func Run(s *schema.Schema, productVersion version.Version, role string, target Target, userValues []expand.UserValue) *outcome.Map {
	er := expand.Run(s, role, productVersion, userValues)
	m := outcome.NewMap()

	for _, entry := range er.Entries {
		o := buildOutcome(entry, productVersion, role)
		setForTarget(m, entry.Property, target, o)
	}

	for _, w := range er.Warnings {
		if w.Property == nil {
			continue
		}
		if !foldWarnIntoExisting(m, w.Property, target, w.WarnKind) {
			o := outcome.Outcome{Kind: outcome.Warn, WarnKind: w.WarnKind}
			setForTarget(m, w.Property, target, o)
		}
	}

	for _, e := range er.Errors {
		o := outcome.Outcome{Kind: outcome.Error, ErrorKind: e.ErrorKind}
		if e.Property == nil {
			// UnknownProperty: no declared names to project through, and no
			// file_target can exclude it — the caller supplied a name the
			// schema has never heard of.
			m.Set(e.Name, o)
			continue
		}
		setForTarget(m, e.Property, target, o)
	}

	return m
}

func buildOutcome(entry expand.Entry, productVersion version.Version, role string) outcome.Outcome {
	p := entry.Property
	violations := datatype.Validate(p.Datatype, p.AllowedValues, entry.Value)

	var o outcome.Outcome
	if len(violations) > 0 {
		o.Kind = outcome.Error
		o.ErrorKind = mapViolationKind(violations[0].Kind)
		o.OffendingValue = entry.Value
		for _, v := range violations[1:] {
			o.Extra = append(o.Extra, mapViolationKind(v.Kind))
		}
	} else {
		o.Value = entry.Value
		switch entry.Source {
		case expand.SourceUser, expand.SourceExpansionForced:
			o.Kind = outcome.Valid
		case expand.SourceExpansionDefault, expand.SourceSchemaDefault:
			o.Kind = outcome.Default
		case expand.SourceExpansionRecommended, expand.SourceSchemaRecommended:
			o.Kind = outcome.RecommendedDefault
		}
	}

	if rec, ok := defaults.RecommendedFor(p, productVersion); ok && o.Kind != outcome.RecommendedDefault {
		o.Recommended = rec
		o.HasRecommended = true
	}

	if rb, ok := p.RoleBinding(role); ok && rb.NoCopy {
		o.Hidden = true
	}

	return o
}

func mapViolationKind(k datatype.ViolationKind) outcome.ErrorKind {
	switch k {
	case datatype.ViolationInvalidType:
		return outcome.ErrInvalidType
	case datatype.ViolationOutOfBounds:
		return outcome.ErrOutOfBounds
	case datatype.ViolationUnitMismatch:
		return outcome.ErrUnitMismatch
	case datatype.ViolationNotAllowed:
		return outcome.ErrNotAllowed
	default:
		return outcome.ErrInvalidType
	}
}

// setForTarget records o under every one of p's declared names that matches
// target, which is how file_target projection (§6) is applied: an env
// target only emits env names, a file target only emits that file's names.
func setForTarget(m *outcome.Map, p *schema.Property, target Target, o outcome.Outcome) {
	for _, n := range p.Names {
		switch target.Kind {
		case TargetEnv:
			if n.Kind == schema.NameKindEnv {
				m.Set(n.Name, o)
			}
		case TargetFile:
			if n.Kind == schema.NameKindFile && n.File == target.File {
				m.Set(n.Name, o)
			}
		}
	}
}

// foldWarnIntoExisting attaches warnKind onto the outcome already recorded
// for p's projected names, keeping the resolved Value rather than discarding
// it — a deprecated property with a valid value still surfaces as
// Warn(Deprecated, value), not as Valid(value) with the warning dropped. It
// reports whether any existing row was found and updated; the caller falls
// back to inserting a bare warning outcome when none was.
func foldWarnIntoExisting(m *outcome.Map, p *schema.Property, target Target, warnKind outcome.WarnKind) bool {
	folded := false
	for _, n := range p.Names {
		switch target.Kind {
		case TargetEnv:
			if n.Kind != schema.NameKindEnv {
				continue
			}
		case TargetFile:
			if n.Kind != schema.NameKindFile || n.File != target.File {
				continue
			}
		}
		o, ok := m.Get(n.Name)
		if !ok {
			continue
		}
		o.Kind = outcome.Warn
		o.WarnKind = warnKind
		m.Set(n.Name, o)
		folded = true
	}
	return folded
}

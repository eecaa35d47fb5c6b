// Package schema holds the immutable, in-memory model of a property schema
// document — units, datatypes, properties, role bindings, version windows,
// and the expandsTo dependency graph — plus the loader that builds one from
// YAML and enforces its structural invariants.
//
// A *Schema, once returned by Load, is read-only: every field reachable from
// it is safe to share across goroutines without synchronization, matching
// the rest of the validation engine's no-shared-mutable-state design.
package schema

import (
	"github.com/platinummonkey/propconf/pkg/datatype"
	"github.com/platinummonkey/propconf/pkg/unit"
	"github.com/platinummonkey/propconf/pkg/version"
)

// NameKind distinguishes an environment-variable name from a named-file
// property name.
type NameKind int

const (
	NameKindEnv NameKind = iota
	NameKindFile
)

// PropertyName is one of the names a property is known by. A property can
// have several — one per emission target.
type PropertyName struct {
	Name string
	Kind NameKind
	File string // set when Kind == NameKindFile; the target file identifier
}

// RoleBinding declares how a property behaves under a specific role.
type RoleBinding struct {
	Role     string
	Required bool
	NoCopy   bool
}

// VersionedValue is a value that applies over a half-open product version
// range.
type VersionedValue struct {
	Range version.Range
	Value string
}

// Expansion is one edge out of a property's expandsTo list: a reference to
// another property, optionally forcing that property's value.
type Expansion struct {
	Target      *Property
	ForcedValue *string
}

// Property is one schema-declared configuration property: its names, its
// datatype, its allowed values, its default/recommended values, its role
// bindings, its version window, and what it expands to.
type Property struct {
	Names             []PropertyName
	Datatype          *datatype.Datatype
	AllowedValues     []string
	DefaultValues     []VersionedValue
	RecommendedValues []VersionedValue
	Roles             map[string]RoleBinding
	AsOfVersion       version.Version
	DeprecatedSince   version.Version // nil if never deprecated
	ExpandsTo         []Expansion
}

// PrimaryName returns the property's first declared name, used as its
// canonical identity for diagnostics and property_ref resolution.
func (p *Property) PrimaryName() string {
	if len(p.Names) == 0 {
		return ""
	}
	return p.Names[0].Name
}

// NamesForFile returns the declared file-kind names whose target is file. A
// property emitted to multiple files has one PropertyName per file.
func (p *Property) NamesForFile(file string) []PropertyName {
	var out []PropertyName
	for _, n := range p.Names {
		if n.Kind == NameKindFile && n.File == file {
			out = append(out, n)
		}
	}
	return out
}

// RoleBinding looks up the binding declared for role, if any.
func (p *Property) RoleBinding(role string) (RoleBinding, bool) {
	rb, ok := p.Roles[role]
	return rb, ok
}

// Schema is the fully resolved, immutable schema document.
type Schema struct {
	Units      map[string]*unit.Unit
	Properties []*Property

	// byName indexes every declared PropertyName.Name (across all kinds) to
	// its owning Property, for O(1) lookup of user-supplied and
	// property_ref names.
	byName map[string]*Property
}

// Lookup resolves a declared name (env or file) to its owning Property.
func (s *Schema) Lookup(name string) (*Property, bool) {
	p, ok := s.byName[name]
	return p, ok
}

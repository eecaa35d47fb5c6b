package schema

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/propconf/pkg/datatype"
	"github.com/platinummonkey/propconf/pkg/unit"
	"github.com/platinummonkey/propconf/pkg/version"
)

// raw* types mirror the YAML document shape exactly. They carry references
// by name (unit names, property_ref names) rather than pointers — pass two
// resolves those names against the fully collected set.
type rawDocument struct {
	Version int `yaml:"version"`
	Spec    struct {
		Units []rawUnit `yaml:"units"`
	} `yaml:"spec"`
	Properties []rawProperty `yaml:"properties"`
}

type rawUnit struct {
	Name     string   `yaml:"name"`
	Regex    string   `yaml:"regex"`
	Examples []string `yaml:"examples,omitempty"`
}

type rawDatatype struct {
	Type      string `yaml:"type"`
	Min       *string `yaml:"min,omitempty"`
	Max       *string `yaml:"max,omitempty"`
	MinLength *int    `yaml:"min_length,omitempty"`
	MaxLength *int    `yaml:"max_length,omitempty"`
	Unit      string  `yaml:"unit,omitempty"`
}

type rawVersionedValue struct {
	FromVersion string `yaml:"from_version"`
	ToVersion   string `yaml:"to_version,omitempty"`
	Value       string `yaml:"value"`
}

type rawRoleBinding struct {
	Role     string `yaml:"role"`
	Required bool   `yaml:"required,omitempty"`
	NoCopy   bool   `yaml:"no_copy,omitempty"`
}

type rawPropertyName struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // "env" or "file"
	File string `yaml:"file,omitempty"`
}

type rawExpansion struct {
	PropertyRef string  `yaml:"property_ref"`
	ForcedValue *string `yaml:"forced_value,omitempty"`
}

type rawProperty struct {
	Names             []rawPropertyName   `yaml:"names"`
	Datatype          rawDatatype         `yaml:"datatype"`
	AllowedValues     []string            `yaml:"allowed_values,omitempty"`
	DefaultValues     []rawVersionedValue `yaml:"default_values,omitempty"`
	RecommendedValues []rawVersionedValue `yaml:"recommended_values,omitempty"`
	Roles             []rawRoleBinding    `yaml:"roles,omitempty"`
	AsOfVersion       string              `yaml:"as_of_version"`
	DeprecatedSince   string              `yaml:"deprecated_since,omitempty"`
	ExpandsTo         []rawExpansion      `yaml:"expands_to,omitempty"`
}

// Load parses a schema document and builds an immutable Schema, rejecting
// unknown fields and enforcing every structural invariant in one aggregated
// pass.
func Load(data []byte) (*Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc rawDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{Issues: []Issue{{
			Kind:     ErrUnknownField,
			Location: "document",
			Message:  err.Error(),
		}}}
	}

	b := &builder{}
	b.collectUnits(doc.Spec.Units)
	b.collectProperties(doc.Properties)
	b.link()

	if len(b.issues) > 0 {
		return nil, &LoadError{Issues: b.issues}
	}

	s := &Schema{
		Units:      b.units,
		Properties: b.properties,
		byName:     b.byName,
	}
	return s, nil
}

// builder accumulates the two-pass loader's intermediate state and issues.
type builder struct {
	units      map[string]*unit.Unit
	properties []*Property
	byName     map[string]*Property
	issues     []Issue

	rawUnitsByName map[string]rawUnit
	rawProps       []rawProperty
	byRawIndex     []*Property // nil entries mark properties dropped on a collection error
}

func (b *builder) collectUnits(raw []rawUnit) {
	b.units = make(map[string]*unit.Unit, len(raw))
	b.rawUnitsByName = make(map[string]rawUnit, len(raw))
	for _, ru := range raw {
		if _, dup := b.rawUnitsByName[ru.Name]; dup {
			b.issues = append(b.issues, Issue{Kind: ErrDuplicatePropertyName, Location: ru.Name, Message: "duplicate unit name"})
			continue
		}
		b.rawUnitsByName[ru.Name] = ru
		u, err := unit.Compile(ru.Name, ru.Regex, ru.Examples)
		if err != nil {
			b.issues = append(b.issues, Issue{Kind: ErrInvalidUnitRegex, Location: ru.Name, Message: err.Error()})
			continue
		}
		b.units[ru.Name] = u
	}
}

// collectProperties runs pass one: build every Property's scalar fields and
// register its names, without yet resolving expandsTo references (those
// need every property to already be registered by name).
func (b *builder) collectProperties(raw []rawProperty) {
	b.rawProps = raw
	b.byName = make(map[string]*Property)
	b.properties = make([]*Property, 0, len(raw))
	b.byRawIndex = make([]*Property, len(raw))

	for i, rp := range raw {
		loc := propertyLocation(rp, i)

		dt, err := b.buildDatatype(rp.Datatype, loc)
		if err != nil {
			continue
		}

		asOf, err := version.Parse(rp.AsOfVersion)
		if err != nil {
			b.issues = append(b.issues, Issue{Kind: ErrBadVersion, Location: loc, Message: err.Error()})
			continue
		}

		var deprecated version.Version
		if rp.DeprecatedSince != "" {
			deprecated, err = version.Parse(rp.DeprecatedSince)
			if err != nil {
				b.issues = append(b.issues, Issue{Kind: ErrBadVersion, Location: loc, Message: err.Error()})
				continue
			}
			if version.Less(deprecated, asOf) {
				b.issues = append(b.issues, Issue{
					Kind:     ErrDeprecatedBeforeIntroduced,
					Location: loc,
					Message:  fmt.Sprintf("deprecated_since %s is before as_of_version %s", rp.DeprecatedSince, rp.AsOfVersion),
				})
				continue
			}
		}

		defaults, ok := b.buildVersionedValues(rp.DefaultValues, loc, "default_values")
		if !ok {
			continue
		}
		recommended, ok := b.buildVersionedValues(rp.RecommendedValues, loc, "recommended_values")
		if !ok {
			continue
		}

		for _, av := range rp.AllowedValues {
			violations := datatype.Validate(dt, nil, av)
			if len(violations) > 0 {
				b.issues = append(b.issues, Issue{
					Kind:     ErrSchemaDefaultFailsValidation,
					Location: loc,
					Message:  fmt.Sprintf("allowed_value %q fails its own datatype check", av),
				})
			}
		}

		for _, vv := range defaults {
			violations := datatype.Validate(dt, rp.AllowedValues, vv.Value)
			if len(violations) > 0 {
				b.issues = append(b.issues, Issue{
					Kind:     ErrSchemaDefaultFailsValidation,
					Location: loc,
					Message:  fmt.Sprintf("default value %q fails its own datatype/allowed_values check", vv.Value),
				})
			}
		}

		for _, vv := range recommended {
			violations := datatype.Validate(dt, rp.AllowedValues, vv.Value)
			if len(violations) > 0 {
				b.issues = append(b.issues, Issue{
					Kind:     ErrSchemaDefaultFailsValidation,
					Location: loc,
					Message:  fmt.Sprintf("recommended value %q fails its own datatype/allowed_values check", vv.Value),
				})
			}
		}

		names := make([]PropertyName, 0, len(rp.Names))
		for _, rn := range rp.Names {
			var kind NameKind
			switch rn.Kind {
			case "env":
				kind = NameKindEnv
			case "file":
				kind = NameKindFile
			default:
				b.issues = append(b.issues, Issue{Kind: ErrUnknownField, Location: loc, Message: fmt.Sprintf("unknown name kind %q", rn.Kind)})
				continue
			}
			names = append(names, PropertyName{Name: rn.Name, Kind: kind, File: rn.File})
		}

		roles := make(map[string]RoleBinding, len(rp.Roles))
		for _, rr := range rp.Roles {
			roles[rr.Role] = RoleBinding{Role: rr.Role, Required: rr.Required, NoCopy: rr.NoCopy}
		}

		p := &Property{
			Names:             names,
			Datatype:          dt,
			AllowedValues:     rp.AllowedValues,
			DefaultValues:     defaults,
			RecommendedValues: recommended,
			Roles:             roles,
			AsOfVersion:       asOf,
			DeprecatedSince:   deprecated,
		}

		for _, n := range names {
			if _, dup := b.byName[n.Name]; dup {
				b.issues = append(b.issues, Issue{Kind: ErrDuplicatePropertyName, Location: n.Name, Message: "name declared by more than one property"})
				continue
			}
			b.byName[n.Name] = p
		}

		b.properties = append(b.properties, p)
		b.byRawIndex[i] = p
	}
}

// link runs pass two: resolve expandsTo property_refs (now that every
// property is registered by name) and check the expandsTo graph for cycles.
func (b *builder) link() {
	for i, rp := range b.rawProps {
		if len(rp.ExpandsTo) == 0 {
			continue
		}
		p := b.byRawIndex[i]
		if p == nil {
			continue // this property already failed collection; already reported
		}
		loc := propertyLocation(rp, i)
		for _, re := range rp.ExpandsTo {
			target, ok := b.byName[re.PropertyRef]
			if !ok {
				b.issues = append(b.issues, Issue{Kind: ErrUnknownPropertyRef, Location: loc, Message: fmt.Sprintf("property_ref %q does not match any declared property name", re.PropertyRef)})
				continue
			}
			if re.ForcedValue != nil {
				violations := datatype.Validate(target.Datatype, target.AllowedValues, *re.ForcedValue)
				if len(violations) > 0 {
					b.issues = append(b.issues, Issue{
						Kind:     ErrSchemaDefaultFailsValidation,
						Location: loc,
						Message:  fmt.Sprintf("forced_value %q for %q fails its target's own datatype/allowed_values check", *re.ForcedValue, re.PropertyRef),
					})
				}
			}
			p.ExpandsTo = append(p.ExpandsTo, Expansion{Target: target, ForcedValue: re.ForcedValue})
		}
	}

	if len(b.issues) > 0 {
		// A dangling property_ref makes cycle detection meaningless.
		return
	}

	for _, p := range b.properties {
		if cyc := detectCycle(p); cyc != "" {
			b.issues = append(b.issues, Issue{Kind: ErrCyclicExpansion, Location: p.PrimaryName(), Message: cyc})
		}
	}
}

func detectCycle(start *Property) string {
	visited := map[*Property]int{} // 0=unvisited,1=in-progress,2=done
	var walk func(p *Property, path []string) string
	walk = func(p *Property, path []string) string {
		switch visited[p] {
		case 1:
			return fmt.Sprintf("cycle: %v -> %s", path, p.PrimaryName())
		case 2:
			return ""
		}
		visited[p] = 1
		path = append(path, p.PrimaryName())
		for _, e := range p.ExpandsTo {
			if msg := walk(e.Target, path); msg != "" {
				return msg
			}
		}
		visited[p] = 2
		return ""
	}
	return walk(start, nil)
}

func (b *builder) buildDatatype(rd rawDatatype, loc string) (*datatype.Datatype, error) {
	var u *unit.Unit
	if rd.Unit != "" {
		var ok bool
		u, ok = b.units[rd.Unit]
		if !ok {
			b.issues = append(b.issues, Issue{Kind: ErrUnknownUnit, Location: loc, Message: fmt.Sprintf("unit %q is not declared in spec.units", rd.Unit)})
			return nil, fmt.Errorf("unknown unit")
		}
	}

	switch rd.Type {
	case "bool":
		return datatype.NewBool(), nil
	case "integer":
		return datatype.NewInteger(rd.Min, rd.Max, u), nil
	case "float":
		return datatype.NewFloat(rd.Min, rd.Max, u), nil
	case "string":
		return datatype.NewString(rd.MinLength, rd.MaxLength, u), nil
	default:
		b.issues = append(b.issues, Issue{Kind: ErrInvalidDatatype, Location: loc, Message: fmt.Sprintf("unknown datatype %q", rd.Type)})
		return nil, fmt.Errorf("unknown datatype")
	}
}

func (b *builder) buildVersionedValues(raw []rawVersionedValue, loc, field string) ([]VersionedValue, bool) {
	out := make([]VersionedValue, 0, len(raw))
	ok := true
	for _, rv := range raw {
		from, err := version.Parse(rv.FromVersion)
		if err != nil {
			b.issues = append(b.issues, Issue{Kind: ErrBadVersion, Location: loc, Message: err.Error()})
			ok = false
			continue
		}
		var to version.Version
		if rv.ToVersion != "" {
			to, err = version.Parse(rv.ToVersion)
			if err != nil {
				b.issues = append(b.issues, Issue{Kind: ErrBadVersion, Location: loc, Message: err.Error()})
				ok = false
				continue
			}
		}
		vv := VersionedValue{Range: version.Range{From: from, To: to}, Value: rv.Value}
		for _, existing := range out {
			if existing.Range.Overlaps(vv.Range) {
				b.issues = append(b.issues, Issue{
					Kind:     ErrOverlappingVersionRanges,
					Location: loc,
					Message:  fmt.Sprintf("%s: overlapping version ranges", field),
				})
				ok = false
			}
		}
		out = append(out, vv)
	}
	return out, ok
}

func propertyLocation(rp rawProperty, index int) string {
	for _, n := range rp.Names {
		if n.Name != "" {
			return n.Name
		}
	}
	return fmt.Sprintf("properties[%d]", index)
}

// Package outcome defines the tagged result of validating a single property
// and the ordered map of such results returned by a validation run.
package outcome

import (
	"fmt"
	"strings"
)

// Kind is the closed tag of an Outcome. Exactly one applies per property.
type Kind int

const (
	// Valid means the value came from the caller (or from a forced
	// expansion) and passed every check.
	Valid Kind = iota
	// Default means no value was supplied and a schema default applied.
	Default
	// RecommendedDefault means no value was supplied, no default applied,
	// but a recommendation did — it is surfaced as the effective value.
	RecommendedDefault
	// Warn means the value is usable but flagged — see WarnKind.
	Warn
	// Error means the value (or its absence) violates the schema — see
	// ErrorKind.
	Error
)

func (k Kind) String() string {
	switch k {
	case Valid:
		return "Valid"
	case Default:
		return "Default"
	case RecommendedDefault:
		return "RecommendedDefault"
	case Warn:
		return "Warn"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// WarnKind enumerates the reasons an Outcome carries Kind == Warn.
type WarnKind string

const (
	WarnDeprecated           WarnKind = "Deprecated"
	WarnNotApplicableToRole  WarnKind = "NotApplicableToRole"
)

// ErrorKind enumerates the reasons an Outcome carries Kind == Error.
type ErrorKind string

const (
	ErrUnknownProperty     ErrorKind = "UnknownProperty"
	ErrInvalidType         ErrorKind = "InvalidType"
	ErrOutOfBounds         ErrorKind = "OutOfBounds"
	ErrUnitMismatch        ErrorKind = "UnitMismatch"
	ErrNotAllowed          ErrorKind = "NotAllowed"
	ErrVersionTooLow       ErrorKind = "VersionTooLow"
	ErrMissingRequired     ErrorKind = "MissingRequired"
	ErrConflictingExpansion ErrorKind = "ConflictingExpansion"
	ErrCyclicExpansion     ErrorKind = "CyclicExpansion"
)

// Outcome is the result of resolving one property for one validate() call.
type Outcome struct {
	Kind Kind

	// Value is the effective value, set for Valid, Default,
	// RecommendedDefault, and Warn.
	Value string

	WarnKind  WarnKind
	ErrorKind ErrorKind
	// Extra carries additional error kinds when more than one check failed
	// against the same property (e.g. a value that is both out of bounds
	// and not in allowed_values). ErrorKind holds the primary one.
	Extra []ErrorKind

	// OffendingValue is the value that failed validation, for Error
	// outcomes where no usable effective value exists.
	OffendingValue string

	// Recommended, when non-empty, is an advisory recommendation for this
	// property at the validated version — attached regardless of Kind,
	// except when Kind is already RecommendedDefault.
	Recommended string
	HasRecommended bool

	// Hidden marks a property whose role binding declares no_copy: it was
	// resolved and validated, but must not be copied to the target file.
	Hidden bool
}

// Entry pairs a property name with its Outcome, preserving the declared
// emission order.
type Entry struct {
	Name    string
	Outcome Outcome
}

// Map is an insertion-ordered collection of outcomes, keyed by property
// name. validate.Run fills it in this order: first the resolved entries
// (user-supplied names in input order, then expansion-introduced names in
// expansion order, then required-but-untriggered names in schema
// declaration order), then warning rows for properties with no resolved
// entry, then error rows in the order they were raised. A row for a name
// that is already present keeps that name's position, so a user-supplied
// name that resolves to no entry (unknown, not applicable to the role, or
// version too low) appears after all resolved entries, not at its input
// position.
type Map struct {
	entries []Entry
	index   map[string]int
}

// NewMap returns an empty, ready-to-use Map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Set appends or replaces the outcome for name, preserving the name's
// existing position if it is already present.
func (m *Map) Set(name string, o Outcome) {
	if i, ok := m.index[name]; ok {
		m.entries[i].Outcome = o
		return
	}
	m.index[name] = len(m.entries)
	m.entries = append(m.entries, Entry{Name: name, Outcome: o})
}

// Get returns the outcome for name, if present.
func (m *Map) Get(name string) (Outcome, bool) {
	i, ok := m.index[name]
	if !ok {
		return Outcome{}, false
	}
	return m.entries[i].Outcome, true
}

// Entries returns every entry in insertion order. The returned slice is the
// map's own backing slice, not a copy — callers should treat it as
// read-only.
func (m *Map) Entries() []Entry {
	return m.entries
}

// Len reports the number of entries in the map.
func (m *Map) Len() int { return len(m.entries) }

// String renders m as a fixed-width, human-readable table: one row per
// entry, showing its kind, effective value (or the value that failed), and
// the reason for any warning or error. Intended for terminal output, not
// for machine parsing — pkg/api and pkg/render have their own formats for
// that.
func (m *Map) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-40s %-20s %s\n", "PROPERTY", "KIND", "DETAIL")
	for _, e := range m.entries {
		detail := e.Outcome.Value
		switch e.Outcome.Kind {
		case Warn:
			detail = string(e.Outcome.WarnKind)
		case Error:
			detail = string(e.Outcome.ErrorKind)
			if e.Outcome.OffendingValue != "" {
				detail += fmt.Sprintf(" (got %q)", e.Outcome.OffendingValue)
			}
		}
		fmt.Fprintf(&b, "%-40s %-20s %s\n", e.Name, e.Outcome.Kind.String(), detail)
	}
	return b.String()
}

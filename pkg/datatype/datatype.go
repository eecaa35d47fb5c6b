// Package datatype implements the closed set of value datatypes a property
// can declare — bool, integer, float, string — and the bounds/unit/
// allowed-values checks applied to a candidate value against one.
package datatype

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/platinummonkey/propconf/pkg/unit"
)

// Kind is the closed tag of a Datatype. There are exactly four variants;
// callers switch on Kind rather than type-asserting.
type Kind int

const (
	KindBool Kind = iota
	KindInteger
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// ViolationKind enumerates the reasons a value can fail a Datatype check.
// These map directly onto outcome.ErrorKind values one layer up.
type ViolationKind string

const (
	ViolationInvalidType ViolationKind = "InvalidType"
	ViolationOutOfBounds ViolationKind = "OutOfBounds"
	ViolationUnitMismatch ViolationKind = "UnitMismatch"
	ViolationNotAllowed   ViolationKind = "NotAllowed"
)

// Violation is one failed check against a Datatype.
type Violation struct {
	Kind  ViolationKind
	Value string
}

// Datatype is an immutable, closed-variant value constraint. Bounds are kept
// as the original declared strings and parsed lazily at check time, matching
// how they arrive off the wire in the schema document.
type Datatype struct {
	Kind Kind

	// Integer/Float only.
	Min *string
	Max *string

	// String only.
	MinLength *int
	MaxLength *int

	// Integer/Float/String — nil if the datatype declares no unit.
	Unit *unit.Unit
}

// NewBool builds a bool datatype. Bools have no bounds or unit.
func NewBool() *Datatype { return &Datatype{Kind: KindBool} }

// NewInteger builds an integer datatype with optional bounds and unit.
func NewInteger(min, max *string, u *unit.Unit) *Datatype {
	return &Datatype{Kind: KindInteger, Min: min, Max: max, Unit: u}
}

// NewFloat builds a float datatype with optional bounds and unit.
func NewFloat(min, max *string, u *unit.Unit) *Datatype {
	return &Datatype{Kind: KindFloat, Min: min, Max: max, Unit: u}
}

// NewString builds a string datatype with optional length bounds and unit.
func NewString(minLen, maxLen *int, u *unit.Unit) *Datatype {
	return &Datatype{Kind: KindString, MinLength: minLen, MaxLength: maxLen, Unit: u}
}

// Validate checks value against dt and, separately, against allowedValues
// (if non-empty). It does not short-circuit on the first failure: when both
// a datatype-level violation and an allowed-values violation apply, both are
// returned, in the order [datatype violations..., allowed-values violation].
// The only short-circuit is that an InvalidType result suppresses the bounds
// and unit checks that would otherwise have nothing valid to operate on.
func Validate(dt *Datatype, allowedValues []string, value string) []Violation {
	var violations []Violation

	switch dt.Kind {
	case KindBool:
		if value != "true" && value != "false" {
			violations = append(violations, Violation{Kind: ViolationInvalidType, Value: value})
		}

	case KindInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			violations = append(violations, Violation{Kind: ViolationInvalidType, Value: value})
		} else {
			if outOfBounds := checkIntBounds(n, dt.Min, dt.Max); outOfBounds {
				violations = append(violations, Violation{Kind: ViolationOutOfBounds, Value: value})
			}
			if dt.Unit != nil && !dt.Unit.Matches(value) {
				violations = append(violations, Violation{Kind: ViolationUnitMismatch, Value: value})
			}
		}

	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			violations = append(violations, Violation{Kind: ViolationInvalidType, Value: value})
		} else {
			if outOfBounds := checkFloatBounds(f, dt.Min, dt.Max); outOfBounds {
				violations = append(violations, Violation{Kind: ViolationOutOfBounds, Value: value})
			}
			if dt.Unit != nil && !dt.Unit.Matches(value) {
				violations = append(violations, Violation{Kind: ViolationUnitMismatch, Value: value})
			}
		}

	case KindString:
		n := utf8.RuneCountInString(value)
		outOfBounds := false
		if dt.MinLength != nil && n < *dt.MinLength {
			outOfBounds = true
		}
		if dt.MaxLength != nil && n > *dt.MaxLength {
			outOfBounds = true
		}
		if outOfBounds {
			violations = append(violations, Violation{Kind: ViolationOutOfBounds, Value: value})
		}
		if dt.Unit != nil && !dt.Unit.Matches(value) {
			violations = append(violations, Violation{Kind: ViolationUnitMismatch, Value: value})
		}
	}

	if len(allowedValues) > 0 && !contains(allowedValues, value) {
		violations = append(violations, Violation{Kind: ViolationNotAllowed, Value: value})
	}

	return violations
}

func checkIntBounds(n int64, min, max *string) bool {
	if min != nil {
		if lo, err := strconv.ParseInt(*min, 10, 64); err == nil && n < lo {
			return true
		}
	}
	if max != nil {
		if hi, err := strconv.ParseInt(*max, 10, 64); err == nil && n > hi {
			return true
		}
	}
	return false
}

func checkFloatBounds(f float64, min, max *string) bool {
	if min != nil {
		if lo, err := strconv.ParseFloat(*min, 64); err == nil && f < lo {
			return true
		}
	}
	if max != nil {
		if hi, err := strconv.ParseFloat(*max, 64); err == nil && f > hi {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseBoundsError is returned by schema loading when a declared bound
// string cannot itself be parsed as the datatype's native numeric type.
type ParseBoundsError struct {
	Kind  Kind
	Field string
	Value string
}

func (e *ParseBoundsError) Error() string {
	return fmt.Sprintf("datatype %s: bound %s=%q is not a valid %s", e.Kind, e.Field, e.Value, e.Kind)
}

package schema

import (
	"fmt"
	"strings"
)

// ErrorKind enumerates the reasons a schema document can fail to load.
type ErrorKind string

const (
	ErrUnknownField             ErrorKind = "UnknownSchemaField"
	ErrBadVersion                ErrorKind = "BadVersion"
	ErrInvalidUnitRegex          ErrorKind = "InvalidUnitRegex"
	ErrUnknownUnit               ErrorKind = "UnknownUnit"
	ErrUnknownPropertyRef        ErrorKind = "UnknownPropertyRef"
	ErrOverlappingVersionRanges  ErrorKind = "OverlappingVersionRanges"
	ErrSchemaDefaultFailsValidation ErrorKind = "SchemaDefaultFailsValidation"
	ErrDeprecatedBeforeIntroduced ErrorKind = "DeprecatedBeforeIntroduced"
	ErrCyclicExpansion           ErrorKind = "CyclicExpansion"
	ErrDuplicatePropertyName     ErrorKind = "DuplicatePropertyName"
	ErrInvalidDatatype           ErrorKind = "InvalidDatatype"
)

// Issue is one invariant violation found while loading a schema document.
type Issue struct {
	Kind     ErrorKind
	Location string // a human-readable pointer: property name, unit name, etc.
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at %s: %s", i.Kind, i.Location, i.Message)
}

// LoadError aggregates every Issue found during Load. Schema authors see
// every problem in one pass instead of fixing issues one at a time.
type LoadError struct {
	Issues []Issue
}

func (e *LoadError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		lines[i] = issue.String()
	}
	return fmt.Sprintf("schema: %d issue(s):\n%s", len(e.Issues), strings.Join(lines, "\n"))
}

// HasKind reports whether any issue in the error matches kind.
func (e *LoadError) HasKind(kind ErrorKind) bool {
	for _, issue := range e.Issues {
		if issue.Kind == kind {
			return true
		}
	}
	return false
}

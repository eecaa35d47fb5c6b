package expand

import (
	"testing"

	"github.com/platinummonkey/propconf/pkg/outcome"
	"github.com/platinummonkey/propconf/pkg/schema"
	"github.com/platinummonkey/propconf/pkg/version"
)

func mustLoad(t *testing.T, doc string) *schema.Schema {
	t.Helper()
	s, err := schema.Load([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected schema load error: %v", err)
	}
	return s
}

const securityDoc = `
version: 1
spec:
  units: []
properties:
  - names:
      - name: ENV_ENABLE_SECURITY
        kind: env
    datatype:
      type: bool
    default_values:
      - from_version: "1.0.0"
        value: "false"
    roles:
      - role: worker
        no_copy: true
    as_of_version: "1.0.0"
    expands_to:
      - property_ref: ENV_SSL_ENABLED
        forced_value: "true"
      - property_ref: ENV_SSL_CERT_PATH
  - names:
      - name: ENV_SSL_ENABLED
        kind: env
    datatype:
      type: bool
    roles:
      - role: worker
    as_of_version: "1.0.0"
  - names:
      - name: ENV_SSL_CERT_PATH
        kind: env
    datatype:
      type: string
    default_values:
      - from_version: "1.0.0"
        value: "/etc/ssl/cert.pem"
    roles:
      - role: worker
    as_of_version: "1.0.0"
`

func TestExpansionForcedAndDefaulted(t *testing.T) {
	s := mustLoad(t, securityDoc)
	r := Run(s, "worker", version.MustParse("1.0.0"), []UserValue{
		{Name: "ENV_ENABLE_SECURITY", Value: "true"},
	})
	byName := map[string]Entry{}
	for _, e := range r.Entries {
		byName[e.Property.PrimaryName()] = e
	}
	sslEnabled, ok := byName["ENV_SSL_ENABLED"]
	if !ok || sslEnabled.Value != "true" || sslEnabled.Source != SourceExpansionForced {
		t.Fatalf("expected ENV_SSL_ENABLED forced to true, got %+v ok=%v", sslEnabled, ok)
	}
	sslCert, ok := byName["ENV_SSL_CERT_PATH"]
	if !ok || sslCert.Source != SourceExpansionDefault {
		t.Fatalf("expected ENV_SSL_CERT_PATH resolved from default, got %+v ok=%v", sslCert, ok)
	}
}

func TestNoCopyHiddenAppliedByRoleBinding(t *testing.T) {
	s := mustLoad(t, securityDoc)
	p, ok := s.Lookup("ENV_ENABLE_SECURITY")
	if !ok {
		t.Fatalf("expected property to resolve")
	}
	rb, ok := p.RoleBinding("worker")
	if !ok || !rb.NoCopy {
		t.Fatalf("expected no_copy role binding for worker")
	}
}

func TestUnknownPropertyDiagnostic(t *testing.T) {
	s := mustLoad(t, securityDoc)
	r := Run(s, "worker", version.MustParse("1.0.0"), []UserValue{
		{Name: "DOES_NOT_EXIST", Value: "x"},
	})
	if len(r.Errors) != 1 || r.Errors[0].ErrorKind != outcome.ErrUnknownProperty {
		t.Fatalf("expected UnknownProperty error, got %v", r.Errors)
	}
}

func TestConflictingExpansion(t *testing.T) {
	s := mustLoad(t, securityDoc)
	r := Run(s, "worker", version.MustParse("1.0.0"), []UserValue{
		{Name: "ENV_ENABLE_SECURITY", Value: "true"},
		{Name: "ENV_SSL_ENABLED", Value: "false"},
	})
	found := false
	for _, e := range r.Errors {
		if e.ErrorKind == outcome.ErrConflictingExpansion {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ConflictingExpansion, got %v", r.Errors)
	}
}

const requiredDoc = `
version: 1
spec:
  units: []
properties:
  - names:
      - name: MUST_HAVE
        kind: env
    datatype:
      type: bool
    roles:
      - role: worker
        required: true
    as_of_version: "1.0.0"
`

func TestMissingRequiredWithNoDefault(t *testing.T) {
	s := mustLoad(t, requiredDoc)
	r := Run(s, "worker", version.MustParse("1.0.0"), nil)
	if len(r.Errors) != 1 || r.Errors[0].ErrorKind != outcome.ErrMissingRequired {
		t.Fatalf("expected MissingRequired, got %v", r.Errors)
	}
}

const deprecatedDoc = `
version: 1
spec:
  units: []
properties:
  - names:
      - name: OLD_FLAG
        kind: env
    datatype:
      type: bool
    roles:
      - role: worker
    as_of_version: "1.0.0"
    deprecated_since: "2.0.0"
`

func TestDeprecatedWarning(t *testing.T) {
	s := mustLoad(t, deprecatedDoc)
	r := Run(s, "worker", version.MustParse("2.0.0"), []UserValue{{Name: "OLD_FLAG", Value: "true"}})
	found := false
	for _, w := range r.Warnings {
		if w.WarnKind == outcome.WarnDeprecated {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Deprecated warning, got %v", r.Warnings)
	}
	if len(r.Entries) != 1 || r.Entries[0].Value != "true" {
		t.Fatalf("expected deprecated property to still keep its value, got %v", r.Entries)
	}
}

func TestVersionTooLowDropsProperty(t *testing.T) {
	s := mustLoad(t, deprecatedDoc)
	r := Run(s, "worker", version.MustParse("0.5.0"), []UserValue{{Name: "OLD_FLAG", Value: "true"}})
	if len(r.Entries) != 0 {
		t.Fatalf("expected property introduced later to be dropped, got %v", r.Entries)
	}
	found := false
	for _, e := range r.Errors {
		if e.ErrorKind == outcome.ErrVersionTooLow {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected VersionTooLow error, got %v", r.Errors)
	}
}

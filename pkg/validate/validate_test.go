package validate

import (
	"testing"

	"github.com/platinummonkey/propconf/pkg/expand"
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

func TestValidateScenarioNoCopyHidden(t *testing.T) {
	s := mustLoad(t, securityDoc)
	m := Run(s, version.MustParse("1.0.0"), "worker", Target{Kind: TargetEnv}, []expand.UserValue{
		{Name: "ENV_ENABLE_SECURITY", Value: "true"},
	})

	sec, ok := m.Get("ENV_ENABLE_SECURITY")
	if !ok {
		t.Fatalf("expected ENV_ENABLE_SECURITY in outcome map")
	}
	if sec.Kind != outcome.Valid || !sec.Hidden {
		t.Fatalf("expected Valid+Hidden for ENV_ENABLE_SECURITY, got %+v", sec)
	}

	ssl, ok := m.Get("ENV_SSL_ENABLED")
	if !ok || ssl.Kind != outcome.Valid || ssl.Value != "true" {
		t.Fatalf("expected ENV_SSL_ENABLED Valid(true), got %+v ok=%v", ssl, ok)
	}

	cert, ok := m.Get("ENV_SSL_CERT_PATH")
	if !ok || cert.Kind != outcome.Default || cert.Value != "/etc/ssl/cert.pem" {
		t.Fatalf("expected ENV_SSL_CERT_PATH Default, got %+v ok=%v", cert, ok)
	}
}

const boundsDoc = `
version: 1
spec:
  units: []
properties:
  - names:
      - name: MAX_CONNECTIONS
        kind: env
    datatype:
      type: integer
      min: "1"
      max: "100"
    roles:
      - role: worker
    as_of_version: "1.0.0"
`

func TestValidateOutOfBounds(t *testing.T) {
	s := mustLoad(t, boundsDoc)
	m := Run(s, version.MustParse("1.0.0"), "worker", Target{Kind: TargetEnv}, []expand.UserValue{
		{Name: "MAX_CONNECTIONS", Value: "500"},
	})
	o, ok := m.Get("MAX_CONNECTIONS")
	if !ok || o.Kind != outcome.Error || o.ErrorKind != outcome.ErrOutOfBounds {
		t.Fatalf("expected Error(OutOfBounds), got %+v ok=%v", o, ok)
	}
	if o.OffendingValue != "500" {
		t.Fatalf("expected offending value recorded, got %q", o.OffendingValue)
	}
}

const fileTargetDoc = `
version: 1
spec:
  units: []
properties:
  - names:
      - name: ENV_PORT
        kind: env
      - name: server.port
        kind: file
        file: application.properties
    datatype:
      type: integer
      min: "1"
      max: "65535"
    roles:
      - role: worker
    as_of_version: "1.0.0"
`

func TestValidateFileTargetProjection(t *testing.T) {
	s := mustLoad(t, fileTargetDoc)
	uv := []expand.UserValue{{Name: "ENV_PORT", Value: "8080"}}

	envMap := Run(s, version.MustParse("1.0.0"), "worker", Target{Kind: TargetEnv}, uv)
	if _, ok := envMap.Get("ENV_PORT"); !ok {
		t.Fatalf("expected env target to include ENV_PORT")
	}
	if _, ok := envMap.Get("server.port"); ok {
		t.Fatalf("did not expect env target to include file-scoped name")
	}

	fileMap := Run(s, version.MustParse("1.0.0"), "worker", Target{Kind: TargetFile, File: "application.properties"}, uv)
	if _, ok := fileMap.Get("server.port"); !ok {
		t.Fatalf("expected file target to include server.port")
	}
	if _, ok := fileMap.Get("ENV_PORT"); ok {
		t.Fatalf("did not expect file target to include env name")
	}
}

const deprecatedDoc = `
version: 1
spec:
  units: []
properties:
  - names:
      - name: ENV_MAX_HEAP
        kind: env
    datatype:
      type: string
    roles:
      - role: worker
    as_of_version: "1.0.0"
    deprecated_since: "1.1.0"
`

// TestValidateDeprecatedPropertyKeepsValue is scenario S5: a deprecated
// property with a resolved value must surface as Warn(Deprecated, value),
// not as a plain Valid outcome with the warning silently dropped.
func TestValidateDeprecatedPropertyKeepsValue(t *testing.T) {
	s := mustLoad(t, deprecatedDoc)
	m := Run(s, version.MustParse("1.1.0"), "worker", Target{Kind: TargetEnv}, []expand.UserValue{
		{Name: "ENV_MAX_HEAP", Value: "100mb"},
	})
	o, ok := m.Get("ENV_MAX_HEAP")
	if !ok {
		t.Fatalf("expected ENV_MAX_HEAP to be present")
	}
	if o.Kind != outcome.Warn || o.WarnKind != outcome.WarnDeprecated {
		t.Fatalf("expected Warn(Deprecated), got %+v", o)
	}
	if o.Value != "100mb" {
		t.Fatalf("expected deprecated property to keep its resolved value, got %q", o.Value)
	}
}

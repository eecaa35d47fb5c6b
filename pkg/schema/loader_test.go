package schema

import "testing"

func TestLoadValidSchema(t *testing.T) {
	doc := []byte(`
version: 1
spec:
  units:
    - name: duration
      regex: "^\\d+(ms|s|m|h)$"
      examples: ["500ms"]
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
        required: true
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
  - names:
      - name: REQUEST_TIMEOUT
        kind: env
    datatype:
      type: integer
      min: "1"
      max: "60000"
      unit: duration
    roles:
      - role: worker
        required: false
    as_of_version: "1.0.0"
`)
	s, err := Load(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(s.Properties))
	}
	p, ok := s.Lookup("ENV_ENABLE_SECURITY")
	if !ok {
		t.Fatalf("expected ENV_ENABLE_SECURITY to be registered")
	}
	if len(p.ExpandsTo) != 2 {
		t.Fatalf("expected 2 expansions, got %d", len(p.ExpandsTo))
	}
	if p.ExpandsTo[0].Target.PrimaryName() != "ENV_SSL_ENABLED" {
		t.Fatalf("expected first expansion to resolve to ENV_SSL_ENABLED")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	doc := []byte(`
version: 1
spec:
  units: []
properties:
  - names:
      - name: X
        kind: env
    datatype:
      type: bool
    as_of_version: "1.0.0"
    bogus_field: true
`)
	_, err := Load(doc)
	if err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestLoadRejectsUnknownUnit(t *testing.T) {
	doc := []byte(`
version: 1
spec:
  units: []
properties:
  - names:
      - name: X
        kind: env
    datatype:
      type: integer
      unit: does_not_exist
    as_of_version: "1.0.0"
`)
	_, err := Load(doc)
	le, ok := err.(*LoadError)
	if !ok || !le.HasKind(ErrUnknownUnit) {
		t.Fatalf("expected UnknownUnit, got %v", err)
	}
}

func TestLoadRejectsOverlappingVersionRanges(t *testing.T) {
	doc := []byte(`
version: 1
spec:
  units: []
properties:
  - names:
      - name: X
        kind: env
    datatype:
      type: bool
    as_of_version: "1.0.0"
    default_values:
      - from_version: "1.0.0"
        to_version: "2.0.0"
        value: "true"
      - from_version: "1.5.0"
        value: "false"
`)
	_, err := Load(doc)
	le, ok := err.(*LoadError)
	if !ok || !le.HasKind(ErrOverlappingVersionRanges) {
		t.Fatalf("expected OverlappingVersionRanges, got %v", err)
	}
}

func TestLoadRejectsDefaultFailingOwnValidation(t *testing.T) {
	doc := []byte(`
version: 1
spec:
  units: []
properties:
  - names:
      - name: X
        kind: env
    datatype:
      type: integer
      min: "10"
      max: "20"
    as_of_version: "1.0.0"
    default_values:
      - from_version: "1.0.0"
        value: "999"
`)
	_, err := Load(doc)
	le, ok := err.(*LoadError)
	if !ok || !le.HasKind(ErrSchemaDefaultFailsValidation) {
		t.Fatalf("expected SchemaDefaultFailsValidation, got %v", err)
	}
}

func TestLoadRejectsRecommendedFailingOwnValidation(t *testing.T) {
	doc := []byte(`
version: 1
spec:
  units: []
properties:
  - names:
      - name: X
        kind: env
    datatype:
      type: integer
      min: "10"
      max: "20"
    as_of_version: "1.0.0"
    recommended_values:
      - from_version: "1.0.0"
        value: "999"
`)
	_, err := Load(doc)
	le, ok := err.(*LoadError)
	if !ok || !le.HasKind(ErrSchemaDefaultFailsValidation) {
		t.Fatalf("expected SchemaDefaultFailsValidation, got %v", err)
	}
}

func TestLoadRejectsAllowedValueFailingOwnValidation(t *testing.T) {
	doc := []byte(`
version: 1
spec:
  units: []
properties:
  - names:
      - name: X
        kind: env
    datatype:
      type: integer
      min: "10"
      max: "20"
    allowed_values: ["15", "999"]
    as_of_version: "1.0.0"
`)
	_, err := Load(doc)
	le, ok := err.(*LoadError)
	if !ok || !le.HasKind(ErrSchemaDefaultFailsValidation) {
		t.Fatalf("expected SchemaDefaultFailsValidation, got %v", err)
	}
}

func TestLoadRejectsForcedValueFailingTargetValidation(t *testing.T) {
	doc := []byte(`
version: 1
spec:
  units: []
properties:
  - names:
      - name: A
        kind: env
    datatype:
      type: bool
    as_of_version: "1.0.0"
    expands_to:
      - property_ref: B
        forced_value: "not-a-bool"
  - names:
      - name: B
        kind: env
    datatype:
      type: bool
    as_of_version: "1.0.0"
`)
	_, err := Load(doc)
	le, ok := err.(*LoadError)
	if !ok || !le.HasKind(ErrSchemaDefaultFailsValidation) {
		t.Fatalf("expected SchemaDefaultFailsValidation, got %v", err)
	}
}

func TestLoadRejectsCyclicExpansion(t *testing.T) {
	doc := []byte(`
version: 1
spec:
  units: []
properties:
  - names:
      - name: A
        kind: env
    datatype:
      type: bool
    as_of_version: "1.0.0"
    expands_to:
      - property_ref: B
  - names:
      - name: B
        kind: env
    datatype:
      type: bool
    as_of_version: "1.0.0"
    expands_to:
      - property_ref: A
`)
	_, err := Load(doc)
	le, ok := err.(*LoadError)
	if !ok || !le.HasKind(ErrCyclicExpansion) {
		t.Fatalf("expected CyclicExpansion, got %v", err)
	}
}

func TestLoadRejectsDeprecatedBeforeIntroduced(t *testing.T) {
	doc := []byte(`
version: 1
spec:
  units: []
properties:
  - names:
      - name: X
        kind: env
    datatype:
      type: bool
    as_of_version: "2.0.0"
    deprecated_since: "1.0.0"
`)
	_, err := Load(doc)
	le, ok := err.(*LoadError)
	if !ok || !le.HasKind(ErrDeprecatedBeforeIntroduced) {
		t.Fatalf("expected DeprecatedBeforeIntroduced, got %v", err)
	}
}

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/platinummonkey/propconf/pkg/validate"
)

const validateTestSchema = `
version: 1
spec:
  units: []
properties:
  - names:
      - name: ENV_REQUEST_TIMEOUT
        kind: env
    datatype:
      type: integer
      min: "1"
      max: "60000"
    default_values:
      - from_version: "1.0.0"
        value: "5000"
    roles:
      - role: worker
    as_of_version: "1.0.0"
`

func writeTestSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, []byte(validateTestSchema), 0644); err != nil {
		t.Fatalf("write schema fixture: %v", err)
	}
	return path
}

func TestRunValidate_DefaultsOnly(t *testing.T) {
	schemaPath := writeTestSchema(t)

	err := runValidate([]string{
		"-schema", schemaPath,
		"-version", "1.2.0",
		"-role", "worker",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunValidate_OutOfBoundsValue(t *testing.T) {
	schemaPath := writeTestSchema(t)
	valuesPath := filepath.Join(t.TempDir(), "values.txt")
	if err := os.WriteFile(valuesPath, []byte("ENV_REQUEST_TIMEOUT=70000\n"), 0644); err != nil {
		t.Fatalf("write values fixture: %v", err)
	}

	err := runValidate([]string{
		"-schema", schemaPath,
		"-values", valuesPath,
		"-version", "1.2.0",
		"-role", "worker",
	})
	if err == nil {
		t.Fatal("expected validation error for an out-of-bounds value")
	}
}

func TestRunValidate_MissingSchemaFlag(t *testing.T) {
	err := runValidate([]string{"-version", "1.2.0"})
	if err == nil {
		t.Fatal("expected error when -schema is omitted")
	}
}

func TestRunValidate_MissingVersionFlag(t *testing.T) {
	schemaPath := writeTestSchema(t)
	err := runValidate([]string{"-schema", schemaPath})
	if err == nil {
		t.Fatal("expected error when -version is omitted")
	}
}

func TestRunValidate_InvalidVersion(t *testing.T) {
	schemaPath := writeTestSchema(t)
	err := runValidate([]string{"-schema", schemaPath, "-version", "not-a-version"})
	if err == nil {
		t.Fatal("expected error for an unparseable -version")
	}
}

func TestLoadValuesFile_EmptyPath(t *testing.T) {
	values, err := loadValuesFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected no values, got %v", values)
	}
}

func TestLoadValuesFile_SkipsBlankLinesAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.txt")
	content := "# a comment\n\nENV_REQUEST_TIMEOUT=1000\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	values, err := loadValuesFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 1 || values[0].Name != "ENV_REQUEST_TIMEOUT" || values[0].Value != "1000" {
		t.Fatalf("unexpected values: %+v", values)
	}
}

func TestLoadValuesFile_MalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.txt")
	if err := os.WriteFile(path, []byte("not-a-kv-pair\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := loadValuesFile(path); err == nil {
		t.Fatal("expected error for a malformed values line")
	}
}

func TestParseTarget(t *testing.T) {
	target, err := parseTarget("env")
	if err != nil || target.Kind != validate.TargetEnv {
		t.Fatalf("parseTarget(env) = %+v, %v", target, err)
	}

	target, err = parseTarget("")
	if err != nil || target.Kind != validate.TargetEnv {
		t.Fatalf("parseTarget(\"\") = %+v, %v", target, err)
	}

	target, err = parseTarget("file:app.properties")
	if err != nil || target.Kind != validate.TargetFile || target.File != "app.properties" {
		t.Fatalf("parseTarget(file:...) = %+v, %v", target, err)
	}

	if _, err := parseTarget("file:"); err == nil {
		t.Fatal("expected error for file: with no file name")
	}

	if _, err := parseTarget("bogus"); err == nil {
		t.Fatal("expected error for an unrecognized target")
	}
}

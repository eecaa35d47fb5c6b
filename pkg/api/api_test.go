package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/propconf/pkg/observability"
	"github.com/platinummonkey/propconf/pkg/registry"
)

const testSchemaYAML = `
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

func newTestServer(t *testing.T) (*Server, registry.Registry) {
	t.Helper()
	store, err := registry.NewFileSystemRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger := observability.NewLogger(observability.InfoLevel, bytes.NewBuffer(nil))
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := NewServer(store, metrics, logger, Options{})
	return s, store
}

func TestHandlePutAndGetSchema(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/schemas/worker/1.0.0", bytes.NewBufferString(testSchemaYAML))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/v1/schemas/worker/1.0.0", nil)
	getRec := httptest.NewRecorder()
	s.ServeHTTP(getRec, getReq)

	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
	if getRec.Body.Len() == 0 {
		t.Fatal("expected non-empty schema body")
	}
}

func TestHandlePutSchemaRejectsInvalidDocument(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/schemas/worker/1.0.0", bytes.NewBufferString("not: valid: yaml: schema"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 400 or 422, got %d", rec.Code)
	}
}

func TestHandleListSchemaVersionsNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/schemas/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleValidate(t *testing.T) {
	s, _ := newTestServer(t)

	putReq := httptest.NewRequest(http.MethodPut, "/v1/schemas/worker/1.0.0", bytes.NewBufferString(testSchemaYAML))
	putRec := httptest.NewRecorder()
	s.ServeHTTP(putRec, putReq)
	if putRec.Code != http.StatusCreated {
		t.Fatalf("setup: expected 201, got %d: %s", putRec.Code, putRec.Body.String())
	}

	body, _ := json.Marshal(validateRequest{
		SchemaRef:      "worker@latest",
		ProductVersion: "1.2.0",
		Role:           "worker",
		Values: []valueInput{
			{Name: "ENV_REQUEST_TIMEOUT", Value: "10000"},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/validate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp validateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Valid {
		t.Errorf("expected valid result, got %+v", resp)
	}
	if len(resp.Properties) != 1 {
		t.Errorf("expected 1 property outcome, got %d", len(resp.Properties))
	}
}

func TestHandleValidateMissingSchema(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(validateRequest{
		SchemaRef:      "unknown",
		ProductVersion: "1.0.0",
		Role:           "worker",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/validate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleValidateRequiresFields(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/validate", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

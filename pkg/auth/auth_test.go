package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupMappingRoleFor(t *testing.T) {
	m := GroupMapping{"platform-team": "admin", "readers": "viewer"}

	assert.Equal(t, "admin", m.RoleFor([]string{"other", "platform-team"}))
	assert.Equal(t, "", m.RoleFor([]string{"nobody"}))
	assert.Equal(t, "", m.RoleFor(nil))
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/schemas/worker/1.0.0", nil)

	_, err := bearerToken(r)
	assert.Error(t, err, "missing header should fail")

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err = bearerToken(r)
	assert.Error(t, err, "non-bearer scheme should fail")

	r.Header.Set("Authorization", "Bearer ")
	_, err = bearerToken(r)
	assert.Error(t, err, "empty token should fail")

	r.Header.Set("Authorization", "Bearer abc123")
	token, err := bearerToken(r)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

type stubVerifier struct {
	principal *Principal
	err       error
}

func (s *stubVerifier) Authenticate(r *http.Request) (*Principal, error) {
	return s.principal, s.err
}

func TestRequireRoleRejectsUnauthenticated(t *testing.T) {
	v := &stubVerifier{err: assert.AnError}
	handler := RequireRole(v, "admin", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/schemas/worker/1.0.0", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleRejectsWrongRole(t *testing.T) {
	v := &stubVerifier{principal: &Principal{Subject: "alice", Role: "viewer"}}
	handler := RequireRole(v, "admin", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/schemas/worker/1.0.0", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	v := &stubVerifier{principal: &Principal{Subject: "alice", Role: "admin"}}
	called := false
	handler := RequireRole(v, "admin", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/schemas/worker/1.0.0", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewOIDCVerifierRequiresIssuerAndClient(t *testing.T) {
	_, err := NewOIDCVerifier(context.Background(), OIDCConfig{})
	assert.Error(t, err)

	_, err = NewOIDCVerifier(context.Background(), OIDCConfig{IssuerURL: "https://idp.example.com"})
	assert.Error(t, err)
}

func TestNewSAMLVerifierRequiresCertificate(t *testing.T) {
	_, err := NewSAMLVerifier(SAMLConfig{})
	assert.Error(t, err)

	_, err = NewSAMLVerifier(SAMLConfig{Certificate: "not pem"})
	assert.Error(t, err)
}

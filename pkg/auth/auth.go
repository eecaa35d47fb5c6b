// Package auth protects the registry's publish endpoint with bearer-token
// verification against an OpenID Connect provider or, through the separate
// SAMLVerifier, with a SAML assertion carried in a request header for
// identity providers that only speak SAML. It is a narrowed descendant of the wider SSO
// integration used elsewhere in this codebase: no login redirects, no
// session cookies, no JIT provisioning — just "does this request carry
// proof of an identity permitted to publish."
package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Principal is the authenticated caller of a registry operation.
type Principal struct {
	Subject string
	Email   string
	Groups  []string
	Role    string
}

// Verifier authenticates an inbound HTTP request and returns the caller's
// Principal, or an error if the request carries no valid credential.
type Verifier interface {
	Authenticate(r *http.Request) (*Principal, error)
}

// GroupMapping maps an identity provider's group names to propconf roles.
// The first of the token's own groups, in the order the token lists them,
// that has a mapping wins; RoleBindings in a schema compare against the result.
type GroupMapping map[string]string

// RoleFor returns the propconf role for the first of groups that appears in
// m, or "" if none match.
func (m GroupMapping) RoleFor(groups []string) string {
	for _, g := range groups {
		if role, ok := m[g]; ok {
			return role
		}
	}
	return ""
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("auth: missing Authorization header")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", fmt.Errorf("auth: Authorization header is not a bearer token")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", fmt.Errorf("auth: empty bearer token")
	}
	return token, nil
}

// RequireRole wraps next so that it only runs when the request
// authenticates via verifier and the resulting Principal holds role.
func RequireRole(verifier Verifier, role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := verifier.Authenticate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		if principal.Role != role {
			http.Error(w, fmt.Sprintf("auth: role %q is required", role), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

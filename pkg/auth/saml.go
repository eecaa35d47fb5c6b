package auth

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"

	saml2 "github.com/russellhaering/gosaml2"
	dsig "github.com/russellhaering/goxmldsig"
)

// SAMLConfig configures assertion validation for identity providers that
// only speak SAML 2.0. The registry never drives the browser redirect
// dance: callers obtain a signed assertion out of band (typically an
// IdP-initiated SSO flow) and present it base64-encoded in the
// X-Propconf-SAML-Assertion header.
type SAMLConfig struct {
	IdentityProviderIssuer string
	Audience               string
	Certificate            string // PEM encoded IdP signing certificate
	GroupsAttribute        string
	Groups                 GroupMapping
}

// SAMLVerifier authenticates requests carrying a signed SAML assertion.
type SAMLVerifier struct {
	config SAMLConfig
	sp     *saml2.SAMLServiceProvider
}

// NewSAMLVerifier parses cfg.Certificate and builds a verifier for it.
func NewSAMLVerifier(cfg SAMLConfig) (*SAMLVerifier, error) {
	if cfg.Certificate == "" {
		return nil, fmt.Errorf("auth: certificate is required")
	}

	block, _ := pem.Decode([]byte(cfg.Certificate))
	if block == nil {
		return nil, fmt.Errorf("auth: failed to decode certificate PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parse certificate: %w", err)
	}

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderIssuer: cfg.IdentityProviderIssuer,
		AudienceURI:            cfg.Audience,
		IDPCertificateStore: &dsig.MemoryX509CertificateStore{
			Roots: []*x509.Certificate{cert},
		},
	}

	return &SAMLVerifier{config: cfg, sp: sp}, nil
}

const samlAssertionHeader = "X-Propconf-SAML-Assertion"

// Authenticate validates the assertion carried in the request's
// X-Propconf-SAML-Assertion header and maps it to a Principal.
func (v *SAMLVerifier) Authenticate(r *http.Request) (*Principal, error) {
	encoded := r.Header.Get(samlAssertionHeader)
	if encoded == "" {
		return nil, fmt.Errorf("auth: missing %s header", samlAssertionHeader)
	}

	assertionBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("auth: decode SAML assertion: %w", err)
	}

	info, err := v.sp.RetrieveAssertionInfo(string(assertionBytes))
	if err != nil {
		return nil, fmt.Errorf("auth: validate SAML assertion: %w", err)
	}
	if info.WarningInfo != nil {
		if info.WarningInfo.InvalidTime {
			return nil, fmt.Errorf("auth: SAML assertion has invalid time")
		}
		if info.WarningInfo.NotInAudience {
			return nil, fmt.Errorf("auth: SAML assertion not in expected audience")
		}
	}

	principal := &Principal{Subject: info.NameID}
	if v.config.GroupsAttribute != "" {
		for _, attr := range info.Values {
			if attr.Name != v.config.GroupsAttribute {
				continue
			}
			for _, val := range attr.Values {
				principal.Groups = append(principal.Groups, val.Value)
			}
		}
	}
	principal.Role = v.config.Groups.RoleFor(principal.Groups)

	return principal, nil
}

var _ Verifier = (*SAMLVerifier)(nil)

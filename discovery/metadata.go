package discovery

import (
	"strings"

	"github.com/pkg/errors"
)

// ProviderMetadata is the subset of the provider configuration document that
// relying parties need to verify tokens.
//
// https://openid.net/specs/openid-connect-discovery-1_0.html#ProviderMetadata
type ProviderMetadata struct {
	// REQUIRED. Must be identical to the iss claim in tokens from this
	// provider.
	Issuer string `json:"issuer,omitempty"`
	// REQUIRED.
	AuthorizationEndpoint string `json:"authorization_endpoint,omitempty"`
	// REQUIRED unless only the implicit flow is used.
	TokenEndpoint string `json:"token_endpoint,omitempty"`
	// RECOMMENDED.
	UserinfoEndpoint string `json:"userinfo_endpoint,omitempty"`
	// REQUIRED. URL of the provider's JSON Web Key Set document.
	JWKSURI string `json:"jwks_uri,omitempty"`

	ScopesSupported []string `json:"scopes_supported,omitempty"`
	// REQUIRED.
	ResponseTypesSupported []string `json:"response_types_supported,omitempty"`
	GrantTypesSupported    []string `json:"grant_types_supported,omitempty"`
	ACRValuesSupported     []string `json:"acr_values_supported,omitempty"`
	// REQUIRED.
	SubjectTypesSupported []string `json:"subject_types_supported,omitempty"`

	// REQUIRED. The JWS algs the provider may sign ID tokens with. RS256 must
	// be included. "none" may be listed, but is never accepted by a verifier.
	IDTokenSigningAlgValuesSupported    []string `json:"id_token_signing_alg_values_supported,omitempty"`
	IDTokenEncryptionAlgValuesSupported []string `json:"id_token_encryption_alg_values_supported,omitempty"`
	IDTokenEncryptionEncValuesSupported []string `json:"id_token_encryption_enc_values_supported,omitempty"`

	// The JWS algs the provider may sign user info responses with, if signed
	// responses are supported.
	UserinfoSigningAlgValuesSupported    []string `json:"userinfo_signing_alg_values_supported,omitempty"`
	UserinfoEncryptionAlgValuesSupported []string `json:"userinfo_encryption_alg_values_supported,omitempty"`
	UserinfoEncryptionEncValuesSupported []string `json:"userinfo_encryption_enc_values_supported,omitempty"`

	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	ClaimsSupported                   []string `json:"claims_supported,omitempty"`
}

func (p *ProviderMetadata) validate() error {
	var errs []string

	aestr := func(val, e string) {
		if val == "" {
			errs = append(errs, e)
		}
	}

	aessl := func(val []string, e string) {
		if len(val) == 0 {
			errs = append(errs, e)
		}
	}

	aestr(p.Issuer, "Issuer is required")
	aestr(p.AuthorizationEndpoint, "AuthorizationEndpoint is required")
	aestr(p.JWKSURI, "JWKSURI is required")
	aessl(p.ResponseTypesSupported, "ResponseTypes supported is required")
	aessl(p.SubjectTypesSupported, "Subject Identifier Types are required")
	aessl(p.IDTokenSigningAlgValuesSupported, "IDTokenSigningAlgValuesSupported are required")

	if p.TokenEndpoint == "" {
		if len(p.GrantTypesSupported) != 1 || p.GrantTypesSupported[0] != "implicit" {
			errs = append(errs, "TokenEndpoint is required when we're not implicit-only")
		}
	}

	if len(errs) > 0 {
		return errors.Errorf("invalid provider metadata: %s", strings.Join(errs, ", "))
	}
	return nil
}

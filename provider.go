package oidcverify

import (
	"context"
	"fmt"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/pardot/oidcverify/discovery"
)

// Provider builds verifiers from an OIDC provider's published metadata and
// keys.
type Provider struct {
	md *discovery.ProviderMetadata
	ks KeySource
}

// DiscoverProvider fetches the metadata for issuer. The issuer in the
// metadata must equal issuer exactly.
func DiscoverProvider(ctx context.Context, issuer string, opts ...discovery.ClientOpt) (*Provider, error) {
	cl, err := discovery.NewClient(ctx, issuer, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating discovery client: %w", err)
	}

	return &Provider{
		md: cl.Metadata(),
		ks: cl,
	}, nil
}

// NewProvider returns a Provider for already known metadata and keys.
func NewProvider(md *discovery.ProviderMetadata, keySource KeySource) *Provider {
	return &Provider{
		md: md,
		ks: keySource,
	}
}

// Metadata returns the provider metadata.
func (p *Provider) Metadata() *discovery.ProviderMetadata {
	return p.md
}

// IDTokenVerifier fetches the provider's current keys and returns a verifier
// for ID tokens issued to clientID. The allowed algorithms are the provider's
// id_token_signing_alg_values_supported. If clientSecret is empty the client
// is public and MAC signed tokens are rejected.
//
// The keys are fetched once. Build a new verifier to pick up rotated keys.
func (p *Provider) IDTokenVerifier(ctx context.Context, clientID, clientSecret string, opts ...IDTokenOpt) (*IDTokenVerifier, error) {
	keys, err := p.ks.PublicKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching keys: %w", err)
	}

	copts := []ClaimsOpt{}
	if algs := signingAlgs(p.md.IDTokenSigningAlgValuesSupported); len(algs) > 0 {
		copts = append(copts, WithAllowedAlgs(algs...))
	}
	if clientSecret != "" {
		copts = append(copts, WithClientSecret(clientSecret))
	}

	cv := NewClaimsVerifier(clientID, p.md.Issuer, *keys, copts...)
	return newIDTokenVerifier(cv, opts...), nil
}

// UserInfoVerifier fetches the provider's current keys and returns a verifier
// for signed user info responses. The allowed algorithms are the provider's
// userinfo_signing_alg_values_supported, it is an error if the provider
// doesn't advertise any.
func (p *Provider) UserInfoVerifier(ctx context.Context, clientID, clientSecret, expectedSubject string, opts ...ClaimsOpt) (*UserInfoVerifier, error) {
	algs := signingAlgs(p.md.UserinfoSigningAlgValuesSupported)
	if len(algs) == 0 {
		return nil, fmt.Errorf("provider %s does not advertise signed user info responses", p.md.Issuer)
	}

	keys, err := p.ks.PublicKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching keys: %w", err)
	}

	copts := []ClaimsOpt{WithAllowedAlgs(algs...)}
	if clientSecret != "" {
		copts = append(copts, WithClientSecret(clientSecret))
	}
	copts = append(copts, opts...)

	return NewUserInfoVerifier(clientID, p.md.Issuer, *keys, expectedSubject, copts...), nil
}

// signingAlgs converts advertised algorithm names, dropping "none".
func signingAlgs(advertised []string) []jose.SignatureAlgorithm {
	var algs []jose.SignatureAlgorithm
	for _, a := range advertised {
		if a == algNone {
			continue
		}
		algs = append(algs, jose.SignatureAlgorithm(a))
	}
	return algs
}

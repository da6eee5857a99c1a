package main

import (
	"context"
	"encoding/json"
	"io/ioutil"

	"github.com/ghodss/yaml"
	jose "github.com/go-jose/go-jose/v3"
	"github.com/pardot/oidcverify"
	"github.com/pardot/oidcverify/discovery"
	"github.com/pkg/errors"
)

// Config holds the verification settings. It can be loaded from YAML, the
// keys match the flag names with underscores.
type Config struct {
	Issuer       string `json:"issuer"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	// JWKSFile and Discover are the two ways to get keys, Discover wins if
	// both are set.
	JWKSFile string `json:"jwks_file"`
	Discover bool   `json:"discover"`

	AllowedAlgs      []string `json:"allowed_algs"`
	AnyAlg           bool     `json:"any_alg"`
	TrustedAudiences []string `json:"trusted_audiences"`

	InsecureSkipSignatureCheck bool `json:"insecure_skip_signature_check"`

	// ID token settings
	Nonce          string `json:"nonce"`
	SkipNonceCheck bool   `json:"skip_nonce_check"`

	// User info settings
	ExpectedSubject string `json:"expected_subject"`
}

func loadConfig(path string) (*Config, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Error reading %s", path)
	}

	c := &Config{}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "Error parsing %s", path)
	}

	return c, nil
}

// mergeConfig overlays the flags that were explicitly set onto the file
// config.
func mergeConfig(file, flags Config, changed func(name string) bool) Config {
	out := file

	if changed("issuer") {
		out.Issuer = flags.Issuer
	}
	if changed("client-id") {
		out.ClientID = flags.ClientID
	}
	if changed("client-secret") {
		out.ClientSecret = flags.ClientSecret
	}
	if changed("jwks-file") {
		out.JWKSFile = flags.JWKSFile
	}
	if changed("discover") {
		out.Discover = flags.Discover
	}
	if changed("alg") {
		out.AllowedAlgs = flags.AllowedAlgs
	}
	if changed("any-alg") {
		out.AnyAlg = flags.AnyAlg
	}
	if changed("trusted-audience") {
		out.TrustedAudiences = flags.TrustedAudiences
	}
	if changed("insecure-skip-signature-check") {
		out.InsecureSkipSignatureCheck = flags.InsecureSkipSignatureCheck
	}
	if changed("nonce") {
		out.Nonce = flags.Nonce
	}
	if changed("skip-nonce-check") {
		out.SkipNonceCheck = flags.SkipNonceCheck
	}
	if changed("expected-subject") {
		out.ExpectedSubject = flags.ExpectedSubject
	}

	return out
}

// provider returns the provider to build verifiers from, either discovered
// or assembled from the config and JWKS file.
func (c *Config) provider(ctx context.Context) (*oidcverify.Provider, error) {
	if c.Discover {
		if c.Issuer == "" {
			return nil, errors.New("issuer is required for discovery")
		}
		p, err := oidcverify.DiscoverProvider(ctx, c.Issuer, discovery.WithLogger(logger))
		if err != nil {
			return nil, errors.Wrap(err, "discovering provider")
		}
		return p, nil
	}

	ks := jose.JSONWebKeySet{}
	switch {
	case c.JWKSFile != "":
		b, err := ioutil.ReadFile(c.JWKSFile)
		if err != nil {
			return nil, errors.Wrapf(err, "Error reading %s", c.JWKSFile)
		}
		if err := json.Unmarshal(b, &ks); err != nil {
			return nil, errors.Wrapf(err, "Error parsing JWKS %s", c.JWKSFile)
		}
	case c.InsecureSkipSignatureCheck:
		// no keys needed
	case c.ClientSecret == "":
		return nil, errors.New("one of discover, jwks_file or client_secret is required")
	}

	algs := c.AllowedAlgs
	if len(algs) == 0 {
		algs = []string{string(jose.RS256)}
	}

	return oidcverify.NewProvider(&discovery.ProviderMetadata{
		Issuer:                            c.Issuer,
		IDTokenSigningAlgValuesSupported:  algs,
		UserinfoSigningAlgValuesSupported: algs,
	}, oidcverify.NewStaticKeysource(ks)), nil
}

// claimsOpts are the options common to both verifiers.
func (c *Config) claimsOpts() []oidcverify.ClaimsOpt {
	opts := []oidcverify.ClaimsOpt{oidcverify.WithLogger(logger)}

	if c.Discover && len(c.AllowedAlgs) > 0 {
		algs := make([]jose.SignatureAlgorithm, len(c.AllowedAlgs))
		for i, a := range c.AllowedAlgs {
			algs[i] = jose.SignatureAlgorithm(a)
		}
		opts = append(opts, oidcverify.WithAllowedAlgs(algs...))
	}
	if c.AnyAlg {
		opts = append(opts, oidcverify.WithAnyAlg())
	}
	if len(c.TrustedAudiences) > 0 {
		trusted := map[string]bool{}
		for _, a := range c.TrustedAudiences {
			trusted[a] = true
		}
		opts = append(opts, oidcverify.WithOtherAudienceVerifier(func(aud string) bool {
			return trusted[aud]
		}))
	}
	if c.InsecureSkipSignatureCheck {
		opts = append(opts, oidcverify.InsecureSkipSignatureCheck())
	}

	return opts
}

func (c *Config) idTokenVerifier(ctx context.Context) (*oidcverify.IDTokenVerifier, error) {
	p, err := c.provider(ctx)
	if err != nil {
		return nil, err
	}
	return p.IDTokenVerifier(ctx, c.ClientID, c.ClientSecret, oidcverify.WithClaimsOpts(c.claimsOpts()...))
}

func (c *Config) userInfoVerifier(ctx context.Context) (*oidcverify.UserInfoVerifier, error) {
	p, err := c.provider(ctx)
	if err != nil {
		return nil, err
	}
	return p.UserInfoVerifier(ctx, c.ClientID, c.ClientSecret, c.ExpectedSubject, c.claimsOpts()...)
}

func (c *Config) nonceVerifier() (oidcverify.NonceVerifier, error) {
	if c.SkipNonceCheck {
		return oidcverify.InsecureSkipNonceCheck, nil
	}
	if c.Nonce == "" {
		return nil, errors.New("a nonce is required, or set skip_nonce_check")
	}
	return oidcverify.Nonce(c.Nonce), nil
}

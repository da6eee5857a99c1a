// Package signer mints compact serialized JWS tokens. It is used to produce
// tokens for verifiers in tests and tooling.
package signer

import (
	"context"
	"encoding/json"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/pkg/errors"
)

// SignOpt sets a protected header on a signed token.
type SignOpt func(o *jose.SignerOptions)

// WithType sets the typ header.
func WithType(typ string) SignOpt {
	return func(o *jose.SignerOptions) {
		o.WithHeader(jose.HeaderType, typ)
	}
}

// WithContentType sets the cty header.
func WithContentType(cty string) SignOpt {
	return func(o *jose.SignerOptions) {
		o.WithHeader(jose.HeaderContentType, cty)
	}
}

// WithCritical sets the crit header to names.
func WithCritical(names ...string) SignOpt {
	return func(o *jose.SignerOptions) {
		o.WithHeader("crit", names)
	}
}

// WithHeader sets an arbitrary header.
func WithHeader(k string, v interface{}) SignOpt {
	return func(o *jose.SignerOptions) {
		o.WithHeader(jose.HeaderKey(k), v)
	}
}

func signerOptions(opts []SignOpt) *jose.SignerOptions {
	so := &jose.SignerOptions{}
	for _, o := range opts {
		o(so)
	}
	return so
}

func sign(_ context.Context, signingKey jose.SigningKey, data []byte, opts ...SignOpt) (signed []byte, err error) {
	signer, err := jose.NewSigner(signingKey, signerOptions(opts))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signer")
	}

	jws, err := signer.Sign(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign payload")
	}

	ser, err := jws.CompactSerialize()
	return []byte(ser), err
}

// marshalClaims encodes claims for signing. []byte and json.RawMessage are
// passed through unchanged.
func marshalClaims(claims interface{}) ([]byte, error) {
	switch c := claims.(type) {
	case []byte:
		return c, nil
	case json.RawMessage:
		return c, nil
	}
	b, err := json.Marshal(claims)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal claims")
	}
	return b, nil
}

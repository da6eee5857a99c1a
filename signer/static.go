package signer

import (
	"context"

	jose "github.com/go-jose/go-jose/v3"
)

// StaticSigner signs with one fixed key and publishes a fixed key set.
type StaticSigner struct {
	signingKey jose.SigningKey
	publicKeys []jose.JSONWebKey
}

// NewStatic returns a signer for signingKey. publicKeys is what PublicKeys
// returns, usually the public half of the signing key. For HMAC algorithms the
// signing key is the shared secret as a []byte.
func NewStatic(signingKey jose.SigningKey, publicKeys []jose.JSONWebKey) *StaticSigner {
	return &StaticSigner{
		signingKey: signingKey,
		publicKeys: publicKeys,
	}
}

// PublicKeys returns the key set tokens from this signer verify against.
func (s *StaticSigner) PublicKeys(_ context.Context) (*jose.JSONWebKeySet, error) {
	keys := make([]jose.JSONWebKey, len(s.publicKeys))
	copy(keys, s.publicKeys)
	return &jose.JSONWebKeySet{Keys: keys}, nil
}

// Sign wraps data in a compact serialized JWS.
func (s *StaticSigner) Sign(ctx context.Context, data []byte, opts ...SignOpt) ([]byte, error) {
	return sign(ctx, s.signingKey, data, opts...)
}

// SignClaims marshals claims to JSON and signs them.
func (s *StaticSigner) SignClaims(ctx context.Context, claims interface{}, opts ...SignOpt) (string, error) {
	b, err := marshalClaims(claims)
	if err != nil {
		return "", err
	}
	signed, err := s.Sign(ctx, b, opts...)
	return string(signed), err
}

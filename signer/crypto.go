package signer

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/cryptosigner"
	"github.com/pkg/errors"
)

// CryptoSigner signs with a crypto.Signer, e.g a key held in a KMS or loaded
// from a PEM file.
type CryptoSigner struct {
	signer  crypto.Signer
	pubKeys *jose.JSONWebKeySet
	keyID   string

	alg jose.SignatureAlgorithm
}

// NewFromCrypto picks the signing algorithm from the signer's public key. keyID
// is set as the kid of signed tokens and of the published key.
func NewFromCrypto(signer crypto.Signer, keyID string) (*CryptoSigner, error) {
	c := &CryptoSigner{
		signer: signer,
		keyID:  keyID,
	}

	switch pub := signer.Public().(type) {
	case *ecdsa.PublicKey:
		switch pub.Curve {
		case elliptic.P384():
			c.alg = jose.ES384
		case elliptic.P521():
			c.alg = jose.ES512
		default:
			c.alg = jose.ES256
		}
	case *rsa.PublicKey:
		c.alg = jose.RS256
	case ed25519.PublicKey:
		c.alg = jose.EdDSA
	default:
		return nil, errors.Errorf("unsupported key type: %T", signer.Public())
	}

	c.pubKeys = &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       signer.Public(),
				KeyID:     keyID,
				Algorithm: string(c.alg),
				Use:       "sig",
			},
		},
	}

	return c, nil
}

// PublicKeys returns the signer's public key as a one key set.
func (c *CryptoSigner) PublicKeys(_ context.Context) (*jose.JSONWebKeySet, error) {
	return c.pubKeys, nil
}

// Algorithm returns the algorithm picked for the key.
func (c *CryptoSigner) Algorithm() jose.SignatureAlgorithm {
	return c.alg
}

// Sign wraps data in a compact serialized JWS.
func (c *CryptoSigner) Sign(ctx context.Context, data []byte, opts ...SignOpt) ([]byte, error) {
	return sign(ctx, jose.SigningKey{
		Algorithm: c.alg,
		Key: &jose.JSONWebKey{
			Algorithm: string(c.alg),
			Key:       cryptosigner.Opaque(c.signer),
			KeyID:     c.keyID,
			Use:       "sig",
		},
	}, data, opts...)
}

// SignClaims marshals claims to JSON and signs them, returning the compact
// serialization.
func (c *CryptoSigner) SignClaims(ctx context.Context, claims interface{}, opts ...SignOpt) (string, error) {
	b, err := marshalClaims(claims)
	if err != nil {
		return "", err
	}
	signed, err := c.Sign(ctx, b, opts...)
	return string(signed), err
}

package oidcverify

import (
	"context"

	jose "github.com/go-jose/go-jose/v3"
)

// KeySource provides the current public keys for an issuer. Verifiers never
// call it themselves, it is used when building them.
type KeySource interface {
	PublicKeys(ctx context.Context) (*jose.JSONWebKeySet, error)
}

var _ KeySource = (*StaticKeysource)(nil)

// StaticKeysource serves a fixed key set.
type StaticKeysource struct {
	keys jose.JSONWebKeySet
}

func NewStaticKeysource(keys jose.JSONWebKeySet) *StaticKeysource {
	return &StaticKeysource{
		keys: keys,
	}
}

func (s *StaticKeysource) PublicKeys(_ context.Context) (*jose.JSONWebKeySet, error) {
	ks := jose.JSONWebKeySet{
		Keys: make([]jose.JSONWebKey, len(s.keys.Keys)),
	}
	copy(ks.Keys, s.keys.Keys)
	return &ks, nil
}

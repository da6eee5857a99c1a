package oidcverify

import (
	"fmt"
	"strings"

	jose "github.com/go-jose/go-jose/v3"
)

const keyUseSignature = "sig"

// selectKey narrows the set to the single key that may verify a signature
// made with a key of type kty. If kid is non-empty only keys with that exact
// ID are considered. Keys declared for encryption are never returned.
func selectKey(keys []jose.JSONWebKey, kty KeyType, kid string) (*jose.JSONWebKey, *SignatureVerificationError) {
	var candidates []jose.JSONWebKey
	for _, k := range keys {
		if keyTypeOf(k) != kty {
			continue
		}
		if k.Use != "" && k.Use != keyUseSignature {
			continue
		}
		if kid != "" && k.KeyID != kid {
			continue
		}
		candidates = append(candidates, k)
	}

	switch len(candidates) {
	case 0:
		if kid != "" {
			return nil, signatureErrorf(SignatureNoMatchingKey, nil, "no %s signing key with ID %q found", kty, kid)
		}
		return nil, signatureErrorf(SignatureNoMatchingKey, nil, "no %s signing key found", kty)
	case 1:
		return &candidates[0], nil
	default:
		descs := make([]string, len(candidates))
		for i, k := range candidates {
			id := k.KeyID
			if id == "" {
				id = "<none>"
			}
			descs[i] = fmt.Sprintf("id=%s type=%s", id, keyTypeOf(k))
		}
		return nil, signatureErrorf(SignatureAmbiguousKeyID, nil, "JWK set contains more than one key that could verify the signature: %s", strings.Join(descs, ", "))
	}
}

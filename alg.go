package oidcverify

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"

	jose "github.com/go-jose/go-jose/v3"
)

// KeyType is the JWK "kty" family a key belongs to.
//
// https://tools.ietf.org/html/rfc7518#section-6.1
type KeyType string

const (
	KeyTypeRSA       KeyType = "RSA"
	KeyTypeEC        KeyType = "EC"
	KeyTypeOKP       KeyType = "OKP"
	KeyTypeSymmetric KeyType = "oct"
)

// algNone is the "alg" value of an unsecured JWS.
const algNone = "none"

type algInfo struct {
	keyType KeyType
	// mac is true for shared secret algorithms
	mac bool
}

var signatureAlgs = map[jose.SignatureAlgorithm]algInfo{
	jose.HS256: {keyType: KeyTypeSymmetric, mac: true},
	jose.HS384: {keyType: KeyTypeSymmetric, mac: true},
	jose.HS512: {keyType: KeyTypeSymmetric, mac: true},
	jose.RS256: {keyType: KeyTypeRSA},
	jose.RS384: {keyType: KeyTypeRSA},
	jose.RS512: {keyType: KeyTypeRSA},
	jose.PS256: {keyType: KeyTypeRSA},
	jose.PS384: {keyType: KeyTypeRSA},
	jose.PS512: {keyType: KeyTypeRSA},
	jose.ES256: {keyType: KeyTypeEC},
	jose.ES384: {keyType: KeyTypeEC},
	jose.ES512: {keyType: KeyTypeEC},
	jose.EdDSA: {keyType: KeyTypeOKP},
}

// encryptionAlgs are the JWE key management algorithms. A header carrying one
// of these belongs to an encrypted token.
var encryptionAlgs = map[jose.KeyAlgorithm]bool{
	jose.RSA1_5:             true,
	jose.RSA_OAEP:           true,
	jose.RSA_OAEP_256:       true,
	jose.A128KW:             true,
	jose.A192KW:             true,
	jose.A256KW:             true,
	jose.DIRECT:             true,
	jose.ECDH_ES:            true,
	jose.ECDH_ES_A128KW:     true,
	jose.ECDH_ES_A192KW:     true,
	jose.ECDH_ES_A256KW:     true,
	jose.A128GCMKW:          true,
	jose.A192GCMKW:          true,
	jose.A256GCMKW:          true,
	jose.PBES2_HS256_A128KW: true,
	jose.PBES2_HS384_A192KW: true,
	jose.PBES2_HS512_A256KW: true,
}

func isEncryptionAlg(alg string) bool {
	return encryptionAlgs[jose.KeyAlgorithm(alg)]
}

// keyTypeOf derives the key family from the key material, go-jose doesn't
// keep the kty it parsed.
func keyTypeOf(k jose.JSONWebKey) KeyType {
	switch k.Key.(type) {
	case *rsa.PublicKey, *rsa.PrivateKey:
		return KeyTypeRSA
	case *ecdsa.PublicKey, *ecdsa.PrivateKey:
		return KeyTypeEC
	case ed25519.PublicKey, ed25519.PrivateKey:
		return KeyTypeOKP
	case []byte:
		return KeyTypeSymmetric
	default:
		return ""
	}
}

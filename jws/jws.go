// Package jws gives access to the parts of a compact serialized JOSE token
// without trusting them. The header and payload can be read before any
// signature check; Payload performs the actual check through go-jose.
package jws

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	jose "github.com/go-jose/go-jose/v3"
	josejson "github.com/go-jose/go-jose/v3/json"
	"github.com/pkg/errors"
)

// ErrEncrypted is returned when reading the payload of a JWE token. The
// ciphertext is never decrypted.
var ErrEncrypted = errors.New("token is encrypted")

// Header is the subset of the JOSE header that drives verification.
//
// https://tools.ietf.org/html/rfc7515#section-4.1
type Header struct {
	// Algorithm is the "alg" value. It is attacker controlled.
	Algorithm string
	// KeyID is the "kid" value, empty if not set.
	KeyID string
	// Type is the "typ" value, nil if not set.
	Type *string
	// ContentType is the "cty" value, nil if not set.
	ContentType *string
	// Critical is true if the header carries a "crit" member, whatever its
	// value.
	Critical bool
	// Encryption is the JWE "enc" value, nil if not set.
	Encryption *string
}

// rawHeader is decoded with go-jose's JSON package, which matches keys case
// sensitively. The header must read the same here as it does to go-jose when
// the signature is checked.
type rawHeader struct {
	Alg  string              `json:"alg"`
	Kid  string              `json:"kid,omitempty"`
	Typ  *string             `json:"typ,omitempty"`
	Cty  *string             `json:"cty,omitempty"`
	Crit josejson.RawMessage `json:"crit,omitempty"`
	Enc  *string             `json:"enc,omitempty"`
}

// Token is a parsed, unverified token. It is safe for concurrent use, nothing
// on it is mutated after Parse.
type Token struct {
	raw       string
	header    Header
	payload   []byte
	signature []byte
	encrypted bool
}

// Parse splits a compact serialized JWS (three segments) or JWE (five
// segments) and decodes its header. For a JWS the payload is decoded too, but
// not checked.
func Parse(raw string) (*Token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 && len(parts) != 5 {
		return nil, errors.Errorf("compact token must have 3 or 5 segments, found %d", len(parts))
	}

	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode header")
	}
	rh := rawHeader{}
	if err := josejson.Unmarshal(hb, &rh); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal header")
	}

	t := &Token{
		raw: raw,
		header: Header{
			Algorithm:   rh.Alg,
			KeyID:       rh.Kid,
			Type:        rh.Typ,
			ContentType: rh.Cty,
			Critical:    rh.Crit != nil,
			Encryption:  rh.Enc,
		},
	}

	if len(parts) == 5 {
		t.encrypted = true
		return t, nil
	}

	t.payload, err = base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode payload")
	}
	t.signature, err = base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode signature")
	}

	return t, nil
}

// Header returns the unverified header.
func (t *Token) Header() Header {
	return t.header
}

// Encrypted reports whether the token was serialized as a JWE.
func (t *Token) Encrypted() bool {
	return t.encrypted
}

// Signed reports whether the token carries a non-empty signature segment.
func (t *Token) Signed() bool {
	return len(t.signature) > 0
}

// String returns the compact serialization the token was parsed from.
func (t *Token) String() string {
	return t.raw
}

// UnverifiedPayload unmarshals the payload into dest without checking the
// signature.
func (t *Token) UnverifiedPayload(dest interface{}) error {
	if t.encrypted {
		return ErrEncrypted
	}
	if err := json.Unmarshal(t.payload, dest); err != nil {
		return errors.Wrap(err, "failed to unmarshal payload")
	}
	return nil
}

// Payload checks the signature over the token with the given algorithm and
// key, returning the payload bytes if it is valid. alg must match the header,
// callers are expected to have already decided the algorithm is acceptable.
//
// go-jose errors are wrapped, so callers can match jose.ErrCryptoFailure and
// jose.ErrUnsupportedKeyType with errors.Is.
func (t *Token) Payload(alg jose.SignatureAlgorithm, key interface{}) ([]byte, error) {
	if t.encrypted {
		return nil, ErrEncrypted
	}
	if string(alg) != t.header.Algorithm {
		return nil, errors.Errorf("algorithm %s does not match header algorithm %s", alg, t.header.Algorithm)
	}

	sig, err := jose.ParseSigned(t.raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse signed token")
	}
	if len(sig.Signatures) != 1 {
		return nil, errors.Errorf("want exactly one signature, found %d", len(sig.Signatures))
	}
	if got := sig.Signatures[0].Protected.Algorithm; got != string(alg) {
		return nil, errors.Errorf("algorithm %s does not match signed header algorithm %s", alg, got)
	}

	payload, err := sig.Verify(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify signature")
	}

	return payload, nil
}

package oidcverify

import (
	"crypto/subtle"
	"errors"
)

// NonceVerifier checks the nonce claim of an ID token against the value the
// relying party sent in the authentication request. present is false if the
// token had no nonce claim.
type NonceVerifier interface {
	VerifyNonce(nonce string, present bool) error
}

// Nonce is the expected nonce value. It is compared in constant time.
type Nonce string

// VerifyNonce implements NonceVerifier.
func (n Nonce) VerifyNonce(nonce string, present bool) error {
	if !present {
		return errors.New("nonce must be present")
	}
	if subtle.ConstantTimeCompare([]byte(n), []byte(nonce)) != 1 {
		return errors.New("nonce mismatch")
	}
	return nil
}

// NonceVerifierFunc adapts a function to a NonceVerifier. Use it when the
// expected nonces are tracked elsewhere, e.g a replay cache.
type NonceVerifierFunc func(nonce string, present bool) error

// VerifyNonce implements NonceVerifier.
func (f NonceVerifierFunc) VerifyNonce(nonce string, present bool) error {
	return f(nonce, present)
}

// InsecureSkipNonceCheck accepts any nonce, or none. It is only appropriate
// when the token was not obtained through an authentication request made by
// this relying party, e.g a bearer token presented to an API.
var InsecureSkipNonceCheck NonceVerifier = NonceVerifierFunc(func(string, bool) error { return nil })

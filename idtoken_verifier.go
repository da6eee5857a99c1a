package oidcverify

import (
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/pardot/oidcverify/idtoken"
	"github.com/pardot/oidcverify/jws"
	"golang.org/x/oauth2"
)

// IDTokenVerifier verifies ID tokens, following
// https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation.
// It runs the ClaimsVerifier checks, then the expiry, issue time, nonce, acr
// and auth_time checks.
//
// An IDTokenVerifier is immutable, With returns a modified copy. It is safe for
// concurrent use.
type IDTokenVerifier struct {
	claims *ClaimsVerifier

	// clock returns the current time. time.Now is used by default.
	clock func() time.Time

	issueTimeVerifier func(iat time.Time) error
	acrVerifier       func(acr string, present bool) error
	authTimeVerifier  func(authTime time.Time, present bool) error
}

// IDTokenOpt configures an IDTokenVerifier.
type IDTokenOpt func(v *IDTokenVerifier)

// NewIDTokenVerifier returns a verifier for a public client. MAC signed tokens
// are rejected, as a public client has no secret to check them with.
func NewIDTokenVerifier(clientID, issuer string, keys jose.JSONWebKeySet, opts ...IDTokenOpt) *IDTokenVerifier {
	return newIDTokenVerifier(NewClaimsVerifier(clientID, issuer, keys), opts...)
}

// NewConfidentialIDTokenVerifier returns a verifier for a client holding a
// secret, which is used to check HS256/384/512 signatures if those algorithms
// are allowed.
func NewConfidentialIDTokenVerifier(clientID, clientSecret, issuer string, keys jose.JSONWebKeySet, opts ...IDTokenOpt) *IDTokenVerifier {
	return newIDTokenVerifier(NewClaimsVerifier(clientID, issuer, keys, WithClientSecret(clientSecret)), opts...)
}

// NewInsecureIDTokenVerifier returns a verifier that skips the signature,
// issuer and audience checks. Expiry and the other time based checks still
// run. Only use this for tokens obtained directly from the issuer over a
// trusted channel.
func NewInsecureIDTokenVerifier(opts ...IDTokenOpt) *IDTokenVerifier {
	cv := NewClaimsVerifier("", "", jose.JSONWebKeySet{},
		WithIssuerMatch(false),
		WithAudienceMatch(false),
		InsecureSkipSignatureCheck(),
	)
	return newIDTokenVerifier(cv, opts...)
}

func newIDTokenVerifier(cv *ClaimsVerifier, opts ...IDTokenOpt) *IDTokenVerifier {
	v := &IDTokenVerifier{
		claims:            cv,
		clock:             time.Now,
		issueTimeVerifier: func(time.Time) error { return nil },
		acrVerifier:       func(string, bool) error { return nil },
		authTimeVerifier:  func(time.Time, bool) error { return nil },
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// With returns a copy of the verifier with the options applied.
func (v *IDTokenVerifier) With(opts ...IDTokenOpt) *IDTokenVerifier {
	nv := *v
	for _, o := range opts {
		o(&nv)
	}
	return &nv
}

// WithClaimsOpts applies options to the underlying ClaimsVerifier.
func WithClaimsOpts(opts ...ClaimsOpt) IDTokenOpt {
	return func(v *IDTokenVerifier) {
		v.claims = v.claims.With(opts...)
	}
}

// WithClock provides a custom clock that is used to determine the current time
// when verifying tokens.
func WithClock(clock func() time.Time) IDTokenOpt {
	return func(v *IDTokenVerifier) {
		if clock == nil {
			clock = time.Now
		}
		v.clock = clock
	}
}

// WithIssueTimeVerifier sets a check on the iat claim, e.g to bound how old a
// token may be. A failure is reported as ClaimsExpired. nil accepts any issue
// time.
func WithIssueTimeVerifier(fn func(iat time.Time) error) IDTokenOpt {
	return func(v *IDTokenVerifier) {
		if fn == nil {
			fn = func(time.Time) error { return nil }
		}
		v.issueTimeVerifier = fn
	}
}

// WithAuthContextVerifier sets a check on the acr claim. present is false if
// the token had no acr. nil accepts any value.
func WithAuthContextVerifier(fn func(acr string, present bool) error) IDTokenOpt {
	return func(v *IDTokenVerifier) {
		if fn == nil {
			fn = func(string, bool) error { return nil }
		}
		v.acrVerifier = fn
	}
}

// WithAuthTimeVerifier sets a check on the auth_time claim, e.g to enforce a
// max_age. present is false if the token had no auth_time. nil accepts any
// value.
func WithAuthTimeVerifier(fn func(authTime time.Time, present bool) error) IDTokenOpt {
	return func(v *IDTokenVerifier) {
		if fn == nil {
			fn = func(time.Time, bool) error { return nil }
		}
		v.authTimeVerifier = fn
	}
}

// VerifiedClaims checks tok and unmarshals its payload into dest. nonce
// checks the nonce claim, pass a Nonce holding the value sent in the
// authentication request. On error dest must not be used.
func (v *IDTokenVerifier) VerifiedClaims(tok *jws.Token, nonce NonceVerifier, dest IDClaims) error {
	err := v.verifiedClaims(tok, nonce, dest)
	v.claims.observe("id_token", tok, err)
	return err
}

// Verify parses a compact serialized ID token and returns its claims if it
// passes verification.
func (v *IDTokenVerifier) Verify(raw string, nonce NonceVerifier) (*idtoken.Claims, error) {
	tok, err := jws.Parse(raw)
	if err != nil {
		return nil, claimsErrorf(ClaimsOther, "failed to parse token: %v", err)
	}

	cl := idtoken.Claims{}
	if err := v.VerifiedClaims(tok, nonce, &cl); err != nil {
		return nil, err
	}
	return &cl, nil
}

// VerifyOAuth2Token verifies the id_token returned alongside an OAuth2 token
// response.
func (v *IDTokenVerifier) VerifyOAuth2Token(tok *oauth2.Token, nonce NonceVerifier) (*idtoken.Claims, error) {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, claimsErrorf(ClaimsOther, "token response did not contain an id_token")
	}
	return v.Verify(raw, nonce)
}

func (v *IDTokenVerifier) verifiedClaims(tok *jws.Token, nonce NonceVerifier, dest IDClaims) error {
	if nonce == nil {
		return claimsErrorf(ClaimsOther, "a nonce verifier is required")
	}

	if err := v.claims.verifiedClaims(tok, dest); err != nil {
		return err
	}

	now := v.clock()
	exp := dest.GetExpiration()
	if !now.Before(exp) {
		return claimsErrorf(ClaimsExpired, "ID token expired at %s (current time is %s)", exp.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}

	if err := v.issueTimeVerifier(dest.GetIssuedAt()); err != nil {
		return claimsErrorf(ClaimsExpired, "failed to verify issue time: %v", err)
	}

	if err := nonce.VerifyNonce(dest.GetNonce()); err != nil {
		return claimsErrorf(ClaimsInvalidNonce, "failed to verify nonce: %v", err)
	}

	if err := v.acrVerifier(dest.GetACR()); err != nil {
		return claimsErrorf(ClaimsInvalidAuthContext, "failed to verify acr: %v", err)
	}

	if err := v.authTimeVerifier(dest.GetAuthTime()); err != nil {
		return claimsErrorf(ClaimsInvalidAuthTime, "failed to verify auth_time: %v", err)
	}

	return nil
}

// MaxTokenAge returns an issue time check that rejects tokens issued more than
// age before the clock's current time, or in the future by more than skew.
func MaxTokenAge(clock func() time.Time, age, skew time.Duration) func(iat time.Time) error {
	return func(iat time.Time) error {
		now := clock()
		if iat.Before(now.Add(-age)) {
			return fmt.Errorf("issued at %s, more than %s ago", iat.UTC().Format(time.RFC3339), age)
		}
		if iat.After(now.Add(skew)) {
			return fmt.Errorf("issued at %s, in the future", iat.UTC().Format(time.RFC3339))
		}
		return nil
	}
}

// RequireACR returns an acr check accepting any of the given values.
func RequireACR(acrs ...string) func(acr string, present bool) error {
	return func(acr string, present bool) error {
		if !present {
			return fmt.Errorf("acr claim missing, want one of %v", acrs)
		}
		for _, a := range acrs {
			if a == acr {
				return nil
			}
		}
		return fmt.Errorf("acr %q is not one of %v", acr, acrs)
	}
}

// MaxAuthAge returns an auth_time check for a request made with max_age. The
// claim is required, and the authentication must have happened no more than
// maxAge before the clock's current time.
func MaxAuthAge(clock func() time.Time, maxAge time.Duration) func(authTime time.Time, present bool) error {
	return func(authTime time.Time, present bool) error {
		if !present {
			return fmt.Errorf("auth_time claim missing")
		}
		if authTime.Before(clock().Add(-maxAge)) {
			return fmt.Errorf("authenticated at %s, more than %s ago", authTime.UTC().Format(time.RFC3339), maxAge)
		}
		return nil
	}
}

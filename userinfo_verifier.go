package oidcverify

import (
	jose "github.com/go-jose/go-jose/v3"
	"github.com/pardot/oidcverify/jws"
	"github.com/pardot/oidcverify/userinfo"
)

// UserInfoVerifier verifies signed user info responses. After the
// ClaimsVerifier checks it confirms the subject is the one the caller expects,
// normally the sub of the ID token the user info was requested with.
//
// https://openid.net/specs/openid-connect-core-1_0.html#UserInfoResponse
type UserInfoVerifier struct {
	claims *ClaimsVerifier
	// expectedSubject is empty when the subject isn't checked
	expectedSubject string
}

// NewUserInfoVerifier returns a verifier for user info signed by issuer for
// clientID. If expectedSubject is empty, the subject is not checked.
func NewUserInfoVerifier(clientID, issuer string, keys jose.JSONWebKeySet, expectedSubject string, opts ...ClaimsOpt) *UserInfoVerifier {
	return &UserInfoVerifier{
		claims:          NewClaimsVerifier(clientID, issuer, keys, opts...),
		expectedSubject: expectedSubject,
	}
}

// With returns a copy of the verifier with the options applied to the
// underlying ClaimsVerifier.
func (v *UserInfoVerifier) With(opts ...ClaimsOpt) *UserInfoVerifier {
	return &UserInfoVerifier{
		claims:          v.claims.With(opts...),
		expectedSubject: v.expectedSubject,
	}
}

// WithExpectedSubject returns a copy of the verifier that expects sub. An empty
// sub disables the check.
func (v *UserInfoVerifier) WithExpectedSubject(sub string) *UserInfoVerifier {
	return &UserInfoVerifier{
		claims:          v.claims,
		expectedSubject: sub,
	}
}

// VerifiedClaims checks tok and unmarshals its payload into dest. On error
// dest must not be used.
func (v *UserInfoVerifier) VerifiedClaims(tok *jws.Token, dest UserInfoClaims) error {
	err := v.verifiedClaims(tok, dest)
	v.claims.observe("userinfo", tok, err)
	return err
}

// Verify parses a compact serialized user info response and returns its
// claims if it passes verification.
func (v *UserInfoVerifier) Verify(raw string) (*userinfo.Claims, error) {
	tok, err := jws.Parse(raw)
	if err != nil {
		return nil, claimsErrorf(ClaimsOther, "failed to parse token: %v", err)
	}

	cl := userinfo.Claims{}
	if err := v.VerifiedClaims(tok, &cl); err != nil {
		return nil, err
	}
	return &cl, nil
}

func (v *UserInfoVerifier) verifiedClaims(tok *jws.Token, dest UserInfoClaims) error {
	if err := v.claims.verifiedClaims(tok, dest); err != nil {
		return err
	}

	if v.expectedSubject == "" {
		return nil
	}
	if sub := dest.GetSubject(); sub != v.expectedSubject {
		return claimsErrorf(ClaimsInvalidSubject, "expected subject %q, found %q", v.expectedSubject, sub)
	}
	return nil
}

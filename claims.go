package oidcverify

import "time"

// Claims is the minimum a token payload must expose to go through a
// ClaimsVerifier. Implementations are unmarshaled into from the payload JSON,
// so they are normally pointers to structs.
type Claims interface {
	// GetIssuer returns the iss claim, and whether it was set.
	GetIssuer() (string, bool)
	// GetAudiences returns the aud claim, and whether it was set.
	GetAudiences() ([]string, bool)
}

// IDClaims is implemented by ID token payloads.
//
// https://openid.net/specs/openid-connect-core-1_0.html#IDToken
type IDClaims interface {
	Claims
	GetExpiration() time.Time
	GetIssuedAt() time.Time
	GetNonce() (string, bool)
	GetACR() (string, bool)
	GetAuthTime() (time.Time, bool)
}

// UserInfoClaims is implemented by signed user info payloads.
type UserInfoClaims interface {
	Claims
	GetSubject() string
}

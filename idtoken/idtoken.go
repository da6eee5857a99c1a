// Package idtoken contains the claim types carried in an OpenID Connect ID
// token.
package idtoken

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// standardClaims are the keys held in Claims fields rather than Extra.
var standardClaims = []string{
	"iss", "sub", "aud", "exp", "nbf", "iat", "auth_time", "nonce", "acr", "amr", "azp",
}

// Claims represents the set of JWT claims for the user.
//
// https://openid.net/specs/openid-connect-core-1_0.html#IDToken
type Claims struct {
	// Issuer Identifier, a case sensitive https URL. REQUIRED.
	Issuer string `json:"iss,omitempty"`
	// Subject Identifier, unique within the issuer. REQUIRED.
	Subject string `json:"sub,omitempty"`
	// Audience(s) the token is intended for. Must contain the client ID of the
	// relying party. REQUIRED.
	Audience Audience `json:"aud,omitempty"`
	// Expiration time, on or after which the token MUST NOT be accepted.
	// REQUIRED.
	Expiry UnixTime `json:"exp,omitempty"`
	// Time before which the token MUST NOT be accepted.
	NotBefore UnixTime `json:"nbf,omitempty"`
	// Time at which the token was issued. REQUIRED.
	IssuedAt UnixTime `json:"iat,omitempty"`
	// Time when the End-User authentication occurred. Required when max_age
	// was requested.
	AuthTime UnixTime `json:"auth_time,omitempty"`
	// Value passed through from the authentication request, used to bind the
	// token to a client session and mitigate replay.
	Nonce string `json:"nonce,omitempty"`
	// Authentication Context Class Reference.
	ACR string `json:"acr,omitempty"`
	// Authentication Methods References.
	AMR []string `json:"amr,omitempty"`
	// Authorized party, the client the token was issued to. Not checked by
	// this module's verifiers.
	AZP string `json:"azp,omitempty"`

	// Extra are additional claims, that the standard claims will be merged in
	// to. If a key is overridden here, the struct value wins.
	Extra map[string]interface{} `json:"-"`

	// keep the raw data here, so we can unmarshal in to custom structs
	raw json.RawMessage
}

func (i Claims) GetIssuer() (string, bool) {
	return i.Issuer, i.Issuer != ""
}

func (i Claims) GetAudiences() ([]string, bool) {
	return i.Audience, i.Audience != nil
}

func (i Claims) GetSubject() string {
	return i.Subject
}

// GetExpiration returns the exp claim. A missing claim is the Unix epoch, so
// the token reads as expired.
func (i Claims) GetExpiration() time.Time {
	return i.Expiry.Time()
}

func (i Claims) GetIssuedAt() time.Time {
	return i.IssuedAt.Time()
}

func (i Claims) GetNonce() (string, bool) {
	return i.Nonce, i.Nonce != ""
}

func (i Claims) GetACR() (string, bool) {
	return i.ACR, i.ACR != ""
}

func (i Claims) GetAuthTime() (time.Time, bool) {
	return i.AuthTime.Time(), i.AuthTime != 0
}

func (i Claims) MarshalJSON() ([]byte, error) {
	// avoid recursing on this method
	type ids Claims
	id := ids(i)

	sj, err := json.Marshal(&id)
	if err != nil {
		return nil, err
	}

	sm := map[string]interface{}{}
	if err := json.Unmarshal(sj, &sm); err != nil {
		return nil, err
	}

	om := map[string]interface{}{}

	for k, v := range i.Extra {
		om[k] = v
	}

	for k, v := range sm {
		om[k] = v
	}

	return json.Marshal(om)
}

func (i *Claims) UnmarshalJSON(b []byte) error {
	type ids Claims
	id := ids{}

	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}

	em := map[string]interface{}{}

	if err := json.Unmarshal(b, &em); err != nil {
		return err
	}

	for _, f := range standardClaims {
		delete(em, f)
	}

	if len(em) > 0 {
		id.Extra = em
	}

	id.raw = append(json.RawMessage{}, b...)

	*i = Claims(id)

	return nil
}

// Unmarshal unpacks the raw JSON data from this token into the passed type.
func (i *Claims) Unmarshal(into interface{}) error {
	if i.raw == nil {
		// gracefully handle the weird case where the user might want to call
		// this on a struct of their own creation, rather than one retrieved
		// from a remote source
		b, err := json.Marshal(i)
		if err != nil {
			return err
		}
		i.raw = b
	}
	return json.Unmarshal(i.raw, into)
}

// Audience represents a OIDC ID Token's Audience field.
type Audience []string

// Contains returns true if a passed audence is found in the token's set
func (a Audience) Contains(aud string) bool {
	for _, ia := range a {
		if ia == aud {
			return true
		}
	}
	return false
}

func (a Audience) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

func (a *Audience) UnmarshalJSON(b []byte) error {
	var ua interface{}
	if err := json.Unmarshal(b, &ua); err != nil {
		return err
	}

	switch ja := ua.(type) {
	case string:
		*a = []string{ja}
	case []interface{}:
		aa := make([]string, len(ja))
		for i, ia := range ja {
			sa, ok := ia.(string)
			if !ok {
				return fmt.Errorf("failed to unmarshal audience, expected []string but found %T", ia)
			}
			aa[i] = sa
		}
		*a = aa
	case nil:
		*a = nil
	default:
		return fmt.Errorf("failed to unmarshal audience, expected string or []string but found %T", ua)
	}

	return nil
}

// UnixTime is a JWT NumericDate, seconds since 1970-01-01T00:00:00Z UTC.
type UnixTime int64

// NewUnixTime creates a UnixTime from the given Time, t
func NewUnixTime(t time.Time) UnixTime {
	return UnixTime(t.Unix())
}

// Time returns the time.Time this represents
func (u UnixTime) Time() time.Time {
	return time.Unix(int64(u), 0)
}

func (u UnixTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(u), 10)), nil
}

// UnmarshalJSON accepts integer and fractional NumericDates, fractions are
// truncated.
func (u *UnixTime) UnmarshalJSON(b []byte) error {
	if p, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*u = UnixTime(p)
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("failed to parse UnixTime: %s", string(b))
	}
	*u = UnixTime(int64(f))
	return nil
}

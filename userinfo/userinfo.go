// Package userinfo contains the claims returned by an OpenID Connect UserInfo
// endpoint, when the response is a signed JWT.
//
// https://openid.net/specs/openid-connect-core-1_0.html#UserInfoResponse
package userinfo

import (
	"encoding/json"

	"github.com/pardot/oidcverify/idtoken"
)

var standardClaims = []string{
	"iss", "sub", "aud", "name", "given_name", "family_name", "middle_name", "nickname",
	"preferred_username", "profile", "picture", "website", "email", "email_verified",
	"gender", "birthdate", "zoneinfo", "locale", "phone_number", "phone_number_verified",
	"updated_at",
}

// Claims are the standard user info claims.
//
// https://openid.net/specs/openid-connect-core-1_0.html#StandardClaims
type Claims struct {
	// Issuer, only present when the response is signed.
	Issuer string `json:"iss,omitempty"`
	// Subject, must equal the sub of the ID token the user info was fetched
	// for. REQUIRED.
	Subject string `json:"sub,omitempty"`
	// Audience, only present when the response is signed.
	Audience idtoken.Audience `json:"aud,omitempty"`

	Name              string `json:"name,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`
	MiddleName        string `json:"middle_name,omitempty"`
	Nickname          string `json:"nickname,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Profile           string `json:"profile,omitempty"`
	Picture           string `json:"picture,omitempty"`
	Website           string `json:"website,omitempty"`
	Email             string `json:"email,omitempty"`
	EmailVerified     *bool  `json:"email_verified,omitempty"`
	Gender            string `json:"gender,omitempty"`
	Birthdate         string `json:"birthdate,omitempty"`
	Zoneinfo          string `json:"zoneinfo,omitempty"`
	Locale            string `json:"locale,omitempty"`
	PhoneNumber       string `json:"phone_number,omitempty"`
	// PhoneNumberVerified is nil when the claim is absent
	PhoneNumberVerified *bool            `json:"phone_number_verified,omitempty"`
	UpdatedAt           idtoken.UnixTime `json:"updated_at,omitempty"`

	// Extra holds any non-standard claims.
	Extra map[string]interface{} `json:"-"`
}

func (c Claims) GetIssuer() (string, bool) {
	return c.Issuer, c.Issuer != ""
}

func (c Claims) GetAudiences() ([]string, bool) {
	return c.Audience, c.Audience != nil
}

func (c Claims) GetSubject() string {
	return c.Subject
}

func (c Claims) MarshalJSON() ([]byte, error) {
	type uic Claims
	sj, err := json.Marshal(uic(c))
	if err != nil {
		return nil, err
	}

	sm := map[string]interface{}{}
	if err := json.Unmarshal(sj, &sm); err != nil {
		return nil, err
	}

	om := map[string]interface{}{}
	for k, v := range c.Extra {
		om[k] = v
	}
	for k, v := range sm {
		om[k] = v
	}

	return json.Marshal(om)
}

func (c *Claims) UnmarshalJSON(b []byte) error {
	type uic Claims
	u := uic{}
	if err := json.Unmarshal(b, &u); err != nil {
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
		u.Extra = em
	}

	*c = Claims(u)
	return nil
}

// Package oidcverify verifies OpenID Connect ID tokens and signed user info
// responses.
//
// A ClaimsVerifier runs the checks common to both: the JOSE header, issuer and
// audience matching, the algorithm allow list, key selection and the
// signature. IDTokenVerifier adds expiry, issue time, nonce, acr and auth_time
// checks on top, UserInfoVerifier adds the subject check.
//
// Every rejection is a *ClaimsVerificationError. Signature failures carry a
// *SignatureVerificationError with the reason, both can be matched with
// errors.Is against the Err* values:
//
//	v := oidcverify.NewIDTokenVerifier(clientID, issuer, keys)
//	claims, err := v.Verify(raw, oidcverify.Nonce(sentNonce))
//	if errors.Is(err, oidcverify.ErrExpired) {
//		// re-authenticate
//	}
//
// https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
package oidcverify

package oidcverify

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"strings"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/pardot/oidcverify/jws"
	"github.com/sirupsen/logrus"
)

// ClaimsVerifier runs the checks shared by ID tokens and signed user info
// responses: header validation, issuer and audience matching, algorithm
// gating, key selection and the signature check.
//
// A ClaimsVerifier is immutable, With returns a modified copy. It is safe for
// concurrent use.
type ClaimsVerifier struct {
	// allowedAlgs is nil when any algorithm is allowed
	allowedAlgs []jose.SignatureAlgorithm
	clientID    string
	// clientSecret is nil for public clients
	clientSecret []byte
	issuer       string
	keys         jose.JSONWebKeySet

	requireIssuer    bool
	requireAudience  bool
	requireSignature bool

	otherAudience func(aud string) bool

	logger  logrus.FieldLogger
	metrics *Metrics
}

// ClaimsOpt configures a ClaimsVerifier.
type ClaimsOpt func(v *ClaimsVerifier)

// NewClaimsVerifier returns a verifier for tokens issued by issuer to
// clientID, signed by one of keys. By default only RS256 is accepted, the
// issuer, audience and signature are all checked, and no audience other than
// clientID is trusted.
func NewClaimsVerifier(clientID, issuer string, keys jose.JSONWebKeySet, opts ...ClaimsOpt) *ClaimsVerifier {
	l := logrus.New()
	l.Out = ioutil.Discard

	v := &ClaimsVerifier{
		allowedAlgs:      []jose.SignatureAlgorithm{jose.RS256},
		clientID:         clientID,
		issuer:           issuer,
		keys:             copyKeySet(keys),
		requireIssuer:    true,
		requireAudience:  true,
		requireSignature: true,
		otherAudience:    func(string) bool { return false },
		logger:           l,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// With returns a copy of the verifier with the options applied.
func (v *ClaimsVerifier) With(opts ...ClaimsOpt) *ClaimsVerifier {
	nv := *v
	for _, o := range opts {
		o(&nv)
	}
	return &nv
}

// WithAllowedAlgs replaces the set of accepted signing algorithms.
func WithAllowedAlgs(algs ...jose.SignatureAlgorithm) ClaimsOpt {
	return func(v *ClaimsVerifier) {
		v.allowedAlgs = append([]jose.SignatureAlgorithm{}, algs...)
	}
}

// WithAnyAlg accepts any signing algorithm. Unsigned tokens are still
// rejected.
func WithAnyAlg() ClaimsOpt {
	return func(v *ClaimsVerifier) {
		v.allowedAlgs = nil
	}
}

// WithClientSecret sets the secret used to check MAC based signatures. Without
// it, or with an empty one, HS256/384/512 tokens are rejected.
func WithClientSecret(secret string) ClaimsOpt {
	return func(v *ClaimsVerifier) {
		if secret == "" {
			v.clientSecret = nil
			return
		}
		v.clientSecret = []byte(secret)
	}
}

// WithIssuerMatch sets whether the iss claim must equal the configured issuer.
func WithIssuerMatch(required bool) ClaimsOpt {
	return func(v *ClaimsVerifier) {
		v.requireIssuer = required
	}
}

// WithAudienceMatch sets whether the aud claim must contain the client ID.
func WithAudienceMatch(required bool) ClaimsOpt {
	return func(v *ClaimsVerifier) {
		v.requireAudience = required
	}
}

// WithSignatureCheck turns the signature check back on.
func WithSignatureCheck() ClaimsOpt {
	return func(v *ClaimsVerifier) {
		v.requireSignature = true
	}
}

// InsecureSkipSignatureCheck returns claims without checking the signature.
// The header, issuer and audience checks still run.
func InsecureSkipSignatureCheck() ClaimsOpt {
	return func(v *ClaimsVerifier) {
		v.requireSignature = false
	}
}

// WithOtherAudienceVerifier sets the predicate that decides whether an
// audience other than the client ID is trusted.
func WithOtherAudienceVerifier(fn func(aud string) bool) ClaimsOpt {
	return func(v *ClaimsVerifier) {
		if fn == nil {
			fn = func(string) bool { return false }
		}
		v.otherAudience = fn
	}
}

// WithKeySet replaces the keys signatures are checked against.
func WithKeySet(keys jose.JSONWebKeySet) ClaimsOpt {
	return func(v *ClaimsVerifier) {
		v.keys = copyKeySet(keys)
	}
}

// WithLogger sets the logger rejections are reported to, at debug level.
func WithLogger(l logrus.FieldLogger) ClaimsOpt {
	return func(v *ClaimsVerifier) {
		v.logger = l
	}
}

// WithMetrics counts verification results.
func WithMetrics(m *Metrics) ClaimsOpt {
	return func(v *ClaimsVerifier) {
		v.metrics = m
	}
}

// ValidateJOSEHeader rejects headers this package can't process safely: a typ
// other than JWT, any cty, and any crit.
//
// https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
func ValidateJOSEHeader(h jws.Header) error {
	if h.Type != nil && !strings.EqualFold(*h.Type, "JWT") {
		return claimsErrorf(ClaimsUnsupported, "unsupported JWT type: %s", *h.Type)
	}

	if h.ContentType != nil {
		if strings.EqualFold(*h.ContentType, "JWT") {
			return claimsErrorf(ClaimsUnsupported, "nested JWTs are not currently supported")
		}
		return claimsErrorf(ClaimsUnsupported, "unexpected JWT content type: %s", *h.ContentType)
	}

	// https://tools.ietf.org/html/rfc7515#section-4.1.11 requires rejecting
	// any critical extension we don't understand, and we understand none.
	if h.Critical {
		return claimsErrorf(ClaimsUnsupported, "critical JWT header fields are unsupported")
	}

	return nil
}

// VerifiedClaims checks tok and, if it can be trusted, unmarshals its payload
// into dest. On error dest must not be used.
func (v *ClaimsVerifier) VerifiedClaims(tok *jws.Token, dest Claims) error {
	err := v.verifiedClaims(tok, dest)
	v.observe("claims", tok, err)
	return err
}

func (v *ClaimsVerifier) verifiedClaims(tok *jws.Token, dest Claims) error {
	h := tok.Header()

	if err := ValidateJOSEHeader(h); err != nil {
		return err
	}

	if tok.Encrypted() || isEncryptionAlg(h.Algorithm) || h.Encryption != nil {
		return claimsErrorf(ClaimsUnsupported, "JWE encryption is not currently supported")
	}

	if err := tok.UnverifiedPayload(dest); err != nil {
		return claimsErrorf(ClaimsOther, "failed to parse claims: %v", err)
	}

	if v.requireIssuer {
		iss, ok := dest.GetIssuer()
		if !ok {
			return claimsErrorf(ClaimsInvalidIssuer, "missing issuer claim")
		}
		if iss != v.issuer {
			return claimsErrorf(ClaimsInvalidIssuer, "expected issuer %q (found %q)", v.issuer, iss)
		}
	}

	if v.requireAudience {
		if err := v.verifyAudience(dest); err != nil {
			return err
		}
	}

	if !v.requireSignature {
		return nil
	}

	payload, serr := v.verifySignature(tok)
	if serr != nil {
		return serr
	}

	if err := unmarshalVerified(payload, dest); err != nil {
		return claimsErrorf(ClaimsOther, "failed to parse verified claims: %v", err)
	}

	return nil
}

func (v *ClaimsVerifier) verifyAudience(c Claims) error {
	auds, ok := c.GetAudiences()
	if !ok || len(auds) == 0 {
		return claimsErrorf(ClaimsInvalidAudience, "missing audiences claim")
	}

	found := false
	for _, aud := range auds {
		if aud == v.clientID {
			found = true
			break
		}
	}
	if !found {
		return claimsErrorf(ClaimsInvalidAudience, "must contain %q (found audiences: %s)", v.clientID, strings.Join(auds, ", "))
	}

	for _, aud := range auds {
		if aud != v.clientID && !v.otherAudience(aud) {
			return claimsErrorf(ClaimsInvalidAudience, "%q is not a trusted audience", aud)
		}
	}

	return nil
}

// verifySignature returns the verified payload. The returned error is always a
// *ClaimsVerificationError when non-nil.
func (v *ClaimsVerifier) verifySignature(tok *jws.Token) ([]byte, error) {
	h := tok.Header()

	if h.Algorithm == algNone {
		return nil, claimsErrorf(ClaimsNoSignature, "token must be signed")
	}

	alg := jose.SignatureAlgorithm(h.Algorithm)

	if v.allowedAlgs != nil && !containsAlg(v.allowedAlgs, alg) {
		allowed := make([]string, len(v.allowedAlgs))
		for i, a := range v.allowedAlgs {
			allowed[i] = string(a)
		}
		return nil, wrapSignatureError(signatureErrorf(SignatureDisallowedAlg, nil,
			"algorithm %q is not one of: %s", h.Algorithm, strings.Join(allowed, ", ")))
	}

	info, ok := signatureAlgs[alg]
	if !ok {
		return nil, wrapSignatureError(signatureErrorf(SignatureUnsupportedAlg, nil, "unsupported signature algorithm %q", h.Algorithm))
	}

	if info.mac {
		if v.clientSecret == nil {
			return nil, wrapSignatureError(signatureErrorf(SignatureDisallowedAlg, nil, "symmetric signatures are disallowed for public clients"))
		}
		payload, err := tok.Payload(alg, v.clientSecret)
		if err != nil {
			return nil, wrapSignatureError(cryptoError(err))
		}
		return payload, nil
	}

	key, serr := selectKey(v.keys.Keys, info.keyType, h.KeyID)
	if serr != nil {
		return nil, wrapSignatureError(serr)
	}

	vk := key.Key
	if !key.IsPublic() {
		vk = key.Public().Key
	}

	payload, err := tok.Payload(alg, vk)
	if err != nil {
		return nil, wrapSignatureError(cryptoError(err))
	}
	return payload, nil
}

func cryptoError(err error) *SignatureVerificationError {
	if errors.Is(err, jose.ErrUnsupportedKeyType) || errors.Is(err, jose.ErrInvalidKeySize) {
		return signatureErrorf(SignatureInvalidKey, err, "key cannot be used for this algorithm: %v", err)
	}
	return signatureErrorf(SignatureCryptoError, err, "signature verification failed: %v", err)
}

// observe reports the outcome of a verification to the logger and metrics.
func (v *ClaimsVerifier) observe(verifier string, tok *jws.Token, err error) {
	v.metrics.observe(verifier, err)
	if err == nil {
		return
	}

	h := tok.Header()
	fields := logrus.Fields{
		"verifier": verifier,
		"kind":     kindOf(err).String(),
		"alg":      h.Algorithm,
	}
	if h.KeyID != "" {
		fields["kid"] = h.KeyID
	}
	var serr *SignatureVerificationError
	if errors.As(err, &serr) {
		fields["signature_kind"] = serr.Kind.String()
	}
	v.logger.WithFields(fields).Debugf("token rejected: %v", err)
}

// unmarshalVerified replaces the unverified claims in dest with the ones the
// signature was checked over.
func unmarshalVerified(payload []byte, dest Claims) error {
	return json.Unmarshal(payload, dest)
}

func containsAlg(algs []jose.SignatureAlgorithm, alg jose.SignatureAlgorithm) bool {
	for _, a := range algs {
		if a == alg {
			return true
		}
	}
	return false
}

func copyKeySet(ks jose.JSONWebKeySet) jose.JSONWebKeySet {
	keys := make([]jose.JSONWebKey, len(ks.Keys))
	copy(keys, ks.Keys)
	return jose.JSONWebKeySet{Keys: keys}
}

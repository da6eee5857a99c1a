package oidcverify

import (
	"fmt"
)

// SignatureErrorKind identifies why a signature could not be verified.
type SignatureErrorKind int

const (
	// SignatureOther is a failure that doesn't fit any other kind.
	SignatureOther SignatureErrorKind = iota
	// SignatureAmbiguousKeyID means more than one key could verify the token.
	SignatureAmbiguousKeyID
	// SignatureCryptoError means the signature or MAC did not match.
	SignatureCryptoError
	// SignatureDisallowedAlg means the algorithm is not permitted by the
	// verifier configuration.
	SignatureDisallowedAlg
	// SignatureInvalidKey means the selected key can't be used for the
	// algorithm.
	SignatureInvalidKey
	// SignatureNoMatchingKey means no key in the set can verify the token.
	SignatureNoMatchingKey
	// SignatureUnsupportedAlg means the algorithm is not implemented.
	SignatureUnsupportedAlg
)

func (k SignatureErrorKind) String() string {
	switch k {
	case SignatureAmbiguousKeyID:
		return "ambiguous_key_id"
	case SignatureCryptoError:
		return "crypto_error"
	case SignatureDisallowedAlg:
		return "disallowed_alg"
	case SignatureInvalidKey:
		return "invalid_key"
	case SignatureNoMatchingKey:
		return "no_matching_key"
	case SignatureUnsupportedAlg:
		return "unsupported_alg"
	default:
		return "other"
	}
}

// SignatureVerificationError is returned, wrapped in a ClaimsVerificationError,
// when the signature step of verification fails. Callers should switch on Kind,
// Msg is for logs only.
type SignatureVerificationError struct {
	Kind SignatureErrorKind
	Msg  string
	// Cause is the underlying error from the crypto layer, if any
	Cause error
}

func (e *SignatureVerificationError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

func (e *SignatureVerificationError) Unwrap() error {
	return e.Cause
}

// Is matches on Kind, so the Err* sentinels can be used with errors.Is.
func (e *SignatureVerificationError) Is(target error) bool {
	t, ok := target.(*SignatureVerificationError)
	return ok && t.Kind == e.Kind
}

// ClaimsErrorKind identifies which check rejected a token.
type ClaimsErrorKind int

const (
	// ClaimsOther is a failure that doesn't fit any other kind, e.g a payload
	// that can't be decoded.
	ClaimsOther ClaimsErrorKind = iota
	// ClaimsExpired means the token is past its expiry, or its issue time was
	// rejected.
	ClaimsExpired
	// ClaimsInvalidAudience means the audience is missing or untrusted.
	ClaimsInvalidAudience
	// ClaimsInvalidAuthContext means the acr claim was rejected.
	ClaimsInvalidAuthContext
	// ClaimsInvalidAuthTime means the auth_time claim was rejected.
	ClaimsInvalidAuthTime
	// ClaimsInvalidIssuer means the issuer is missing or doesn't match.
	ClaimsInvalidIssuer
	// ClaimsInvalidNonce means the nonce is missing or doesn't match.
	ClaimsInvalidNonce
	// ClaimsInvalidSubject means the subject doesn't match the expected one.
	ClaimsInvalidSubject
	// ClaimsNoSignature means the token is unsigned.
	ClaimsNoSignature
	// ClaimsSignatureVerification means the signature step failed, see Sig.
	ClaimsSignatureVerification
	// ClaimsUnsupported means the token uses a feature that isn't supported.
	ClaimsUnsupported
)

func (k ClaimsErrorKind) String() string {
	switch k {
	case ClaimsExpired:
		return "expired"
	case ClaimsInvalidAudience:
		return "invalid_audience"
	case ClaimsInvalidAuthContext:
		return "invalid_auth_context"
	case ClaimsInvalidAuthTime:
		return "invalid_auth_time"
	case ClaimsInvalidIssuer:
		return "invalid_issuer"
	case ClaimsInvalidNonce:
		return "invalid_nonce"
	case ClaimsInvalidSubject:
		return "invalid_subject"
	case ClaimsNoSignature:
		return "no_signature"
	case ClaimsSignatureVerification:
		return "signature_verification"
	case ClaimsUnsupported:
		return "unsupported"
	default:
		return "other"
	}
}

// ClaimsVerificationError is the error returned by every verifier in this
// package. Callers should switch on Kind (or use errors.Is with the Err*
// sentinels), Msg is for logs only.
type ClaimsVerificationError struct {
	Kind ClaimsErrorKind
	Msg  string
	// Sig is set when Kind is ClaimsSignatureVerification
	Sig *SignatureVerificationError
}

func (e *ClaimsVerificationError) Error() string {
	if e.Kind == ClaimsSignatureVerification && e.Sig != nil {
		return fmt.Sprintf("signature verification failed: %s", e.Sig.Error())
	}
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

func (e *ClaimsVerificationError) Unwrap() error {
	if e.Sig == nil {
		return nil
	}
	return e.Sig
}

// Is matches on Kind, so the Err* sentinels can be used with errors.Is.
func (e *ClaimsVerificationError) Is(target error) bool {
	t, ok := target.(*ClaimsVerificationError)
	return ok && t.Kind == e.Kind
}

// Sentinels for use with errors.Is. They carry no message.
var (
	ErrExpired               = &ClaimsVerificationError{Kind: ClaimsExpired}
	ErrInvalidAudience       = &ClaimsVerificationError{Kind: ClaimsInvalidAudience}
	ErrInvalidAuthContext    = &ClaimsVerificationError{Kind: ClaimsInvalidAuthContext}
	ErrInvalidAuthTime       = &ClaimsVerificationError{Kind: ClaimsInvalidAuthTime}
	ErrInvalidIssuer         = &ClaimsVerificationError{Kind: ClaimsInvalidIssuer}
	ErrInvalidNonce          = &ClaimsVerificationError{Kind: ClaimsInvalidNonce}
	ErrInvalidSubject        = &ClaimsVerificationError{Kind: ClaimsInvalidSubject}
	ErrNoSignature           = &ClaimsVerificationError{Kind: ClaimsNoSignature}
	ErrClaimsOther           = &ClaimsVerificationError{Kind: ClaimsOther}
	ErrSignatureVerification = &ClaimsVerificationError{Kind: ClaimsSignatureVerification}
	ErrUnsupported           = &ClaimsVerificationError{Kind: ClaimsUnsupported}

	ErrAmbiguousKeyID = &SignatureVerificationError{Kind: SignatureAmbiguousKeyID}
	ErrCryptoError    = &SignatureVerificationError{Kind: SignatureCryptoError}
	ErrDisallowedAlg  = &SignatureVerificationError{Kind: SignatureDisallowedAlg}
	ErrInvalidKey     = &SignatureVerificationError{Kind: SignatureInvalidKey}
	ErrNoMatchingKey  = &SignatureVerificationError{Kind: SignatureNoMatchingKey}
	ErrUnsupportedAlg = &SignatureVerificationError{Kind: SignatureUnsupportedAlg}
	ErrSignatureOther = &SignatureVerificationError{Kind: SignatureOther}
)

func claimsErrorf(kind ClaimsErrorKind, format string, args ...interface{}) *ClaimsVerificationError {
	return &ClaimsVerificationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func signatureErrorf(kind SignatureErrorKind, cause error, format string, args ...interface{}) *SignatureVerificationError {
	return &SignatureVerificationError{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// wrapSignatureError lifts a signature failure into the claims taxonomy.
func wrapSignatureError(err *SignatureVerificationError) *ClaimsVerificationError {
	return &ClaimsVerificationError{Kind: ClaimsSignatureVerification, Msg: err.Msg, Sig: err}
}

// kindOf returns the claims kind of err, or ClaimsOther if err didn't come
// from this package.
func kindOf(err error) ClaimsErrorKind {
	if cerr, ok := err.(*ClaimsVerificationError); ok {
		return cerr.Kind
	}
	return ClaimsOther
}

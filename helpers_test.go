package oidcverify

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/pardot/oidcverify/idtoken"
	"github.com/pardot/oidcverify/jws"
	"github.com/pardot/oidcverify/signer"
)

const (
	testIssuer   = "https://issuer.example.com"
	testClientID = "client"
)

var (
	testRSAKey = mustGenRSAKey(2048)
	testECKey  = mustGenECKey()
	// HMAC secrets must be at least as long as the hash output
	testSecret = strings.Repeat("s3cr3t", 12)

	testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
)

func mustGenRSAKey(bits int) *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		panic(err)
	}

	return key
}

func mustGenECKey() *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}

	return key
}

func testClock() time.Time {
	return testNow
}

// testKeySet is the public half of the test RSA and EC keys.
func testKeySet() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{Key: testRSAKey.Public(), KeyID: "rsa", Algorithm: "RS256", Use: "sig"},
			{Key: testECKey.Public(), KeyID: "ec", Algorithm: "ES256", Use: "sig"},
		},
	}
}

// validClaims returns ID token claims that pass every default check at
// testNow.
func validClaims() idtoken.Claims {
	return idtoken.Claims{
		Issuer:   testIssuer,
		Subject:  "user",
		Audience: idtoken.Audience{testClientID},
		Expiry:   idtoken.NewUnixTime(testNow.Add(time.Minute)),
		IssuedAt: idtoken.NewUnixTime(testNow.Add(-time.Minute)),
		Nonce:    "nonce",
	}
}

// signToken signs claims with key, setting kid if it is non-empty.
func signToken(t *testing.T, alg jose.SignatureAlgorithm, key interface{}, kid string, claims interface{}, opts ...signer.SignOpt) string {
	t.Helper()

	sk := jose.SigningKey{Algorithm: alg, Key: key}
	if kid != "" {
		sk.Key = &jose.JSONWebKey{Key: key, KeyID: kid}
	}

	raw, err := signer.NewStatic(sk, nil).SignClaims(context.Background(), claims, opts...)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return raw
}

// rawToken assembles a token from a literal header, the JSON of claims and an
// empty signature.
func rawToken(t *testing.T, header string, claims interface{}) string {
	t.Helper()

	b, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(header)) + "." + base64.RawURLEncoding.EncodeToString(b) + "."
}

// rawPayloadToken builds an unsigned compact token from literal header and
// payload text.
func rawPayloadToken(header, payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(header)) + "." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + "."
}

// signRawRS384 signs literal header text with testRSAKey using RS384, so the
// header can carry members a JOSE library would not emit.
func signRawRS384(t *testing.T, header string, claims interface{}) string {
	t.Helper()

	unsigned := strings.TrimSuffix(rawToken(t, header, claims), ".")
	digest := sha512.Sum384([]byte(unsigned))
	sig, err := rsa.SignPKCS1v15(rand.Reader, testRSAKey, crypto.SHA384, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	return unsigned + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// tamper changes the first character of the signature segment.
func tamper(raw string) string {
	i := strings.LastIndex(raw, ".") + 1
	c := byte('A')
	if raw[i] == 'A' {
		c = 'B'
	}
	return raw[:i] + string(c) + raw[i+1:]
}

func mustParse(t *testing.T, raw string) *jws.Token {
	t.Helper()

	tok, err := jws.Parse(raw)
	if err != nil {
		t.Fatalf("parsing token: %v", err)
	}
	return tok
}

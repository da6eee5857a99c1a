package signer

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"testing"

	jose "github.com/go-jose/go-jose/v3"
)

func TestCryptoSigner(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		Name    string
		Key     func(t *testing.T) crypto.Signer
		WantAlg jose.SignatureAlgorithm
	}{
		{
			Name: "rsa",
			Key: func(t *testing.T) crypto.Signer {
				return mustGenRSAKey(2048)
			},
			WantAlg: jose.RS256,
		},
		{
			Name: "p384",
			Key: func(t *testing.T) crypto.Signer {
				k, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
				if err != nil {
					t.Fatal(err)
				}
				return k
			},
			WantAlg: jose.ES384,
		},
		{
			Name: "ed25519",
			Key: func(t *testing.T) crypto.Signer {
				_, k, err := ed25519.GenerateKey(rand.Reader)
				if err != nil {
					t.Fatal(err)
				}
				return k
			},
			WantAlg: jose.EdDSA,
		},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			kid := "somekey"

			s, err := NewFromCrypto(tc.Key(t), kid)
			if err != nil {
				t.Fatalf("failed to create signer: %v", err)
			}

			if alg := s.Algorithm(); alg != tc.WantAlg {
				t.Errorf("want alg %s, got %s", tc.WantAlg, alg)
			}

			jwt := []byte(`{"sub": "sub ject"}`)

			signed, err := s.Sign(ctx, jwt)
			if err != nil {
				t.Fatalf("error signing: %v", err)
			}

			pl, err := verifyToken(ctx, s, string(signed))
			if err != nil {
				t.Fatalf("error verifying signed jwt: %v", err)
			}

			if string(pl) != string(jwt) {
				t.Fatalf("want: %s, got: %s", string(jwt), string(pl))
			}
		})
	}
}

func TestCryptoSignerUnsupportedKey(t *testing.T) {
	if _, err := NewFromCrypto(badSigner{}, "k"); err == nil {
		t.Fatal("want error for unsupported key type")
	}
}

type badSigner struct{}

func (badSigner) Public() crypto.PublicKey { return "not a key" }

func (badSigner) Sign(_ io.Reader, _ []byte, _ crypto.SignerOpts) ([]byte, error) {
	return nil, nil
}

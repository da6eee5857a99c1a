package discovery

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
)

func TestHandler(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}

	ks := &mockKeysource{
		keys: []jose.JSONWebKey{
			{
				Key:       key.Public(),
				KeyID:     "testkey",
				Algorithm: "RS256",
				Use:       "sig",
			},
		},
	}

	h, err := NewHandler(&ProviderMetadata{
		Issuer:                "https://issuer",
		AuthorizationEndpoint: "https://issuer/auth",
		TokenEndpoint:         "https://issuer/token",
	}, WithKeysource(ks, 1*time.Nanosecond), WithDefaults())
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	res, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("failed to get discovery info: %v", err)
	}
	gotpm := &ProviderMetadata{}
	err = json.NewDecoder(res.Body).Decode(gotpm)
	_ = res.Body.Close()
	if err != nil {
		t.Fatalf("failed decoding metadata response: %v", err)
	}

	if gotpm.JWKSURI != "https://issuer/.well-known/openid-configuration/jwks.json" {
		t.Errorf("want jwks URI %s, got %s", "https://issuer/.well-known/openid-configuration/jwks.json", gotpm.JWKSURI)
	}

	res, err = http.Get(ts.URL + "/jwks.json")
	if err != nil {
		t.Fatalf("failed to get keys: %v", err)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/jwk-set+json" {
		t.Errorf("unexpected content type %s", ct)
	}
	gotks := &jose.JSONWebKeySet{}
	err = json.NewDecoder(res.Body).Decode(gotks)
	_ = res.Body.Close()
	if err != nil {
		t.Fatalf("failed decoding keys response: %v", err)
	}
	if len(gotks.Keys) != 1 || gotks.Keys[0].KeyID != "testkey" {
		t.Errorf("unexpected keys %#v", gotks.Keys)
	}
}

func TestNewHandlerValidates(t *testing.T) {
	_, err := NewHandler(&ProviderMetadata{Issuer: "https://issuer"})
	if err == nil {
		t.Fatal("want error for incomplete metadata")
	}
	for _, want := range []string{"AuthorizationEndpoint", "JWKSURI", "TokenEndpoint"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err.Error(), want)
		}
	}
}

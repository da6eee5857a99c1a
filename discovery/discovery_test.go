package discovery

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/google/go-cmp/cmp"
)

type mockKeysource struct {
	keys  []jose.JSONWebKey
	calls int32
}

func (m *mockKeysource) PublicKeys(ctx context.Context) (*jose.JSONWebKeySet, error) {
	atomic.AddInt32(&m.calls, 1)
	return &jose.JSONWebKeySet{Keys: m.keys}, nil
}

func newTestProvider(t *testing.T, ks KeySource) *httptest.Server {
	t.Helper()

	m := http.NewServeMux()
	ts := httptest.NewServer(m)
	t.Cleanup(ts.Close)

	pm := &ProviderMetadata{
		Issuer:                            ts.URL,
		AuthorizationEndpoint:             ts.URL + "/auth",
		TokenEndpoint:                     ts.URL + "/token",
		UserinfoSigningAlgValuesSupported: []string{"ES256"},
	}

	h, err := NewHandler(pm, WithKeysource(ks, 1*time.Nanosecond), WithDefaults())
	if err != nil {
		t.Fatalf("error creating handler: %v", err)
	}
	m.Handle(oidcwk+"/", http.StripPrefix(oidcwk, h))

	return ts
}

func TestDiscovery(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

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

	ts := newTestProvider(t, ks)

	cli, err := NewClient(ctx, ts.URL)
	if err != nil {
		t.Fatalf("failed to create discovery client: %v", err)
	}

	md := cli.Metadata()
	if diff := cmp.Diff([]string{"RS256"}, md.IDTokenSigningAlgValuesSupported); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]string{"ES256"}, md.UserinfoSigningAlgValuesSupported); diff != "" {
		t.Error(diff)
	}
	if md.JWKSURI != ts.URL+oidcwk+"/jwks.json" {
		t.Errorf("unexpected jwks_uri %s", md.JWKSURI)
	}

	got, err := cli.PublicKeys(ctx)
	if err != nil {
		t.Fatalf("wanted no error getting keys, got: %v", err)
	}
	if len(got.Keys) != 1 || got.Keys[0].KeyID != "testkey" {
		t.Fatalf("unexpected keys %#v", got.Keys)
	}

	// the returned set belongs to the caller
	got.Keys[0].KeyID = "changed"
	again, err := cli.PublicKeys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Keys[0].KeyID != "testkey" {
		t.Errorf("mutation leaked into client, got kid %s", again.Keys[0].KeyID)
	}
}

func TestClientKeysCache(t *testing.T) {
	ctx := context.Background()

	ks := &mockKeysource{}
	ts := newTestProvider(t, ks)

	cli, err := NewClient(ctx, ts.URL, WithKeysCache(time.Hour), WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := cli.PublicKeys(ctx); err != nil {
			t.Fatal(err)
		}
	}

	if got := atomic.LoadInt32(&ks.calls); got != 1 {
		t.Errorf("want keys fetched once, got %d", got)
	}
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		Name    string
		Handler http.HandlerFunc
		WantErr string
	}{
		{
			Name: "issuer mismatch",
			Handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"issuer":"https://someone-else"}`))
			},
			WantErr: "issuer did not match",
		},
		{
			Name: "not found",
			Handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			WantErr: "404",
		},
		{
			Name: "bad json",
			Handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{`))
			},
			WantErr: "decoding",
		},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			ts := httptest.NewServer(tc.Handler)
			defer ts.Close()

			_, err := NewClient(ctx, ts.URL)
			if err == nil || !strings.Contains(err.Error(), tc.WantErr) {
				t.Fatalf("want error containing %q, got: %v", tc.WantErr, err)
			}
		})
	}
}

func TestPublicKeysWithoutJWKSURI(t *testing.T) {
	c := &Client{md: &ProviderMetadata{}}
	if _, err := c.PublicKeys(context.Background()); err == nil {
		t.Fatal("want error with no jwks_uri")
	}
}

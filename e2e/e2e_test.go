package e2e

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/pardot/oidcverify"
	"github.com/pardot/oidcverify/discovery"
	"github.com/pardot/oidcverify/idtoken"
	"github.com/pardot/oidcverify/signer"
	"github.com/pardot/oidcverify/userinfo"
	"golang.org/x/oauth2"
)

const (
	clientID     = "client-id"
	clientSecret = "client-secret"
	subject      = "test-sub"
)

func TestE2E(t *testing.T) {
	ctx := context.Background()

	callbackChan := make(chan string, 1)
	state := randomStateValue()
	nonce := randomStateValue()

	cliSvr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if errMsg := req.FormValue("error"); errMsg != "" {
			t.Errorf("error returned to callback %s: %s", errMsg, req.FormValue("error_description"))

			w.WriteHeader(http.StatusBadRequest)
			return
		}

		gotState := req.FormValue("state")
		if gotState == "" || gotState != state {
			t.Errorf("returned state doesn't match request state")

			w.WriteHeader(http.StatusBadRequest)
			return
		}

		callbackChan <- req.FormValue("code")
	}))
	defer cliSvr.Close()

	op := newStubProvider(t, cliSvr.URL)

	// relying party
	provider, err := oidcverify.DiscoverProvider(ctx, op.URL)
	if err != nil {
		t.Fatalf("discovering provider: %v", err)
	}
	md := provider.Metadata()

	o2c := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  md.AuthorizationEndpoint,
			TokenURL: md.TokenEndpoint,
		},
		RedirectURL: cliSvr.URL,
		Scopes:      []string{"openid"},
	}

	resp, err := http.Get(o2c.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce)))
	if err != nil {
		t.Fatalf("error getting auth URL: %v", err)
	}
	_ = resp.Body.Close()

	var callbackCode string
	select {
	case callbackCode = <-callbackChan:
	case <-time.After(1 * time.Second):
		t.Fatal("waiting for callback timed out after 1s")
	}

	tok, err := o2c.Exchange(ctx, callbackCode)
	if err != nil {
		t.Fatalf("error exchanging code %q for token: %v", callbackCode, err)
	}

	verifier, err := provider.IDTokenVerifier(ctx, clientID, clientSecret)
	if err != nil {
		t.Fatalf("building verifier: %v", err)
	}

	// nonces are single use
	seen := map[string]bool{}
	var seenMu sync.Mutex
	nv := oidcverify.NonceVerifierFunc(func(got string, present bool) error {
		seenMu.Lock()
		defer seenMu.Unlock()
		if !present || got != nonce {
			return fmt.Errorf("unexpected nonce %q", got)
		}
		if seen[got] {
			return errors.New("nonce already used")
		}
		seen[got] = true
		return nil
	})

	claims, err := verifier.VerifyOAuth2Token(tok, nv)
	if err != nil {
		t.Fatalf("verifying ID token: %v", err)
	}
	if claims.Subject != subject {
		t.Errorf("want subject %s, got %s", subject, claims.Subject)
	}

	if _, err := verifier.VerifyOAuth2Token(tok, nv); !errors.Is(err, oidcverify.ErrInvalidNonce) {
		t.Errorf("want replayed nonce rejected, got: %v", err)
	}

	// signed user info, bound to the ID token's subject
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, md.UserinfoEndpoint, nil)
	if err != nil {
		t.Fatal(err)
	}
	tok.SetAuthHeader(req)
	uiresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("fetching userinfo: %v", err)
	}
	body, err := ioutil.ReadAll(uiresp.Body)
	_ = uiresp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if ct := uiresp.Header.Get("Content-Type"); ct != "application/jwt" {
		t.Fatalf("want signed userinfo, got content type %s: %s", ct, body)
	}

	uiv, err := provider.UserInfoVerifier(ctx, clientID, clientSecret, claims.Subject)
	if err != nil {
		t.Fatalf("building userinfo verifier: %v", err)
	}
	ui, err := uiv.Verify(strings.TrimSpace(string(body)))
	if err != nil {
		t.Fatalf("verifying userinfo: %v", err)
	}
	if ui.Email != "test@example.com" {
		t.Errorf("want email test@example.com, got %s", ui.Email)
	}

	if _, err := uiv.WithExpectedSubject("someone-else").Verify(string(body)); !errors.Is(err, oidcverify.ErrInvalidSubject) {
		t.Errorf("want subject mismatch, got: %v", err)
	}
}

// newStubProvider runs a minimal code flow provider that authorizes every
// request for subject.
func newStubProvider(t *testing.T, redirectURI string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	oidcSvr := httptest.NewServer(mux)
	t.Cleanup(oidcSvr.Close)

	var (
		mu     sync.Mutex
		nonces = map[string]string{}
	)

	mux.HandleFunc("/authorization", func(w http.ResponseWriter, req *http.Request) {
		if req.FormValue("redirect_uri") != redirectURI || req.FormValue("client_id") != clientID {
			http.Error(w, "bad client", http.StatusBadRequest)
			return
		}

		code := randomStateValue()
		mu.Lock()
		nonces[code] = req.FormValue("nonce")
		mu.Unlock()

		http.Redirect(w, req, fmt.Sprintf("%s?code=%s&state=%s", redirectURI, code, req.FormValue("state")), http.StatusFound)
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, req *http.Request) {
		id, secret, ok := req.BasicAuth()
		if !ok || id != clientID || secret != clientSecret {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
			return
		}

		mu.Lock()
		nonce, ok := nonces[req.FormValue("code")]
		delete(nonces, req.FormValue("code"))
		mu.Unlock()
		if !ok {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}

		now := time.Now()
		idt, err := testSigner.SignClaims(req.Context(), idtoken.Claims{
			Issuer:   oidcSvr.URL,
			Subject:  subject,
			Audience: idtoken.Audience{clientID},
			Expiry:   idtoken.NewUnixTime(now.Add(time.Minute)),
			IssuedAt: idtoken.NewUnixTime(now),
			Nonce:    nonce,
		})
		if err != nil {
			t.Errorf("signing id token: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "access-" + subject,
			"token_type":   "Bearer",
			"expires_in":   60,
			"id_token":     idt,
		})
	})

	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer access-"+subject {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		uit, err := testSigner.SignClaims(req.Context(), userinfo.Claims{
			Issuer:   oidcSvr.URL,
			Audience: idtoken.Audience{clientID},
			Subject:  subject,
			Email:    "test@example.com",
		})
		if err != nil {
			t.Errorf("signing userinfo: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/jwt")
		_, _ = w.Write([]byte(uit))
	})

	md := &discovery.ProviderMetadata{
		Issuer:                            oidcSvr.URL,
		AuthorizationEndpoint:             oidcSvr.URL + "/authorization",
		TokenEndpoint:                     oidcSvr.URL + "/token",
		UserinfoEndpoint:                  oidcSvr.URL + "/userinfo",
		UserinfoSigningAlgValuesSupported: []string{"RS256"},
	}

	discoh, err := discovery.NewHandler(md, discovery.WithKeysource(testSigner, 1*time.Second), discovery.WithDefaults())
	if err != nil {
		t.Fatalf("Failed to initialize discovery handler: %v", err)
	}
	mux.Handle("/.well-known/openid-configuration/", http.StripPrefix("/.well-known/openid-configuration", discoh))

	return oidcSvr
}

func randomStateValue() string {
	const numBytes = 16

	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}

	return base64.RawURLEncoding.EncodeToString(b)
}

var testSigner = func() *signer.StaticSigner {
	key := mustGenRSAKey(2048)

	signingKey := jose.SigningKey{Algorithm: jose.RS256, Key: &jose.JSONWebKey{
		Key:   key,
		KeyID: "testkey",
	}}

	verificationKeys := []jose.JSONWebKey{
		{
			Key:       key.Public(),
			KeyID:     "testkey",
			Algorithm: "RS256",
			Use:       "sig",
		},
	}

	return signer.NewStatic(signingKey, verificationKeys)
}()

func mustGenRSAKey(bits int) *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		panic(err)
	}

	return key
}

// Package middleware protects HTTP handlers with OIDC ID tokens presented as
// bearer tokens.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/pardot/oidcverify"
	"github.com/pardot/oidcverify/idtoken"
	"github.com/sirupsen/logrus"
)

type claimsContextKey struct{}

// Handler wraps another http.Handler, requiring requests to carry a valid ID
// token in the Authorization header.
type Handler struct {
	// Verifier checks the presented tokens. Required. Bearer tokens were not
	// requested by this party, so the nonce is not checked.
	Verifier *oidcverify.IDTokenVerifier
	// Realm is returned in the WWW-Authenticate challenge, if set.
	Realm string
	// Logger receives a line for each rejected request. If nil, nothing is
	// logged.
	Logger logrus.FieldLogger
}

// Wrap returns an http.Handler that wraps the given http.Handler and
// requires bearer token authentication.
func (h *Handler) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			h.logger().WithField("path", r.URL.Path).Debug("request without bearer token")
			h.unauthorized(w, nil)
			return
		}

		cl, err := h.Verifier.Verify(raw, oidcverify.InsecureSkipNonceCheck)
		if err != nil {
			fields := logrus.Fields{"path": r.URL.Path}
			var cerr *oidcverify.ClaimsVerificationError
			if errors.As(err, &cerr) {
				fields["kind"] = cerr.Kind.String()
			}
			h.logger().WithFields(fields).Infof("rejected bearer token: %v", err)
			h.unauthorized(w, err)
			return
		}

		// Authentication successful
		r = r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, cl))
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) logger() logrus.FieldLogger {
	if h.Logger != nil {
		return h.Logger
	}
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

// unauthorized sends a RFC 6750 challenge. verr is nil when no token was
// presented.
func (h *Handler) unauthorized(w http.ResponseWriter, verr error) {
	params := []string{}
	if h.Realm != "" {
		params = append(params, fmt.Sprintf("realm=%q", h.Realm))
	}
	if verr != nil {
		params = append(params, `error="invalid_token"`)
	}

	challenge := "Bearer"
	if len(params) > 0 {
		challenge += " " + strings.Join(params, ", ")
	}

	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// ClaimFromContext returns a single claim of the authenticated token by its
// JSON name, or nil if it isn't set.
func ClaimFromContext(ctx context.Context, claim string) interface{} {
	c := ClaimsFromContext(ctx)
	if c == nil {
		return nil
	}

	b, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}

	return m[claim]
}

// ClaimsFromContext returns the verified claims of the authenticated token,
// or nil if the request didn't pass through a Handler.
func ClaimsFromContext(ctx context.Context) *idtoken.Claims {
	c, ok := ctx.Value(claimsContextKey{}).(*idtoken.Claims)
	if !ok {
		return nil
	}

	return c
}

package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v3"
)

var _ http.Handler = (*Handler)(nil)

// Handler is a http.Handler that can serve the OIDC provider metadata endpoint,
// and the keys from a source.
//
// It should be mounted at `<issuer>/.well-known/openid-configuration`, and all
// subpaths. This can be achieved with the stdlib mux by using a trailing slash.
// Any prefix should be stripped before calling this Handler
type Handler struct {
	md  *ProviderMetadata
	mux *http.ServeMux

	ks             KeySource
	ksCacheFor     time.Duration
	currKeys       *jose.JSONWebKeySet
	currKeysMu     sync.Mutex
	lastKeysUpdate time.Time
}

// HandlerOpt is an option that can configure a Handler
type HandlerOpt func(h *Handler)

// KeySource is used to retrieve the public keys this provider is signing with
type KeySource interface {
	// PublicKeys should return the current signing key set
	PublicKeys(ctx context.Context) (*jose.JSONWebKeySet, error)
}

// WithKeysource serves the keys from s on the handler, and points the metadata
// jwks_uri at them. It assumes the metadata contains a valid issuer to build
// the target URL. Keys retrieved will be cached in-memory for the specified
// duration
func WithKeysource(s KeySource, cacheFor time.Duration) HandlerOpt {
	return func(h *Handler) {
		h.ks = s
		h.ksCacheFor = cacheFor
		h.md.JWKSURI = strings.TrimSuffix(h.md.Issuer, "/") + oidcwk + "/jwks.json"
		h.mux.HandleFunc("/jwks.json", h.serveKeys)
	}
}

// WithDefaults fills in the metadata a minimal code flow provider signing
// with RS256 would publish, where it is not otherwise set.
func WithDefaults() HandlerOpt {
	return func(h *Handler) {
		if len(h.md.ResponseTypesSupported) == 0 {
			h.md.ResponseTypesSupported = []string{"code"}
		}

		if len(h.md.SubjectTypesSupported) == 0 {
			h.md.SubjectTypesSupported = []string{"public"}
		}

		if len(h.md.IDTokenSigningAlgValuesSupported) == 0 {
			h.md.IDTokenSigningAlgValuesSupported = []string{"RS256"}
		}

		if len(h.md.GrantTypesSupported) == 0 {
			h.md.GrantTypesSupported = []string{"authorization_code"}
		}
	}
}

// NewHandler configures and returns a Handler. The metadata must be valid
// once the options are applied.
func NewHandler(metadata *ProviderMetadata, opts ...HandlerOpt) (*Handler, error) {
	h := &Handler{
		md:  metadata,
		mux: http.NewServeMux(),
	}

	for _, o := range opts {
		o(h)
	}

	h.mux.HandleFunc("/", h.serveMetadata)

	if err := h.md.validate(); err != nil {
		return nil, err
	}

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.mux.ServeHTTP(w, req)
}

func (h *Handler) serveMetadata(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(h.md); err != nil {
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
}

func (h *Handler) serveKeys(w http.ResponseWriter, req *http.Request) {
	h.currKeysMu.Lock()
	defer h.currKeysMu.Unlock()

	if h.currKeys == nil || time.Now().After(h.lastKeysUpdate.Add(h.ksCacheFor)) {
		ks, err := h.ks.PublicKeys(req.Context())
		if err != nil {
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}

		h.currKeys = ks
		h.lastKeysUpdate = time.Now()
	}

	w.Header().Set("Content-Type", "application/jwk-set+json")

	if err := json.NewEncoder(w).Encode(h.currKeys); err != nil {
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
}

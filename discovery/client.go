package discovery

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const oidcwk = "/.well-known/openid-configuration"

// Client can be used to fetch the provider metadata for a given issuer, and can
// also return the signing keys on demand.
//
// It should be created via `NewClient` to ensure it is initialized correctly.
type Client struct {
	md *ProviderMetadata

	hc     *http.Client
	logger logrus.FieldLogger

	keysCacheFor time.Duration
	jwks         *jose.JSONWebKeySet
	jwksFetched  time.Time
	jwksMu       sync.Mutex
}

// ClientOpt is an option that can configure a client
type ClientOpt func(c *Client)

// WithHTTPClient will set a http.Client for the initial discovery, and key
// fetching. If not set, http.DefaultClient will be used.
func WithHTTPClient(hc *http.Client) ClientOpt {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithLogger sets the logger fetches are reported to.
func WithLogger(l logrus.FieldLogger) ClientOpt {
	return func(c *Client) {
		c.logger = l
	}
}

// WithKeysCache keeps fetched keys for d before fetching them again. By
// default every PublicKeys call hits the JWKS endpoint.
func WithKeysCache(d time.Duration) ClientOpt {
	return func(c *Client) {
		c.keysCacheFor = d
	}
}

// NewClient will initialize a Client, performing the initial discovery. The
// issuer in the returned document must match issuer exactly.
func NewClient(ctx context.Context, issuer string, opts ...ClientOpt) (*Client, error) {
	l := logrus.New()
	l.Out = ioutil.Discard

	c := &Client{
		md:     &ProviderMetadata{},
		hc:     http.DefaultClient,
		logger: l,
	}

	for _, o := range opts {
		o(c)
	}

	wk := strings.TrimSuffix(issuer, "/") + oidcwk
	if err := c.getJSON(ctx, wk, c.md); err != nil {
		return nil, errors.Wrap(err, "fetching provider metadata")
	}

	if c.md.Issuer != issuer {
		return nil, errors.Errorf("issuer did not match the returned metadata: want %q, got %q", issuer, c.md.Issuer)
	}

	c.logger.WithField("issuer", issuer).Debug("fetched provider metadata")

	return c, nil
}

// Metadata returns the ProviderMetadata that was retrieved when the client was
// instantiated
func (c *Client) Metadata() *ProviderMetadata {
	return c.md
}

// PublicKeys fetches the provider's JWKS. The returned set is a copy, callers
// may modify it.
func (c *Client) PublicKeys(ctx context.Context) (*jose.JSONWebKeySet, error) {
	if c.md.JWKSURI == "" {
		return nil, errors.New("metadata has no JWKS endpoint, cannot fetch keys")
	}

	c.jwksMu.Lock()
	defer c.jwksMu.Unlock()

	if c.jwks == nil || time.Since(c.jwksFetched) >= c.keysCacheFor {
		ks := &jose.JSONWebKeySet{}
		if err := c.getJSON(ctx, c.md.JWKSURI, ks); err != nil {
			return nil, errors.Wrapf(err, "fetching keys from %s", c.md.JWKSURI)
		}
		c.jwks = ks
		c.jwksFetched = time.Now()
		c.logger.WithField("keys", len(ks.Keys)).Debug("fetched JWKS")
	}

	ks := &jose.JSONWebKeySet{Keys: make([]jose.JSONWebKey, len(c.jwks.Keys))}
	copy(ks.Keys, c.jwks.Keys)
	return ks, nil
}

func (c *Client) getJSON(ctx context.Context, url string, into interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error fetching %s", url)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := ioutil.ReadAll(io.LimitReader(res.Body, 1<<10))
		return errors.Errorf("%s returned %s: %s", url, res.Status, string(b))
	}

	if err := json.NewDecoder(res.Body).Decode(into); err != nil {
		return errors.Wrapf(err, "decoding response from %s", url)
	}
	return nil
}

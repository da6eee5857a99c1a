// Package discovery fetches an OIDC provider's metadata and keys for relying
// parties, and can serve them for a provider.
//
// https://openid.net/specs/openid-connect-discovery-1_0.html
package discovery

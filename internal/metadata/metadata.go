// Package metadata reads instance attributes and delegated credentials from
// the instance metadata server. Access is header-authenticated only: every
// request carries the Metadata-Flavor header and no other auth is accepted
// by this endpoint class.
package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/endpoints-tools/config-fetcher/internal/serviceconfig"
	"github.com/endpoints-tools/config-fetcher/internal/transport"
)

const (
	instancePath = "/computeMetadata/v1/instance"

	serviceNameAttribute = "endpoints-service-name"
	configIDAttribute    = "endpoints-service-config-id"
	// legacyConfigIDAttribute predates the config-id attribute; it is
	// consulted once when the primary attribute cannot be read.
	legacyConfigIDAttribute = "endpoints-service-version"
)

// Client queries one metadata server.
type Client struct {
	doer    transport.Doer
	baseURL string
}

// NewClient constructs a Client for the metadata server at baseURL.
func NewClient(doer transport.Doer, baseURL string) *Client {
	return &Client{doer: doer, baseURL: strings.TrimRight(baseURL, "/")}
}

func flavorHeaders() map[string]string {
	return map[string]string{"Metadata-Flavor": "Google"}
}

// ServiceName returns the logical service identity of this instance.
func (c *Client) ServiceName(ctx context.Context) (string, error) {
	return c.attribute(ctx, serviceNameAttribute, "service name")
}

// ConfigID returns the expected service configuration version. The primary
// attribute is tried first; on any failure the legacy attribute name is
// tried once, and its failure is the one propagated. This is a deliberate
// two-step fallback, not a retry policy.
func (c *Client) ConfigID(ctx context.Context) (string, error) {
	id, err := c.attribute(ctx, configIDAttribute, "service config ID")
	if err == nil {
		return id, nil
	}
	return c.attribute(ctx, legacyConfigIDAttribute, "service config ID")
}

// AccessToken obtains a bearer token for the instance's default service
// account via metadata delegation.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	tokenURL := c.baseURL + instancePath + "/service-accounts/default/token"

	resp, err := c.doer.Get(ctx, tokenURL, flavorHeaders())
	if err != nil {
		return "", serviceconfig.Errorf(serviceconfig.CodeFetch,
			"failed to fetch access token from the metadata server: %s", tokenURL)
	}
	if resp.StatusCode != http.StatusOK {
		return "", serviceconfig.Errorf(serviceconfig.CodeFetch,
			"fetching access token failed (url %s, status code %d)", tokenURL, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil || payload.AccessToken == "" {
		return "", serviceconfig.Errorf(serviceconfig.CodeFetch,
			"invalid access token response from the metadata server (url %s)", tokenURL)
	}
	return payload.AccessToken, nil
}

func (c *Client) attribute(ctx context.Context, name, what string) (string, error) {
	attrURL := c.baseURL + instancePath + "/attributes/" + name

	resp, err := c.doer.Get(ctx, attrURL, flavorHeaders())
	if err != nil {
		return "", serviceconfig.Errorf(serviceconfig.CodeFetch,
			"failed to fetch %s from the metadata server: %s", what, attrURL)
	}
	if resp.StatusCode != http.StatusOK {
		return "", serviceconfig.Errorf(serviceconfig.CodeFetch,
			"fetching %s failed (url %s, status code %d)", what, attrURL, resp.StatusCode)
	}
	return strings.TrimSpace(string(resp.Body)), nil
}

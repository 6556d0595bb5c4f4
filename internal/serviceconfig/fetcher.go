package serviceconfig

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/endpoints-tools/config-fetcher/internal/transport"
)

// Fetcher retrieves service configuration documents. It performs exactly one
// GET per call; retries, if any, belong to the injected transport.
type Fetcher struct {
	doer transport.Doer
}

// NewFetcher constructs a Fetcher using the given transport.
func NewFetcher(doer transport.Doer) *Fetcher {
	return &Fetcher{doer: doer}
}

// Fetch downloads and parses the configuration document at configURL. The
// bearer header is omitted when accessToken is empty.
func (f *Fetcher) Fetch(ctx context.Context, configURL, accessToken string) (Document, error) {
	resp, err := f.doer.Get(ctx, configURL, bearerHeaders(accessToken))
	if err != nil {
		return nil, Errorf(CodeFetch, "failed to fetch service config (url %s): %v", configURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, Errorf(CodeFetch, "fetching service config failed (status code %d, reason %s, url %s)",
			resp.StatusCode, resp.Reason, configURL)
	}

	var doc Document
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return nil, Errorf(CodeFetch, "invalid service config response (url %s): %v", configURL, err)
	}
	return doc, nil
}

package serviceconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/endpoints-tools/config-fetcher/internal/transport"
)

// Selector walks the paginated rollout history of a service. The feed is
// served newest-first, so the first successful rollout that still carries a
// traffic split is the one currently in effect.
type Selector struct {
	doer          transport.Doer
	managementURL string
}

// NewSelector constructs a Selector querying the given management API base URL.
func NewSelector(doer transport.Doer, managementURL string) *Selector {
	return &Selector{doer: doer, managementURL: managementURL}
}

// SelectActiveVersions returns the traffic-percent map of the first
// successful rollout found scanning pages in fetch order. Pages are fetched
// strictly one at a time; history beyond the match is never requested.
func (s *Selector) SelectActiveVersions(ctx context.Context, serviceName, accessToken string) (map[string]float64, error) {
	var (
		pageToken  string
		lastStatus int
		lastReason string
		lastURL    string
	)

	for {
		rolloutsURL := fmt.Sprintf("%s/v1/services/%s/rollouts?pageToken=%s",
			s.managementURL, url.PathEscape(serviceName), url.QueryEscape(pageToken))

		resp, err := s.doer.Get(ctx, rolloutsURL, bearerHeaders(accessToken))
		if err != nil {
			return nil, Errorf(CodeFetch, "failed to fetch rollouts (url %s): %v", rolloutsURL, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, Errorf(CodeFetch, "fetching rollouts failed (status code %d, reason %s, url %s)",
				resp.StatusCode, resp.Reason, rolloutsURL)
		}

		var page RolloutPage
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, Errorf(CodeFetch, "invalid rollouts response (url %s): %v", rolloutsURL, err)
		}
		if page.Rollouts == nil {
			return nil, Errorf(CodeFetch, "invalid rollouts response (url %s, data %s)", rolloutsURL, resp.Body)
		}

		for _, rollout := range page.Rollouts {
			if rollout.active() {
				return rollout.TrafficPercentStrategy.Percentages, nil
			}
		}

		lastStatus, lastReason, lastURL = resp.StatusCode, resp.Reason, rolloutsURL
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	// The feed is exhausted without a usable rollout. Reuse the last page's
	// status and URL so the failure is attributable.
	return nil, Errorf(CodeFetch, "fetching rollouts failed (status code %d, reason %s, url %s)",
		lastStatus, lastReason, lastURL)
}

// bearerHeaders returns an Authorization header map, or nil when running
// unauthenticated.
func bearerHeaders(accessToken string) map[string]string {
	if accessToken == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + accessToken}
}

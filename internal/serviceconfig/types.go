package serviceconfig

// RolloutPage is one page of the rollout history feed. A nil Rollouts slice
// means the field was absent or null in the response, which is distinct
// from an empty list; an empty NextPageToken marks the last page.
type RolloutPage struct {
	Rollouts      []RolloutRecord `json:"rollouts"`
	NextPageToken string          `json:"nextPageToken"`
}

// RolloutRecord is one recorded deployment event.
type RolloutRecord struct {
	RolloutID              string                  `json:"rolloutId"`
	Status                 string                  `json:"status"`
	TrafficPercentStrategy *TrafficPercentStrategy `json:"trafficPercentStrategy"`
}

// TrafficPercentStrategy maps configuration version IDs to the percentage
// of live traffic each should receive.
type TrafficPercentStrategy struct {
	Percentages map[string]float64 `json:"percentages"`
}

const rolloutStatusSuccess = "SUCCESS"

// active reports whether this rollout currently directs traffic: it
// completed successfully and still carries a non-empty traffic split.
// A SUCCESS rollout whose strategy was removed does not count.
func (r RolloutRecord) active() bool {
	return r.Status == rolloutStatusSuccess &&
		r.TrafficPercentStrategy != nil &&
		len(r.TrafficPercentStrategy.Percentages) > 0
}

// Document is a service configuration document. It is kept as a generic
// mapping so fields the validator does not inspect pass through untouched.
type Document map[string]any

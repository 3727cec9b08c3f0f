package gateway

import (
	"context"
	"net/http"
)

// AnalyticsClient fetches the raw per-day click series for dashboards.
type AnalyticsClient struct {
	client *Client
}

// NewAnalyticsClient creates an AnalyticsClient on top of an authenticated Client.
func NewAnalyticsClient(client *Client) *AnalyticsClient {
	return &AnalyticsClient{client: client}
}

// ClickSeries fetches the calling user's click counts keyed by ISO date.
// The mapping is sparse: only days with recorded clicks appear, and key
// order is meaningless until aggregated.
func (a *AnalyticsClient) ClickSeries(ctx context.Context) (map[string]int64, error) {
	series := make(map[string]int64)
	if err := a.client.do(ctx, http.MethodGet, "/api/analytics/user", nil, nil, &series); err != nil {
		return nil, err
	}
	return series, nil
}

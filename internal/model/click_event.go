package model

import "time"

// ClickEvent represents a single redirect hit against a short URL.
// Events are the raw input for the per-day analytics series.
type ClickEvent struct {
	ID        string    `json:"id"`
	URLID     string    `json:"url_id"`
	ShortCode string    `json:"short_code"`
	ClickedAt time.Time `json:"clicked_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}

// URLAnalytics is the per-URL analytics view: total clicks plus the
// sparse per-day click counts keyed by ISO date string.
type URLAnalytics struct {
	URLID        string           `json:"urlId"`
	ShortCode    string           `json:"shortCode"`
	TotalClicks  int64            `json:"totalClicks"`
	ClicksByDate map[string]int64 `json:"clicksByDate"`
}

package model

import "time"

// ShortURL represents a shortened URL owned by a user.
// TotalClicks is maintained by the redirect path only; everything else is
// immutable after creation except Enabled.
type ShortURL struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	ShortCode   string    `json:"shortCode"`
	OriginalURL string    `json:"originalUrl"`
	TotalClicks int64     `json:"totalClicks"`
	Enabled     bool      `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CachedRedirect represents redirect data stored in Redis.
// Uses string types for Redis hash compatibility.
type CachedRedirect struct {
	OriginalURL string `redis:"original_url"`
	Enabled     string `redis:"enabled"` // "1" or "0"
	URLID       string `redis:"url_id"`
}

// ToCachedRedirect converts a ShortURL to its cache representation.
func (u *ShortURL) ToCachedRedirect() *CachedRedirect {
	enabled := "0"
	if u.Enabled {
		enabled = "1"
	}
	return &CachedRedirect{
		OriginalURL: u.OriginalURL,
		Enabled:     enabled,
		URLID:       u.ID,
	}
}

// ToShortURL converts cached redirect data back to a partial ShortURL.
// Only the fields needed on the redirect hot path are populated.
func (c *CachedRedirect) ToShortURL(shortCode string) *ShortURL {
	return &ShortURL{
		ID:          c.URLID,
		ShortCode:   shortCode,
		OriginalURL: c.OriginalURL,
		Enabled:     c.Enabled == "1",
	}
}

package repository

import (
	"context"
	"fmt"

	"github.com/snipay/snipay/internal/model"
)

// InsertClickEvent records a single redirect hit.
func (r *Repository) InsertClickEvent(ctx context.Context, event *model.ClickEvent) error {
	query := `
		INSERT INTO click_events (id, url_id, short_code, clicked_at, ip_address, user_agent, referrer)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.URLID,
		event.ShortCode,
		event.ClickedAt,
		nullableString(event.IPAddress),
		nullableString(event.UserAgent),
		nullableString(event.Referrer),
	)
	if err != nil {
		return fmt.Errorf("failed to insert click event: %w", err)
	}

	return nil
}

// ClicksByDayForUser aggregates click counts per UTC day across all of a
// user's URLs. The result is sparse: only days with clicks appear.
func (r *Repository) ClicksByDayForUser(ctx context.Context, userID string) (map[string]int64, error) {
	query := `
		SELECT to_char(ce.clicked_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM click_events ce
		JOIN short_urls u ON u.id = ce.url_id
		WHERE u.user_id = $1
		GROUP BY day
	`

	return r.queryClicksByDay(ctx, query, userID)
}

// ClicksByDayForURL aggregates click counts per UTC day for one URL.
func (r *Repository) ClicksByDayForURL(ctx context.Context, urlID string) (map[string]int64, error) {
	query := `
		SELECT to_char(clicked_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM click_events
		WHERE url_id = $1
		GROUP BY day
	`

	return r.queryClicksByDay(ctx, query, urlID)
}

func (r *Repository) queryClicksByDay(ctx context.Context, query string, arg any) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks by day: %w", err)
	}
	defer rows.Close()

	series := make(map[string]int64)
	for rows.Next() {
		var day string
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan clicks by day: %w", err)
		}
		series[day] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks by day: %w", err)
	}

	return series, nil
}

// nullableString returns nil for empty strings.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Package clicks turns raw per-day click counts into ordered series
// suitable for dashboards. The input is the sparse date-keyed mapping
// returned by the analytics endpoint: only days with at least one click
// are guaranteed present, and key order carries no meaning.
package clicks

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the calendar-date key format used on the wire.
const DateLayout = "2006-01-02"

// Point is a single day in the ordered series.
type Point struct {
	Date  time.Time
	Count int64
}

// Report is the aggregated view of a raw click series.
//
// HasData distinguishes "no days tracked at all" from a series that
// happens to sum to zero. Callers rendering dashboards must check it
// instead of comparing TotalClicks against zero: a day with a recorded
// count of 0 is still a tracked day.
type Report struct {
	Points      []Point
	TotalClicks int64
	DaysTracked int
	HasData     bool
}

// Aggregate normalizes a sparse date-keyed click mapping into a report
// with points sorted ascending by calendar date. The input map is never
// mutated. Keys must be ISO 8601 dates; duplicate keys cannot occur in a
// map, so every key contributes exactly one tracked day.
//
// Dates are compared as parsed time values rather than raw strings, so
// the ordering does not depend on the key representation.
func Aggregate(raw map[string]int64) (Report, error) {
	if len(raw) == 0 {
		return Report{}, nil
	}

	points := make([]Point, 0, len(raw))
	var total int64

	for key, count := range raw {
		date, err := time.Parse(DateLayout, key)
		if err != nil {
			return Report{}, fmt.Errorf("parse date key %q: %w", key, err)
		}
		points = append(points, Point{Date: date, Count: count})
		total += count
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return Report{
		Points:      points,
		TotalClicks: total,
		DaysTracked: len(points),
		HasData:     true,
	}, nil
}

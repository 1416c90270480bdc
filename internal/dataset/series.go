package dataset

import (
	"sort"
	"time"
)

// DailyPoint is one day of the aggregated sentiment signal.
type DailyPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// RecentWindow keeps rows whose timestamp falls within the trailing
// windowDays relative to the latest observed timestamp (inclusive).
// Rows without a timestamp are dropped.
func RecentWindow(rows []AnalyzedRecord, windowDays int) []AnalyzedRecord {
	var latest time.Time
	for _, r := range rows {
		if r.Timestamp != nil && r.Timestamp.After(latest) {
			latest = *r.Timestamp
		}
	}
	if latest.IsZero() {
		return nil
	}

	cutoff := latest.AddDate(0, 0, -windowDays)
	var kept []AnalyzedRecord
	for _, r := range rows {
		if r.Timestamp == nil {
			continue
		}
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	return kept
}

// DailyMeans buckets rows by UTC calendar day and averages the score,
// returning the series sorted ascending by date.
func DailyMeans(rows []AnalyzedRecord) []DailyPoint {
	type bucket struct {
		sum float64
		n   int
	}
	days := make(map[time.Time]*bucket)
	for _, r := range rows {
		if r.Timestamp == nil {
			continue
		}
		t := r.Timestamp.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		b, ok := days[day]
		if !ok {
			b = &bucket{}
			days[day] = b
		}
		b.sum += r.Score
		b.n++
	}

	points := make([]DailyPoint, 0, len(days))
	for day, b := range days {
		points = append(points, DailyPoint{Date: day, Value: b.sum / float64(b.n)})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

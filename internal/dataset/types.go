// Package dataset defines the tabular records flowing through the
// pipeline and the fixed-path CSV storage both jobs share.
package dataset

import (
	"strings"
	"time"
)

// PlatformUnknown is the sentinel used when a record arrives without a
// source-identifying platform.
const PlatformUnknown = "unknown"

// Sentiment labels derived from the signed score.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// Record is one fetched item before analysis. Timestamp is nil when the
// source value could not be parsed; that is data, not an error.
type Record struct {
	Platform  string
	Timestamp *time.Time
	Query     string
	Text      string
	URL       string
}

// AnalyzedRecord is a Record with the sentiment columns attached.
// Score is a signed value in [-1, 1].
type AnalyzedRecord struct {
	Record
	Label string
	Score float64
}

// LabelForScore maps a signed score to its label. Thresholds follow the
// usual compound-score convention: anything within ±0.05 is neutral.
func LabelForScore(score float64) string {
	switch {
	case score >= 0.05:
		return LabelPositive
	case score <= -0.05:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// ClampScore bounds a score to the valid [-1, 1] range.
func ClampScore(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp coerces a raw timestamp string to a time value.
// Unparseable or empty input yields nil rather than an error.
func ParseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}

// Merge concatenates the two source record sets into one table,
// defaulting missing platforms to the sentinel. Order is news first,
// then forum, preserving each source's own ordering.
func Merge(news, forum []Record) []Record {
	merged := make([]Record, 0, len(news)+len(forum))
	for _, r := range news {
		if r.Platform == "" {
			r.Platform = PlatformUnknown
		}
		merged = append(merged, r)
	}
	for _, r := range forum {
		if r.Platform == "" {
			r.Platform = PlatformUnknown
		}
		merged = append(merged, r)
	}
	return merged
}

// Stats are the dashboard counters computed over analyzed rows.
type Stats struct {
	TotalRecords  int `json:"total_records"`
	PositiveCount int `json:"positive_count"`
	NeutralCount  int `json:"neutral_count"`
	NegativeCount int `json:"negative_count"`
}

func ComputeStats(rows []AnalyzedRecord) Stats {
	stats := Stats{TotalRecords: len(rows)}
	for _, r := range rows {
		switch r.Label {
		case LabelPositive:
			stats.PositiveCount++
		case LabelNegative:
			stats.NegativeCount++
		default:
			stats.NeutralCount++
		}
	}
	return stats
}

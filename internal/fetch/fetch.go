// Package fetch implements the two external record sources consumed by
// the pipeline: a news article search API and a public forum feed.
package fetch

import (
	"context"

	"github.com/seligo/sentiment-pulse/internal/dataset"
)

// Fetcher pulls records for a set of queries, bounded to maxRecords in
// total. Implementations stop early once the budget is reached and wrap
// upstream failures as UpstreamFetch errors.
type Fetcher interface {
	Fetch(ctx context.Context, queries []string, maxRecords int) ([]dataset.Record, error)
}

// Package sentiment scores collected texts on a [-1, 1] scale and labels
// them positive, neutral or negative.
package sentiment

import (
	"context"

	"github.com/seligo/sentiment-pulse/internal/dataset"
)

// Analyzer scores a slice of records. Implementations must preserve input
// order and return one analyzed record per input record.
type Analyzer interface {
	Analyze(ctx context.Context, rows []dataset.Record, batchSize int) ([]dataset.AnalyzedRecord, error)
}

// Completer produces a raw model reply for a prompt. It is the seam
// between the batching logic and the LLM provider.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

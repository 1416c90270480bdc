package sentiment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/errdefs"
	"github.com/seligo/sentiment-pulse/pkg/log"
)

const defaultBatchSize = 5

// LLMAnalyzer scores records in batches through a Completer. Records whose
// detected language does not match the configured one are scored neutral
// without a model call.
type LLMAnalyzer struct {
	completer Completer
	language  language.Tag
	logger    *log.Logger
}

// NewLLMAnalyzer creates an analyzer. lang selects the analyzable language;
// language.Und disables the gate and sends every text to the model.
func NewLLMAnalyzer(completer Completer, lang language.Tag, logger *log.Logger) *LLMAnalyzer {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &LLMAnalyzer{
		completer: completer,
		language:  lang,
		logger:    logger,
	}
}

// Analyze scores every record and returns them in input order.
func (a *LLMAnalyzer) Analyze(ctx context.Context, rows []dataset.Record, batchSize int) ([]dataset.AnalyzedRecord, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	analyzed := make([]dataset.AnalyzedRecord, len(rows))
	var pending []int
	for i, row := range rows {
		analyzed[i] = dataset.AnalyzedRecord{
			Record: row,
			Label:  dataset.LabelNeutral,
			Score:  0,
		}
		if a.analyzable(row.Text) {
			pending = append(pending, i)
		}
	}
	if skipped := len(rows) - len(pending); skipped > 0 {
		a.logger.Info("Skipping %d records outside the analyzable language", skipped)
	}
	if len(pending) == 0 {
		return analyzed, nil
	}

	texts := make([]string, len(pending))
	for i, idx := range pending {
		texts[i] = rows[idx].Text
	}

	scores, err := a.scoreRange(ctx, texts, batchSize, 0, len(texts))
	if err != nil {
		return nil, err
	}

	for i, idx := range pending {
		score := dataset.ClampScore(scores[i])
		analyzed[idx].Score = score
		analyzed[idx].Label = dataset.LabelForScore(score)
	}
	return analyzed, nil
}

// scoreRange walks texts[startIncluded:endExcluded] in batchSize slices.
// A reply with the wrong number of scores retries the range with a halved
// batch size before failing.
func (a *LLMAnalyzer) scoreRange(ctx context.Context, texts []string, batchSize, startIncluded, endExcluded int) ([]float64, error) {
	if batchSize <= 0 {
		return nil, errdefs.New(errdefs.Analysis, "batch size must be greater than 0")
	}

	var all []float64
	for i := startIncluded; i < endExcluded; i += batchSize {
		end := min(i+batchSize, endExcluded)
		batch := texts[i:end]

		reply, err := a.completer.Complete(ctx, buildPrompt(batch))
		if err != nil {
			return nil, errdefs.Wrap(err, errdefs.Analysis, "sentiment scoring failed").
				WithContext("range", fmt.Sprintf("%d-%d", i+1, end))
		}

		scores := parseScores(reply)
		if len(scores) != len(batch) {
			a.logger.Warn("Score count mismatch for texts %d-%d (want %d, got %d), retrying with batch size %d",
				i+1, end, len(batch), len(scores), batchSize/2)
			if scores, err = a.scoreRange(ctx, texts, batchSize/2, i, end); err != nil {
				return nil, err
			}
		}
		all = append(all, scores...)
	}
	return all, nil
}

func (a *LLMAnalyzer) analyzable(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if a.language == language.Und {
		return true
	}
	detected := language.All.Make(whatlanggo.DetectLang(text).Iso6391())
	wantBase, _ := a.language.Base()
	gotBase, _ := detected.Base()
	return wantBase == gotBase
}

func buildPrompt(texts []string) string {
	var b strings.Builder
	b.WriteString("Score the sentiment of each numbered text about the AI industry ")
	b.WriteString("on a scale from -1.0 (most negative) to 1.0 (most positive).\n\n")
	for i, text := range texts {
		flat := strings.ReplaceAll(text, "\n", " ")
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, flat))
	}
	b.WriteString("\nReply with exactly one score per line, in the same order, ")
	b.WriteString("and nothing else.\n")
	return b.String()
}

// parseScores extracts one float per line, tolerating numbered prefixes
// like "1. 0.35". Lines that do not end in a number are dropped, so a
// malformed reply surfaces as a count mismatch.
func parseScores(reply string) []float64 {
	var scores []float64
	for _, line := range strings.Split(reply, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSuffix(fields[len(fields)-1], "."), 64)
		if err != nil {
			continue
		}
		scores = append(scores, value)
	}
	return scores
}

var _ Analyzer = (*LLMAnalyzer)(nil)

package sentiment

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/errdefs"
)

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// promptTexts extracts the numbered entries back out of a prompt.
func promptTexts(prompt string) []string {
	var texts []string
	for _, line := range strings.Split(prompt, "\n") {
		parts := strings.SplitN(line, ". ", 2)
		if len(parts) != 2 {
			continue
		}
		if _, err := fmt.Sscanf(parts[0], "%d", new(int)); err != nil {
			continue
		}
		texts = append(texts, parts[1])
	}
	return texts
}

func records(texts ...string) []dataset.Record {
	rows := make([]dataset.Record, len(texts))
	for i, text := range texts {
		rows[i] = dataset.Record{Platform: "news", Query: "ai", Text: text}
	}
	return rows
}

func TestAnalyzeScoresInOrder(t *testing.T) {
	wantScores := map[string]float64{
		"alpha": 0.9,
		"beta":  -0.6,
		"gamma": 0.0,
		"delta": 0.2,
		"echo":  -0.1,
	}

	var calls int
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		var lines []string
		for _, text := range promptTexts(prompt) {
			score, ok := wantScores[text]
			require.True(t, ok, "unexpected text in prompt: %q", text)
			lines = append(lines, fmt.Sprintf("%.2f", score))
		}
		return strings.Join(lines, "\n"), nil
	})

	analyzer := NewLLMAnalyzer(completer, language.Und, nil)
	rows := records("alpha", "beta", "gamma", "delta", "echo")

	analyzed, err := analyzer.Analyze(context.Background(), rows, 2)
	require.NoError(t, err)
	require.Len(t, analyzed, 5)
	assert.Equal(t, 3, calls)

	assert.InDelta(t, 0.9, analyzed[0].Score, 1e-9)
	assert.Equal(t, dataset.LabelPositive, analyzed[0].Label)
	assert.InDelta(t, -0.6, analyzed[1].Score, 1e-9)
	assert.Equal(t, dataset.LabelNegative, analyzed[1].Label)
	assert.Equal(t, dataset.LabelNeutral, analyzed[2].Label)
	assert.Equal(t, "alpha", analyzed[0].Text)
	assert.Equal(t, "echo", analyzed[4].Text)
}

func TestAnalyzeLanguageGate(t *testing.T) {
	english := "The latest artificial intelligence release is impressive and the community praised it widely."
	japanese := "この新しい人工知能モデルは素晴らしい性能を発揮しています。"

	var prompts []string
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return strings.Repeat("0.5\n", len(promptTexts(prompt))), nil
	})

	analyzer := NewLLMAnalyzer(completer, language.English, nil)
	rows := records(english, japanese, "   ")

	analyzed, err := analyzer.Analyze(context.Background(), rows, 10)
	require.NoError(t, err)
	require.Len(t, analyzed, 3)

	for _, prompt := range prompts {
		assert.NotContains(t, prompt, japanese)
	}

	assert.InDelta(t, 0.5, analyzed[0].Score, 1e-9)
	assert.Equal(t, dataset.LabelPositive, analyzed[0].Label)

	// Gated records come back neutral with a zero score.
	assert.Zero(t, analyzed[1].Score)
	assert.Equal(t, dataset.LabelNeutral, analyzed[1].Label)
	assert.Zero(t, analyzed[2].Score)
	assert.Equal(t, dataset.LabelNeutral, analyzed[2].Label)
}

func TestAnalyzeCountMismatchHalvesBatch(t *testing.T) {
	var calls []int
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		texts := promptTexts(prompt)
		calls = append(calls, len(texts))
		if len(calls) == 1 {
			// Short reply forces the halving retry.
			return "0.1", nil
		}
		return strings.Repeat("0.3\n", len(texts)), nil
	})

	analyzer := NewLLMAnalyzer(completer, language.Und, nil)
	rows := records("alpha", "beta", "gamma", "delta")

	analyzed, err := analyzer.Analyze(context.Background(), rows, 4)
	require.NoError(t, err)
	require.Len(t, analyzed, 4)

	assert.Equal(t, []int{4, 2, 2}, calls)
	for _, row := range analyzed {
		assert.InDelta(t, 0.3, row.Score, 1e-9)
		assert.Equal(t, dataset.LabelPositive, row.Label)
	}
}

func TestAnalyzeGivesUpWhenBatchExhausted(t *testing.T) {
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		return "not a score at all", nil
	})

	analyzer := NewLLMAnalyzer(completer, language.Und, nil)
	_, err := analyzer.Analyze(context.Background(), records("alpha"), 1)
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.Analysis))
	assert.Contains(t, err.Error(), "batch size")
}

func TestAnalyzeCompleterErrorPropagates(t *testing.T) {
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errdefs.New(errdefs.Analysis, "provider unavailable")
	})

	analyzer := NewLLMAnalyzer(completer, language.Und, nil)
	_, err := analyzer.Analyze(context.Background(), records("alpha", "beta"), 5)
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.Analysis))
	assert.Contains(t, err.Error(), "provider unavailable")
}

func TestAnalyzeClampsScores(t *testing.T) {
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		return "1.7\n-3.0\n0.01", nil
	})

	analyzer := NewLLMAnalyzer(completer, language.Und, nil)
	analyzed, err := analyzer.Analyze(context.Background(), records("alpha", "beta", "gamma"), 3)
	require.NoError(t, err)

	assert.Equal(t, 1.0, analyzed[0].Score)
	assert.Equal(t, dataset.LabelPositive, analyzed[0].Label)
	assert.Equal(t, -1.0, analyzed[1].Score)
	assert.Equal(t, dataset.LabelNegative, analyzed[1].Label)
	assert.InDelta(t, 0.01, analyzed[2].Score, 1e-9)
	assert.Equal(t, dataset.LabelNeutral, analyzed[2].Label)
}

func TestAnalyzeEmptyInput(t *testing.T) {
	completer := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		t.Fatal("completer must not be called for empty input")
		return "", nil
	})

	analyzer := NewLLMAnalyzer(completer, language.English, nil)
	analyzed, err := analyzer.Analyze(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, analyzed)
}

func TestParseScores(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []float64
	}{
		{
			name:  "bare floats",
			reply: "0.5\n-0.25\n1",
			want:  []float64{0.5, -0.25, 1},
		},
		{
			name:  "numbered lines",
			reply: "1. 0.5\n2. -0.25",
			want:  []float64{0.5, -0.25},
		},
		{
			name:  "preamble dropped",
			reply: "Here are the scores:\n0.5\n0.7",
			want:  []float64{0.5, 0.7},
		},
		{
			name:  "trailing period tolerated",
			reply: "0.5.\n-0.1",
			want:  []float64{0.5, -0.1},
		},
		{
			name:  "blank lines skipped",
			reply: "\n0.2\n\n0.4\n",
			want:  []float64{0.2, 0.4},
		},
		{
			name:  "empty reply",
			reply: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseScores(tt.reply))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt([]string{"first text", "second\nwith newline"})

	assert.Contains(t, prompt, "1. first text")
	assert.Contains(t, prompt, "2. second with newline")
	assert.Contains(t, prompt, "one score per line")
	assert.NotContains(t, prompt, "second\nwith")
}

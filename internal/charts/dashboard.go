package charts

import (
	"fmt"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/seligo/sentiment-pulse/internal/dataset"
)

func labelCountsPanel(rows []dataset.AnalyzedRecord) renderable {
	stats := dataset.ComputeStats(rows)
	bars := []chart.Value{
		{Label: "positive", Value: float64(stats.PositiveCount), Style: chart.Style{FillColor: chart.ColorGreen, StrokeColor: chart.ColorGreen}},
		{Label: "neutral", Value: float64(stats.NeutralCount), Style: chart.Style{FillColor: chart.ColorAlternateGray, StrokeColor: chart.ColorAlternateGray}},
		{Label: "negative", Value: float64(stats.NegativeCount), Style: chart.Style{FillColor: chart.ColorRed, StrokeColor: chart.ColorRed}},
	}
	return barChart("Sentiment counts", bars)
}

func platformSharePanel(rows []dataset.AnalyzedRecord) renderable {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.Platform]++
	}

	values := make([]chart.Value, 0, len(counts))
	for _, platform := range sortedKeys(counts) {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", platform, counts[platform]),
			Value: float64(counts[platform]),
		})
	}

	return chart.PieChart{
		Title:  "Platform share",
		Width:  dashboardPanelWidth,
		Height: dashboardPanelHeight,
		Values: values,
	}
}

func scoreDistributionPanel(rows []dataset.AnalyzedRecord) renderable {
	buckets := []struct {
		label string
		lo    float64
		hi    float64
	}{
		{"-1.0..-0.6", -1.0, -0.6},
		{"-0.6..-0.2", -0.6, -0.2},
		{"-0.2..0.2", -0.2, 0.2},
		{"0.2..0.6", 0.2, 0.6},
		{"0.6..1.0", 0.6, 1.0},
	}

	counts := make([]int, len(buckets))
	for _, row := range rows {
		for i, b := range buckets {
			last := i == len(buckets)-1
			if row.Score >= b.lo && (row.Score < b.hi || (last && row.Score <= b.hi)) {
				counts[i]++
				break
			}
		}
	}

	bars := make([]chart.Value, len(buckets))
	for i, b := range buckets {
		bars[i] = chart.Value{Label: b.label, Value: float64(counts[i])}
	}
	return barChart("Score distribution", bars)
}

func queryVolumePanel(rows []dataset.AnalyzedRecord) renderable {
	counts := make(map[string]int)
	for _, row := range rows {
		query := row.Query
		if query == "" {
			query = "(none)"
		}
		counts[query]++
	}

	bars := make([]chart.Value, 0, len(counts))
	for _, query := range sortedKeys(counts) {
		bars = append(bars, chart.Value{Label: query, Value: float64(counts[query])})
	}
	return barChart("Records per query", bars)
}

func barChart(title string, bars []chart.Value) chart.BarChart {
	maxValue := 0.0
	for _, bar := range bars {
		if bar.Value > maxValue {
			maxValue = bar.Value
		}
	}
	if maxValue == 0 {
		maxValue = 1
	}

	return chart.BarChart{
		Title:    title,
		Width:    dashboardPanelWidth,
		Height:   dashboardPanelHeight,
		BarWidth: 50,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue * 1.15},
		},
		Bars: bars,
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

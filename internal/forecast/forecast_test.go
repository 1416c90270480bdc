package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/errdefs"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func lineSeries(n int, intercept, slope float64) []dataset.DailyPoint {
	series := make([]dataset.DailyPoint, n)
	for i := range series {
		series[i] = dataset.DailyPoint{
			Date:  monday.AddDate(0, 0, i),
			Value: intercept + slope*float64(i),
		}
	}
	return series
}

func TestForecastHorizonLength(t *testing.T) {
	engine := NewSeasonalTrendEngine()
	series := lineSeries(10, 0.1, 0.02)

	points, err := engine.Forecast(context.Background(), series, 14)
	require.NoError(t, err)
	require.Len(t, points, 24)

	for i, p := range series {
		assert.Equal(t, p.Date, points[i].Date)
	}
	last := series[len(series)-1].Date
	for h := 1; h <= 14; h++ {
		assert.Equal(t, last.AddDate(0, 0, h), points[len(series)+h-1].Date)
	}
}

func TestForecastRecoversLinearTrend(t *testing.T) {
	engine := NewSeasonalTrendEngine()
	series := lineSeries(10, 0.1, 0.02)

	points, err := engine.Forecast(context.Background(), series, 5)
	require.NoError(t, err)

	for h := 1; h <= 5; h++ {
		p := points[len(series)+h-1]
		want := 0.1 + 0.02*float64(9+h)
		assert.InDelta(t, want, p.YHat, 1e-6, "horizon day %d", h)
		assert.InDelta(t, want, p.Trend, 1e-6)
		// A perfect fit leaves no residual spread.
		assert.InDelta(t, p.YHat, p.Lower, 1e-6)
		assert.InDelta(t, p.YHat, p.Upper, 1e-6)
	}
}

func TestForecastHandlesGaps(t *testing.T) {
	engine := NewSeasonalTrendEngine()
	offsets := []int{0, 1, 2, 5, 6}
	series := make([]dataset.DailyPoint, len(offsets))
	for i, off := range offsets {
		series[i] = dataset.DailyPoint{
			Date:  monday.AddDate(0, 0, off),
			Value: 0.1 + 0.02*float64(off),
		}
	}

	points, err := engine.Forecast(context.Background(), series, 2)
	require.NoError(t, err)
	require.Len(t, points, 7)

	// The slope is per calendar day, so the projection continues the line
	// past the last observed day.
	for h := 1; h <= 2; h++ {
		p := points[len(series)+h-1]
		assert.Equal(t, monday.AddDate(0, 0, 6+h), p.Date)
		assert.InDelta(t, 0.1+0.02*float64(6+h), p.YHat, 1e-6)
	}
}

func TestForecastWeekdaySeasonality(t *testing.T) {
	engine := NewSeasonalTrendEngine()

	// Four full weeks with a flat weekday level and a weekend bump.
	series := make([]dataset.DailyPoint, 28)
	for i := range series {
		date := monday.AddDate(0, 0, i)
		value := 0.2
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			value = 0.5
		}
		series[i] = dataset.DailyPoint{Date: date, Value: value}
	}

	points, err := engine.Forecast(context.Background(), series, 7)
	require.NoError(t, err)

	horizon := points[len(series):]
	var saturday, wednesday float64
	for _, p := range horizon {
		switch p.Date.Weekday() {
		case time.Saturday:
			saturday = p.YHat
		case time.Wednesday:
			wednesday = p.YHat
		}
	}
	assert.Greater(t, saturday, wednesday+0.15,
		"weekend bump should survive into the horizon")
}

func TestForecastBoundsOrderedAndWidening(t *testing.T) {
	engine := NewSeasonalTrendEngine()
	values := []float64{0.1, 0.3, -0.2, 0.25, 0.0, 0.4, -0.1, 0.2, 0.05, 0.35, -0.05, 0.15}
	series := make([]dataset.DailyPoint, len(values))
	for i, v := range values {
		series[i] = dataset.DailyPoint{Date: monday.AddDate(0, 0, i), Value: v}
	}

	points, err := engine.Forecast(context.Background(), series, 10)
	require.NoError(t, err)

	for i, p := range points {
		assert.LessOrEqual(t, p.Lower, p.YHat, "point %d", i)
		assert.GreaterOrEqual(t, p.Upper, p.YHat, "point %d", i)
	}

	prevWidth := 0.0
	for h, p := range points[len(series):] {
		width := p.Upper - p.Lower
		assert.Greater(t, width, prevWidth, "horizon day %d should widen", h+1)
		prevWidth = width
	}
}

func TestForecastRequiresTwoDays(t *testing.T) {
	engine := NewSeasonalTrendEngine()

	_, err := engine.Forecast(context.Background(), nil, 14)
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.Validation))

	_, err = engine.Forecast(context.Background(), lineSeries(1, 0.1, 0), 14)
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.Validation))
}

func TestForecastRejectsNegativeHorizon(t *testing.T) {
	engine := NewSeasonalTrendEngine()
	_, err := engine.Forecast(context.Background(), lineSeries(5, 0.1, 0), -1)
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.Validation))
}

func TestForecastCanceledContext(t *testing.T) {
	engine := NewSeasonalTrendEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Forecast(ctx, lineSeries(5, 0.1, 0), 14)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

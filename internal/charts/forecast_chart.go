package charts

import (
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/forecast"
)

func forecastOverlayPanel(series []dataset.DailyPoint, points []forecast.Point) renderable {
	obsX := make([]time.Time, len(series))
	obsY := make([]float64, len(series))
	for i, p := range series {
		obsX[i] = p.Date
		obsY[i] = p.Value
	}

	fcX := make([]time.Time, len(points))
	yhat := make([]float64, len(points))
	lower := make([]float64, len(points))
	upper := make([]float64, len(points))
	for i, p := range points {
		fcX[i] = p.Date
		yhat[i] = p.YHat
		lower[i] = p.Lower
		upper[i] = p.Upper
	}

	boundStyle := chart.Style{
		StrokeColor:     chart.ColorAlternateGray,
		StrokeWidth:     1,
		StrokeDashArray: []float64{5, 5},
	}

	return chart.Chart{
		Title:  "Sentiment forecast",
		Width:  forecastPanelWidth,
		Height: forecastPanelHeight,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "score",
			Range: paddedRange(obsY, yhat, lower, upper),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "observed",
				XValues: obsX,
				YValues: obsY,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "forecast",
				XValues: fcX,
				YValues: yhat,
				Style: chart.Style{
					StrokeColor: chart.ColorOrange,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "upper bound",
				XValues: fcX,
				YValues: upper,
				Style:   boundStyle,
			},
			chart.TimeSeries{
				Name:    "lower bound",
				XValues: fcX,
				YValues: lower,
				Style:   boundStyle,
			},
		},
	}
}

func trendPanel(points []forecast.Point) renderable {
	x := make([]time.Time, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.Date
		y[i] = p.Trend
	}

	return chart.Chart{
		Title:  "Trend component",
		Width:  forecastPanelWidth,
		Height: forecastPanelHeight,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "trend",
			Range: paddedRange(y),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "trend",
				XValues: x,
				YValues: y,
				Style: chart.Style{
					StrokeColor: chart.ColorRed,
					StrokeWidth: 2,
				},
			},
		},
	}
}

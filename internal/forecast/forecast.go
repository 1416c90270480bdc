// Package forecast projects the daily sentiment series forward and derives
// alert messages from the projection.
package forecast

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/errdefs"
)

// Point is one forecasted day. Points covering the observed range carry
// fitted values; points past it carry the projection.
type Point struct {
	Date  time.Time `json:"date"`
	YHat  float64   `json:"yhat"`
	Lower float64   `json:"yhat_lower"`
	Upper float64   `json:"yhat_upper"`
	Trend float64   `json:"trend"`
}

// Engine produces a forecast over the observed series plus horizon days
// past its end.
type Engine interface {
	Forecast(ctx context.Context, series []dataset.DailyPoint, horizon int) ([]Point, error)
}

const zScore = 1.96

// SeasonalTrendEngine fits a least-squares linear trend plus weekday
// seasonal offsets. Uncertainty bounds come from the residual standard
// deviation and widen with distance past the observed range.
type SeasonalTrendEngine struct{}

func NewSeasonalTrendEngine() *SeasonalTrendEngine {
	return &SeasonalTrendEngine{}
}

func (e *SeasonalTrendEngine) Forecast(ctx context.Context, series []dataset.DailyPoint, horizon int) ([]Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, errdefs.Wrap(err, errdefs.Internal, "forecast canceled")
	}
	if len(series) < 2 {
		return nil, errdefs.New(errdefs.Validation, "at least two daily points are required to forecast")
	}
	if horizon < 0 {
		return nil, errdefs.New(errdefs.Validation, "forecast horizon must not be negative")
	}

	// Day offsets from the first observation keep gaps in the series from
	// distorting the slope.
	first := series[0].Date
	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, p := range series {
		xs[i] = dayOffset(first, p.Date)
		ys[i] = p.Value
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	seasonal := weekdayMeans(series, alpha, beta, xs)

	residuals := make([]float64, len(series))
	for i, p := range series {
		trend := alpha + beta*xs[i]
		residuals[i] = p.Value - trend - seasonal[p.Date.Weekday()]
	}
	sigma := stat.StdDev(residuals, nil)
	if math.IsNaN(sigma) {
		sigma = 0
	}

	points := make([]Point, 0, len(series)+horizon)
	for i, p := range series {
		trend := alpha + beta*xs[i]
		yhat := trend + seasonal[p.Date.Weekday()]
		margin := zScore * sigma
		points = append(points, Point{
			Date:  p.Date,
			YHat:  yhat,
			Lower: yhat - margin,
			Upper: yhat + margin,
			Trend: trend,
		})
	}

	last := series[len(series)-1].Date
	lastX := xs[len(xs)-1]
	for h := 1; h <= horizon; h++ {
		date := last.AddDate(0, 0, h)
		trend := alpha + beta*(lastX+float64(h))
		yhat := trend + seasonal[date.Weekday()]
		margin := zScore * sigma * math.Sqrt(1+float64(h)/float64(len(series)))
		points = append(points, Point{
			Date:  date,
			YHat:  yhat,
			Lower: yhat - margin,
			Upper: yhat + margin,
			Trend: trend,
		})
	}
	return points, nil
}

// weekdayMeans averages the detrended residuals per weekday. Weekdays
// without observations contribute no offset.
func weekdayMeans(series []dataset.DailyPoint, alpha, beta float64, xs []float64) [7]float64 {
	var sums, counts [7]float64
	for i, p := range series {
		wd := p.Date.Weekday()
		sums[wd] += p.Value - (alpha + beta*xs[i])
		counts[wd]++
	}
	var means [7]float64
	for wd := range sums {
		if counts[wd] > 0 {
			means[wd] = sums[wd] / counts[wd]
		}
	}
	return means
}

func dayOffset(first, date time.Time) float64 {
	return date.Sub(first).Hours() / 24
}

var _ Engine = (*SeasonalTrendEngine)(nil)

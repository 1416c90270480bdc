// Package forecastjob implements the forecasting run: load, aggregate,
// fit, render, alert.
package forecastjob

import (
	"context"
	"sync"

	"github.com/seligo/sentiment-pulse/internal/charts"
	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/errdefs"
	"github.com/seligo/sentiment-pulse/internal/forecast"
	"github.com/seligo/sentiment-pulse/internal/jobs"
	"github.com/seligo/sentiment-pulse/internal/notify"
)

// Loader reads the analyzed table.
type Loader interface {
	LoadAnalyzed() ([]dataset.AnalyzedRecord, error)
}

// Renderer rasterizes the forecast figure.
type Renderer interface {
	ForecastChart(series []dataset.DailyPoint, points []forecast.Point) ([]byte, error)
}

// Job wires the forecast steps together and keeps the latest chart
// artifact. The artifact survives later failed runs; it is empty until
// the first successful run.
type Job struct {
	loader      Loader
	engine      forecast.Engine
	renderer    Renderer
	notifier    notify.Notifier
	windowDays  int
	horizonDays int

	mu    sync.RWMutex
	chart string
}

func NewJob(loader Loader, engine forecast.Engine, renderer Renderer, notifier notify.Notifier, windowDays, horizonDays int) *Job {
	return &Job{
		loader:      loader,
		engine:      engine,
		renderer:    renderer,
		notifier:    notifier,
		windowDays:  windowDays,
		horizonDays: horizonDays,
	}
}

// Run executes one forecast pass.
func (j *Job) Run(ctx context.Context, rep *jobs.Reporter) error {
	rep.Progress(20, "Loading sentiment data")
	rows, err := j.loader.LoadAnalyzed()
	if err != nil {
		return err
	}

	rep.Progress(40, "Aggregating daily series")
	series := dataset.DailyMeans(dataset.RecentWindow(rows, j.windowDays))
	if len(series) < 2 {
		return errdefs.New(errdefs.Validation, "not enough analyzed data to forecast").
			WithContext("daily_points", len(series))
	}
	rep.SetRecords(len(rows))

	rep.Progress(60, "Fitting forecast model")
	points, err := j.engine.Forecast(ctx, series, j.horizonDays)
	if err != nil {
		return err
	}

	rep.Progress(80, "Rendering visualization")
	png, err := j.renderer.ForecastChart(series, points)
	if err != nil {
		return err
	}
	j.setChart(charts.EncodeDataURI(png))

	rep.Progress(100, "Forecast complete")

	for _, message := range forecast.Alerts(points, j.horizonDays) {
		j.notifier.Send(ctx, message)
	}
	return nil
}

// Chart returns the latest chart data URI. ok is false until the first
// successful run.
func (j *Job) Chart() (uri string, ok bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.chart, j.chart != ""
}

func (j *Job) setChart(uri string) {
	j.mu.Lock()
	j.chart = uri
	j.mu.Unlock()
}

// Package charts rasterizes forecast and dashboard figures to PNG.
package charts

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/errdefs"
	"github.com/seligo/sentiment-pulse/internal/forecast"
)

const (
	forecastPanelWidth  = 900
	forecastPanelHeight = 360

	dashboardPanelWidth  = 600
	dashboardPanelHeight = 400
)

// Renderer rasterizes figures one at a time. All render-to-encode
// sequences run under the same mutex.
type Renderer struct {
	mu sync.Mutex
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// ForecastChart draws the observed series with the forecast overlay on top
// and the trend component below, stacked into a single PNG.
func (r *Renderer) ForecastChart(series []dataset.DailyPoint, points []forecast.Point) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(series) == 0 || len(points) == 0 {
		return nil, errdefs.New(errdefs.Validation, "no forecast data to chart")
	}

	overlay, err := renderPanel(forecastOverlayPanel(series, points))
	if err != nil {
		return nil, err
	}
	trend, err := renderPanel(trendPanel(points))
	if err != nil {
		return nil, err
	}

	canvas := composeGrid([][]image.Image{{overlay}, {trend}}, forecastPanelWidth, forecastPanelHeight)
	return encodePNG(canvas)
}

// DashboardChart draws the 2x2 overview grid: label counts, platform
// share, score distribution and per-query volume.
func (r *Renderer) DashboardChart(rows []dataset.AnalyzedRecord) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(rows) == 0 {
		return nil, errdefs.New(errdefs.Validation, "no analyzed records to chart")
	}

	panels := make([]image.Image, 0, 4)
	builders := []func([]dataset.AnalyzedRecord) renderable{
		labelCountsPanel,
		platformSharePanel,
		scoreDistributionPanel,
		queryVolumePanel,
	}
	for _, build := range builders {
		panel, err := renderPanel(build(rows))
		if err != nil {
			return nil, err
		}
		panels = append(panels, panel)
	}

	canvas := composeGrid([][]image.Image{
		{panels[0], panels[1]},
		{panels[2], panels[3]},
	}, dashboardPanelWidth, dashboardPanelHeight)
	return encodePNG(canvas)
}

// EncodeDataURI wraps PNG bytes in a data URI for embedding in JSON
// responses.
func EncodeDataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// renderable is the slice of the chart API the panels use; Chart, BarChart
// and PieChart all satisfy it.
type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func renderPanel(c renderable) (image.Image, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, errdefs.Wrap(err, errdefs.Render, "chart rendering failed")
	}
	img, err := imaging.Decode(&buf)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.Render, "failed to decode rendered panel")
	}
	return img, nil
}

func composeGrid(grid [][]image.Image, cellWidth, cellHeight int) image.Image {
	rows := len(grid)
	cols := 0
	for _, row := range grid {
		if len(row) > cols {
			cols = len(row)
		}
	}

	canvas := imaging.New(cols*cellWidth, rows*cellHeight, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	for y, row := range grid {
		for x, panel := range row {
			canvas = imaging.Paste(canvas, panel, image.Pt(x*cellWidth, y*cellHeight))
		}
	}
	return canvas
}

func encodePNG(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.PNG); err != nil {
		return nil, errdefs.Wrap(err, errdefs.Render, "failed to encode PNG")
	}
	return out.Bytes(), nil
}

// paddedRange builds a y-axis range covering every value with headroom, so
// flat series never collapse the axis.
func paddedRange(valueSets ...[]float64) *chart.ContinuousRange {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, values := range valueSets {
		for _, v := range values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}
	pad := (hi - lo) * 0.1
	if pad < 0.05 {
		pad = 0.05
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

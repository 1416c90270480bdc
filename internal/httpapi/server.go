// Package httpapi exposes the job control and data endpoints over
// plain net/http.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/seligo/sentiment-pulse/internal/config"
	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/jobs"
	"github.com/seligo/sentiment-pulse/pkg/icron"
	"github.com/seligo/sentiment-pulse/pkg/log"
)

type dataStore interface {
	LoadAnalyzed() ([]dataset.AnalyzedRecord, error)
	ExportAnalyzed(w io.Writer) error
}

type dashboardRenderer interface {
	DashboardChart(rows []dataset.AnalyzedRecord) ([]byte, error)
}

// chartSource exposes the forecast runner's retained artifact.
type chartSource interface {
	Chart() (uri string, ok bool)
}

type runLister interface {
	ListRuns(ctx context.Context, job string, limit int) ([]jobs.RunRecord, error)
}

type settingsStore interface {
	Get() config.RuntimeSettings
	Update(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type settingsApplier func(next config.RuntimeSettings) error

type scheduleInfo interface {
	Expression() string
	TriggerInfo(now time.Time) (*icron.TriggerInfo, bool, error)
}

type Server struct {
	pipeline *jobs.Runner
	forecast *jobs.Runner

	data      dataStore
	dashboard dashboardRenderer
	artifact  chartSource
	history   runLister
	settings  settingsStore
	apply     settingsApplier
	schedule  scheduleInfo
	logger    *log.Logger

	// renders collapses concurrent dashboard requests into one pass
	// through the chart renderer.
	renders singleflight.Group

	uiEnabled   bool
	uiStaticDir string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func WithDataStore(store dataStore) Option {
	return func(s *Server) {
		s.data = store
	}
}

func WithDashboard(renderer dashboardRenderer) Option {
	return func(s *Server) {
		s.dashboard = renderer
	}
}

func WithForecastArtifact(source chartSource) Option {
	return func(s *Server) {
		s.artifact = source
	}
}

func WithRunHistory(lister runLister) Option {
	return func(s *Server) {
		s.history = lister
	}
}

func WithRuntimeSettings(store settingsStore, apply settingsApplier) Option {
	return func(s *Server) {
		s.settings = store
		s.apply = apply
	}
}

func WithSchedule(schedule scheduleInfo) Option {
	return func(s *Server) {
		s.schedule = schedule
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(pipeline, forecast *jobs.Runner, opts ...Option) *Server {
	s := &Server{
		pipeline:  pipeline,
		forecast:  forecast,
		uiEnabled: false,
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLogger()
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/start_pipeline", s.handleStartPipeline)
	s.mux.HandleFunc("/run_forecast", s.handleRunForecast)
	s.mux.HandleFunc("/pipeline_status", s.handlePipelineStatus)
	s.mux.HandleFunc("/forecast_status", s.handleForecastStatus)
	s.mux.HandleFunc("/charts", s.handleCharts)
	s.mux.HandleFunc("/forecast_chart", s.handleForecastChart)
	s.mux.HandleFunc("/export_data", s.handleExportData)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/data", s.handleData)
	s.mux.HandleFunc("/api/runs", s.handleRuns)
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/status/stream", s.handleStatusStream)
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}

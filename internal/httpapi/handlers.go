package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/seligo/sentiment-pulse/internal/charts"
	"github.com/seligo/sentiment-pulse/internal/config"
	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/errdefs"
	"github.com/seligo/sentiment-pulse/internal/jobs"
)

const (
	defaultDataLimit = 100
	defaultRunsLimit = 20
)

func (s *Server) handleStartPipeline(w http.ResponseWriter, r *http.Request) {
	s.startRunner(w, r, s.pipeline)
}

func (s *Server) handleRunForecast(w http.ResponseWriter, r *http.Request) {
	s.startRunner(w, r, s.forecast)
}

func (s *Server) startRunner(w http.ResponseWriter, r *http.Request, runner *jobs.Runner) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := "started"
	if !runner.Start() {
		status = "already_running"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	s.runnerStatus(w, r, s.pipeline)
}

func (s *Server) handleForecastStatus(w http.ResponseWriter, r *http.Request) {
	s.runnerStatus(w, r, s.forecast)
}

func (s *Server) runnerStatus(w http.ResponseWriter, r *http.Request, runner *jobs.Runner) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, runner.Snapshot())
}

type chartResponse struct {
	Chart string `json:"chart"`
}

// handleCharts renders the dashboard figure from the current analyzed
// table. Concurrent requests share one render through the singleflight
// group.
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.data == nil || s.dashboard == nil {
		writeError(w, http.StatusNotImplemented, "chart rendering is not configured")
		return
	}

	v, err, _ := s.renders.Do("dashboard", func() (any, error) {
		rows, err := s.data.LoadAnalyzed()
		if err != nil {
			return nil, err
		}
		png, err := s.dashboard.DashboardChart(rows)
		if err != nil {
			return nil, err
		}
		return charts.EncodeDataURI(png), nil
	})
	if err != nil {
		switch errdefs.KindOf(err) {
		case errdefs.NotFound, errdefs.Validation:
			writeError(w, http.StatusNotFound, "No chart available")
		default:
			s.logger.Error("Dashboard render failed: %v", err)
			writeError(w, http.StatusInternalServerError, "chart rendering failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, chartResponse{Chart: v.(string)})
}

func (s *Server) handleForecastChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.artifact == nil {
		writeError(w, http.StatusNotImplemented, "forecast chart is not configured")
		return
	}
	uri, ok := s.artifact.Chart()
	if !ok {
		writeError(w, http.StatusNotFound, "No chart available")
		return
	}
	writeJSON(w, http.StatusOK, chartResponse{Chart: uri})
}

func (s *Server) handleExportData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.data == nil {
		writeError(w, http.StatusNotImplemented, "data store is not configured")
		return
	}

	var buf bytes.Buffer
	if err := s.data.ExportAnalyzed(&buf); err != nil {
		if errdefs.IsKind(err, errdefs.NotFound) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "No data available")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := "sentiment_data_" + time.Now().Format("20060102_1504") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(buf.Bytes())
}

type statsResponse struct {
	dataset.Stats
	PipelineLastRun *time.Time `json:"pipeline_last_run"`
	ForecastLastRun *time.Time `json:"forecast_last_run"`
}

// handleStats degrades to zero counts when no analyzed data exists.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.data == nil {
		writeError(w, http.StatusNotImplemented, "data store is not configured")
		return
	}

	rows, err := s.data.LoadAnalyzed()
	if err != nil && !noData(err) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := statsResponse{Stats: dataset.ComputeStats(rows)}
	resp.PipelineLastRun = s.pipeline.Snapshot().LastRun
	resp.ForecastLastRun = s.forecast.Snapshot().LastRun
	writeJSON(w, http.StatusOK, resp)
}

type dataRow struct {
	Platform  string     `json:"platform"`
	Timestamp *time.Time `json:"timestamp"`
	Query     string     `json:"query"`
	Text      string     `json:"text"`
	URL       string     `json:"url"`
	Label     string     `json:"label"`
	Score     float64    `json:"score"`
}

type dataResponse struct {
	Total   int       `json:"total"`
	Records []dataRow `json:"records"`
}

// handleData returns the tail of the analyzed table, newest rows last.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.data == nil {
		writeError(w, http.StatusNotImplemented, "data store is not configured")
		return
	}

	limit := queryInt(r, "limit", defaultDataLimit)
	rows, err := s.data.LoadAnalyzed()
	if err != nil && !noData(err) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := len(rows)
	if limit > 0 && limit < total {
		rows = rows[total-limit:]
	}
	records := make([]dataRow, 0, len(rows))
	for _, row := range rows {
		records = append(records, dataRow{
			Platform:  row.Platform,
			Timestamp: row.Timestamp,
			Query:     row.Query,
			Text:      row.Text,
			URL:       row.URL,
			Label:     row.Label,
			Score:     row.Score,
		})
	}
	writeJSON(w, http.StatusOK, dataResponse{Total: total, Records: records})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "run history is not configured")
		return
	}

	job := r.URL.Query().Get("job")
	limit := queryInt(r, "limit", defaultRunsLimit)
	runs, err := s.history.ListRuns(r.Context(), job, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

type scheduleResponse struct {
	Enabled     bool       `json:"enabled"`
	Expression  string     `json:"expression,omitempty"`
	LastTrigger *time.Time `json:"last_trigger,omitempty"`
	NextTrigger *time.Time `json:"next_trigger,omitempty"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.schedule == nil {
		writeError(w, http.StatusNotImplemented, "scheduler is not configured")
		return
	}

	info, ok, err := s.schedule.TriggerInfo(time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := scheduleResponse{Enabled: ok}
	if ok {
		resp.Expression = info.Expression
		if !info.Last.IsZero() {
			last := info.Last
			resp.LastTrigger = &last
		}
		next := info.Next
		resp.NextTrigger = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.settings.Get())
	case http.MethodPut:
		var req config.RuntimeSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := s.settings.Update(req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if s.apply != nil {
			if err := s.apply(saved); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// noData reports whether err only means the analyzed table is absent or
// unusable, which read endpoints treat as an empty table.
func noData(err error) bool {
	return errdefs.IsKind(err, errdefs.NotFound) || errdefs.IsKind(err, errdefs.Validation)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

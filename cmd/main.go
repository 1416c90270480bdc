package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/seligo/sentiment-pulse/internal/charts"
	"github.com/seligo/sentiment-pulse/internal/config"
	"github.com/seligo/sentiment-pulse/internal/dataset"
	"github.com/seligo/sentiment-pulse/internal/fetch"
	"github.com/seligo/sentiment-pulse/internal/forecast"
	"github.com/seligo/sentiment-pulse/internal/forecastjob"
	"github.com/seligo/sentiment-pulse/internal/httpapi"
	"github.com/seligo/sentiment-pulse/internal/jobs"
	"github.com/seligo/sentiment-pulse/internal/notify"
	"github.com/seligo/sentiment-pulse/internal/persistence"
	"github.com/seligo/sentiment-pulse/internal/pipeline"
	"github.com/seligo/sentiment-pulse/internal/sentiment"
	"github.com/seligo/sentiment-pulse/internal/service"
	"github.com/seligo/sentiment-pulse/pkg/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv(settingsOverlay()...)
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))
	logger := log.GetLogger()

	if err := os.MkdirAll(cfg.System.DataDir, 0o755); err != nil {
		logger.Fatal("Failed to create data directory: %v", err)
	}

	settings, err := config.NewRuntimeSettingsStore(cfg.SettingsFilePath(), cfg.RuntimeSettings())
	if err != nil {
		logger.Fatal("Failed to initialize runtime settings: %v", err)
	}

	store := dataset.NewStore(cfg.System.DataDir)

	history, err := persistence.NewSQLiteStore(cfg.HistoryDBPath())
	if err != nil {
		logger.Fatal("Failed to open run history store: %v", err)
	}
	defer history.Close()

	completer, err := sentiment.NewOpenAICompleter(sentiment.LLMOptions{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.Timeout) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to initialize LLM client: %v", err)
	}
	analyzer := sentiment.NewLLMAnalyzer(completer, cfg.Analysis.Language, logger)

	fetchTimeout := time.Duration(cfg.Sources.Timeout) * time.Second
	news := fetch.NewNewsClient(cfg.Sources.NewsAPIKey, cfg.Sources.NewsAPIURL, fetchTimeout)
	forum := fetch.NewRedditClient(cfg.Sources.RedditBaseURL, cfg.Sources.UserAgent, fetchTimeout)

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.SlackWebhookURL != "" {
		notifier = notify.NewSlackNotifier(cfg.Notify.SlackWebhookURL, time.Duration(cfg.Notify.Timeout)*time.Second, logger)
	}

	renderer := charts.NewRenderer()
	engine := forecast.NewSeasonalTrendEngine()

	pipelineJob := pipeline.NewJob(news, forum, analyzer, store, settings)
	forecastJob := forecastjob.NewJob(store, engine, renderer, notifier, cfg.Forecast.WindowDays, cfg.Forecast.HorizonDays)

	pipelineRunner := jobs.NewRunner("pipeline", pipelineJob.Run,
		jobs.WithLogger(logger), jobs.WithHistory(history))
	forecastRunner := jobs.NewRunner("forecast", forecastJob.Run,
		jobs.WithLogger(logger), jobs.WithHistory(history))

	scheduler := service.NewScheduler(cron.New(), pipelineRunner, logger)
	if err := scheduler.Reconfigure(settings.Get().CronExpr); err != nil {
		logger.Fatal("Failed to configure schedule: %v", err)
	}
	scheduler.Start()

	server := httpapi.NewServer(pipelineRunner, forecastRunner,
		httpapi.WithDataStore(store),
		httpapi.WithDashboard(renderer),
		httpapi.WithForecastArtifact(forecastJob),
		httpapi.WithRunHistory(history),
		httpapi.WithRuntimeSettings(settings, func(next config.RuntimeSettings) error {
			return scheduler.Reconfigure(next.CronExpr)
		}),
		httpapi.WithSchedule(scheduler),
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
		httpapi.WithLogger(logger),
	)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", cfg.HTTP.Addr)
		errCh <- server.ListenAndServe(cfg.HTTP.Addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("Received %s, shutting down", sig)
	case err := <-errCh:
		logger.Error("HTTP server stopped: %v", err)
	}

	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

// settingsOverlay loads previously persisted runtime settings so a
// restart keeps operator changes; a missing or unreadable file falls
// back to the environment defaults.
func settingsOverlay() []config.Option {
	path := os.Getenv("SETTINGS_FILE")
	if path == "" {
		dir := os.Getenv("DATA_DIR")
		if dir == "" {
			dir = "/tmp/ai_sentiment_data"
		}
		path = dir + "/settings.json"
	}
	saved, err := config.LoadRuntimeSettingsFile(path)
	if err != nil {
		return nil
	}
	return []config.Option{config.WithRuntimeSettings(saved)}
}

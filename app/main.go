package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veritas-media/veritas/app/api"
	"github.com/veritas-media/veritas/app/cfg"
	"github.com/veritas-media/veritas/app/dashboard"
	"github.com/veritas-media/veritas/app/database"
	"github.com/veritas-media/veritas/app/pipeline"
	"github.com/veritas-media/veritas/app/reasoning"
	"github.com/veritas-media/veritas/app/source"
	"github.com/veritas-media/veritas/app/tasks"
	"github.com/veritas-media/veritas/app/verify"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(appCfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Veritas", "version", appCfg.Version, "port", appCfg.Port)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if appCfg.RunMigrations {
		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("Migrations applied", "version", version, "dirty", dirty)
	}

	articleRepo := database.NewArticleRepository(db)
	checkRepo := database.NewCheckRepository(db)
	feedbackRepo := database.NewFeedbackRepository(db)

	sectors := source.NewSectorCache(appCfg.SectorsDir)
	if err := sectors.Run(); err != nil {
		slog.Warn("Sector configurations not loaded", "dir", appCfg.SectorsDir, "error", err)
	}

	headlines := newHeadlineRouter(appCfg, sectors)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := newReasoningClient(ctx, appCfg)
	if err != nil {
		return err
	}

	providers := verify.NewProviders(verify.Options{
		TinEyeAPIKey:  appCfg.TinEyeAPIKey,
		TinEyeBaseURL: appCfg.TinEyeBaseURL,
		UserAgent:     appCfg.UserAgent,
		Timeout:       appCfg.ProviderTimeout,
		Reasoning:     client,
	})
	checker := pipeline.NewChecker(checkRepo, providers)

	scheduler := tasks.NewScheduler(tasks.SchedulerOptions{
		WorkerCount: appCfg.WorkerCount,
		QueueSize:   appCfg.QueueSize,
		Location:    time.Local,
	})
	ingestor := pipeline.NewIngestor(headlines, articleRepo, tasks.NewDispatcher(scheduler, checker))

	if appCfg.IngestSchedule != "" {
		if err := scheduler.ScheduleIngestion(appCfg.IngestSchedule, appCfg.IngestSectors, ingestor); err != nil {
			return err
		}
		slog.Info("Scheduled ingestion", "spec", appCfg.IngestSchedule, "sectors", appCfg.IngestSectors)
	}

	scheduler.Start()
	defer scheduler.Stop()

	projector := dashboard.NewProjector(articleRepo, db.Changes)
	if err := projector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dashboard projector: %w", err)
	}
	defer projector.Stop()

	handler := api.NewHandler(articleRepo, feedbackRepo, ingestor, checker, projector, sectors)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr, "write_auth", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	return serveErr
}

// newHeadlineRouter prefers the news API when a key is configured. The API
// argument stays an untyped nil otherwise so the router can detect it.
func newHeadlineRouter(appCfg *cfg.Cfg, sectors *source.SectorCache) *source.Router {
	httpClient := &http.Client{Timeout: appCfg.ProviderTimeout}
	rss := source.NewRSSSource(sectors, httpClient, appCfg.UserAgent)

	var newsAPI source.HeadlineSource
	if cfg.HasCredential(appCfg.NewsAPIKey) {
		newsAPI = source.NewNewsAPISource(appCfg.NewsAPIKey, appCfg.NewsAPIBaseURL,
			appCfg.NewsAPIPageSize, appCfg.UserAgent, appCfg.ProviderTimeout)
		slog.Info("Headline source configured", "source", newsAPI.Name())
	} else {
		slog.Info("No news API key, using RSS sectors and demo headlines")
	}

	return source.NewRouter(newsAPI, rss, source.NewMockSource())
}

func newReasoningClient(ctx context.Context, appCfg *cfg.Cfg) (reasoning.Client, error) {
	switch appCfg.ReasoningProvider {
	case "gemini":
		if !cfg.HasCredential(appCfg.GeminiAPIKey) {
			break
		}
		client, err := reasoning.NewGeminiClient(ctx, appCfg.GeminiAPIKey, appCfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		slog.Info("Reasoning model configured", "client", client.Name())
		return client, nil
	default:
		if !cfg.HasCredential(appCfg.OpenAIAPIKey) {
			break
		}
		client := reasoning.NewOpenAIClient(reasoning.OpenAIConfig{
			APIKey:  appCfg.OpenAIAPIKey,
			BaseURL: appCfg.OpenAIBaseURL,
			Model:   appCfg.OpenAIModel,
			Timeout: appCfg.ProviderTimeout,
		})
		slog.Info("Reasoning model configured", "client", client.Name())
		return client, nil
	}

	slog.Info("No reasoning model credential, claims use generated verdicts")
	return nil, nil
}

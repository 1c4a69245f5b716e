package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"universe/api/internal/app"
	"universe/api/internal/autosave"
	"universe/api/internal/config"
	"universe/api/internal/draft"
	"universe/api/internal/editmode"
	"universe/api/internal/editor"
	"universe/api/internal/export"
	"universe/api/internal/history"
	"universe/api/internal/logging"
	"universe/api/internal/prefs"
	"universe/api/internal/references"
	"universe/api/internal/search"
	"universe/api/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, os.Stdout)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, store.Migrations()); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.HistoryDir).Msg("failed to create history dir")
	}

	dataStore := store.NewPostgresStore(db)
	historyService := history.New(cfg.HistoryDir)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts, logger)
	go searchService.ReindexFromPG(ctx)

	deps := app.Deps{
		Store:   dataStore,
		History: historyService,
		Search:  searchService,
		Logger:  logger,
	}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		prefsStore, err := prefs.NewRedisStore(cfg.RedisURL, cfg.PrefsTTL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, persisted client state disabled")
		} else {
			defer prefsStore.Close()
			deps.Prefs = prefsStore
		}
	}
	service := app.New(cfg, deps)

	var archiver export.Archiver
	if strings.TrimSpace(cfg.MinIOEndpoint) != "" {
		minioArchiver, err := export.NewMinIOArchiver(ctx, export.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("object storage unavailable, exports will not be archived")
		} else {
			archiver = minioArchiver
		}
	}
	service.SetExporter(export.NewService(service, archiver, logger))

	// Autosave goes to a remote draft service when one is configured,
	// otherwise to this process's own draft store.
	var drafts draft.Service = service
	if cfg.DraftServiceURL != "" {
		drafts = draft.NewClient(cfg.DraftServiceURL, draft.WithTimeout(cfg.DraftClientTimeout))
		logger.Info().Str("url", cfg.DraftServiceURL).Msg("using remote draft service")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	controller := editmode.NewController(logger)
	sessions := editor.NewRegistry(ctx, editor.Deps{
		Controller:       controller,
		Drafts:           drafts,
		References:       references.NewAggregator(service, 10*time.Second, logger),
		Logger:           logger,
		AutosaveInterval: cfg.AutosaveInterval,
		Metrics:          autosave.NewMetrics(registry),
	})
	service.AttachEditor(sessions, controller)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", app.NewHTTPServer(service, cfg.CORSOrigin, logger).Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("universe api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	sessions.CloseAll()
	searchService.Wait()
	stop()
}

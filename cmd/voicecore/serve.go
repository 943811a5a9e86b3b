package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/config"
	dbRedis "github.com/liveclaw/voicecore/internal/db/redis"
	logpkg "github.com/liveclaw/voicecore/internal/logger"
	"github.com/liveclaw/voicecore/internal/metrics"
	"github.com/liveclaw/voicecore/internal/repository/archive"
	"github.com/liveclaw/voicecore/internal/repository/embcache"
	"github.com/liveclaw/voicecore/internal/repository/respcache"
	"github.com/liveclaw/voicecore/internal/transport/httpapi"
	openaiTransport "github.com/liveclaw/voicecore/internal/transport/openai"
	healthuc "github.com/liveclaw/voicecore/internal/usecase/health"
	indexeruc "github.com/liveclaw/voicecore/internal/usecase/indexer"
	matcheruc "github.com/liveclaw/voicecore/internal/usecase/matcher"
	orchestratoruc "github.com/liveclaw/voicecore/internal/usecase/orchestrator"
	"github.com/liveclaw/voicecore/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the voicecore API server",
	RunE: func(*cobra.Command, []string) error {
		return runServe()
	},
}

func runServe() error {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting voicecore server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("archive_dir", cfg.Archive.DataDir),
	)

	metrics.Register()

	// Redis backs the response cache and the embedding cache.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	// Clip archive: SQLite manifest replayed into an in-memory snapshot.
	manifest, err := archive.OpenManifest(cfg.Archive.DataDir)
	if err != nil {
		return fmt.Errorf("open clip manifest: %w", err)
	}
	defer manifest.Close()

	archiveRepo := archive.New(manifest, logger)
	if err := archiveRepo.Load(ctx); err != nil {
		return fmt.Errorf("load clip archive: %w", err)
	}
	logger.Info("Clip archive loaded",
		zap.Int("clips", len(archiveRepo.Snapshot().Entries)),
		zap.Int64("version", archiveRepo.Snapshot().Version),
	)

	// Embedder chain: OpenAI-compatible provider wrapped by the Redis cache.
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder := embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)

	respCache := respcache.New(store, embedder, respcache.Config{
		Capacity:       cfg.Cache.Capacity,
		MergeThreshold: cfg.Cache.MergeThreshold,
		KeyPrefix:      cfg.Database.KeyPrefix,
	}, logger)
	if err := respCache.Load(ctx); err != nil {
		logger.Warn("response cache hydration failed, starting cold", zap.Error(err))
	} else {
		logger.Info("Response cache hydrated", zap.Int("entries", respCache.Len()))
	}

	matcherSvc := matcheruc.New(archiveRepo, respCache, embedder, matcheruc.Config{
		FuzzyThreshold:    cfg.Matcher.FuzzyThreshold,
		SemanticThreshold: cfg.Matcher.SemanticThreshold,
		SemanticBudget:    time.Duration(cfg.Matcher.SemanticBudgetMs) * time.Millisecond,
	}, logger)

	fastGen := openaiTransport.NewFastGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.Generators.APIKey,
		BaseURL: cfg.Generators.BaseURL,
		Model:   cfg.Generators.FastModel,
		Logger:  logger,
	})
	slowGen := openaiTransport.NewSlowGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.Generators.APIKey,
		BaseURL: cfg.Generators.BaseURL,
		Model:   cfg.Generators.SlowModel,
		Logger:  logger,
	})

	synth, err := openaiTransport.NewSynthesizer(&openaiTransport.SynthConfig{
		APIKey:   cfg.Speech.APIKey,
		BaseURL:  cfg.Speech.BaseURL,
		Model:    cfg.Speech.Model,
		Voice:    cfg.Speech.Voice,
		MediaDir: cfg.Speech.MediaDir,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("create synthesizer: %w", err)
	}

	hub := httpapi.NewHub(logger)
	indexerSvc := indexeruc.New(matcherSvc, archiveRepo, embedder, synth, logger)

	orch := orchestratoruc.New(
		matcherSvc,
		fastGen, slowGen,
		synth,
		hub,
		respCache,
		indexerSvc,
		indexeruc.NewClassifier(),
		orchestratoruc.Config{
			FastDeadline: time.Duration(cfg.Tracks.FastDeadlineMs) * time.Millisecond,
			SlowDeadline: time.Duration(cfg.Tracks.SlowDeadlineMs) * time.Millisecond,
		},
		logger,
	)

	healthSvc := healthuc.New(store, archiveRepo, baseEmbedder)

	server := httpapi.NewServer(orch, matcherSvc, indexerSvc, archiveRepo, healthSvc, hub, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	// Archived and synthesized audio is served straight from the media dir.
	r.Handle("/media/*", http.StripPrefix("/media/",
		http.FileServer(http.Dir(cfg.Speech.MediaDir))))

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

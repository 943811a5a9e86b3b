package voicecore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/db"
	dbRedis "github.com/liveclaw/voicecore/internal/db/redis"
	"github.com/liveclaw/voicecore/internal/domain"
	"github.com/liveclaw/voicecore/internal/repository/archive"
	"github.com/liveclaw/voicecore/internal/repository/embcache"
	"github.com/liveclaw/voicecore/internal/repository/respcache"
	healthuc "github.com/liveclaw/voicecore/internal/usecase/health"
	indexeruc "github.com/liveclaw/voicecore/internal/usecase/indexer"
	matcheruc "github.com/liveclaw/voicecore/internal/usecase/matcher"
	orchestratoruc "github.com/liveclaw/voicecore/internal/usecase/orchestrator"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces so tests can substitute the wired services.
type matcherUseCase interface {
	Match(ctx context.Context, text string) domain.MatchResult
}

type turnUseCase interface {
	HandleTurn(ctx context.Context, msg domain.InboundMessage, mode orchestratoruc.Mode) error
}

type indexUseCase interface {
	Learn(ctx context.Context, sourceText, responseText string) error
	Seed(ctx context.Context, clips []indexeruc.SeedClip) (int, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type archiveReader interface {
	Snapshot() *domain.ArchiveSnapshot
	Get(id string) (domain.ClipEntry, error)
}

// Client is the embedded voicecore engine entry point.
type Client struct {
	store    db.Store
	manifest *archive.Manifest
	router   *emissionRouter

	matcherSvc matcherUseCase
	turnsSvc   turnUseCase
	indexSvc   indexUseCase
	healthSvc  healthUseCase
	archive    archiveReader

	hasSynth bool
	obs      *observer
}

// New creates a Client, connects to Redis, and loads the clip archive.
// The provided context bounds the initial readiness check and archive load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dataDir:           "data",
		cacheCapacity:     512,
		mergeThreshold:    0.92,
		fuzzyThreshold:    0.85,
		semanticThreshold: 0.65,
		semanticBudget:    250 * time.Millisecond,
		fastDeadline:      5 * time.Second,
		slowDeadline:      45 * time.Second,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("voicecore: redis address required (use WithRedis)")
	}
	if (cfg.fast == nil) != (cfg.slow == nil) {
		return nil, errors.New("voicecore: WithGenerators needs both fast and slow backends")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("voicecore: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("voicecore: database not ready: %w", err)
	}

	manifest, err := archive.OpenManifest(cfg.dataDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("voicecore: open clip manifest: %w", err)
	}

	archiveRepo := archive.New(manifest, logger)
	if err := archiveRepo.Load(ctx); err != nil {
		manifest.Close()
		store.Close()
		return nil, fmt.Errorf("voicecore: load clip archive: %w", err)
	}

	var base domain.Embedder = unavailableEmbedder{}
	if cfg.embedder != nil {
		base = embedderAdapter{inner: cfg.embedder}
	}
	embCacheTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicecore",
		Subsystem: "sdk",
		Name:      "embedding_cache_total",
		Help:      "Embedding cache hits and misses.",
	}, []string{"result"})
	if cfg.metricsReg != nil {
		if err := registerOrReuse(cfg.metricsReg, &embCacheTotal); err != nil {
			manifest.Close()
			store.Close()
			return nil, err
		}
	}
	embedder := embcache.New(base, store, embCacheTotal, logger)

	cache := respcache.New(store, embedder, respcache.Config{
		Capacity:       cfg.cacheCapacity,
		MergeThreshold: cfg.mergeThreshold,
		KeyPrefix:      domain.KeyPrefix,
	}, logger)
	if err := cache.Load(ctx); err != nil {
		logger.Warn("response cache hydration failed, starting cold", zap.Error(err))
	}

	matcherSvc := matcheruc.New(archiveRepo, cache, embedder, matcheruc.Config{
		FuzzyThreshold:    cfg.fuzzyThreshold,
		SemanticThreshold: cfg.semanticThreshold,
		SemanticBudget:    cfg.semanticBudget,
	}, logger)

	indexSvc := indexeruc.New(matcherSvc, archiveRepo, embedder, cfg.synth, logger)

	router := newEmissionRouter()

	var turnsSvc turnUseCase
	if cfg.fast != nil && cfg.synth != nil {
		turnsSvc = orchestratoruc.New(
			matcherSvc,
			generatorAdapter{inner: cfg.fast},
			generatorAdapter{inner: cfg.slow},
			cfg.synth,
			router,
			cache,
			indexSvc,
			indexeruc.NewClassifier(),
			orchestratoruc.Config{
				FastDeadline: cfg.fastDeadline,
				SlowDeadline: cfg.slowDeadline,
			},
			logger,
		)
	}

	return &Client{
		store:      store,
		manifest:   manifest,
		router:     router,
		matcherSvc: matcherSvc,
		turnsSvc:   turnsSvc,
		indexSvc:   indexSvc,
		healthSvc:  healthuc.New(store, archiveRepo, nil),
		archive:    archiveRepo,
		hasSynth:   cfg.synth != nil,
		obs:        obs,
	}, nil
}

// Close releases the Redis connection and the clip manifest.
func (c *Client) Close() error {
	var errs []error
	if c.manifest != nil {
		if err := c.manifest.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.store != nil {
		c.store.Close()
	}
	return errors.Join(errs...)
}

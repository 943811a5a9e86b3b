package voicecore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string
	dataDir  string

	embedder Embedder
	fast     Generator
	slow     Generator
	synth    Synthesizer

	cacheCapacity     int
	mergeThreshold    float64
	fuzzyThreshold    float64
	semanticThreshold float64
	semanticBudget    time.Duration
	fastDeadline      time.Duration
	slowDeadline      time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the Redis instance backing the response and embedding
// caches. Required.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithDataDir sets the clip manifest location. Use ":memory:" for ephemeral
// archives. Default: "data".
func WithDataDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dataDir = dir
	})
}

// WithEmbedder sets the text embedding provider. Without it the semantic tier
// and cache similarity lookups degrade to misses.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerators sets the fast and slow generation backends, enabling
// HandleTurn for inputs the archive cannot answer.
func WithGenerators(fast, slow Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.fast = fast
		c.slow = slow
	})
}

// WithSynthesizer sets the on-demand speech backend used by the miss fallback
// and by auto-learning.
func WithSynthesizer(s Synthesizer) Option {
	return optionFunc(func(c *clientConfig) {
		c.synth = s
	})
}

// WithThresholds overrides the matching thresholds.
// Defaults: fuzzy 0.85, semantic 0.65, merge 0.92.
func WithThresholds(fuzzy, semantic, merge float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.fuzzyThreshold = fuzzy
		c.semanticThreshold = semantic
		c.mergeThreshold = merge
	})
}

// WithCacheCapacity bounds the response cache. Default: 512.
func WithCacheCapacity(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheCapacity = n
	})
}

// WithDeadlines overrides the per-track generation deadlines.
// Defaults: fast 5s, slow 45s.
func WithDeadlines(fast, slow time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.fastDeadline = fast
		c.slowDeadline = slow
	})
}

// WithLogger enables structured logging for engine operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

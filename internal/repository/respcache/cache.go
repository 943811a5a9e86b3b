// Package respcache keeps finalized answers indexed by the embedding of the
// text that produced them. Lookups run against an in-memory pool; the backing
// store only makes the pool survive restarts.
package respcache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
	"github.com/liveclaw/voicecore/internal/metrics"
)

// store is the consumer interface for the response cache (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Config holds cache sizing parameters.
type Config struct {
	Capacity       int
	MergeThreshold float64
	KeyPrefix      string
}

// Cache is the semantic response cache. One entry per semantically distinct
// answer: Store merges near-duplicates into the existing entry instead of
// inserting, and evicts the least valuable entry when over capacity.
type Cache struct {
	store          store
	embedder       domain.Embedder
	capacity       int
	mergeThreshold float64
	keyPrefix      string
	logger         *zap.Logger

	mu      sync.RWMutex
	entries map[string]*domain.CacheEntry
}

// New creates a response cache. Call Load to hydrate it from the store.
func New(s store, embedder domain.Embedder, cfg Config, logger *zap.Logger) *Cache {
	return &Cache{
		store:          s,
		embedder:       embedder,
		capacity:       cfg.Capacity,
		mergeThreshold: cfg.MergeThreshold,
		keyPrefix:      cfg.KeyPrefix,
		logger:         logger,
		entries:        make(map[string]*domain.CacheEntry),
	}
}

// Load hydrates the in-memory pool from the store. Entries that fail to
// decode are skipped, not fatal.
func (c *Cache) Load(ctx context.Context) error {
	keys, err := c.store.Scan(ctx, c.key("*"))
	if err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	hashes, err := c.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return fmt.Errorf("hgetall multi cache entries: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, h := range hashes {
		if len(h) == 0 {
			continue
		}
		entry, err := entryFromHash(h)
		if err != nil {
			c.logger.Warn("Skipping undecodable cache entry",
				zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		c.entries[entry.ID] = &entry
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// BestMatch returns the entry whose vector is closest to vec by cosine
// similarity. Ties break on id so repeated lookups agree.
func (c *Cache) BestMatch(vec []float32) (domain.CacheEntry, float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *domain.CacheEntry
	var bestScore float64
	for _, e := range c.entries {
		score := domain.CosineSimilarity(vec, e.Vector)
		if best == nil || score > bestScore || (score == bestScore && e.ID < best.ID) {
			best = e
			bestScore = score
		}
	}
	if best == nil {
		return domain.CacheEntry{}, 0, false
	}
	return *best, bestScore, true
}

// RecordHit bumps the hit count of an entry. The count drives eviction order,
// so losing a persist is tolerable; the in-memory bump always lands.
func (c *Cache) RecordHit(ctx context.Context, id string) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	entry.HitCount++
	count := entry.HitCount
	c.mu.Unlock()

	if err := c.store.HSet(ctx, c.key(id), map[string]string{
		fieldHitCount: fmt.Sprintf("%d", count),
	}); err != nil {
		c.logger.Warn("Failed to persist cache hit count",
			zap.String("id", id), zap.Error(err))
	}
}

// Store caches a finalized answer. When the source text embeds close enough
// to an existing entry (>= merge threshold) the entries merge: the existing
// one absorbs the hit and nothing new is inserted. Returns the entry that now
// represents the answer and whether a merge happened.
func (c *Cache) Store(ctx context.Context, sourceText, responseText, audioRef string) (domain.CacheEntry, bool, error) {
	result, err := c.embedder.Embed(ctx, sourceText)
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("embed source text: %w", err)
	}

	// Pool mutation happens under the lock; the store round-trips happen
	// after it is released, so concurrent lookups never wait on the backend.
	c.mu.Lock()

	if victim := c.closestLocked(result.Embedding); victim != nil {
		score := domain.CosineSimilarity(result.Embedding, victim.Vector)
		if score >= c.mergeThreshold {
			victim.HitCount++
			merged := *victim
			c.mu.Unlock()

			metrics.CacheOpsTotal.WithLabelValues("merge").Inc()
			c.persist(ctx, merged)
			return merged, true, nil
		}
	}

	entry := domain.CacheEntry{
		ID:           uuid.NewString(),
		Vector:       result.Embedding,
		SourceText:   sourceText,
		ResponseText: responseText,
		AudioRef:     audioRef,
		CreatedAt:    time.Now().UTC(),
	}
	c.entries[entry.ID] = &entry

	var evicted []string
	for c.capacity > 0 && len(c.entries) > c.capacity {
		id, ok := c.evictLocked()
		if !ok {
			break
		}
		evicted = append(evicted, id)
	}
	c.mu.Unlock()

	metrics.CacheOpsTotal.WithLabelValues("insert").Inc()
	c.persist(ctx, entry)
	for _, id := range evicted {
		metrics.CacheOpsTotal.WithLabelValues("evict").Inc()
		if err := c.store.Del(ctx, c.key(id)); err != nil {
			c.logger.Warn("Failed to delete evicted cache entry",
				zap.String("id", id), zap.Error(err))
		}
	}

	return entry, false, nil
}

// closestLocked returns the nearest entry by cosine similarity, or nil when
// the pool is empty. Caller holds c.mu.
func (c *Cache) closestLocked(vec []float32) *domain.CacheEntry {
	var best *domain.CacheEntry
	var bestScore float64
	for _, e := range c.entries {
		score := domain.CosineSimilarity(vec, e.Vector)
		if best == nil || score > bestScore || (score == bestScore && e.ID < best.ID) {
			best = e
			bestScore = score
		}
	}
	return best
}

// evictLocked removes the entry with the lowest hit count from the pool,
// breaking ties on oldest CreatedAt then id, and returns the removed id.
// Caller holds c.mu and deletes the backend key after unlocking.
func (c *Cache) evictLocked() (string, bool) {
	var victim *domain.CacheEntry
	for _, e := range c.entries {
		if victim == nil {
			victim = e
			continue
		}
		switch {
		case e.HitCount < victim.HitCount:
			victim = e
		case e.HitCount == victim.HitCount && e.CreatedAt.Before(victim.CreatedAt):
			victim = e
		case e.HitCount == victim.HitCount && e.CreatedAt.Equal(victim.CreatedAt) && e.ID < victim.ID:
			victim = e
		}
	}
	if victim == nil {
		return "", false
	}
	delete(c.entries, victim.ID)
	return victim.ID, true
}

func (c *Cache) persist(ctx context.Context, entry domain.CacheEntry) {
	if err := c.store.HSet(ctx, c.key(entry.ID), entryToHash(entry)); err != nil {
		c.logger.Warn("Failed to persist cache entry",
			zap.String("id", entry.ID), zap.Error(err))
	}
}

// Store key pattern: {prefix}cache:{id}

func (c *Cache) key(id string) string {
	prefix := c.keyPrefix
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return prefix + "cache:" + id
}

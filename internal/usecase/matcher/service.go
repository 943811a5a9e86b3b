// Package matcher resolves spoken input against the clip archive and the
// response cache through three tiers of increasing cost: exact, fuzzy, then
// semantic. The first tier to clear its threshold wins.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
	"github.com/liveclaw/voicecore/internal/metrics"
)

// Config holds matcher thresholds.
type Config struct {
	FuzzyThreshold    float64
	SemanticThreshold float64
	SemanticBudget    time.Duration
}

// Service is the tiered matcher.
type Service struct {
	archive  Archive
	cache    CachePool
	embedder Embedder

	fuzzyThreshold    float64
	semanticThreshold float64
	semanticBudget    time.Duration
	logger            *zap.Logger
}

// New creates a matcher service.
func New(archive Archive, cache CachePool, embedder Embedder, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		archive:           archive,
		cache:             cache,
		embedder:          embedder,
		fuzzyThreshold:    cfg.FuzzyThreshold,
		semanticThreshold: cfg.SemanticThreshold,
		semanticBudget:    cfg.SemanticBudget,
		logger:            logger,
	}
}

// Match runs all three tiers. The semantic tier runs under its own time
// budget; blowing the budget degrades to a miss rather than an error, so a
// slow embedding provider never stalls a turn.
func (s *Service) Match(ctx context.Context, text string) domain.MatchResult {
	start := time.Now()
	norm := domain.NormalizeText(text)
	if norm == "" {
		return s.record(domain.Miss(time.Since(start)))
	}
	tokens := domain.Tokens(norm)
	snap := s.archive.Snapshot()

	if res, ok := matchExact(norm, tokens, snap); ok {
		res.Elapsed = time.Since(start)
		return s.record(res)
	}
	if res, ok := matchFuzzy(tokens, snap, s.fuzzyThreshold); ok {
		res.Elapsed = time.Since(start)
		return s.record(res)
	}

	res := s.matchSemantic(ctx, norm, snap)
	res.Elapsed = time.Since(start)
	return s.record(res)
}

// MatchExact runs only the exact tier. Used where an embedding call is never
// worth the latency, like pressure-mode turn handling.
func (s *Service) MatchExact(text string) domain.MatchResult {
	start := time.Now()
	norm := domain.NormalizeText(text)
	if norm == "" {
		return domain.Miss(time.Since(start))
	}
	if res, ok := matchExact(norm, domain.Tokens(norm), s.archive.Snapshot()); ok {
		res.Elapsed = time.Since(start)
		return res
	}
	return domain.Miss(time.Since(start))
}

// MatchLexical runs the exact and fuzzy tiers without touching the embedding
// provider. The indexer uses it for duplicate detection.
func (s *Service) MatchLexical(text string) domain.MatchResult {
	start := time.Now()
	norm := domain.NormalizeText(text)
	if norm == "" {
		return domain.Miss(time.Since(start))
	}
	tokens := domain.Tokens(norm)
	snap := s.archive.Snapshot()

	if res, ok := matchExact(norm, tokens, snap); ok {
		res.Elapsed = time.Since(start)
		return res
	}
	if res, ok := matchFuzzy(tokens, snap, s.fuzzyThreshold); ok {
		res.Elapsed = time.Since(start)
		return res
	}
	return domain.Miss(time.Since(start))
}

// matchExact hits when a compiled pattern matches the normalized input or
// when every keyword of an entry appears in it. Ties break on priority, then
// match span, then id, so the same input always resolves to the same clip.
func matchExact(norm string, tokens []string, snap *domain.ArchiveSnapshot) (domain.MatchResult, bool) {
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
	}

	var best *domain.ClipEntry
	var bestSpan int
	for i := range snap.Entries {
		e := &snap.Entries[i]
		span, hit := exactSpan(e, norm, tokenSet)
		if !hit {
			continue
		}
		if best == nil ||
			e.Priority > best.Priority ||
			(e.Priority == best.Priority && span > bestSpan) ||
			(e.Priority == best.Priority && span == bestSpan && e.ID < best.ID) {
			best = e
			bestSpan = span
		}
	}
	if best == nil {
		return domain.MatchResult{}, false
	}
	return domain.MatchResult{
		Tier:       domain.TierExact,
		Confidence: 1.0,
		ClipID:     best.ID,
		AudioRef:   best.AudioRef,
	}, true
}

// exactSpan reports whether the entry hits and how much of the input it
// covers. Pattern hits span the matched substring; keyword hits span the
// combined keyword length.
func exactSpan(e *domain.ClipEntry, norm string, tokenSet map[string]struct{}) (int, bool) {
	span := 0
	hit := false

	for _, re := range e.Patterns {
		if loc := re.FindStringIndex(norm); loc != nil {
			hit = true
			if n := loc[1] - loc[0]; n > span {
				span = n
			}
		}
	}

	if len(e.Keywords) > 0 {
		total := 0
		all := true
		for _, kw := range e.Keywords {
			if _, ok := tokenSet[kw]; !ok {
				all = false
				break
			}
			total += len(kw)
		}
		if all {
			hit = true
			if total > span {
				span = total
			}
		}
	}

	return span, hit
}

// matchFuzzy scores input tokens against every variation of every entry.
// Ties break on score, then priority, then newest, then id.
func matchFuzzy(tokens []string, snap *domain.ArchiveSnapshot, threshold float64) (domain.MatchResult, bool) {
	var best *domain.ClipEntry
	var bestScore float64
	for i := range snap.Entries {
		e := &snap.Entries[i]
		for _, v := range e.Variations {
			score := tokenSetRatio(tokens, domain.Tokens(v))
			if score < threshold {
				continue
			}
			if best == nil ||
				score > bestScore ||
				(score == bestScore && e.Priority > best.Priority) ||
				(score == bestScore && e.Priority == best.Priority && e.CreatedAt.After(best.CreatedAt)) ||
				(score == bestScore && e.Priority == best.Priority && e.CreatedAt.Equal(best.CreatedAt) && e.ID < best.ID) {
				best = e
				bestScore = score
			}
		}
	}
	if best == nil {
		return domain.MatchResult{}, false
	}
	return domain.MatchResult{
		Tier:       domain.TierFuzzy,
		Confidence: bestScore,
		ClipID:     best.ID,
		AudioRef:   best.AudioRef,
	}, true
}

// matchSemantic embeds the input under the tier budget and ranks archive
// vectors against the response cache pool. A clip beats a cache entry on
// equal score.
func (s *Service) matchSemantic(ctx context.Context, norm string, snap *domain.ArchiveSnapshot) domain.MatchResult {
	ctx, cancel := context.WithTimeout(ctx, s.semanticBudget)
	defer cancel()

	result, err := s.embedder.Embed(ctx, norm)
	if err != nil {
		err = classifySemanticErr(err, s.semanticBudget)
		if errors.Is(err, domain.ErrMatchTimeout) {
			s.logger.Debug("Semantic tier degraded to miss", zap.Error(err))
		} else {
			s.logger.Warn("Semantic tier embedding failed", zap.Error(err))
		}
		return domain.MatchResult{Tier: domain.TierMiss}
	}
	vec := result.Embedding

	var bestClip *domain.ClipEntry
	var bestClipScore float64
	for i := range snap.Entries {
		e := &snap.Entries[i]
		for _, v := range e.Vectors {
			score := domain.CosineSimilarity(vec, v)
			if bestClip == nil || score > bestClipScore ||
				(score == bestClipScore && e.ID < bestClip.ID) {
				bestClip = e
				bestClipScore = score
			}
		}
	}

	cacheEntry, cacheScore, cacheOK := s.cache.BestMatch(vec)

	if cacheOK && cacheScore >= s.semanticThreshold && cacheScore > bestClipScore {
		metrics.CacheOpsTotal.WithLabelValues("hit").Inc()
		s.cache.RecordHit(ctx, cacheEntry.ID)
		return domain.MatchResult{
			Tier:         domain.TierCacheHit,
			Confidence:   cacheScore,
			CacheID:      cacheEntry.ID,
			AudioRef:     cacheEntry.AudioRef,
			ResponseText: cacheEntry.ResponseText,
		}
	}
	metrics.CacheOpsTotal.WithLabelValues("miss").Inc()

	if bestClip != nil && bestClipScore >= s.semanticThreshold {
		return domain.MatchResult{
			Tier:       domain.TierSemantic,
			Confidence: bestClipScore,
			ClipID:     bestClip.ID,
			AudioRef:   bestClip.AudioRef,
		}
	}

	return domain.MatchResult{Tier: domain.TierMiss}
}

// classifySemanticErr wraps a blown embedding deadline in ErrMatchTimeout so
// a slow provider is distinguishable from a broken one. Either way the tier
// degrades to a miss; the error only drives logging and caller classification.
func classifySemanticErr(err error, budget time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("embedding exceeded %v budget: %w", budget, domain.ErrMatchTimeout)
	}
	return err
}

func (s *Service) record(res domain.MatchResult) domain.MatchResult {
	metrics.MatchTotal.WithLabelValues(string(res.Tier)).Inc()
	metrics.MatchDuration.WithLabelValues(string(res.Tier)).Observe(res.Elapsed.Seconds())
	return res
}

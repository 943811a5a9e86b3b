package domain

import "time"

// Tier identifies which matching strategy produced a result.
type Tier string

const (
	// TierExact is a normalized keyword or compiled-pattern hit.
	TierExact Tier = "exact"
	// TierFuzzy is a token-set similarity hit against clip variations.
	TierFuzzy Tier = "fuzzy"
	// TierSemantic is an embedding similarity hit against a clip.
	TierSemantic Tier = "semantic"
	// TierCacheHit is an embedding similarity hit against the response cache.
	TierCacheHit Tier = "cache_hit"
	// TierMiss means no tier cleared its threshold.
	TierMiss Tier = "miss"
)

// MatchResult is the outcome of one matcher call.
type MatchResult struct {
	Tier         Tier
	Confidence   float64
	ClipID       string // matched archive entry, empty on cache hit or miss
	CacheID      string // matched cache entry, set only on cache hit
	AudioRef     string
	ResponseText string
	Elapsed      time.Duration
}

// IsHit reports whether any tier matched.
func (r MatchResult) IsHit() bool { return r.Tier != TierMiss }

// Bypass reports whether the result short-circuits generation entirely.
// Semantic clip hits are strong enough to resolve track outputs to archived
// audio but not to skip generation.
func (r MatchResult) Bypass() bool {
	switch r.Tier {
	case TierExact, TierFuzzy, TierCacheHit:
		return true
	default:
		return false
	}
}

// Miss returns a miss result carrying the elapsed lookup time.
func Miss(elapsed time.Duration) MatchResult {
	return MatchResult{Tier: TierMiss, Elapsed: elapsed}
}

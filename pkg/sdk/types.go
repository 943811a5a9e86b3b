package voicecore

import (
	"context"
	"time"
)

// Matching tiers as reported by Match.
const (
	TierExact    = "exact"
	TierFuzzy    = "fuzzy"
	TierSemantic = "semantic"
	TierCacheHit = "cache_hit"
	TierMiss     = "miss"
)

// MatchResult is the outcome of one tiered lookup.
type MatchResult struct {
	Tier         string
	Confidence   float64
	ClipID       string
	CacheID      string
	AudioRef     string
	ResponseText string
	Elapsed      time.Duration
}

// Clip is an archived response clip.
type Clip struct {
	ID         string
	AudioRef   string
	Keywords   []string
	Variations []string
	Patterns   []string
	Priority   int
	Vectorized bool
	CreatedAt  time.Time
}

// SeedClip is a curated clip for Seed.
type SeedClip struct {
	ID         string   `json:"id"`
	AudioRef   string   `json:"audio_ref"`
	Keywords   []string `json:"keywords,omitempty"`
	Variations []string `json:"variations,omitempty"`
	Patterns   []string `json:"patterns,omitempty"`
}

// Emission intents delivered to the HandleTurn callback.
const (
	IntentAck      = "ack"
	IntentProgress = "progress"
	IntentFinal    = "final"
	IntentError    = "error"
)

// Emission is one outbound event for a turn. Each intent arrives at most once
// per turn; final (or error) is always last.
type Emission struct {
	TurnID   string
	Intent   string
	Text     string
	AudioRef string
}

// Turn modes.
const (
	ModeNormal = "normal"
	ModeFast   = "fast" // exact tier only, skip embedding lookups
)

// Event types produced by a Generator.
const (
	EventAck      = "ack"
	EventProgress = "progress"
	EventFinal    = "final"
)

// Event is one output event from a generation track.
type Event struct {
	Type string
	Text string
}

// Embedder turns text into a vector. Configure via WithEmbedder to enable the
// semantic matching tier.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator streams generation events. Configure a fast and a slow generator
// via WithGenerators to enable full turn handling.
type Generator interface {
	Generate(ctx context.Context, text string, emit func(Event)) error
}

// Synthesizer produces an audio reference for text. Configure via
// WithSynthesizer to enable the miss fallback and auto-learning.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

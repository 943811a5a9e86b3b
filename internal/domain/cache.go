package domain

import "time"

// KeyPrefix namespaces every key the engine writes to the shared store.
const KeyPrefix = "voicecore:"

// CacheEntry is a previously finalized answer indexed by the embedding of the
// text that produced it. One entry per semantically distinct answer:
// near-duplicate insertions merge into the existing entry instead of creating
// a new one.
type CacheEntry struct {
	ID           string
	Vector       []float32
	SourceText   string
	ResponseText string
	AudioRef     string // optional
	CreatedAt    time.Time
	HitCount     int64
}

package matcher

import (
	"context"

	"github.com/liveclaw/voicecore/internal/domain"
)

// Archive exposes the current clip archive snapshot.
type Archive interface {
	Snapshot() *domain.ArchiveSnapshot
}

// CachePool ranks response cache entries by vector similarity.
type CachePool interface {
	BestMatch(vec []float32) (domain.CacheEntry, float64, bool)
	RecordHit(ctx context.Context, id string)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

package indexer

import (
	"context"

	"github.com/liveclaw/voicecore/internal/domain"
)

// LexicalMatcher runs the lexical tiers only; duplicate detection must never
// spend an embedding call.
type LexicalMatcher interface {
	MatchLexical(text string) domain.MatchResult
}

// Publisher appends a new entry to the clip archive.
type Publisher interface {
	Publish(ctx context.Context, entry domain.ClipEntry) (int64, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

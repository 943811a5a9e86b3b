package orchestrator

import (
	"context"

	"github.com/liveclaw/voicecore/internal/domain"
)

// Matcher resolves input text against the archive and response cache.
type Matcher interface {
	Match(ctx context.Context, text string) domain.MatchResult
	MatchExact(text string) domain.MatchResult
}

// Emitter forwards one outbound event to the transport collaborator.
type Emitter interface {
	Emit(ctx context.Context, e domain.Emission) error
}

// CacheWriter stores a finalized answer in the response cache.
type CacheWriter interface {
	Store(ctx context.Context, sourceText, responseText, audioRef string) (domain.CacheEntry, bool, error)
}

// Learner feeds a finalized turn to the auto-indexer.
type Learner interface {
	Learn(ctx context.Context, sourceText, responseText string) error
}

// Classifier decides whether a finalized answer is worth archiving.
type Classifier interface {
	Archivable(sourceText, responseText string) bool
}

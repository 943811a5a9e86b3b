package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidClip signals a clip entry failing schema validation.
	// Such entries are discarded before publish, never stored.
	ErrInvalidClip = errors.New("invalid clip entry")
	// ErrStoreUnavailable signals an unreachable archive or cache backend.
	// The matcher treats it as a miss for the affected tier.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrMatchTimeout signals the semantic tier exceeded its latency budget.
	// Degrades to a miss; never fails the turn.
	ErrMatchTimeout = errors.New("match timeout")
	// ErrGeneratorFailure signals a generation track errored or timed out.
	ErrGeneratorFailure = errors.New("generator failure")
	// ErrTurnFailed signals both tracks and the synthesis fallback failed,
	// the only matcher/generator condition that is user-visible.
	ErrTurnFailed = errors.New("turn failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

package voicecore

import (
	"errors"

	"github.com/liveclaw/voicecore/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrAlreadyExists          = domain.ErrAlreadyExists
	ErrInvalidClip            = domain.ErrInvalidClip
	ErrStoreUnavailable       = domain.ErrStoreUnavailable
	ErrMatchTimeout           = domain.ErrMatchTimeout
	ErrGeneratorFailure       = domain.ErrGeneratorFailure
	ErrTurnFailed             = domain.ErrTurnFailed
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// Configuration errors.
var (
	// ErrNotConfigured signals an operation that needs a collaborator the
	// client was built without (generators, synthesizer).
	ErrNotConfigured = errors.New("voicecore: collaborator not configured")
)

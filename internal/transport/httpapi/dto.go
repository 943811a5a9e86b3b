package httpapi

import (
	"time"

	"github.com/liveclaw/voicecore/internal/domain"
)

// Error codes returned in the JSON error envelope.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "not_found"
	codeAlreadyExists    = "already_exists"
	codeProviderError    = "provider_error"
	codeTurnFailed       = "turn_failed"
	codeStoreUnavailable = "store_unavailable"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type turnRequest struct {
	TurnID string `json:"turn_id,omitempty"`
	Text   string `json:"text"`
	Mode   string `json:"mode,omitempty"` // "normal" (default) or "fast"
}

type matchRequest struct {
	Text string `json:"text"`
}

type matchResponse struct {
	Tier         string  `json:"tier"`
	Confidence   float64 `json:"confidence"`
	ClipID       string  `json:"clip_id,omitempty"`
	CacheID      string  `json:"cache_id,omitempty"`
	AudioRef     string  `json:"audio_ref,omitempty"`
	ResponseText string  `json:"response_text,omitempty"`
	ElapsedMs    float64 `json:"elapsed_ms"`
}

func matchToAPI(r domain.MatchResult) matchResponse {
	return matchResponse{
		Tier:         string(r.Tier),
		Confidence:   r.Confidence,
		ClipID:       r.ClipID,
		CacheID:      r.CacheID,
		AudioRef:     r.AudioRef,
		ResponseText: r.ResponseText,
		ElapsedMs:    float64(r.Elapsed) / float64(time.Millisecond),
	}
}

type clipResponse struct {
	ID         string    `json:"id"`
	AudioRef   string    `json:"audio_ref"`
	Keywords   []string  `json:"keywords,omitempty"`
	Variations []string  `json:"variations,omitempty"`
	Patterns   []string  `json:"patterns,omitempty"`
	Priority   int       `json:"priority"`
	Vectorized bool      `json:"vectorized"`
	CreatedAt  time.Time `json:"created_at"`
}

func clipToAPI(e domain.ClipEntry) clipResponse {
	return clipResponse{
		ID:         e.ID,
		AudioRef:   e.AudioRef,
		Keywords:   e.Keywords,
		Variations: e.Variations,
		Patterns:   e.PatternSources,
		Priority:   e.Priority,
		Vectorized: len(e.Vectors) > 0,
		CreatedAt:  e.CreatedAt,
	}
}

type clipListResponse struct {
	Version int64          `json:"version"`
	Items   []clipResponse `json:"items"`
}

type seedResponse struct {
	Published int `json:"published"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

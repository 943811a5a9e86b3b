package respcache

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/liveclaw/voicecore/internal/domain"
)

// Hash field names for persisted cache entries.
const (
	fieldID           = "id"
	fieldVector       = "vector"
	fieldSourceText   = "source_text"
	fieldResponseText = "response_text"
	fieldAudioRef     = "audio_ref"
	fieldCreatedAt    = "created_at"
	fieldHitCount     = "hit_count"
)

func entryToHash(e domain.CacheEntry) map[string]string {
	return map[string]string{
		fieldID:           e.ID,
		fieldVector:       encodeVector(e.Vector),
		fieldSourceText:   e.SourceText,
		fieldResponseText: e.ResponseText,
		fieldAudioRef:     e.AudioRef,
		fieldCreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldHitCount:     strconv.FormatInt(e.HitCount, 10),
	}
}

func entryFromHash(h map[string]string) (domain.CacheEntry, error) {
	id := h[fieldID]
	if id == "" {
		return domain.CacheEntry{}, fmt.Errorf("missing %s field", fieldID)
	}

	vec, err := decodeVector(h[fieldVector])
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("entry %s: %w", id, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, h[fieldCreatedAt])
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("entry %s: parsing %s: %w", id, fieldCreatedAt, err)
	}

	var hitCount int64
	if raw := h[fieldHitCount]; raw != "" {
		hitCount, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.CacheEntry{}, fmt.Errorf("entry %s: parsing %s: %w", id, fieldHitCount, err)
		}
	}

	return domain.CacheEntry{
		ID:           id,
		Vector:       vec,
		SourceText:   h[fieldSourceText],
		ResponseText: h[fieldResponseText],
		AudioRef:     h[fieldAudioRef],
		CreatedAt:    createdAt,
		HitCount:     hitCount,
	}, nil
}

// Vectors persist as base64 over little-endian float32, matching the
// embedding cache encoding.

func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeVector(s string) ([]float32, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding vector: %w", err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

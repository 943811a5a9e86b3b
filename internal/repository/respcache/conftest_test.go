package respcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, key string) error
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

// stubEmbedder returns a fixed vector per text.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	vec, ok := s.vectors[text]
	if !ok {
		vec = []float32{1, 0, 0}
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

func newTestCache(t *testing.T, capacity int, mergeThreshold float64) (*Cache, *mockStore, *stubEmbedder) {
	t.Helper()
	ms := &mockStore{}
	emb := &stubEmbedder{vectors: map[string][]float32{}}
	c := New(ms, emb, Config{
		Capacity:       capacity,
		MergeThreshold: mergeThreshold,
		KeyPrefix:      "voicecore:",
	}, zap.NewNop())
	return c, ms, emb
}

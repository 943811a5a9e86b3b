package matcher

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
)

// stubArchive serves a fixed snapshot.
type stubArchive struct {
	snap *domain.ArchiveSnapshot
}

func (s *stubArchive) Snapshot() *domain.ArchiveSnapshot { return s.snap }

// mockCache implements CachePool for tests.
type mockCache struct {
	bestMatchFn func(vec []float32) (domain.CacheEntry, float64, bool)
	hits        []string
}

func (m *mockCache) BestMatch(vec []float32) (domain.CacheEntry, float64, bool) {
	if m.bestMatchFn != nil {
		return m.bestMatchFn(vec)
	}
	return domain.CacheEntry{}, 0, false
}

func (m *mockCache) RecordHit(_ context.Context, id string) {
	m.hits = append(m.hits, id)
}

// mockEmbedder implements Embedder for tests.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

type clipSpec struct {
	id         string
	keywords   []string
	variations []string
	patterns   []string
	vectors    [][]float32
	priority   int
	createdAt  time.Time
}

func buildEntries(t *testing.T, specs []clipSpec) []domain.ClipEntry {
	t.Helper()
	entries := make([]domain.ClipEntry, 0, len(specs))
	for _, sp := range specs {
		priority := sp.priority
		if priority == 0 {
			priority = domain.PrioritySeed
		}
		createdAt := sp.createdAt
		if createdAt.IsZero() {
			createdAt = time.Unix(1700000000, 0).UTC()
		}
		entry, err := domain.NewClipEntry(
			sp.id, "clips/"+sp.id+".mp3",
			sp.keywords, sp.variations, sp.patterns,
			sp.vectors, priority, createdAt,
		)
		if err != nil {
			t.Fatalf("NewClipEntry %s: %v", sp.id, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func newTestService(t *testing.T, specs []clipSpec) (*Service, *mockCache, *mockEmbedder) {
	t.Helper()
	archive := &stubArchive{snap: &domain.ArchiveSnapshot{
		Entries: buildEntries(t, specs),
		Version: int64(len(specs)),
	}}
	cache := &mockCache{}
	embedder := &mockEmbedder{}
	svc := New(archive, cache, embedder, Config{
		FuzzyThreshold:    0.85,
		SemanticThreshold: 0.65,
		SemanticBudget:    250 * time.Millisecond,
	}, zap.NewNop())
	return svc, cache, embedder
}

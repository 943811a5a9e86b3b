package indexer

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
)

func testTime() time.Time {
	return time.Unix(1700000000, 0).UTC()
}

// mockLexical implements LexicalMatcher for tests.
type mockLexical struct {
	matchFn func(text string) domain.MatchResult
}

func (m *mockLexical) MatchLexical(text string) domain.MatchResult {
	if m.matchFn != nil {
		return m.matchFn(text)
	}
	return domain.Miss(0)
}

// mockPublisher collects published entries.
type mockPublisher struct {
	mu        sync.Mutex
	publishFn func(ctx context.Context, entry domain.ClipEntry) (int64, error)
	published []domain.ClipEntry
}

func (m *mockPublisher) Publish(ctx context.Context, entry domain.ClipEntry) (int64, error) {
	m.mu.Lock()
	m.published = append(m.published, entry)
	fn := m.publishFn
	version := int64(len(m.published))
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, entry)
	}
	return version, nil
}

func (m *mockPublisher) all() []domain.ClipEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ClipEntry, len(m.published))
	copy(out, m.published)
	return out
}

// mockEmbedder implements Embedder for tests.
type mockEmbedder struct {
	mu      sync.Mutex
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	fn := m.embedFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

// mockSynth implements domain.Synthesizer.
type mockSynth struct {
	synthFn func(ctx context.Context, text string) (string, error)
	calls   int
}

func (m *mockSynth) Synthesize(ctx context.Context, text string) (string, error) {
	m.calls++
	if m.synthFn != nil {
		return m.synthFn(ctx, text)
	}
	return "media/learned.mp3", nil
}

func newTestIndexer(t *testing.T) (*Service, *mockLexical, *mockPublisher, *mockEmbedder, *mockSynth) {
	t.Helper()
	lex := &mockLexical{}
	pub := &mockPublisher{}
	emb := &mockEmbedder{}
	synth := &mockSynth{}
	svc := New(lex, pub, emb, synth, zap.NewNop())
	return svc, lex, pub, emb, synth
}

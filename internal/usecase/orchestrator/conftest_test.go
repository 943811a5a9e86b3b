package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
)

// mockMatcher implements Matcher for tests.
type mockMatcher struct {
	matchFn      func(ctx context.Context, text string) domain.MatchResult
	matchExactFn func(text string) domain.MatchResult
	matchCalls   int
	exactCalls   int
}

func (m *mockMatcher) Match(ctx context.Context, text string) domain.MatchResult {
	m.matchCalls++
	if m.matchFn != nil {
		return m.matchFn(ctx, text)
	}
	return domain.Miss(0)
}

func (m *mockMatcher) MatchExact(text string) domain.MatchResult {
	m.exactCalls++
	if m.matchExactFn != nil {
		return m.matchExactFn(text)
	}
	return domain.Miss(0)
}

// scriptGen implements domain.Generator via a func field.
type scriptGen struct {
	generateFn func(ctx context.Context, text string, emit func(domain.GenEvent)) error
	calls      int
}

func (g *scriptGen) Generate(ctx context.Context, text string, emit func(domain.GenEvent)) error {
	g.calls++
	if g.generateFn != nil {
		return g.generateFn(ctx, text, emit)
	}
	return nil
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
	return "media/fallback.mp3", nil
}

// recordingEmitter collects emissions in order.
type recordingEmitter struct {
	mu        sync.Mutex
	emissions []domain.Emission
	emitErr   error
}

func (r *recordingEmitter) Emit(_ context.Context, e domain.Emission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emitErr != nil {
		return r.emitErr
	}
	r.emissions = append(r.emissions, e)
	return nil
}

func (r *recordingEmitter) all() []domain.Emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Emission, len(r.emissions))
	copy(out, r.emissions)
	return out
}

func (r *recordingEmitter) intents() []domain.Intent {
	var out []domain.Intent
	for _, e := range r.all() {
		out = append(out, e.Intent)
	}
	return out
}

// mockCacheWriter implements CacheWriter.
type mockCacheWriter struct {
	mu      sync.Mutex
	storeFn func(ctx context.Context, sourceText, responseText, audioRef string) (domain.CacheEntry, bool, error)
	calls   int
}

func (m *mockCacheWriter) Store(ctx context.Context, sourceText, responseText, audioRef string) (domain.CacheEntry, bool, error) {
	m.mu.Lock()
	m.calls++
	fn := m.storeFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, sourceText, responseText, audioRef)
	}
	return domain.CacheEntry{}, false, nil
}

// mockLearner implements Learner.
type mockLearner struct {
	mu      sync.Mutex
	learnFn func(ctx context.Context, sourceText, responseText string) error
	calls   int
}

func (m *mockLearner) Learn(ctx context.Context, sourceText, responseText string) error {
	m.mu.Lock()
	m.calls++
	fn := m.learnFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, sourceText, responseText)
	}
	return nil
}

// stubClassifier approves or rejects everything.
type stubClassifier struct {
	ok bool
}

func (s *stubClassifier) Archivable(_, _ string) bool { return s.ok }

type testFixture struct {
	svc        *Service
	matcher    *mockMatcher
	fast       *scriptGen
	slow       *scriptGen
	synth      *mockSynth
	emitter    *recordingEmitter
	cache      *mockCacheWriter
	learner    *mockLearner
	classifier *stubClassifier
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		matcher:    &mockMatcher{},
		fast:       &scriptGen{},
		slow:       &scriptGen{},
		synth:      &mockSynth{},
		emitter:    &recordingEmitter{},
		cache:      &mockCacheWriter{},
		learner:    &mockLearner{},
		classifier: &stubClassifier{ok: true},
	}
	f.svc = New(
		f.matcher, f.fast, f.slow, f.synth,
		f.emitter, f.cache, f.learner, f.classifier,
		Config{FastDeadline: time.Second, SlowDeadline: 2 * time.Second},
		zap.NewNop(),
	)
	return f
}

func inbound(text string) domain.InboundMessage {
	return domain.InboundMessage{TurnID: "turn-1", Text: text, Timestamp: time.Unix(1700000000, 0)}
}

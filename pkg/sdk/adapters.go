package voicecore

import (
	"context"
	"fmt"
	"sync"

	"github.com/liveclaw/voicecore/internal/domain"
)

// embedderAdapter lifts the public Embedder into the domain contract.
type embedderAdapter struct {
	inner Embedder
}

func (a embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// unavailableEmbedder stands in when no embedder is configured. The matcher
// treats its error as a semantic-tier miss, so lexical tiers keep working.
type unavailableEmbedder struct{}

func (unavailableEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf("no embedder configured: %w", domain.ErrEmbeddingProviderError)
}

// generatorAdapter lifts the public Generator into the domain contract.
type generatorAdapter struct {
	inner Generator
}

func (a generatorAdapter) Generate(ctx context.Context, text string, emit func(domain.GenEvent)) error {
	return a.inner.Generate(ctx, text, func(e Event) {
		emit(domain.GenEvent{Type: domain.EventType(e.Type), Text: e.Text})
	})
}

// emissionRouter implements the orchestrator's Emitter contract, routing each
// turn's emissions to the callback registered by HandleTurn.
type emissionRouter struct {
	mu   sync.Mutex
	subs map[string]func(Emission)
}

func newEmissionRouter() *emissionRouter {
	return &emissionRouter{subs: make(map[string]func(Emission))}
}

func (r *emissionRouter) Emit(_ context.Context, e domain.Emission) error {
	r.mu.Lock()
	fn := r.subs[e.TurnID]
	r.mu.Unlock()

	if fn != nil {
		fn(Emission{
			TurnID:   e.TurnID,
			Intent:   string(e.Intent),
			Text:     e.Text,
			AudioRef: e.AudioRef,
		})
	}
	return nil
}

func (r *emissionRouter) register(turnID string, fn func(Emission)) func() {
	r.mu.Lock()
	r.subs[turnID] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subs, turnID)
		r.mu.Unlock()
	}
}

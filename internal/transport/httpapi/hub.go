package httpapi

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
)

// subscriberBuffer bounds each subscriber channel. Emit never blocks the
// orchestrator: a subscriber that falls this far behind loses events.
const subscriberBuffer = 16

// Hub fans emissions out to per-turn subscribers and to the broadcast feed.
// It implements the orchestrator's Emitter contract.
type Hub struct {
	mu     sync.Mutex
	turns  map[string][]chan domain.Emission
	feed   map[chan domain.Emission]struct{}
	logger *zap.Logger
}

// NewHub creates an emission hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		turns:  make(map[string][]chan domain.Emission),
		feed:   make(map[chan domain.Emission]struct{}),
		logger: logger,
	}
}

// Emit delivers the emission to every subscriber of its turn and to the
// broadcast feed. Slow subscribers are skipped, not waited on.
func (h *Hub) Emit(_ context.Context, e domain.Emission) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.turns[e.TurnID] {
		h.deliver(ch, e)
	}
	for ch := range h.feed {
		h.deliver(ch, e)
	}
	return nil
}

func (h *Hub) deliver(ch chan domain.Emission, e domain.Emission) {
	select {
	case ch <- e:
	default:
		h.logger.Warn("subscriber lagging, emission dropped",
			zap.String("turn_id", e.TurnID),
			zap.String("intent", string(e.Intent)),
		)
	}
}

// Subscribe registers for one turn's emissions. The cancel func must be called
// when the subscriber is done; it is safe to call more than once.
func (h *Hub) Subscribe(turnID string) (<-chan domain.Emission, func()) {
	ch := make(chan domain.Emission, subscriberBuffer)

	h.mu.Lock()
	h.turns[turnID] = append(h.turns[turnID], ch)
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			subs := h.turns[turnID]
			for i, c := range subs {
				if c == ch {
					h.turns[turnID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(h.turns[turnID]) == 0 {
				delete(h.turns, turnID)
			}
		})
	}
	return ch, cancel
}

// SubscribeFeed registers for all emissions regardless of turn.
func (h *Hub) SubscribeFeed() (<-chan domain.Emission, func()) {
	ch := make(chan domain.Emission, subscriberBuffer)

	h.mu.Lock()
	h.feed[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.feed, ch)
		})
	}
	return ch, cancel
}

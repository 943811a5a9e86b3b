package orchestrator

import (
	"sync"

	"github.com/liveclaw/voicecore/internal/domain"
)

// turnState tracks which intents have been forwarded for one turn. claim is a
// check-and-set: exactly one caller wins each intent, so an intent reaches the
// transport at most once per turn no matter how tracks interleave.
type turnState struct {
	mu      sync.Mutex
	claimed map[domain.Intent]bool
}

func newTurnState() *turnState {
	return &turnState{claimed: make(map[domain.Intent]bool)}
}

func (t *turnState) claim(intent domain.Intent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.claimed[intent] {
		return false
	}
	t.claimed[intent] = true
	return true
}

func (t *turnState) has(intent domain.Intent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.claimed[intent]
}

// seenRing remembers the last n turn ids so replayed deliveries from the
// transport are dropped instead of answered twice.
type seenRing struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
	next  int
}

func newSeenRing(n int) *seenRing {
	return &seenRing{
		ids:   make(map[string]struct{}, n),
		order: make([]string, n),
	}
}

// add records the id. Returns false when the id was already seen.
func (r *seenRing) add(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return false
	}
	if old := r.order[r.next]; old != "" {
		delete(r.ids, old)
	}
	r.order[r.next] = id
	r.next = (r.next + 1) % len(r.order)
	r.ids[id] = struct{}{}
	return true
}

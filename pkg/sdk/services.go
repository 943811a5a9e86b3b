package voicecore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/liveclaw/voicecore/internal/domain"
	indexeruc "github.com/liveclaw/voicecore/internal/usecase/indexer"
	orchestratoruc "github.com/liveclaw/voicecore/internal/usecase/orchestrator"
)

// Match runs the tiered lookup without touching the generation tracks.
func (c *Client) Match(ctx context.Context, text string) MatchResult {
	start := time.Now()
	res := c.matcherSvc.Match(ctx, text)
	c.obs.observe("match", start, nil)

	return MatchResult{
		Tier:         string(res.Tier),
		Confidence:   res.Confidence,
		ClipID:       res.ClipID,
		CacheID:      res.CacheID,
		AudioRef:     res.AudioRef,
		ResponseText: res.ResponseText,
		Elapsed:      res.Elapsed,
	}
}

// HandleTurn drives one conversation turn to its terminal emission, invoking
// emit for every event (each intent at most once, final or error last).
// Requires WithGenerators and WithSynthesizer. Mode is ModeNormal or ModeFast;
// empty means normal. A replayed turnID is dropped without emissions.
func (c *Client) HandleTurn(ctx context.Context, turnID, text string, emit func(Emission), opts ...TurnOption) error {
	if c.turnsSvc == nil {
		return fmt.Errorf("%w: generators and synthesizer required for HandleTurn", ErrNotConfigured)
	}

	to := turnOptions{mode: ModeNormal}
	for _, o := range opts {
		o(&to)
	}
	mode := orchestratoruc.Mode(to.mode)
	if mode != orchestratoruc.ModeNormal && mode != orchestratoruc.ModeFast {
		return fmt.Errorf("voicecore: unknown mode %q", to.mode)
	}

	// Assign the ID here rather than downstream so emissions can be routed
	// back to the caller's callback.
	if turnID == "" {
		turnID = uuid.NewString()
	}
	msg := domain.InboundMessage{TurnID: turnID, Text: text}
	if emit != nil {
		unregister := c.router.register(turnID, emit)
		defer unregister()
	}

	start := time.Now()
	err := c.turnsSvc.HandleTurn(ctx, msg, mode)
	c.obs.observe("handle_turn", start, err)
	return err
}

// TurnOption adjusts a single HandleTurn call.
type TurnOption func(*turnOptions)

type turnOptions struct {
	mode string
}

// WithMode sets the turn mode (ModeNormal or ModeFast).
func WithMode(mode string) TurnOption {
	return func(o *turnOptions) { o.mode = mode }
}

// Learn archives a generated exchange as a reusable clip: keyword extraction,
// speech synthesis, learned-tier priority. Duplicates of already-matchable
// inputs are skipped. Requires WithSynthesizer.
func (c *Client) Learn(ctx context.Context, sourceText, responseText string) error {
	if !c.hasSynth {
		return fmt.Errorf("%w: synthesizer required for Learn", ErrNotConfigured)
	}

	start := time.Now()
	err := c.indexSvc.Learn(ctx, sourceText, responseText)
	c.obs.observe("learn", start, err)
	return err
}

// Seed publishes curated clips at seed priority. Clips already in the archive
// are skipped; returns the number actually published.
func (c *Client) Seed(ctx context.Context, clips []SeedClip) (int, error) {
	seed := make([]indexeruc.SeedClip, len(clips))
	for i, cl := range clips {
		seed[i] = indexeruc.SeedClip{
			ID:         cl.ID,
			AudioRef:   cl.AudioRef,
			Keywords:   cl.Keywords,
			Variations: cl.Variations,
			Patterns:   cl.Patterns,
		}
	}

	start := time.Now()
	n, err := c.indexSvc.Seed(ctx, seed)
	c.obs.observe("seed", start, err)
	return n, err
}

// Clips returns the current archive snapshot.
func (c *Client) Clips() []Clip {
	snap := c.archive.Snapshot()
	out := make([]Clip, len(snap.Entries))
	for i, e := range snap.Entries {
		out[i] = clipFromEntry(e)
	}
	return out
}

// GetClip returns one archived clip by id. Returns ErrNotFound if absent.
func (c *Client) GetClip(id string) (Clip, error) {
	entry, err := c.archive.Get(id)
	if err != nil {
		return Clip{}, err
	}
	return clipFromEntry(entry), nil
}

// Health checks the health of all wired components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

func clipFromEntry(e domain.ClipEntry) Clip {
	return Clip{
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

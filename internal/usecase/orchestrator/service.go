// Package orchestrator runs each conversation turn: a matcher pre-check that
// can short-circuit generation, then a fast acknowledgment track racing a slow
// deep-answer track, with per-turn intent dedup and the final always last.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
	"github.com/liveclaw/voicecore/internal/metrics"
)

// Mode is a per-turn processing hint from the transport.
type Mode string

const (
	// ModeNormal runs the full matcher and both tracks.
	ModeNormal Mode = "normal"
	// ModeFast is the pressure hint: exact-tier matching only, no embedding
	// call before the race.
	ModeFast Mode = "fast"
)

const (
	trackFast = "fast"
	trackSlow = "slow"

	// eventBuffer absorbs a full burst from both tracks so senders never
	// block once the forwarder stops reading.
	eventBuffer = 64

	seenRingSize = 128

	errorText = "Sorry, I could not finish answering that."
)

// Config holds per-track deadlines.
type Config struct {
	FastDeadline time.Duration
	SlowDeadline time.Duration
}

// Service coordinates turns across the matcher, the two generation tracks,
// the synthesizer fallback, and post-turn learning.
type Service struct {
	matcher    Matcher
	fast       domain.Generator
	slow       domain.Generator
	synth      domain.Synthesizer
	emitter    Emitter
	cache      CacheWriter
	learner    Learner
	classifier Classifier

	fastDeadline time.Duration
	slowDeadline time.Duration
	logger       *zap.Logger
	seen         *seenRing
}

// New creates a turn orchestrator.
func New(
	m Matcher,
	fast, slow domain.Generator,
	synth domain.Synthesizer,
	emitter Emitter,
	cache CacheWriter,
	learner Learner,
	classifier Classifier,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		matcher:      m,
		fast:         fast,
		slow:         slow,
		synth:        synth,
		emitter:      emitter,
		cache:        cache,
		learner:      learner,
		classifier:   classifier,
		fastDeadline: cfg.FastDeadline,
		slowDeadline: cfg.SlowDeadline,
		logger:       logger,
		seen:         newSeenRing(seenRingSize),
	}
}

// HandleTurn processes one inbound message end to end. A replayed turn id is
// dropped silently. Returns ErrTurnFailed (wrapped) when the turn produced no
// final answer.
func (s *Service) HandleTurn(ctx context.Context, msg domain.InboundMessage, mode Mode) error {
	if msg.TurnID == "" {
		msg.TurnID = uuid.NewString()
	}
	if !s.seen.add(msg.TurnID) {
		s.logger.Debug("Dropping replayed turn", zap.String("turn_id", msg.TurnID))
		return nil
	}

	var match domain.MatchResult
	if mode == ModeFast {
		match = s.matcher.MatchExact(msg.Text)
	} else {
		match = s.matcher.Match(ctx, msg.Text)
	}

	if match.Bypass() {
		s.logger.Info("Turn resolved without generation",
			zap.String("turn_id", msg.TurnID),
			zap.String("tier", string(match.Tier)))
		s.send(ctx, domain.Emission{
			TurnID:   msg.TurnID,
			Intent:   domain.IntentFinal,
			Text:     match.ResponseText,
			AudioRef: match.AudioRef,
		})
		return nil
	}

	return s.race(ctx, msg, match)
}

// trackEvent is one item from a generation track: either a streamed event or
// the track's terminal marker.
type trackEvent struct {
	track    string
	event    domain.GenEvent
	terminal bool
	err      error
	elapsed  time.Duration
}

// race runs both tracks and forwards their events in completion order. The
// final stops the loop; anything still in flight is dropped.
func (s *Service) race(ctx context.Context, msg domain.InboundMessage, match domain.MatchResult) error {
	st := newTurnState()

	turnCtx, cancelTurn := context.WithCancel(ctx)
	defer cancelTurn()
	fastCtx, cancelFast := context.WithTimeout(turnCtx, s.fastDeadline)
	defer cancelFast()
	slowCtx, cancelSlow := context.WithTimeout(turnCtx, s.slowDeadline)
	defer cancelSlow()

	events := make(chan trackEvent, eventBuffer)
	var wg sync.WaitGroup
	wg.Add(2)
	go s.runTrack(fastCtx, turnCtx, trackFast, msg.Text, events, &wg)
	go s.runTrack(slowCtx, turnCtx, trackSlow, msg.Text, events, &wg)
	go func() {
		wg.Wait()
		close(events)
	}()

	var finalText string
	finalSent := false

	for ev := range events {
		if ev.terminal {
			s.recordTrack(ev)
			// Slow track failure means the final is never coming; once the
			// user has heard an ack, stop waiting and surface the failure.
			if ev.track == trackSlow && ev.err != nil && st.has(domain.IntentAck) {
				cancelTurn()
				break
			}
			continue
		}

		intent := intentFor(ev.event.Type)
		if !st.claim(intent) {
			metrics.DedupDroppedTotal.Inc()
			continue
		}

		em := domain.Emission{TurnID: msg.TurnID, Intent: intent, Text: ev.event.Text}
		// A semantic pre-match resolves the ack to archived audio.
		if intent == domain.IntentAck && match.Tier == domain.TierSemantic {
			em.AudioRef = match.AudioRef
		}
		s.send(ctx, em)

		if intent == domain.IntentFinal {
			finalText = ev.event.Text
			finalSent = true
			cancelTurn()
			break
		}
	}

	if finalSent {
		s.afterFinal(ctx, msg, finalText)
		return nil
	}

	// No final. When an ack already went out, a late synthesized echo would
	// read as a second answer, so surface the failure instead.
	if st.has(domain.IntentAck) {
		if st.claim(domain.IntentError) {
			s.send(ctx, domain.Emission{TurnID: msg.TurnID, Intent: domain.IntentError, Text: errorText})
		}
		return fmt.Errorf("turn %s: no final after ack: %w", msg.TurnID, domain.ErrTurnFailed)
	}

	// Nothing reached the user at all. Last resort: speak the cleaned input
	// back so the turn does not end in silence.
	cleaned := domain.CleanForSpeech(msg.Text)
	audioRef, err := s.synth.Synthesize(ctx, cleaned)
	if err == nil && st.claim(domain.IntentFinal) {
		s.send(ctx, domain.Emission{
			TurnID:   msg.TurnID,
			Intent:   domain.IntentFinal,
			Text:     cleaned,
			AudioRef: audioRef,
		})
		return nil
	}
	if err != nil {
		s.logger.Warn("Fallback synthesis failed", zap.String("turn_id", msg.TurnID), zap.Error(err))
	}
	if st.claim(domain.IntentError) {
		s.send(ctx, domain.Emission{TurnID: msg.TurnID, Intent: domain.IntentError, Text: errorText})
	}
	return fmt.Errorf("turn %s: both tracks failed: %w", msg.TurnID, domain.ErrTurnFailed)
}

// runTrack drives one generator and relays its events. The terminal marker
// carries the track error and duration. Sends race turnCtx so a stopped
// forwarder never wedges a track goroutine.
func (s *Service) runTrack(
	ctx, turnCtx context.Context,
	track, text string,
	events chan<- trackEvent,
	wg *sync.WaitGroup,
) {
	defer wg.Done()
	start := time.Now()

	gen := s.fast
	if track == trackSlow {
		gen = s.slow
	}

	err := gen.Generate(ctx, text, func(ev domain.GenEvent) {
		select {
		case events <- trackEvent{track: track, event: ev}:
		case <-turnCtx.Done():
		}
	})

	select {
	case events <- trackEvent{track: track, terminal: true, err: err, elapsed: time.Since(start)}:
	case <-turnCtx.Done():
	}
}

// afterFinal feeds the finalized answer to the response cache and, when the
// classifier approves, to the auto-indexer. Failures here never fail the
// turn; the answer already went out.
func (s *Service) afterFinal(ctx context.Context, msg domain.InboundMessage, finalText string) {
	if _, _, err := s.cache.Store(ctx, msg.Text, finalText, ""); err != nil {
		s.logger.Warn("Failed to cache finalized answer",
			zap.String("turn_id", msg.TurnID), zap.Error(err))
	}
	if s.classifier != nil && !s.classifier.Archivable(msg.Text, finalText) {
		return
	}
	if err := s.learner.Learn(ctx, msg.Text, finalText); err != nil {
		s.logger.Warn("Auto-indexing failed",
			zap.String("turn_id", msg.TurnID), zap.Error(err))
	}
}

func (s *Service) send(ctx context.Context, e domain.Emission) {
	if err := s.emitter.Emit(ctx, e); err != nil {
		s.logger.Warn("Failed to emit event",
			zap.String("turn_id", e.TurnID),
			zap.String("intent", string(e.Intent)),
			zap.Error(err))
		return
	}
	metrics.EmissionsTotal.WithLabelValues(string(e.Intent)).Inc()
}

func (s *Service) recordTrack(ev trackEvent) {
	status := domain.TrackDone
	switch {
	case errors.Is(ev.err, context.Canceled):
		status = domain.TrackCancelled
	case ev.err != nil:
		status = domain.TrackFailed
	}
	metrics.TrackTotal.WithLabelValues(ev.track, status.String()).Inc()
	metrics.TrackDuration.WithLabelValues(ev.track).Observe(ev.elapsed.Seconds())
}

func intentFor(t domain.EventType) domain.Intent {
	switch t {
	case domain.EventAck:
		return domain.IntentAck
	case domain.EventProgress:
		return domain.IntentProgress
	default:
		return domain.IntentFinal
	}
}

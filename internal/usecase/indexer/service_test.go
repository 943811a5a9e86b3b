package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/liveclaw/voicecore/internal/domain"
)

func TestLearnPublishesNewClip(t *testing.T) {
	svc, _, pub, _, synth := newTestIndexer(t)
	synth.synthFn = func(_ context.Context, text string) (string, error) {
		if text != "hold the power button" {
			t.Errorf("synthesized text = %q, want the cleaned answer", text)
		}
		return "media/learned.mp3", nil
	}

	err := svc.Learn(context.Background(), "how do I restart the router", "hold the **power** button")
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}

	entries := pub.all()
	if len(entries) != 1 {
		t.Fatalf("published = %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Priority != domain.PriorityLearned {
		t.Errorf("Priority = %d, want learned", e.Priority)
	}
	if e.AudioRef != "media/learned.mp3" {
		t.Errorf("AudioRef = %q", e.AudioRef)
	}
	if len(e.Variations) != 1 || e.Variations[0] != "how do i restart the router" {
		t.Errorf("Variations = %v", e.Variations)
	}
	if len(e.Vectors) != 1 {
		t.Errorf("Vectors = %v, want one per variation", e.Vectors)
	}
	if len(e.Patterns) != 1 {
		t.Errorf("Patterns = %v", e.PatternSources)
	}
}

func TestLearnStopwordsDropped(t *testing.T) {
	svc, _, pub, _, _ := newTestIndexer(t)

	if err := svc.Learn(context.Background(), "can you restart the router please", "done"); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	e := pub.all()[0]
	if len(e.Keywords) != 2 || e.Keywords[0] != "restart" || e.Keywords[1] != "router" {
		t.Errorf("Keywords = %v, want [restart router]", e.Keywords)
	}
}

func TestLearnKeywordCapAtSix(t *testing.T) {
	svc, _, pub, _, _ := newTestIndexer(t)

	source := "alpha bravo charlie delta echo foxtrot golf hotel"
	if err := svc.Learn(context.Background(), source, "ok"); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	e := pub.all()[0]
	if len(e.Keywords) != 6 {
		t.Errorf("Keywords = %v, want capped at 6", e.Keywords)
	}
}

func TestLearnAllStopwordsFallsBackToTokens(t *testing.T) {
	svc, _, pub, _, _ := newTestIndexer(t)

	if err := svc.Learn(context.Background(), "can you do it", "sure"); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	e := pub.all()[0]
	if len(e.Keywords) == 0 {
		t.Error("all-stopword input produced no keywords")
	}
}

func TestLearnDuplicateInputSkipped(t *testing.T) {
	svc, lex, pub, _, synth := newTestIndexer(t)
	lex.matchFn = func(_ string) domain.MatchResult {
		return domain.MatchResult{Tier: domain.TierFuzzy, Confidence: 0.9, ClipID: "existing"}
	}

	if err := svc.Learn(context.Background(), "how do I restart", "hold the button"); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if len(pub.all()) != 0 {
		t.Error("duplicate input was archived")
	}
	if synth.calls != 0 {
		t.Error("duplicate input reached the synthesizer")
	}
}

func TestLearnEmbeddingFailureDegradesToLexical(t *testing.T) {
	svc, _, pub, emb, _ := newTestIndexer(t)
	emb.embedFn = func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, errors.New("provider down")
	}

	if err := svc.Learn(context.Background(), "how do I restart the router", "hold the button"); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	e := pub.all()[0]
	if len(e.Vectors) != 0 {
		t.Errorf("Vectors = %v, want lexical-only entry", e.Vectors)
	}
}

func TestLearnSynthesisFailureIsFatal(t *testing.T) {
	svc, _, pub, _, synth := newTestIndexer(t)
	synth.synthFn = func(_ context.Context, _ string) (string, error) {
		return "", errors.New("tts down")
	}

	if err := svc.Learn(context.Background(), "how do I restart", "hold the button"); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.all()) != 0 {
		t.Error("clip without audio was archived")
	}
}

func TestLearnPublishRaceTreatedAsDuplicate(t *testing.T) {
	svc, _, pub, _, _ := newTestIndexer(t)
	pub.publishFn = func(_ context.Context, _ domain.ClipEntry) (int64, error) {
		return 0, fmt.Errorf("clip: %w", domain.ErrAlreadyExists)
	}

	if err := svc.Learn(context.Background(), "how do I restart", "hold the button"); err != nil {
		t.Fatalf("Learn: %v", err)
	}
}

func TestSeedPublishesManifest(t *testing.T) {
	svc, _, pub, emb, _ := newTestIndexer(t)

	clips, err := DefaultSeed()
	if err != nil {
		t.Fatalf("DefaultSeed: %v", err)
	}
	if len(clips) == 0 {
		t.Fatal("empty default manifest")
	}

	published, err := svc.Seed(context.Background(), clips)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if published != len(clips) {
		t.Errorf("published = %d, want %d", published, len(clips))
	}

	var variations int
	for _, c := range clips {
		variations += len(c.Variations)
	}
	if emb.calls != variations {
		t.Errorf("embed calls = %d, want one per variation (%d)", emb.calls, variations)
	}

	for _, e := range pub.all() {
		if e.Priority != domain.PrioritySeed {
			t.Errorf("clip %s Priority = %d, want seed", e.ID, e.Priority)
		}
	}
}

func TestSeedIdempotent(t *testing.T) {
	svc, _, _, _, _ := newTestIndexer(t)

	clips := []SeedClip{{
		ID:       "seed-1",
		AudioRef: "clips/seed-1.mp3",
		Keywords: []string{"tamam"},
	}}

	seen := map[string]bool{}
	pub := &mockPublisher{publishFn: func(_ context.Context, e domain.ClipEntry) (int64, error) {
		if seen[e.ID] {
			return 0, fmt.Errorf("clip %s: %w", e.ID, domain.ErrAlreadyExists)
		}
		seen[e.ID] = true
		return 1, nil
	}}
	svc.archive = pub

	if n, err := svc.Seed(context.Background(), clips); err != nil || n != 1 {
		t.Fatalf("first Seed: n=%d err=%v", n, err)
	}
	if n, err := svc.Seed(context.Background(), clips); err != nil || n != 0 {
		t.Fatalf("second Seed: n=%d err=%v, want already-archived skipped", n, err)
	}
}

func TestSeedInvalidClipFails(t *testing.T) {
	svc, _, _, _, _ := newTestIndexer(t)

	clips := []SeedClip{{ID: "broken", AudioRef: ""}}
	if _, err := svc.Seed(context.Background(), clips); !errors.Is(err, domain.ErrInvalidClip) {
		t.Errorf("err = %v, want ErrInvalidClip", err)
	}
}

func TestDefaultSeedEntriesValidate(t *testing.T) {
	clips, err := DefaultSeed()
	if err != nil {
		t.Fatalf("DefaultSeed: %v", err)
	}
	ids := map[string]bool{}
	for _, c := range clips {
		if ids[c.ID] {
			t.Errorf("duplicate seed id %s", c.ID)
		}
		ids[c.ID] = true
		if _, err := domain.NewClipEntry(
			c.ID, c.AudioRef, c.Keywords, c.Variations, c.Patterns,
			nil, domain.PrioritySeed, testTime(),
		); err != nil {
			t.Errorf("seed clip %s invalid: %v", c.ID, err)
		}
	}
}

func TestClassifierArchivable(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		name     string
		source   string
		response string
		want     bool
	}{
		{"short answer", "how do I restart the router", "hold the power button", true},
		{"single token input", "restart", "hold the button", false},
		{"empty response after cleaning", "how do I restart", "```code only```", false},
		{"overlong response", "how do I restart", longText(400), false},
		{"turkish input", "kaç dakika sürer bu", "yaklaşık on dakika", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Archivable(tt.source, tt.response); got != tt.want {
				t.Errorf("Archivable(%q, %q) = %v, want %v", tt.source, tt.response, got, tt.want)
			}
		})
	}
}

func longText(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

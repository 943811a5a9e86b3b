// Package indexer grows the clip archive: it learns new entries from
// finalized turns and seeds the archive from the built-in clip manifest.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
	"github.com/liveclaw/voicecore/internal/metrics"
)

// maxKeywords caps how many input tokens become match keywords. Every keyword
// must appear for an exact hit, so more keywords means a narrower entry.
const maxKeywords = 6

// stopwords are tokens too common to identify an input, Turkish and English.
var stopwords = map[string]struct{}{
	// Turkish
	"bir": {}, "bu": {}, "şu": {}, "ve": {}, "ne": {}, "mi": {}, "mı": {},
	"mu": {}, "mü": {}, "için": {}, "da": {}, "de": {}, "ile": {},
	// English
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "to": {}, "of": {},
	"and": {}, "in": {}, "it": {}, "do": {}, "does": {}, "can": {},
	"you": {}, "i": {}, "my": {}, "me": {}, "please": {},
}

// Service is the auto-indexer.
type Service struct {
	matcher  LexicalMatcher
	archive  Publisher
	embedder Embedder
	synth    domain.Synthesizer
	logger   *zap.Logger
}

// New creates an indexer service.
func New(
	matcher LexicalMatcher,
	archive Publisher,
	embedder Embedder,
	synth domain.Synthesizer,
	logger *zap.Logger,
) *Service {
	return &Service{
		matcher:  matcher,
		archive:  archive,
		embedder: embedder,
		synth:    synth,
		logger:   logger,
	}
}

// Learn archives a finalized answer as a new clip keyed by the input that
// produced it. An input the lexical tiers already resolve is a duplicate and
// archives nothing. Embedding failure degrades the entry to lexical-only
// rather than losing it.
func (s *Service) Learn(ctx context.Context, sourceText, responseText string) error {
	if dup := s.matcher.MatchLexical(sourceText); dup.IsHit() {
		metrics.ClipsIndexedTotal.WithLabelValues("duplicate").Inc()
		s.logger.Debug("Input already resolves lexically, not archiving",
			zap.String("clip_id", dup.ClipID))
		return nil
	}

	norm := domain.NormalizeText(sourceText)
	keywords := selectKeywords(norm)
	if len(keywords) == 0 {
		metrics.ClipsIndexedTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: no usable keywords in %q", domain.ErrInvalidClip, sourceText)
	}

	cleaned := domain.CleanForSpeech(responseText)
	audioRef, err := s.synth.Synthesize(ctx, cleaned)
	if err != nil {
		metrics.ClipsIndexedTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("synthesize clip audio: %w", err)
	}

	variations := []string{norm}
	vectors := s.embedVariations(ctx, variations)

	entry, err := domain.NewClipEntry(
		uuid.NewString(), audioRef,
		keywords, variations, []string{keywordPattern(keywords)},
		vectors, domain.PriorityLearned, time.Now().UTC(),
	)
	if err != nil {
		metrics.ClipsIndexedTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("build learned entry: %w", err)
	}

	version, err := s.archive.Publish(ctx, entry)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			metrics.ClipsIndexedTotal.WithLabelValues("duplicate").Inc()
			return nil
		}
		return fmt.Errorf("publish learned entry: %w", err)
	}

	metrics.ClipsIndexedTotal.WithLabelValues("published").Inc()
	s.logger.Info("Archived learned clip",
		zap.String("clip_id", entry.ID),
		zap.Int64("archive_version", version),
		zap.Strings("keywords", keywords))
	return nil
}

// embedVariations returns one vector per variation, or nil when the provider
// fails. A lexical-only entry still matches on its exact tiers.
func (s *Service) embedVariations(ctx context.Context, variations []string) [][]float32 {
	vectors := make([][]float32, 0, len(variations))
	for _, v := range variations {
		result, err := s.embedder.Embed(ctx, v)
		if err != nil {
			s.logger.Warn("Embedding failed, archiving lexical-only", zap.Error(err))
			return nil
		}
		vectors = append(vectors, result.Embedding)
	}
	return vectors
}

// selectKeywords keeps the distinctive tokens of the normalized input in
// order, dropping stopwords. When everything is a stopword the raw tokens
// stand, so very short conversational inputs stay archivable.
func selectKeywords(norm string) []string {
	tokens := domain.Tokens(norm)
	keywords := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := stopwords[t]; ok {
			continue
		}
		keywords = append(keywords, t)
	}
	if len(keywords) == 0 {
		keywords = tokens
	}
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// keywordPattern builds a loose ordered pattern over the literal keywords.
func keywordPattern(keywords []string) string {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return strings.Join(quoted, `.*`)
}

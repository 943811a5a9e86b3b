package domain

import (
	"fmt"
	"regexp"
	"time"
)

// Priority tiers for clip entries. Hand-seeded clips outrank learned ones on
// every tie-break, so curated recordings always win over auto-indexed material.
const (
	PrioritySeed    = 100
	PriorityLearned = 10
)

// ClipEntry is an archived pre-recorded response clip with its matching
// metadata. Entries are immutable after construction — the archive publishes a
// new version instead of editing in place, so concurrent lookups never observe
// a partially built entry.
type ClipEntry struct {
	ID             string
	AudioRef       string
	Keywords       []string // normalized tokens, all must appear in the input for an exact hit
	Variations     []string // paraphrase strings, source text first
	PatternSources []string // raw regex sources, persisted alongside the compiled forms
	Patterns       []*regexp.Regexp
	Vectors        [][]float32 // variation embeddings; empty when the entry is lexical-only
	Priority       int
	CreatedAt      time.Time
}

// NewClipEntry validates and builds a clip entry, compiling its patterns once.
// Returns ErrInvalidClip when the entry fails schema validation.
func NewClipEntry(
	id, audioRef string,
	keywords, variations, patternSources []string,
	vectors [][]float32,
	priority int,
	createdAt time.Time,
) (ClipEntry, error) {
	if id == "" {
		return ClipEntry{}, fmt.Errorf("%w: empty id", ErrInvalidClip)
	}
	if audioRef == "" {
		return ClipEntry{}, fmt.Errorf("%w: clip %s has no audio reference", ErrInvalidClip, id)
	}
	if len(keywords) == 0 && len(variations) == 0 && len(patternSources) == 0 {
		return ClipEntry{}, fmt.Errorf("%w: clip %s has no matchable metadata", ErrInvalidClip, id)
	}
	if len(vectors) > 0 && len(vectors) != len(variations) {
		return ClipEntry{}, fmt.Errorf(
			"%w: clip %s has %d vectors for %d variations",
			ErrInvalidClip, id, len(vectors), len(variations),
		)
	}

	patterns, err := compilePatterns(patternSources)
	if err != nil {
		return ClipEntry{}, fmt.Errorf("%w: clip %s: %v", ErrInvalidClip, id, err)
	}

	return ClipEntry{
		ID:             id,
		AudioRef:       audioRef,
		Keywords:       keywords,
		Variations:     variations,
		PatternSources: patternSources,
		Patterns:       patterns,
		Vectors:        vectors,
		Priority:       priority,
		CreatedAt:      createdAt,
	}, nil
}

// ReconstructClipEntry rebuilds an entry from persisted state. Pattern sources
// were validated at publish time; a source that no longer compiles is dropped
// rather than failing the whole archive load.
func ReconstructClipEntry(
	id, audioRef string,
	keywords, variations, patternSources []string,
	vectors [][]float32,
	priority int,
	createdAt time.Time,
) ClipEntry {
	patterns := make([]*regexp.Regexp, 0, len(patternSources))
	kept := make([]string, 0, len(patternSources))
	for _, src := range patternSources {
		re, err := regexp.Compile(src)
		if err != nil {
			continue
		}
		patterns = append(patterns, re)
		kept = append(kept, src)
	}
	return ClipEntry{
		ID:             id,
		AudioRef:       audioRef,
		Keywords:       keywords,
		Variations:     variations,
		PatternSources: kept,
		Patterns:       patterns,
		Vectors:        vectors,
		Priority:       priority,
		CreatedAt:      createdAt,
	}
}

func compilePatterns(sources []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", src, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// ArchiveSnapshot is an immutable view of the archive published atomically to
// readers. Version increases monotonically with every appended entry.
type ArchiveSnapshot struct {
	Entries []ClipEntry
	Version int64
}

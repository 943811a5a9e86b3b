package indexer

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liveclaw/voicecore/internal/domain"
	"github.com/liveclaw/voicecore/internal/metrics"
)

//go:embed seed/clips.json
var seedFS embed.FS

// seedConcurrency bounds parallel embedding calls during seeding.
const seedConcurrency = 4

// SeedClip is one entry of a seed manifest.
type SeedClip struct {
	ID         string   `json:"id"`
	AudioRef   string   `json:"audio_ref"`
	Keywords   []string `json:"keywords"`
	Variations []string `json:"variations"`
	Patterns   []string `json:"patterns"`
}

// DefaultSeed returns the built-in clip manifest.
func DefaultSeed() ([]SeedClip, error) {
	data, err := seedFS.ReadFile("seed/clips.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded seed manifest: %w", err)
	}
	return parseSeed(data)
}

// LoadSeedFile reads a clip manifest from disk.
func LoadSeedFile(path string) ([]SeedClip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed manifest %s: %w", path, err)
	}
	return parseSeed(data)
}

func parseSeed(data []byte) ([]SeedClip, error) {
	var clips []SeedClip
	if err := json.Unmarshal(data, &clips); err != nil {
		return nil, fmt.Errorf("parsing seed manifest: %w", err)
	}
	return clips, nil
}

// Seed publishes manifest clips into the archive at seed priority, embedding
// variations concurrently. Clips already archived are skipped, so seeding is
// idempotent. Returns how many clips were published.
func (s *Service) Seed(ctx context.Context, clips []SeedClip) (int, error) {
	var published atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)

	for _, clip := range clips {
		g.Go(func() error {
			vectors := s.embedVariations(ctx, clip.Variations)

			entry, err := domain.NewClipEntry(
				clip.ID, clip.AudioRef,
				clip.Keywords, clip.Variations, clip.Patterns,
				vectors, domain.PrioritySeed, time.Now().UTC(),
			)
			if err != nil {
				metrics.ClipsIndexedTotal.WithLabelValues("invalid").Inc()
				return fmt.Errorf("seed clip %s: %w", clip.ID, err)
			}

			if _, err := s.archive.Publish(ctx, entry); err != nil {
				if errors.Is(err, domain.ErrAlreadyExists) {
					s.logger.Debug("Seed clip already archived, skipping")
					return nil
				}
				return fmt.Errorf("publish seed clip %s: %w", clip.ID, err)
			}

			metrics.ClipsIndexedTotal.WithLabelValues("published").Inc()
			published.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(published.Load()), err
	}
	return int(published.Load()), nil
}

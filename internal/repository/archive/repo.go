package archive

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
)

// manifest is the consumer interface for the durable log (ISP).
type manifest interface {
	Append(ctx context.Context, rec Record) (int64, error)
	LoadAll(ctx context.Context) ([]Record, []SkippedRow, int64, error)
	Ping(ctx context.Context) error
}

// Repo serves the clip archive. Reads go through an immutable snapshot swapped
// atomically on publish, so Snapshot never blocks and never observes a
// half-written archive. Writers are serialized by a mutex.
type Repo struct {
	manifest manifest
	logger   *zap.Logger

	mu   sync.Mutex // serializes Publish
	snap atomic.Pointer[domain.ArchiveSnapshot]
}

// New creates an archive repository with an empty snapshot. Call Load to
// hydrate it from the manifest.
func New(m manifest, logger *zap.Logger) *Repo {
	r := &Repo{manifest: m, logger: logger}
	r.snap.Store(&domain.ArchiveSnapshot{Version: 0})
	return r
}

// Load replays the manifest into a fresh snapshot. Later records for the same
// clip id supersede earlier ones. Undecodable rows are skipped and reported,
// not fatal: one corrupt row must not take every other clip down with it.
func (r *Repo) Load(ctx context.Context) error {
	records, skipped, version, err := r.manifest.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	for _, s := range skipped {
		r.logger.Warn("Skipping undecodable manifest row",
			zap.Int64("version", s.Version),
			zap.String("clip_id", s.ClipID),
			zap.Error(s.Err))
	}
	if len(skipped) > 0 {
		r.logger.Warn("Manifest loaded with undecodable rows",
			zap.Int("skipped", len(skipped)),
			zap.Int("loaded", len(records)))
	}

	byID := make(map[string]int, len(records))
	entries := make([]domain.ClipEntry, 0, len(records))
	for _, rec := range records {
		entry := entryFromRecord(rec)
		if i, ok := byID[entry.ID]; ok {
			entries[i] = entry
			continue
		}
		byID[entry.ID] = len(entries)
		entries = append(entries, entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Store(&domain.ArchiveSnapshot{Entries: entries, Version: version})
	return nil
}

// Snapshot returns the current archive view. The returned snapshot is
// immutable; callers must not modify its entries.
func (r *Repo) Snapshot() *domain.ArchiveSnapshot {
	return r.snap.Load()
}

// Get returns the entry with the given clip id from the current snapshot.
func (r *Repo) Get(id string) (domain.ClipEntry, error) {
	for _, e := range r.snap.Load().Entries {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.ClipEntry{}, domain.ErrNotFound
}

// Publish appends the entry to the manifest and swaps in a new snapshot
// containing it. Returns the archive version the entry landed in, or
// ErrAlreadyExists when the clip id is already archived.
func (r *Repo) Publish(ctx context.Context, entry domain.ClipEntry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	for _, e := range cur.Entries {
		if e.ID == entry.ID {
			return 0, fmt.Errorf("clip %s: %w", entry.ID, domain.ErrAlreadyExists)
		}
	}

	version, err := r.manifest.Append(ctx, recordFromEntry(entry))
	if err != nil {
		return 0, fmt.Errorf("append manifest: %w", err)
	}

	entries := make([]domain.ClipEntry, 0, len(cur.Entries)+1)
	entries = append(entries, cur.Entries...)
	entries = append(entries, entry)
	r.snap.Store(&domain.ArchiveSnapshot{Entries: entries, Version: version})

	return version, nil
}

// Ping checks manifest connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.manifest.Ping(ctx)
}

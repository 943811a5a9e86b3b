package archive

import (
	"context"
	"testing"
	"time"

	"github.com/liveclaw/voicecore/internal/domain"
)

// mockManifest implements the consumer interface for tests.
type mockManifest struct {
	appendFn  func(ctx context.Context, rec Record) (int64, error)
	loadAllFn func(ctx context.Context) ([]Record, []SkippedRow, int64, error)
	pingFn    func(ctx context.Context) error
}

func (m *mockManifest) Append(ctx context.Context, rec Record) (int64, error) {
	if m.appendFn != nil {
		return m.appendFn(ctx, rec)
	}
	return 1, nil
}

func (m *mockManifest) LoadAll(ctx context.Context) ([]Record, []SkippedRow, int64, error) {
	if m.loadAllFn != nil {
		return m.loadAllFn(ctx)
	}
	return nil, nil, 0, nil
}

func (m *mockManifest) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func testEntry(t *testing.T, id string) domain.ClipEntry {
	t.Helper()
	entry, err := domain.NewClipEntry(
		id, "clips/"+id+".mp3",
		[]string{"tamam"}, []string{"tamam başlıyorum"}, nil,
		nil, domain.PrioritySeed, time.Unix(1700000000, 0).UTC(),
	)
	if err != nil {
		t.Fatalf("NewClipEntry: %v", err)
	}
	return entry
}

func testRecord(id string, version int64) Record {
	return Record{
		Version:    version,
		ClipID:     id,
		AudioRef:   "clips/" + id + ".mp3",
		Keywords:   []string{"tamam"},
		Variations: []string{"tamam başlıyorum"},
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
	}
}

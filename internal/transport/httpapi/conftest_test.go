package httpapi

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
	"github.com/liveclaw/voicecore/internal/usecase/health"
	"github.com/liveclaw/voicecore/internal/usecase/indexer"
	"github.com/liveclaw/voicecore/internal/usecase/orchestrator"
)

func testTime() time.Time {
	return time.Unix(1700000000, 0).UTC()
}

// mockTurns implements TurnHandler.
type mockTurns struct {
	handleFn func(ctx context.Context, msg domain.InboundMessage, mode orchestrator.Mode) error
}

func (m *mockTurns) HandleTurn(ctx context.Context, msg domain.InboundMessage, mode orchestrator.Mode) error {
	if m.handleFn != nil {
		return m.handleFn(ctx, msg, mode)
	}
	return nil
}

// mockMatcher implements Matcher.
type mockMatcher struct {
	matchFn func(ctx context.Context, text string) domain.MatchResult
}

func (m *mockMatcher) Match(ctx context.Context, text string) domain.MatchResult {
	if m.matchFn != nil {
		return m.matchFn(ctx, text)
	}
	return domain.Miss(0)
}

// mockSeeder implements ClipSeeder.
type mockSeeder struct {
	seedFn func(ctx context.Context, clips []indexer.SeedClip) (int, error)
}

func (m *mockSeeder) Seed(ctx context.Context, clips []indexer.SeedClip) (int, error) {
	if m.seedFn != nil {
		return m.seedFn(ctx, clips)
	}
	return len(clips), nil
}

// mockArchive implements Archive.
type mockArchive struct {
	snapshotFn func() *domain.ArchiveSnapshot
	getFn      func(id string) (domain.ClipEntry, error)
}

func (m *mockArchive) Snapshot() *domain.ArchiveSnapshot {
	if m.snapshotFn != nil {
		return m.snapshotFn()
	}
	return &domain.ArchiveSnapshot{}
}

func (m *mockArchive) Get(id string) (domain.ClipEntry, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return domain.ClipEntry{}, domain.ErrNotFound
}

// mockHealth implements HealthChecker.
type mockHealth struct {
	checkFn func(ctx context.Context) health.Report
}

func (m *mockHealth) Check(ctx context.Context) health.Report {
	if m.checkFn != nil {
		return m.checkFn(ctx)
	}
	return health.Report{
		Status: health.Healthy,
		Checks: map[string]health.CheckResult{"archive": health.CheckOK},
	}
}

type testServer struct {
	server  *Server
	hub     *Hub
	turns   *mockTurns
	matcher *mockMatcher
	seeder  *mockSeeder
	archive *mockArchive
	health  *mockHealth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		hub:     NewHub(zap.NewNop()),
		turns:   &mockTurns{},
		matcher: &mockMatcher{},
		seeder:  &mockSeeder{},
		archive: &mockArchive{},
		health:  &mockHealth{},
	}
	ts.server = NewServer(
		ts.turns, ts.matcher, ts.seeder, ts.archive, ts.health, ts.hub, zap.NewNop(),
	)
	return ts
}

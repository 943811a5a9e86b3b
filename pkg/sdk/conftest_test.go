package voicecore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
	healthuc "github.com/liveclaw/voicecore/internal/usecase/health"
	indexeruc "github.com/liveclaw/voicecore/internal/usecase/indexer"
	orchestratoruc "github.com/liveclaw/voicecore/internal/usecase/orchestrator"
)

func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

type mockMatcher struct {
	matchFunc func(ctx context.Context, text string) domain.MatchResult
}

func (m *mockMatcher) Match(ctx context.Context, text string) domain.MatchResult {
	return m.matchFunc(ctx, text)
}

type mockTurns struct {
	handleFunc func(ctx context.Context, msg domain.InboundMessage, mode orchestratoruc.Mode) error
}

func (m *mockTurns) HandleTurn(ctx context.Context, msg domain.InboundMessage, mode orchestratoruc.Mode) error {
	return m.handleFunc(ctx, msg, mode)
}

type mockIndex struct {
	learnFunc func(ctx context.Context, sourceText, responseText string) error
	seedFunc  func(ctx context.Context, clips []indexeruc.SeedClip) (int, error)
}

func (m *mockIndex) Learn(ctx context.Context, sourceText, responseText string) error {
	return m.learnFunc(ctx, sourceText, responseText)
}

func (m *mockIndex) Seed(ctx context.Context, clips []indexeruc.SeedClip) (int, error) {
	return m.seedFunc(ctx, clips)
}

type mockHealth struct {
	checkFunc func(ctx context.Context) healthuc.Report
}

func (m *mockHealth) Check(ctx context.Context) healthuc.Report {
	return m.checkFunc(ctx)
}

type mockArchiveReader struct {
	snapshotFunc func() *domain.ArchiveSnapshot
	getFunc      func(id string) (domain.ClipEntry, error)
}

func (m *mockArchiveReader) Snapshot() *domain.ArchiveSnapshot {
	return m.snapshotFunc()
}

func (m *mockArchiveReader) Get(id string) (domain.ClipEntry, error) {
	return m.getFunc(id)
}

// newTestClient builds a Client around mocks, skipping New's real wiring.
func newTestClient() *Client {
	return &Client{
		router: newEmissionRouter(),
		obs:    &observer{logger: zap.NewNop()},
	}
}

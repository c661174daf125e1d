package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
	"github.com/leagueroom/fantasy-blocks/internal/infrastructure/repository/memory"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
)

type stubFeedProvider struct {
	fixtures  []FeedFixture
	players   []FeedPlayer
	teams     []FeedTeam
	points    map[int][]FeedPointsRow
	fetchErr  error
	pointsErr error
}

func (s *stubFeedProvider) FetchFixtures(_ context.Context) ([]FeedFixture, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.fixtures, nil
}

func (s *stubFeedProvider) FetchRoster(_ context.Context) ([]FeedPlayer, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.players, nil
}

func (s *stubFeedProvider) FetchTeams(_ context.Context) ([]FeedTeam, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.teams, nil
}

func (s *stubFeedProvider) FetchBlockPoints(_ context.Context, blockNumber int) ([]FeedPointsRow, error) {
	if s.pointsErr != nil {
		return nil, s.pointsErr
	}
	return s.points[blockNumber], nil
}

var _ FeedProvider = (*stubFeedProvider)(nil)

// seedFeedProvider mirrors the memory seed data as feed documents.
func seedFeedProvider() *stubFeedProvider {
	provider := &stubFeedProvider{points: make(map[int][]FeedPointsRow)}
	for _, item := range memory.SeedTeams() {
		provider.teams = append(provider.teams, FeedTeam{ID: item.ID, Name: item.Name, Short: item.Short})
	}
	for _, item := range memory.SeedPlayers() {
		provider.players = append(provider.players, FeedPlayer{ID: item.ID, Name: item.Name, TeamID: item.TeamID, Active: item.Active})
	}
	for _, item := range memory.SeedFixtures() {
		provider.fixtures = append(provider.fixtures, FeedFixture{ID: item.ID, HomeTeam: item.HomeTeam, AwayTeam: item.AwayTeam, StartAt: item.StartAt})
	}
	return provider
}

// newFeedEnv starts from empty stores; everything arrives through the feed.
func newFeedEnv(t *testing.T, provider FeedProvider) (*serviceEnv, *FeedSyncService) {
	t.Helper()

	env := &serviceEnv{
		blockRepo:   memory.NewBlockRepository(),
		fixtureRepo: memory.NewFixtureRepository(nil),
		playerRepo:  memory.NewPlayerRepository(nil),
		teamRepo:    memory.NewTeamRepository(nil),
		priceRepo:   memory.NewPriceRepository(),
		scoringRepo: memory.NewScoringRepository(),
	}
	env.entryRepo = memory.NewEntryRepository(env.blockRepo)

	logger := logging.NewNop()
	env.blockSvc = NewBlockService(env.blockRepo, env.fixtureRepo, block.DefaultPartitionConfig(), logger)
	env.priceSvc = NewPriceService(env.priceRepo, env.playerRepo, env.blockRepo, decimal.Decimal{}, logger)
	env.entrySvc = NewEntryService(env.entryRepo, env.blockRepo, env.playerRepo, env.priceSvc, fantasy.Rules{}, nil, logger)
	env.scoreSvc = NewScoringService(env.blockRepo, env.entryRepo, env.scoringRepo, env.playerRepo, nil, 0, logger)

	ingestion := NewIngestionService(env.fixtureRepo, env.playerRepo, env.teamRepo, env.blockSvc, logger)
	feedSync := NewFeedSyncService(provider, ingestion, env.scoreSvc, FeedSyncConfig{Enabled: true}, logger)
	return env, feedSync
}

func TestFeedSyncService_SyncAll(t *testing.T) {
	t.Parallel()

	env, feedSync := newFeedEnv(t, seedFeedProvider())

	result, err := feedSync.SyncAll(t.Context())
	if err != nil {
		t.Fatalf("sync all: %v", err)
	}
	if result.Teams != 4 || result.Players != 17 || result.Fixtures != 6 {
		t.Fatalf("unexpected sync counts: %+v", result)
	}
	if result.BlocksCreated != 3 {
		t.Fatalf("unexpected blocks created: got=%d want=3", result.BlocksCreated)
	}

	blocks, err := env.blockSvc.ListBlocks(t.Context())
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 derived blocks, got %d", len(blocks))
	}

	// A rerun refreshes data but never rebuilds the block set.
	result, err = feedSync.SyncAll(t.Context())
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if result.BlocksCreated != 0 {
		t.Fatalf("rerun must not create blocks, got %d", result.BlocksCreated)
	}
}

func TestFeedSyncService_SyncAll_Disabled(t *testing.T) {
	t.Parallel()

	_, feedSync := newFeedEnv(t, seedFeedProvider())
	feedSync.cfg.Enabled = false

	if _, err := feedSync.SyncAll(t.Context()); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable when disabled, got %v", err)
	}
}

func TestFeedSyncService_SyncScores(t *testing.T) {
	t.Parallel()

	provider := seedFeedProvider()
	env, feedSync := newFeedEnv(t, provider)

	if _, err := feedSync.SyncAll(t.Context()); err != nil {
		t.Fatalf("sync all: %v", err)
	}

	// Nothing published yet: skipped, block untouched.
	finalized, err := feedSync.SyncScores(t.Context(), 1)
	if err != nil {
		t.Fatalf("sync scores before publish: %v", err)
	}
	if finalized {
		t.Fatalf("empty sheet must not finalize the block")
	}
	blk, _, err := env.blockRepo.GetByNumber(t.Context(), 1)
	if err != nil || blk.ScoredAt != nil {
		t.Fatalf("block must stay unscored: scored_at=%v err=%v", blk.ScoredAt, err)
	}

	provider.points[1] = []FeedPointsRow{
		{PlayerID: "idn-psj-01", Points: 10},
		{PlayerID: "idn-psb-01", Points: 5},
	}

	finalized, err = feedSync.SyncScores(t.Context(), 1)
	if err != nil {
		t.Fatalf("sync scores: %v", err)
	}
	if !finalized {
		t.Fatalf("expected the block to be finalized")
	}

	// Redelivery of the same job is a clean skip.
	finalized, err = feedSync.SyncScores(t.Context(), 1)
	if err != nil {
		t.Fatalf("redelivered sync scores: %v", err)
	}
	if finalized {
		t.Fatalf("second delivery must be skipped")
	}

	rows, err := env.scoreSvc.BlockPlayerPoints(t.Context(), 1)
	if err != nil {
		t.Fatalf("block player points: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("unexpected stored rows: %v", rows)
	}
}

func TestFeedSyncService_SyncScores_InvalidBlock(t *testing.T) {
	t.Parallel()

	_, feedSync := newFeedEnv(t, seedFeedProvider())

	if _, err := feedSync.SyncScores(t.Context(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for block 0, got %v", err)
	}
}

func TestFeedSyncService_SyncScores_FetchFailure(t *testing.T) {
	t.Parallel()

	provider := seedFeedProvider()
	_, feedSync := newFeedEnv(t, provider)

	if _, err := feedSync.SyncAll(t.Context()); err != nil {
		t.Fatalf("sync all: %v", err)
	}

	provider.pointsErr = errors.New("feed is down")
	if _, err := feedSync.SyncScores(t.Context(), 1); err == nil {
		t.Fatalf("expected fetch failure to propagate")
	}
}

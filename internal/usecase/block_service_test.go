package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	"github.com/leagueroom/fantasy-blocks/internal/infrastructure/repository/memory"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
)

// The seed fixtures span three weekends, so the derived set is three blocks
// of two fixtures each with locks at the first kickoff of every weekend.
var (
	seedLockBlock1 = time.Date(2026, 3, 7, 12, 30, 0, 0, time.UTC)
	seedLockBlock2 = time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)
	seedLockBlock3 = time.Date(2026, 3, 21, 12, 30, 0, 0, time.UTC)
)

type serviceEnv struct {
	blockRepo   *memory.BlockRepository
	fixtureRepo *memory.FixtureRepository
	playerRepo  *memory.PlayerRepository
	teamRepo    *memory.TeamRepository
	priceRepo   *memory.PriceRepository
	entryRepo   *memory.EntryRepository
	scoringRepo *memory.ScoringRepository

	blockSvc *BlockService
	priceSvc *PriceService
	entrySvc *EntryService
	scoreSvc *ScoringService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	env := &serviceEnv{
		blockRepo:   memory.NewBlockRepository(),
		fixtureRepo: memory.NewFixtureRepository(memory.SeedFixtures()),
		playerRepo:  memory.NewPlayerRepository(memory.SeedPlayers()),
		teamRepo:    memory.NewTeamRepository(memory.SeedTeams()),
		priceRepo:   memory.NewPriceRepository(),
		scoringRepo: memory.NewScoringRepository(),
	}
	env.entryRepo = memory.NewEntryRepository(env.blockRepo)

	logger := logging.NewNop()
	env.blockSvc = NewBlockService(env.blockRepo, env.fixtureRepo, block.DefaultPartitionConfig(), logger)
	env.priceSvc = NewPriceService(env.priceRepo, env.playerRepo, env.blockRepo, decimal.Decimal{}, logger)
	env.entrySvc = NewEntryService(env.entryRepo, env.blockRepo, env.playerRepo, env.priceSvc, fantasy.Rules{}, nil, logger)
	env.scoreSvc = NewScoringService(env.blockRepo, env.entryRepo, env.scoringRepo, env.playerRepo, nil, 0, logger)

	if _, err := env.blockSvc.RebuildFromStoredFixtures(t.Context()); err != nil {
		t.Fatalf("derive blocks from seed fixtures: %v", err)
	}
	return env
}

// validSelection picks two players from each seeded club, which keeps the
// squad at the team limit boundary and exactly on the default budget.
func validSelection() fantasy.Selection {
	return fantasy.Selection{
		Squad: []string{
			"idn-psj-01", "idn-psj-02",
			"idn-psb-01", "idn-psb-02",
			"idn-prb-01", "idn-prb-02",
			"idn-bu-01", "idn-bu-02",
		},
		Starting: []string{
			"idn-psj-01", "idn-psj-02",
			"idn-psb-01", "idn-psb-02",
			"idn-prb-01", "idn-prb-02",
		},
		Bench1:        "idn-bu-01",
		Bench2:        "idn-bu-02",
		CaptainID:     "idn-psj-01",
		ViceCaptainID: "idn-psb-01",
	}
}

func TestBlockService_RebuildFromSeedFixtures(t *testing.T) {
	t.Parallel()

	env := newServiceEnv(t)

	blocks, err := env.blockSvc.ListBlocks(t.Context())
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("unexpected block count: got=%d want=3", len(blocks))
	}

	wantLocks := []time.Time{seedLockBlock1, seedLockBlock2, seedLockBlock3}
	for idx, blk := range blocks {
		if blk.Number != idx+1 {
			t.Fatalf("unexpected block number at %d: got=%d want=%d", idx, blk.Number, idx+1)
		}
		if len(blk.FixtureIDs) != 2 {
			t.Fatalf("block %d: unexpected fixture count: got=%d want=2", blk.Number, len(blk.FixtureIDs))
		}
		if !blk.LockAt.Equal(wantLocks[idx]) {
			t.Fatalf("block %d: unexpected lock: got=%v want=%v", blk.Number, blk.LockAt, wantLocks[idx])
		}
	}
}

func TestBlockService_RebuildNeverRegenerates(t *testing.T) {
	t.Parallel()

	env := newServiceEnv(t)

	// A later import with a different calendar must leave the set alone.
	moved := []fixture.Fixture{
		{ID: "fx-new-001", HomeTeam: "Persija Jakarta", AwayTeam: "Bali United", StartAt: seedLockBlock1.AddDate(0, 2, 0)},
	}
	created, err := env.blockSvc.RebuildBlocksIfMissing(t.Context(), moved)
	if err != nil {
		t.Fatalf("rebuild with changed fixtures: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected no blocks created on rerun, got=%d", created)
	}

	blocks, err := env.blockSvc.ListBlocks(t.Context())
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("block set changed on rerun: got=%d blocks want=3", len(blocks))
	}
	if blocks[0].FixtureIDs[0] != "fx-idn-001" {
		t.Fatalf("block membership changed on rerun: got=%v", blocks[0].FixtureIDs)
	}
}

func TestBlockService_CurrentBlockNumber(t *testing.T) {
	t.Parallel()

	env := newServiceEnv(t)
	ctx := t.Context()

	got, err := env.blockSvc.CurrentBlockNumber(ctx, seedLockBlock1.Add(-time.Hour))
	if err != nil {
		t.Fatalf("current block before first lock: %v", err)
	}
	if got != 1 {
		t.Fatalf("unexpected current block: got=%d want=1", got)
	}

	// Locked but unscored blocks stay current until their scores land.
	got, err = env.blockSvc.CurrentBlockNumber(ctx, seedLockBlock1.Add(time.Hour))
	if err != nil {
		t.Fatalf("current block after first lock: %v", err)
	}
	if got != 1 {
		t.Fatalf("unexpected current block while locked: got=%d want=1", got)
	}

	if err := env.blockRepo.MarkScored(ctx, 1, seedLockBlock1.Add(48*time.Hour)); err != nil {
		t.Fatalf("mark block 1 scored: %v", err)
	}
	got, err = env.blockSvc.CurrentBlockNumber(ctx, seedLockBlock1.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("current block after scoring: %v", err)
	}
	if got != 2 {
		t.Fatalf("unexpected current block after scoring: got=%d want=2", got)
	}
}

func TestBlockService_BlockState(t *testing.T) {
	t.Parallel()

	env := newServiceEnv(t)
	ctx := t.Context()

	state, err := env.blockSvc.BlockState(ctx, 1, seedLockBlock1.Add(-time.Minute))
	if err != nil {
		t.Fatalf("block state before lock: %v", err)
	}
	if state != block.StateOpen {
		t.Fatalf("unexpected state before lock: got=%s want=%s", state, block.StateOpen)
	}

	state, err = env.blockSvc.BlockState(ctx, 1, seedLockBlock1)
	if err != nil {
		t.Fatalf("block state at lock: %v", err)
	}
	if state != block.StateLocked {
		t.Fatalf("unexpected state at lock instant: got=%s want=%s", state, block.StateLocked)
	}

	if err := env.blockRepo.MarkScored(ctx, 1, seedLockBlock1.Add(48*time.Hour)); err != nil {
		t.Fatalf("mark scored: %v", err)
	}
	state, err = env.blockSvc.BlockState(ctx, 1, seedLockBlock1.Add(-time.Hour))
	if err != nil {
		t.Fatalf("block state after scoring: %v", err)
	}
	if state != block.StateScored {
		t.Fatalf("scored must win over the clock: got=%s want=%s", state, block.StateScored)
	}
}

func TestBlockService_GetBlock_NotFound(t *testing.T) {
	t.Parallel()

	env := newServiceEnv(t)

	if _, err := env.blockSvc.GetBlock(t.Context(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.blockSvc.GetBlock(t.Context(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBlockService_BlockFixtures(t *testing.T) {
	t.Parallel()

	env := newServiceEnv(t)

	fixtures, err := env.blockSvc.BlockFixtures(t.Context(), 2)
	if err != nil {
		t.Fatalf("block fixtures: %v", err)
	}
	if len(fixtures) != 2 {
		t.Fatalf("unexpected fixture count: got=%d want=2", len(fixtures))
	}
	if fixtures[0].ID != "fx-idn-003" || fixtures[1].ID != "fx-idn-004" {
		t.Fatalf("unexpected fixtures for block 2: %v %v", fixtures[0].ID, fixtures[1].ID)
	}
}

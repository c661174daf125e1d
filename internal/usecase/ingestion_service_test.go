package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	"github.com/leagueroom/fantasy-blocks/internal/domain/team"
	"github.com/leagueroom/fantasy-blocks/internal/infrastructure/repository/memory"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
)

func newIngestionEnv(t *testing.T) (*serviceEnv, *IngestionService) {
	t.Helper()

	env := &serviceEnv{
		blockRepo:   memory.NewBlockRepository(),
		fixtureRepo: memory.NewFixtureRepository(nil),
		playerRepo:  memory.NewPlayerRepository(nil),
		teamRepo:    memory.NewTeamRepository(nil),
	}
	logger := logging.NewNop()
	env.blockSvc = NewBlockService(env.blockRepo, env.fixtureRepo, block.DefaultPartitionConfig(), logger)

	ingestion := NewIngestionService(env.fixtureRepo, env.playerRepo, env.teamRepo, env.blockSvc, logger)
	return env, ingestion
}

func TestIngestionService_UpsertFixtures_DerivesBlocks(t *testing.T) {
	t.Parallel()

	env, ingestion := newIngestionEnv(t)

	created, err := ingestion.UpsertFixtures(t.Context(), memory.SeedFixtures())
	if err != nil {
		t.Fatalf("upsert fixtures: %v", err)
	}
	if created != 3 {
		t.Fatalf("unexpected blocks created: got=%d want=3", created)
	}

	stored, err := env.fixtureRepo.List(t.Context())
	if err != nil {
		t.Fatalf("list fixtures: %v", err)
	}
	if len(stored) != 6 {
		t.Fatalf("unexpected fixture count: got=%d want=6", len(stored))
	}

	// A second import refreshes fixture rows without touching the blocks.
	created, err = ingestion.UpsertFixtures(t.Context(), memory.SeedFixtures())
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created != 0 {
		t.Fatalf("re-import must not create blocks, got %d", created)
	}
}

func TestIngestionService_UpsertFixtures_RejectsBadInput(t *testing.T) {
	t.Parallel()

	_, ingestion := newIngestionEnv(t)
	kickoff := time.Date(2026, 3, 7, 12, 30, 0, 0, time.UTC)

	if _, err := ingestion.UpsertFixtures(t.Context(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty import: expected ErrInvalidInput, got %v", err)
	}

	missingID := []fixture.Fixture{{ID: "  ", HomeTeam: "A", AwayTeam: "B", StartAt: kickoff}}
	if _, err := ingestion.UpsertFixtures(t.Context(), missingID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank id: expected ErrInvalidInput, got %v", err)
	}

	missingStart := []fixture.Fixture{{ID: "fx-1", HomeTeam: "A", AwayTeam: "B"}}
	if _, err := ingestion.UpsertFixtures(t.Context(), missingStart); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero start: expected ErrInvalidInput, got %v", err)
	}

	duplicate := []fixture.Fixture{
		{ID: "fx-1", HomeTeam: "A", AwayTeam: "B", StartAt: kickoff},
		{ID: "fx-1", HomeTeam: "C", AwayTeam: "D", StartAt: kickoff.Add(24 * time.Hour)},
	}
	if _, err := ingestion.UpsertFixtures(t.Context(), duplicate); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("duplicate id: expected ErrInvalidInput, got %v", err)
	}
}

func TestIngestionService_UpsertRoster(t *testing.T) {
	t.Parallel()

	env, ingestion := newIngestionEnv(t)

	if err := ingestion.UpsertRoster(t.Context(), memory.SeedPlayers()); err != nil {
		t.Fatalf("upsert roster: %v", err)
	}

	all, err := ingestion.ListRoster(t.Context(), false)
	if err != nil {
		t.Fatalf("list roster: %v", err)
	}
	if len(all) != 17 {
		t.Fatalf("unexpected roster size: got=%d want=17", len(all))
	}

	active, err := ingestion.ListRoster(t.Context(), true)
	if err != nil {
		t.Fatalf("list active roster: %v", err)
	}
	if len(active) != 16 {
		t.Fatalf("unexpected active roster size: got=%d want=16", len(active))
	}

	// Deactivation arrives as a plain upsert of the same row.
	benched := []player.Player{{ID: "idn-psj-01", Name: "Andritany Ardhiyasa", TeamID: "idn-persija", Active: false}}
	if err := ingestion.UpsertRoster(t.Context(), benched); err != nil {
		t.Fatalf("deactivate player: %v", err)
	}
	active, err = env.playerRepo.ListActive(t.Context())
	if err != nil {
		t.Fatalf("list active after deactivation: %v", err)
	}
	if len(active) != 15 {
		t.Fatalf("deactivation not applied: got=%d active want=15", len(active))
	}

	if err := ingestion.UpsertRoster(t.Context(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty roster: expected ErrInvalidInput, got %v", err)
	}
	nameless := []player.Player{{ID: "p-1", TeamID: "t-1"}}
	if err := ingestion.UpsertRoster(t.Context(), nameless); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("nameless player: expected ErrInvalidInput, got %v", err)
	}
}

func TestIngestionService_UpsertTeams(t *testing.T) {
	t.Parallel()

	_, ingestion := newIngestionEnv(t)

	if err := ingestion.UpsertTeams(t.Context(), memory.SeedTeams()); err != nil {
		t.Fatalf("upsert teams: %v", err)
	}

	teams, err := ingestion.ListTeams(t.Context())
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	if len(teams) != 4 {
		t.Fatalf("unexpected team count: got=%d want=4", len(teams))
	}
	if teams[0].ID != "idn-baliutd" {
		t.Fatalf("unexpected ordering: first team %q", teams[0].ID)
	}

	duplicate := []team.Team{
		{ID: "t-1", Name: "One"},
		{ID: "t-1", Name: "One Again"},
	}
	if err := ingestion.UpsertTeams(t.Context(), duplicate); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("duplicate team: expected ErrInvalidInput, got %v", err)
	}
}

package usecase

import (
	"context"
	"fmt"

	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	"github.com/leagueroom/fantasy-blocks/internal/domain/team"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
)

// IngestionService is the typed intake boundary for feed data. Everything
// entering the system passes through here as validated values; callers never
// hand raw documents to the domain.
type IngestionService struct {
	fixtureRepo fixture.Repository
	playerRepo  player.Repository
	teamRepo    team.Repository
	blocks      *BlockService
	logger      *logging.Logger
}

func NewIngestionService(
	fixtureRepo fixture.Repository,
	playerRepo player.Repository,
	teamRepo team.Repository,
	blocks *BlockService,
	logger *logging.Logger,
) *IngestionService {
	if logger == nil {
		logger = logging.Default()
	}

	return &IngestionService{
		fixtureRepo: fixtureRepo,
		playerRepo:  playerRepo,
		teamRepo:    teamRepo,
		blocks:      blocks,
		logger:      logger,
	}
}

// UpsertFixtures stores the fixture list and derives blocks when none exist
// yet. Re-importing fixtures never regenerates existing blocks.
func (s *IngestionService) UpsertFixtures(ctx context.Context, fixtures []fixture.Fixture) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertFixtures")
	defer span.End()

	if len(fixtures) == 0 {
		return 0, fmt.Errorf("%w: fixtures are required", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(fixtures))
	for idx := range fixtures {
		fixtures[idx] = fixture.Normalize(fixtures[idx])
		if err := fixtures[idx].Validate(); err != nil {
			return 0, fmt.Errorf("%w: fixture %d: %v", ErrInvalidInput, idx, err)
		}
		if _, dup := seen[fixtures[idx].ID]; dup {
			return 0, fmt.Errorf("%w: duplicate fixture id %q", ErrInvalidInput, fixtures[idx].ID)
		}
		seen[fixtures[idx].ID] = struct{}{}
	}

	if err := s.fixtureRepo.UpsertMany(ctx, fixtures); err != nil {
		return 0, fmt.Errorf("upsert fixtures: %w", err)
	}

	created := 0
	if s.blocks != nil {
		var err error
		created, err = s.blocks.RebuildBlocksIfMissing(ctx, fixtures)
		if err != nil {
			return 0, fmt.Errorf("rebuild blocks after fixture import: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "fixtures ingested",
		"fixture_count", len(fixtures),
		"blocks_created", created,
	)
	return created, nil
}

// UpsertRoster stores the selectable player list.
func (s *IngestionService) UpsertRoster(ctx context.Context, players []player.Player) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertRoster")
	defer span.End()

	if len(players) == 0 {
		return fmt.Errorf("%w: players are required", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(players))
	for idx := range players {
		players[idx] = player.Normalize(players[idx])
		if err := players[idx].Validate(); err != nil {
			return fmt.Errorf("%w: player %d: %v", ErrInvalidInput, idx, err)
		}
		if _, dup := seen[players[idx].ID]; dup {
			return fmt.Errorf("%w: duplicate player id %q", ErrInvalidInput, players[idx].ID)
		}
		seen[players[idx].ID] = struct{}{}
	}

	if err := s.playerRepo.UpsertMany(ctx, players); err != nil {
		return fmt.Errorf("upsert roster: %w", err)
	}

	s.logger.InfoContext(ctx, "roster ingested", "player_count", len(players))
	return nil
}

// UpsertTeams stores the team directory.
func (s *IngestionService) UpsertTeams(ctx context.Context, teams []team.Team) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertTeams")
	defer span.End()

	if len(teams) == 0 {
		return fmt.Errorf("%w: teams are required", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(teams))
	for idx := range teams {
		teams[idx] = team.Normalize(teams[idx])
		if err := teams[idx].Validate(); err != nil {
			return fmt.Errorf("%w: team %d: %v", ErrInvalidInput, idx, err)
		}
		if _, dup := seen[teams[idx].ID]; dup {
			return fmt.Errorf("%w: duplicate team id %q", ErrInvalidInput, teams[idx].ID)
		}
		seen[teams[idx].ID] = struct{}{}
	}

	if err := s.teamRepo.UpsertMany(ctx, teams); err != nil {
		return fmt.Errorf("upsert teams: %w", err)
	}

	s.logger.InfoContext(ctx, "teams ingested", "team_count", len(teams))
	return nil
}

// ListRoster returns every known player, optionally only the active ones.
func (s *IngestionService) ListRoster(ctx context.Context, activeOnly bool) ([]player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.ListRoster")
	defer span.End()

	if activeOnly {
		players, err := s.playerRepo.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active roster: %w", err)
		}
		return players, nil
	}

	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return players, nil
}

// ListTeams returns the team directory.
func (s *IngestionService) ListTeams(ctx context.Context) ([]team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.ListTeams")
	defer span.End()

	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	"github.com/leagueroom/fantasy-blocks/internal/domain/scoring"
	"github.com/leagueroom/fantasy-blocks/internal/domain/team"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
	"github.com/leagueroom/fantasy-blocks/internal/platform/resilience"
)

// FeedProvider pulls the published league documents. Implementations live
// outside the usecase layer; the sync service only ever sees typed values.
type FeedProvider interface {
	FetchFixtures(ctx context.Context) ([]FeedFixture, error)
	FetchRoster(ctx context.Context) ([]FeedPlayer, error)
	FetchTeams(ctx context.Context) ([]FeedTeam, error)
	FetchBlockPoints(ctx context.Context, blockNumber int) ([]FeedPointsRow, error)
}

type FeedFixture struct {
	ID       string
	HomeTeam string
	AwayTeam string
	StartAt  time.Time
}

type FeedPlayer struct {
	ID     string
	Name   string
	TeamID string
	Active bool
}

type FeedTeam struct {
	ID    string
	Name  string
	Short string
}

type FeedPointsRow struct {
	PlayerID string
	Points   float64
}

type FeedSyncConfig struct {
	Enabled bool
}

type FeedSyncResult struct {
	Teams         int `json:"teams"`
	Players       int `json:"players"`
	Fixtures      int `json:"fixtures"`
	BlocksCreated int `json:"blocks_created"`
}

// FeedSyncService pulls the feed documents and pushes them through the
// ingestion boundary. SyncAll fetches teams, roster and fixtures in parallel;
// both entry points are singleflight-guarded so overlapping job deliveries
// collapse into one run.
type FeedSyncService struct {
	provider   FeedProvider
	ingestion  *IngestionService
	scoringSvc *ScoringService
	cfg        FeedSyncConfig
	syncFlight resilience.SingleFlight
	logger     *logging.Logger
	now        func() time.Time
}

func NewFeedSyncService(
	provider FeedProvider,
	ingestion *IngestionService,
	scoringSvc *ScoringService,
	cfg FeedSyncConfig,
	logger *logging.Logger,
) *FeedSyncService {
	if logger == nil {
		logger = logging.Default()
	}

	return &FeedSyncService{
		provider:   provider,
		ingestion:  ingestion,
		scoringSvc: scoringSvc,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// SyncAll refreshes teams, roster and fixtures from the feed and derives
// blocks when none exist yet.
func (s *FeedSyncService) SyncAll(ctx context.Context) (FeedSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedSyncService.SyncAll")
	defer span.End()

	if !s.cfg.Enabled || s.provider == nil {
		s.logger.WarnContext(ctx, "skip feed sync: feed is disabled")
		return FeedSyncResult{}, fmt.Errorf("%w: feed sync is disabled (FEED_ENABLED=false)", ErrDependencyUnavailable)
	}

	value, err, _ := s.syncFlight.Do("feed:sync-all", func() (any, error) {
		return s.syncAllOnce(ctx)
	})
	if err != nil {
		return FeedSyncResult{}, err
	}

	result, _ := value.(FeedSyncResult)
	return result, nil
}

func (s *FeedSyncService) syncAllOnce(ctx context.Context) (FeedSyncResult, error) {
	var (
		feedTeams    []FeedTeam
		feedPlayers  []FeedPlayer
		feedFixtures []FeedFixture
	)

	fetchers := pool.New().WithErrors().WithContext(ctx)
	fetchers.Go(func(ctx context.Context) error {
		items, err := s.provider.FetchTeams(ctx)
		if err != nil {
			return fmt.Errorf("fetch teams: %w", err)
		}
		feedTeams = items
		return nil
	})
	fetchers.Go(func(ctx context.Context) error {
		items, err := s.provider.FetchRoster(ctx)
		if err != nil {
			return fmt.Errorf("fetch roster: %w", err)
		}
		feedPlayers = items
		return nil
	})
	fetchers.Go(func(ctx context.Context) error {
		items, err := s.provider.FetchFixtures(ctx)
		if err != nil {
			return fmt.Errorf("fetch fixtures: %w", err)
		}
		feedFixtures = items
		return nil
	})
	if err := fetchers.Wait(); err != nil {
		return FeedSyncResult{}, err
	}

	result := FeedSyncResult{
		Teams:    len(feedTeams),
		Players:  len(feedPlayers),
		Fixtures: len(feedFixtures),
	}

	// Teams before roster so player to team references resolve on first sync.
	if len(feedTeams) > 0 {
		teams := make([]team.Team, 0, len(feedTeams))
		for _, item := range feedTeams {
			teams = append(teams, team.Team{ID: item.ID, Name: item.Name, Short: item.Short})
		}
		if err := s.ingestion.UpsertTeams(ctx, teams); err != nil {
			return FeedSyncResult{}, fmt.Errorf("ingest teams: %w", err)
		}
	}

	if len(feedPlayers) > 0 {
		players := make([]player.Player, 0, len(feedPlayers))
		for _, item := range feedPlayers {
			players = append(players, player.Player{ID: item.ID, Name: item.Name, TeamID: item.TeamID, Active: item.Active})
		}
		if err := s.ingestion.UpsertRoster(ctx, players); err != nil {
			return FeedSyncResult{}, fmt.Errorf("ingest roster: %w", err)
		}
	}

	if len(feedFixtures) > 0 {
		fixtures := make([]fixture.Fixture, 0, len(feedFixtures))
		for _, item := range feedFixtures {
			fixtures = append(fixtures, fixture.Fixture{
				ID:       item.ID,
				HomeTeam: item.HomeTeam,
				AwayTeam: item.AwayTeam,
				StartAt:  item.StartAt,
			})
		}
		created, err := s.ingestion.UpsertFixtures(ctx, fixtures)
		if err != nil {
			return FeedSyncResult{}, fmt.Errorf("ingest fixtures: %w", err)
		}
		result.BlocksCreated = created
	}

	s.logger.InfoContext(ctx, "feed sync completed",
		"teams", result.Teams,
		"players", result.Players,
		"fixtures", result.Fixtures,
		"blocks_created", result.BlocksCreated,
	)
	return result, nil
}

// SyncScores pulls the published points sheet for a block and finalizes it.
// A block that was already scored is reported as skipped, not an error, so
// redelivered jobs stay idempotent.
func (s *FeedSyncService) SyncScores(ctx context.Context, blockNumber int) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedSyncService.SyncScores")
	defer span.End()

	if blockNumber <= 0 {
		return false, fmt.Errorf("%w: block number must be greater than zero", ErrInvalidInput)
	}
	if !s.cfg.Enabled || s.provider == nil {
		s.logger.WarnContext(ctx, "skip score sync: feed is disabled", "block_number", blockNumber)
		return false, fmt.Errorf("%w: feed sync is disabled (FEED_ENABLED=false)", ErrDependencyUnavailable)
	}

	key := fmt.Sprintf("feed:sync-scores:%d", blockNumber)
	value, err, _ := s.syncFlight.Do(key, func() (any, error) {
		rows, err := s.provider.FetchBlockPoints(ctx, blockNumber)
		if err != nil {
			return false, fmt.Errorf("fetch block points: %w", err)
		}

		// An empty sheet means the feed has not published this block yet;
		// finalizing it would freeze every entry at zero.
		if len(rows) == 0 {
			s.logger.InfoContext(ctx, "no points published for block yet", "block_number", blockNumber)
			return false, nil
		}

		points := make([]scoring.PlayerPoints, 0, len(rows))
		for _, row := range rows {
			points = append(points, scoring.PlayerPoints{
				BlockNumber: blockNumber,
				PlayerID:    row.PlayerID,
				Points:      row.Points,
			})
		}

		if err := s.scoringSvc.FinalizeBlockScores(ctx, blockNumber, points, s.now().UTC()); err != nil {
			if errors.Is(err, ErrConflict) {
				s.logger.InfoContext(ctx, "block already scored, skipping", "block_number", blockNumber)
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}

	finalized, _ := value.(bool)
	return finalized, nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	"github.com/leagueroom/fantasy-blocks/internal/domain/scoring"
	"github.com/leagueroom/fantasy-blocks/internal/platform/cache"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
)

const (
	defaultScoringWorkerCount = 4
	maxScoringWorkerCount     = 8
)

// ScoringService computes entry totals and leaderboards from stored entries
// and externally supplied player points. All reads recompute from the raw
// rows; only the points rows and the scored_at stamp are persisted, so
// results can never drift from their inputs.
type ScoringService struct {
	blockRepo   block.Repository
	entryRepo   fantasy.Repository
	scoringRepo scoring.Repository
	playerRepo  player.Repository
	boards      *cache.Store
	workerCount int
	logger      *logging.Logger
}

func NewScoringService(
	blockRepo block.Repository,
	entryRepo fantasy.Repository,
	scoringRepo scoring.Repository,
	playerRepo player.Repository,
	boards *cache.Store,
	workerCount int,
	logger *logging.Logger,
) *ScoringService {
	if logger == nil {
		logger = logging.Default()
	}
	if boards == nil {
		boards = cache.NewStore(0)
	}
	if workerCount <= 0 {
		workerCount = defaultScoringWorkerCount
	}
	if workerCount > maxScoringWorkerCount {
		workerCount = maxScoringWorkerCount
	}

	return &ScoringService{
		blockRepo:   blockRepo,
		entryRepo:   entryRepo,
		scoringRepo: scoringRepo,
		playerRepo:  playerRepo,
		boards:      boards,
		workerCount: workerCount,
		logger:      logger,
	}
}

// UserBlockPoints scores one user's entry for one block. The found flag
// distinguishes "no entry" from a legitimate zero total.
func (s *ScoringService) UserBlockPoints(ctx context.Context, blockNumber int, userID string) (scoring.EntryScore, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.UserBlockPoints")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if blockNumber <= 0 || userID == "" {
		return scoring.EntryScore{}, false, fmt.Errorf("%w: block number and user id are required", ErrInvalidInput)
	}
	if err := s.requireBlock(ctx, blockNumber); err != nil {
		return scoring.EntryScore{}, false, err
	}

	entry, found, err := s.entryRepo.Get(ctx, blockNumber, userID)
	if err != nil {
		return scoring.EntryScore{}, false, fmt.Errorf("get entry for points: %w", err)
	}
	if !found {
		return scoring.EntryScore{}, false, nil
	}

	rows, err := s.scoringRepo.ListPlayerPoints(ctx, blockNumber)
	if err != nil {
		return scoring.EntryScore{}, false, fmt.Errorf("list player points: %w", err)
	}

	return scoring.ScoreEntry(entry, scoring.PointsMap(rows)), true, nil
}

// BlockPlayerPoints returns the raw per-player rows for a block.
func (s *ScoringService) BlockPlayerPoints(ctx context.Context, blockNumber int) ([]scoring.PlayerPoints, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.BlockPlayerPoints")
	defer span.End()

	if blockNumber <= 0 {
		return nil, fmt.Errorf("%w: block number must be greater than zero", ErrInvalidInput)
	}
	if err := s.requireBlock(ctx, blockNumber); err != nil {
		return nil, err
	}

	rows, err := s.scoringRepo.ListPlayerPoints(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("list player points: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].PlayerID < rows[j].PlayerID
	})
	return rows, nil
}

// BlockUserPoints scores every entry for a block and returns the ranked
// leaderboard. Results are cached briefly; the loader is singleflight-guarded
// so one stampede produces one computation.
func (s *ScoringService) BlockUserPoints(ctx context.Context, blockNumber int) ([]scoring.UserScore, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.BlockUserPoints")
	defer span.End()

	if blockNumber <= 0 {
		return nil, fmt.Errorf("%w: block number must be greater than zero", ErrInvalidInput)
	}
	if err := s.requireBlock(ctx, blockNumber); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("leaderboard:block:%d", blockNumber)
	value, err := s.boards.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.scoreBlock(ctx, blockNumber)
	})
	if err != nil {
		return nil, err
	}

	board, _ := value.([]scoring.UserScore)
	return board, nil
}

func (s *ScoringService) scoreBlock(ctx context.Context, blockNumber int) ([]scoring.UserScore, error) {
	entries, err := s.entryRepo.ListByBlock(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("list entries for leaderboard: %w", err)
	}
	if len(entries) == 0 {
		return []scoring.UserScore{}, nil
	}

	rows, err := s.scoringRepo.ListPlayerPoints(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("list player points for leaderboard: %w", err)
	}
	points := scoring.PointsMap(rows)

	workerCount := s.workerCount
	if workerCount > len(entries) {
		workerCount = len(entries)
	}

	results := make(chan scoring.UserScore, len(entries))

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create scoring worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, entry := range entries {
		entry := entry
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			score := scoring.ScoreEntry(entry, points)
			results <- scoring.UserScore{
				UserID:      entry.UserID,
				BlockNumber: blockNumber,
				Total:       score.Total,
			}
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit entry scoring to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	board := make([]scoring.UserScore, 0, len(entries))
	for row := range results {
		board = append(board, row)
	}

	return scoring.RankByTotal(board), nil
}

// SeasonTotals sums every user's totals over scored blocks only and returns
// the ranked season standings. Unscored blocks contribute nothing, no matter
// what entries or points rows they hold.
func (s *ScoringService) SeasonTotals(ctx context.Context) ([]scoring.SeasonScore, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.SeasonTotals")
	defer span.End()

	blocks, err := s.blockRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks for season totals: %w", err)
	}

	scored := make([]block.Block, 0, len(blocks))
	for _, blk := range blocks {
		if blk.ScoredAt != nil {
			scored = append(scored, blk)
		}
	}
	if len(scored) == 0 {
		return []scoring.SeasonScore{}, nil
	}

	type blockTotals struct {
		blockNumber int
		totalByUser map[string]float64
		err         error
	}

	workerCount := s.workerCount
	if workerCount > len(scored) {
		workerCount = len(scored)
	}

	results := make(chan blockTotals, len(scored))
	var failedCount atomic.Int32

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create season worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, blk := range scored {
		blk := blk
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			totals, blockErr := s.blockTotalsByUser(ctx, blk.Number)
			if blockErr != nil {
				failedCount.Add(1)
			}
			results <- blockTotals{blockNumber: blk.Number, totalByUser: totals, err: blockErr}
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit block totals to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	perBlock := make([]blockTotals, 0, len(scored))
	for row := range results {
		perBlock = append(perBlock, row)
	}
	sort.SliceStable(perBlock, func(i, j int) bool {
		return perBlock[i].blockNumber < perBlock[j].blockNumber
	})

	if failedCount.Load() > 0 {
		for _, row := range perBlock {
			if row.err != nil {
				return nil, fmt.Errorf("score block %d for season totals: %w", row.blockNumber, row.err)
			}
		}
	}

	totalByUser := make(map[string]float64)
	blocksByUser := make(map[string]int)
	for _, row := range perBlock {
		for userID, total := range row.totalByUser {
			totalByUser[userID] += total
			blocksByUser[userID]++
		}
	}

	standings := make([]scoring.SeasonScore, 0, len(totalByUser))
	for userID, total := range totalByUser {
		standings = append(standings, scoring.SeasonScore{
			UserID:       userID,
			Total:        total,
			ScoredBlocks: blocksByUser[userID],
		})
	}

	return scoring.RankSeason(standings), nil
}

func (s *ScoringService) blockTotalsByUser(ctx context.Context, blockNumber int) (map[string]float64, error) {
	entries, err := s.entryRepo.ListByBlock(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if len(entries) == 0 {
		return map[string]float64{}, nil
	}

	rows, err := s.scoringRepo.ListPlayerPoints(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("list player points: %w", err)
	}
	points := scoring.PointsMap(rows)

	out := make(map[string]float64, len(entries))
	for _, entry := range entries {
		out[entry.UserID] = scoring.ScoreEntry(entry, points).Total
	}
	return out, nil
}

// UserPointsHistory returns the user's per-block results over scored blocks,
// ascending by block number. Blocks without an entry are skipped.
func (s *ScoringService) UserPointsHistory(ctx context.Context, userID string) ([]scoring.BlockHistory, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.UserPointsHistory")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	blocks, err := s.blockRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks for history: %w", err)
	}

	history := make([]scoring.BlockHistory, 0, len(blocks))
	for _, blk := range blocks {
		if blk.ScoredAt == nil {
			continue
		}

		entry, found, err := s.entryRepo.Get(ctx, blk.Number, userID)
		if err != nil {
			return nil, fmt.Errorf("get entry for history block=%d: %w", blk.Number, err)
		}
		if !found {
			continue
		}

		rows, err := s.scoringRepo.ListPlayerPoints(ctx, blk.Number)
		if err != nil {
			return nil, fmt.Errorf("list player points for history block=%d: %w", blk.Number, err)
		}

		history = append(history, scoring.BlockHistory{
			BlockNumber: blk.Number,
			Total:       scoring.ScoreEntry(entry, scoring.PointsMap(rows)).Total,
			ScoredAt:    *blk.ScoredAt,
		})
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].BlockNumber < history[j].BlockNumber
	})
	return history, nil
}

// FinalizeBlockScores stores the externally produced points rows and stamps
// the block scored exactly once. A second finalize is a state conflict; rows
// for players missing from the roster are stored anyway and logged.
func (s *ScoringService) FinalizeBlockScores(ctx context.Context, blockNumber int, rows []scoring.PlayerPoints, now time.Time) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.FinalizeBlockScores")
	defer span.End()

	if blockNumber <= 0 {
		return fmt.Errorf("%w: block number must be greater than zero", ErrInvalidInput)
	}
	for idx := range rows {
		rows[idx].BlockNumber = blockNumber
		rows[idx].PlayerID = strings.TrimSpace(rows[idx].PlayerID)
		if rows[idx].PlayerID == "" {
			return fmt.Errorf("%w: points row %d has no player id", ErrInvalidInput, idx)
		}
	}

	blk, exists, err := s.blockRepo.GetByNumber(ctx, blockNumber)
	if err != nil {
		return fmt.Errorf("get block for finalize: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: block=%d", ErrNotFound, blockNumber)
	}
	if blk.ScoredAt != nil {
		return fmt.Errorf("%w: block %d was already scored at %s", ErrConflict, blockNumber, blk.ScoredAt.UTC().Format(time.RFC3339))
	}

	if unknown := s.unknownPlayers(ctx, rows); len(unknown) > 0 {
		s.logger.WarnContext(ctx, "points reference players outside the roster",
			"block_number", blockNumber,
			"player_ids", unknown,
		)
	}

	if err := s.scoringRepo.UpsertPlayerPoints(ctx, blockNumber, rows); err != nil {
		return fmt.Errorf("upsert player points: %w", err)
	}

	if err := s.blockRepo.MarkScored(ctx, blockNumber, now); err != nil {
		if errors.Is(err, block.ErrAlreadyScored) {
			return fmt.Errorf("%w: block %d was already scored", ErrConflict, blockNumber)
		}
		return fmt.Errorf("mark block scored: %w", err)
	}

	s.boards.DeletePrefix(ctx, "leaderboard:")

	s.logger.InfoContext(ctx, "block scored",
		"block_number", blockNumber,
		"points_rows", len(rows),
	)
	return nil
}

func (s *ScoringService) unknownPlayers(ctx context.Context, rows []scoring.PlayerPoints) []string {
	roster, err := s.playerRepo.List(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "roster lookup failed while checking points rows", "error", err)
		return nil
	}

	known := make(map[string]struct{}, len(roster))
	for _, p := range roster {
		known[p.ID] = struct{}{}
	}

	unknown := make([]string, 0)
	for _, row := range rows {
		if _, ok := known[row.PlayerID]; !ok {
			unknown = append(unknown, row.PlayerID)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func (s *ScoringService) requireBlock(ctx context.Context, blockNumber int) error {
	_, exists, err := s.blockRepo.GetByNumber(ctx, blockNumber)
	if err != nil {
		return fmt.Errorf("get block: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: block=%d", ErrNotFound, blockNumber)
	}
	return nil
}

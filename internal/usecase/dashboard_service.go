package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
)

// Dashboard is the landing-page summary for one user.
type Dashboard struct {
	BlockNumber     int
	BlockState      block.State
	LockAt          time.Time
	HasEntry        bool
	RemainingBudget decimal.Decimal
	SeasonTotal     float64
	SeasonRank      int
	ScoredBlocks    int
}

// DashboardService composes the per-user summary out of the block, entry and
// scoring services. It holds no state of its own.
type DashboardService struct {
	blocks  *BlockService
	entries *EntryService
	scores  *ScoringService
	rules   fantasy.Rules
}

func NewDashboardService(
	blocks *BlockService,
	entries *EntryService,
	scores *ScoringService,
	rules fantasy.Rules,
) *DashboardService {
	if rules.SquadSize == 0 {
		rules = fantasy.DefaultRules()
	}

	return &DashboardService{
		blocks:  blocks,
		entries: entries,
		scores:  scores,
		rules:   rules,
	}
}

func (s *DashboardService) Get(ctx context.Context, userID string, now time.Time) (Dashboard, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DashboardService.Get")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Dashboard{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	number, err := s.blocks.CurrentBlockNumber(ctx, now)
	if err != nil {
		return Dashboard{}, fmt.Errorf("resolve current block: %w", err)
	}
	blk, err := s.blocks.GetBlock(ctx, number)
	if err != nil {
		return Dashboard{}, fmt.Errorf("get current block: %w", err)
	}

	remaining := s.rules.BudgetCap
	entry, hasEntry, err := s.entries.GetEntry(ctx, number, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("get entry for dashboard: %w", err)
	}
	if hasEntry {
		remaining = s.rules.BudgetCap.Sub(entry.BudgetUsed)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
	}

	seasonTotal := 0.0
	seasonRank := 0
	scoredBlocks := 0
	standings, err := s.scores.SeasonTotals(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("season totals for dashboard: %w", err)
	}
	for _, row := range standings {
		if row.UserID == userID {
			seasonTotal = row.Total
			seasonRank = row.Rank
			scoredBlocks = row.ScoredBlocks
			break
		}
	}

	return Dashboard{
		BlockNumber:     blk.Number,
		BlockState:      block.ResolveState(blk, now),
		LockAt:          blk.LockAt,
		HasEntry:        hasEntry,
		RemainingBudget: remaining,
		SeasonTotal:     seasonTotal,
		SeasonRank:      seasonRank,
		ScoredBlocks:    scoredBlocks,
	}, nil
}

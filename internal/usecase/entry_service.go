package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	"github.com/leagueroom/fantasy-blocks/internal/domain/pricing"
	"github.com/leagueroom/fantasy-blocks/internal/platform/id"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
)

// EntryService validates and stores user entries. Writes are only accepted
// while the owning block is open; the store re-checks that inside the same
// atomic operation as the upsert, so a block locking mid-request still
// rejects the write.
type EntryService struct {
	entryRepo  fantasy.Repository
	blockRepo  block.Repository
	playerRepo player.Repository
	prices     *PriceService
	rules      fantasy.Rules
	idGen      id.Generator
	logger     *logging.Logger
}

func NewEntryService(
	entryRepo fantasy.Repository,
	blockRepo block.Repository,
	playerRepo player.Repository,
	prices *PriceService,
	rules fantasy.Rules,
	idGen id.Generator,
	logger *logging.Logger,
) *EntryService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGen == nil {
		idGen = id.NewRandomGenerator()
	}
	if rules.SquadSize == 0 {
		rules = fantasy.DefaultRules()
	}

	return &EntryService{
		entryRepo:  entryRepo,
		blockRepo:  blockRepo,
		playerRepo: playerRepo,
		prices:     prices,
		rules:      rules,
		idGen:      idGen,
		logger:     logger,
	}
}

// ValidateEntry runs every composition rule against the selection and returns
// the full violation list without writing anything. An empty list means the
// selection would be accepted for an open block.
func (s *EntryService) ValidateEntry(ctx context.Context, blockNumber int, input fantasy.Selection) ([]fantasy.Violation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EntryService.ValidateEntry")
	defer span.End()

	if blockNumber <= 0 {
		return nil, fmt.Errorf("%w: block number must be greater than zero", ErrInvalidInput)
	}
	if _, exists, err := s.blockRepo.GetByNumber(ctx, blockNumber); err != nil {
		return nil, fmt.Errorf("get block for validation: %w", err)
	} else if !exists {
		return nil, fmt.Errorf("%w: block=%d", ErrNotFound, blockNumber)
	}

	priceMap, teamByPlayer, err := s.loadRuleContext(ctx, blockNumber)
	if err != nil {
		return nil, err
	}

	return fantasy.Validate(input, s.rules, priceMap, teamByPlayer), nil
}

// SaveEntry upserts the user's entry for an open block. On validation failure
// it returns the violations and writes nothing. BudgetUsed is always computed
// server-side from the block's price sheet.
func (s *EntryService) SaveEntry(ctx context.Context, blockNumber int, userID string, input fantasy.Selection, now time.Time) (fantasy.Entry, []fantasy.Violation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EntryService.SaveEntry")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fantasy.Entry{}, nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if blockNumber <= 0 {
		return fantasy.Entry{}, nil, fmt.Errorf("%w: block number must be greater than zero", ErrInvalidInput)
	}

	blk, exists, err := s.blockRepo.GetByNumber(ctx, blockNumber)
	if err != nil {
		return fantasy.Entry{}, nil, fmt.Errorf("get block for entry: %w", err)
	}
	if !exists {
		return fantasy.Entry{}, nil, fmt.Errorf("%w: block=%d", ErrNotFound, blockNumber)
	}
	if state := block.ResolveState(blk, now); state != block.StateOpen {
		return fantasy.Entry{}, nil, fmt.Errorf("%w: block %d is %s", ErrConflict, blockNumber, state)
	}

	priceMap, teamByPlayer, err := s.loadRuleContext(ctx, blockNumber)
	if err != nil {
		return fantasy.Entry{}, nil, err
	}

	violations := fantasy.Validate(input, s.rules, priceMap, teamByPlayer)
	if len(violations) > 0 {
		return fantasy.Entry{}, violations, fmt.Errorf("%w: entry breaks %d rule(s)", ErrInvalidInput, len(violations))
	}

	input = fantasy.NormalizeSelection(input)
	entry := fantasy.Entry{
		BlockNumber:   blockNumber,
		UserID:        userID,
		Squad:         input.Squad,
		Starting:      input.Starting,
		Bench1:        input.Bench1,
		Bench2:        input.Bench2,
		CaptainID:     input.CaptainID,
		ViceCaptainID: input.ViceCaptainID,
		BudgetUsed:    fantasy.BudgetUsed(input.Squad, priceMap),
		SubmittedAt:   now,
	}

	if existing, found, err := s.entryRepo.Get(ctx, blockNumber, userID); err != nil {
		return fantasy.Entry{}, nil, fmt.Errorf("get existing entry: %w", err)
	} else if found {
		entry.ID = existing.ID
	} else {
		entryID, err := s.idGen.NewID()
		if err != nil {
			return fantasy.Entry{}, nil, fmt.Errorf("generate entry id: %w", err)
		}
		entry.ID = entryID
	}

	if err := s.entryRepo.UpsertWhileOpen(ctx, entry, now); err != nil {
		if errors.Is(err, fantasy.ErrBlockNotOpen) {
			return fantasy.Entry{}, nil, fmt.Errorf("%w: block %d closed before the entry was stored", ErrConflict, blockNumber)
		}
		return fantasy.Entry{}, nil, fmt.Errorf("store entry: %w", err)
	}

	s.logger.InfoContext(ctx, "entry saved",
		"block_number", blockNumber,
		"user_id", userID,
		"budget_used", entry.BudgetUsed.StringFixed(2),
	)
	return entry, nil, nil
}

// GetEntry fetches the user's entry for a block. Absence is reported with the
// found flag, not an error, so callers can render an empty picker.
func (s *EntryService) GetEntry(ctx context.Context, blockNumber int, userID string) (fantasy.Entry, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.EntryService.GetEntry")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if blockNumber <= 0 || userID == "" {
		return fantasy.Entry{}, false, fmt.Errorf("%w: block number and user id are required", ErrInvalidInput)
	}

	entry, found, err := s.entryRepo.Get(ctx, blockNumber, userID)
	if err != nil {
		return fantasy.Entry{}, false, fmt.Errorf("get entry: %w", err)
	}

	return entry, found, nil
}

// PurgeEntry removes a stored entry regardless of block state. It exists for
// data-correction workflows behind the internal surface.
func (s *EntryService) PurgeEntry(ctx context.Context, blockNumber int, userID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.EntryService.PurgeEntry")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if blockNumber <= 0 || userID == "" {
		return fmt.Errorf("%w: block number and user id are required", ErrInvalidInput)
	}

	_, found, err := s.entryRepo.Get(ctx, blockNumber, userID)
	if err != nil {
		return fmt.Errorf("get entry before purge: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: entry block=%d user=%s", ErrNotFound, blockNumber, userID)
	}

	if err := s.entryRepo.Delete(ctx, blockNumber, userID); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.logger.WarnContext(ctx, "entry purged",
		"block_number", blockNumber,
		"user_id", userID,
	)
	return nil
}

func (s *EntryService) loadRuleContext(ctx context.Context, blockNumber int) (map[string]decimal.Decimal, map[string]string, error) {
	sheet, err := s.prices.BlockPrices(ctx, blockNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("load price sheet: %w", err)
	}

	roster, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load roster: %w", err)
	}
	teamByPlayer := make(map[string]string, len(roster))
	for _, p := range roster {
		teamByPlayer[p.ID] = p.TeamID
	}

	return pricing.PriceMap(sheet), teamByPlayer, nil
}

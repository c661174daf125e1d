package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	"github.com/leagueroom/fantasy-blocks/internal/domain/pricing"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
	"github.com/leagueroom/fantasy-blocks/internal/platform/resilience"
)

// PriceService manages per-block price sheets. The first read of a block
// without prices seeds a uniform default sheet for every active player;
// after that the sheet is only changed through an explicit override.
type PriceService struct {
	priceRepo    pricing.Repository
	playerRepo   player.Repository
	blockRepo    block.Repository
	defaultPrice decimal.Decimal
	ensureFlight resilience.SingleFlight
	logger       *logging.Logger
}

func NewPriceService(
	priceRepo pricing.Repository,
	playerRepo player.Repository,
	blockRepo block.Repository,
	defaultPrice decimal.Decimal,
	logger *logging.Logger,
) *PriceService {
	if logger == nil {
		logger = logging.Default()
	}
	if defaultPrice.IsZero() {
		defaultPrice = pricing.FallbackPrice
	}

	return &PriceService{
		priceRepo:    priceRepo,
		playerRepo:   playerRepo,
		blockRepo:    blockRepo,
		defaultPrice: defaultPrice,
		logger:       logger,
	}
}

// BlockPrices returns the sheet for a block, seeding defaults on first read.
func (s *PriceService) BlockPrices(ctx context.Context, blockNumber int) ([]pricing.BlockPrice, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PriceService.BlockPrices")
	defer span.End()

	if err := s.requireBlock(ctx, blockNumber); err != nil {
		return nil, err
	}

	prices, err := s.priceRepo.ListByBlock(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("list block prices: %w", err)
	}
	if len(prices) > 0 {
		return prices, nil
	}

	if _, err := s.ensureDefaults(ctx, blockNumber, nil, s.defaultPrice); err != nil {
		return nil, err
	}

	prices, err = s.priceRepo.ListByBlock(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("list block prices after seeding: %w", err)
	}

	return prices, nil
}

// EnsureDefaultPrices seeds the default sheet for the given players when the
// block has no prices yet. It reports whether this call inserted the sheet.
// Passing no player ids seeds every active roster player.
func (s *PriceService) EnsureDefaultPrices(ctx context.Context, blockNumber int, playerIDs []string, defaultPrice decimal.Decimal) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PriceService.EnsureDefaultPrices")
	defer span.End()

	if err := s.requireBlock(ctx, blockNumber); err != nil {
		return false, err
	}
	if defaultPrice.IsZero() {
		defaultPrice = s.defaultPrice
	}
	if defaultPrice.IsNegative() {
		return false, fmt.Errorf("%w: default price cannot be negative", ErrInvalidInput)
	}

	return s.ensureDefaults(ctx, blockNumber, playerIDs, defaultPrice)
}

func (s *PriceService) ensureDefaults(ctx context.Context, blockNumber int, playerIDs []string, defaultPrice decimal.Decimal) (bool, error) {
	key := fmt.Sprintf("prices:ensure:%d", blockNumber)
	value, err, _ := s.ensureFlight.Do(key, func() (any, error) {
		ids := playerIDs
		if len(ids) == 0 {
			roster, err := s.playerRepo.ListActive(ctx)
			if err != nil {
				return false, fmt.Errorf("list active players for default prices: %w", err)
			}
			for _, p := range roster {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) == 0 {
			return false, fmt.Errorf("%w: no active players to price", ErrDependencyUnavailable)
		}

		sheet := pricing.DefaultSheet(blockNumber, ids, defaultPrice)
		inserted, err := s.priceRepo.InsertIfEmpty(ctx, blockNumber, sheet)
		if err != nil {
			return false, fmt.Errorf("insert default prices: %w", err)
		}
		if inserted {
			s.logger.InfoContext(ctx, "default price sheet seeded",
				"block_number", blockNumber,
				"player_count", len(sheet),
				"default_price", defaultPrice.StringFixed(2),
			)
		}
		return inserted, nil
	})
	if err != nil {
		return false, err
	}

	inserted, _ := value.(bool)
	return inserted, nil
}

// OverrideBlockPrices replaces the sheet for a block that is still open.
func (s *PriceService) OverrideBlockPrices(ctx context.Context, blockNumber int, prices []pricing.BlockPrice, now time.Time) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PriceService.OverrideBlockPrices")
	defer span.End()

	if blockNumber <= 0 {
		return fmt.Errorf("%w: block number must be greater than zero", ErrInvalidInput)
	}
	if len(prices) == 0 {
		return fmt.Errorf("%w: prices are required", ErrInvalidInput)
	}
	for idx := range prices {
		prices[idx].BlockNumber = blockNumber
		if err := prices[idx].Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	blk, exists, err := s.blockRepo.GetByNumber(ctx, blockNumber)
	if err != nil {
		return fmt.Errorf("get block for prices: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: block=%d", ErrNotFound, blockNumber)
	}
	if state := block.ResolveState(blk, now); state != block.StateOpen {
		return fmt.Errorf("%w: block %d is %s", ErrConflict, blockNumber, state)
	}

	if err := s.priceRepo.Replace(ctx, blockNumber, prices); err != nil {
		return fmt.Errorf("replace block prices: %w", err)
	}

	s.logger.InfoContext(ctx, "block price sheet replaced",
		"block_number", blockNumber,
		"player_count", len(prices),
	)
	return nil
}

func (s *PriceService) requireBlock(ctx context.Context, blockNumber int) error {
	if blockNumber <= 0 {
		return fmt.Errorf("%w: block number must be greater than zero", ErrInvalidInput)
	}

	_, exists, err := s.blockRepo.GetByNumber(ctx, blockNumber)
	if err != nil {
		return fmt.Errorf("get block for prices: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: block=%d", ErrNotFound, blockNumber)
	}

	return nil
}

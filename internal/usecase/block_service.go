package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	"github.com/leagueroom/fantasy-blocks/internal/platform/logging"
	"github.com/leagueroom/fantasy-blocks/internal/platform/resilience"
)

// BlockService derives blocks from the fixture calendar and answers
// lifecycle questions about them. Derivation is rebuild-if-missing: once a
// block set exists it is never regenerated, so submitted entries keep their
// block assignment forever.
type BlockService struct {
	blockRepo     block.Repository
	fixtureRepo   fixture.Repository
	partitionCfg  block.PartitionConfig
	rebuildFlight resilience.SingleFlight
	logger        *logging.Logger
}

func NewBlockService(
	blockRepo block.Repository,
	fixtureRepo fixture.Repository,
	partitionCfg block.PartitionConfig,
	logger *logging.Logger,
) *BlockService {
	if logger == nil {
		logger = logging.Default()
	}
	if partitionCfg.Gap <= 0 {
		partitionCfg = block.DefaultPartitionConfig()
	}

	return &BlockService{
		blockRepo:    blockRepo,
		fixtureRepo:  fixtureRepo,
		partitionCfg: partitionCfg,
		logger:       logger,
	}
}

// RebuildBlocksIfMissing partitions the given fixtures into blocks when no
// blocks exist yet. It returns the number of blocks created; zero means the
// existing set was left untouched. Concurrent callers are collapsed
// in-process and the store guard keeps first-time creation at-most-once.
func (s *BlockService) RebuildBlocksIfMissing(ctx context.Context, fixtures []fixture.Fixture) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BlockService.RebuildBlocksIfMissing")
	defer span.End()

	value, err, _ := s.rebuildFlight.Do("blocks:rebuild", func() (any, error) {
		existing, err := s.blockRepo.List(ctx)
		if err != nil {
			return 0, fmt.Errorf("list blocks before rebuild: %w", err)
		}
		if len(existing) > 0 {
			return 0, nil
		}

		blocks := block.BuildBlocks(fixtures, s.partitionCfg)
		if len(blocks) == 0 {
			return 0, fmt.Errorf("%w: no usable fixtures to derive blocks from", ErrDependencyUnavailable)
		}

		created, err := s.blockRepo.InitIfEmpty(ctx, blocks)
		if err != nil {
			return 0, fmt.Errorf("init blocks: %w", err)
		}
		if !created {
			// Another writer got there first; its set stands.
			return 0, nil
		}

		s.logger.InfoContext(ctx, "blocks derived from fixtures",
			"block_count", len(blocks),
			"fixture_count", len(fixtures),
		)
		return len(blocks), nil
	})
	if err != nil {
		return 0, err
	}

	created, _ := value.(int)
	return created, nil
}

// RebuildFromStoredFixtures runs the missing-blocks derivation over whatever
// fixtures are already persisted.
func (s *BlockService) RebuildFromStoredFixtures(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BlockService.RebuildFromStoredFixtures")
	defer span.End()

	fixtures, err := s.fixtureRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list fixtures for rebuild: %w", err)
	}
	if len(fixtures) == 0 {
		return 0, fmt.Errorf("%w: no fixtures ingested yet", ErrDependencyUnavailable)
	}

	return s.RebuildBlocksIfMissing(ctx, fixtures)
}

// CurrentBlockNumber picks the lowest-numbered block that has not been
// scored yet; once every block is scored the final block stays current.
func (s *BlockService) CurrentBlockNumber(ctx context.Context, now time.Time) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BlockService.CurrentBlockNumber")
	defer span.End()

	blocks, err := s.blockRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list blocks: %w", err)
	}
	if len(blocks) == 0 {
		return 0, fmt.Errorf("%w: no blocks derived yet", ErrDependencyUnavailable)
	}

	for _, b := range blocks {
		if block.ResolveState(b, now) != block.StateScored {
			return b.Number, nil
		}
	}

	return blocks[len(blocks)-1].Number, nil
}

func (s *BlockService) GetBlock(ctx context.Context, number int) (block.Block, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BlockService.GetBlock")
	defer span.End()

	if number <= 0 {
		return block.Block{}, fmt.Errorf("%w: block number must be greater than zero", ErrInvalidInput)
	}

	b, exists, err := s.blockRepo.GetByNumber(ctx, number)
	if err != nil {
		return block.Block{}, fmt.Errorf("get block: %w", err)
	}
	if !exists {
		return block.Block{}, fmt.Errorf("%w: block=%d", ErrNotFound, number)
	}

	return b, nil
}

// BlockState resolves the lifecycle state for a caller-supplied instant. The
// clock is always an argument so resolution stays pure and replayable.
func (s *BlockService) BlockState(ctx context.Context, number int, now time.Time) (block.State, error) {
	b, err := s.GetBlock(ctx, number)
	if err != nil {
		return "", err
	}

	return block.ResolveState(b, now), nil
}

func (s *BlockService) BlockFixtures(ctx context.Context, number int) ([]fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BlockService.BlockFixtures")
	defer span.End()

	b, err := s.GetBlock(ctx, number)
	if err != nil {
		return nil, err
	}

	fixtures, err := s.fixtureRepo.ListByIDs(ctx, b.FixtureIDs)
	if err != nil {
		return nil, fmt.Errorf("list fixtures for block=%d: %w", number, err)
	}

	return fixtures, nil
}

func (s *BlockService) ListBlocks(ctx context.Context) ([]block.Block, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BlockService.ListBlocks")
	defer span.End()

	blocks, err := s.blockRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	return blocks, nil
}

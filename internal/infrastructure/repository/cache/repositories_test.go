package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
	"github.com/leagueroom/fantasy-blocks/internal/domain/pricing"
	"github.com/leagueroom/fantasy-blocks/internal/infrastructure/repository/memory"
	basecache "github.com/leagueroom/fantasy-blocks/internal/platform/cache"
)

type countingBlockRepo struct {
	block.Repository
	getCalls  int
	listCalls int
}

func (r *countingBlockRepo) GetByNumber(ctx context.Context, number int) (block.Block, bool, error) {
	r.getCalls++
	return r.Repository.GetByNumber(ctx, number)
}

func (r *countingBlockRepo) List(ctx context.Context) ([]block.Block, error) {
	r.listCalls++
	return r.Repository.List(ctx)
}

type countingPriceRepo struct {
	pricing.Repository
	listCalls int
}

func (r *countingPriceRepo) ListByBlock(ctx context.Context, blockNumber int) ([]pricing.BlockPrice, error) {
	r.listCalls++
	return r.Repository.ListByBlock(ctx, blockNumber)
}

type countingEntryRepo struct {
	fantasy.Repository
	getCalls      int
	listUserCalls int
}

func (r *countingEntryRepo) Get(ctx context.Context, blockNumber int, userID string) (fantasy.Entry, bool, error) {
	r.getCalls++
	return r.Repository.Get(ctx, blockNumber, userID)
}

func (r *countingEntryRepo) ListByUser(ctx context.Context, userID string) ([]fantasy.Entry, error) {
	r.listUserCalls++
	return r.Repository.ListByUser(ctx, userID)
}

func openBlock(number int) block.Block {
	kickoff := time.Now().Add(48 * time.Hour)
	return block.Block{
		Number:         number,
		FixtureIDs:     []string{"fx-1", "fx-2"},
		FirstKickoffAt: kickoff,
		LockAt:         kickoff,
	}
}

func TestBlockRepository_GetByNumber_ServedFromCacheUntilScored(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := &countingBlockRepo{Repository: memory.NewBlockRepository(openBlock(4))}
	repo := NewBlockRepository(next, basecache.NewStore(time.Minute))

	first, exists, err := repo.GetByNumber(ctx, 4)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, 4, first.Number)

	_, _, err = repo.GetByNumber(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 1, next.getCalls, "second read should come from cache")

	require.NoError(t, repo.MarkScored(ctx, 4, time.Now()))

	scored, exists, err := repo.GetByNumber(ctx, 4)
	require.NoError(t, err)
	require.True(t, exists)
	require.NotNil(t, scored.ScoredAt, "read after MarkScored must observe the new state")
	require.Equal(t, 2, next.getCalls)
}

func TestBlockRepository_List_ReturnsIndependentCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := &countingBlockRepo{Repository: memory.NewBlockRepository(openBlock(1))}
	repo := NewBlockRepository(next, basecache.NewStore(time.Minute))

	first, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	first[0].FixtureIDs[0] = "mutated"

	second, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "fx-1", second[0].FixtureIDs[0], "caller mutations must not leak into the cache")
	require.Equal(t, 1, next.listCalls)
}

func TestPriceRepository_Replace_InvalidatesBlockSheet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	next := &countingPriceRepo{Repository: memory.NewPriceRepository()}
	repo := NewPriceRepository(next, basecache.NewStore(time.Minute))

	sheet := pricing.DefaultSheet(3, []string{"p-1", "p-2"}, decimal.RequireFromString("7.5"))
	created, err := repo.InsertIfEmpty(ctx, 3, sheet)
	require.NoError(t, err)
	require.True(t, created)

	prices, err := repo.ListByBlock(ctx, 3)
	require.NoError(t, err)
	require.Len(t, prices, 2)

	_, err = repo.ListByBlock(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 1, next.listCalls)

	override := []pricing.BlockPrice{{BlockNumber: 3, PlayerID: "p-1", Price: decimal.RequireFromString("9.0")}}
	require.NoError(t, repo.Replace(ctx, 3, override))

	prices, err = repo.ListByBlock(ctx, 3)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	require.True(t, prices[0].Price.Equal(decimal.RequireFromString("9.0")))
	require.Equal(t, 2, next.listCalls)
}

func TestEntryRepository_Upsert_InvalidatesEntryAndListKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blocks := memory.NewBlockRepository(openBlock(2))
	next := &countingEntryRepo{Repository: memory.NewEntryRepository(blocks)}
	repo := NewEntryRepository(next, basecache.NewStore(time.Minute))

	_, exists, err := repo.Get(ctx, 2, "user-1")
	require.NoError(t, err)
	require.False(t, exists)

	mine, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, mine)

	entry := fantasy.Entry{
		ID:          "entry-1",
		BlockNumber: 2,
		UserID:      "user-1",
		Squad:       []string{"p-1", "p-2"},
		Starting:    []string{"p-1"},
		SubmittedAt: time.Now(),
	}
	require.NoError(t, repo.UpsertWhileOpen(ctx, entry, time.Now()))

	saved, exists, err := repo.Get(ctx, 2, "user-1")
	require.NoError(t, err)
	require.True(t, exists, "miss result must be evicted by the write")
	require.Equal(t, "entry-1", saved.ID)
	require.Equal(t, 2, next.getCalls)

	mine, err = repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, 2, next.listUserCalls)
}

package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fixture"
	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
	"github.com/leagueroom/fantasy-blocks/internal/domain/pricing"
	"github.com/leagueroom/fantasy-blocks/internal/domain/scoring"
	"github.com/leagueroom/fantasy-blocks/internal/domain/team"
	basecache "github.com/leagueroom/fantasy-blocks/internal/platform/cache"
)

type BlockRepository struct {
	next  block.Repository
	cache *basecache.Store
}

func NewBlockRepository(next block.Repository, cache *basecache.Store) *BlockRepository {
	return &BlockRepository{next: next, cache: cache}
}

func (r *BlockRepository) InitIfEmpty(ctx context.Context, blocks []block.Block) (bool, error) {
	created, err := r.next.InitIfEmpty(ctx, blocks)
	if err != nil {
		return false, err
	}
	if created {
		r.cache.DeletePrefix(ctx, "block:")
	}
	return created, nil
}

func (r *BlockRepository) List(ctx context.Context) ([]block.Block, error) {
	v, err := r.cache.GetOrLoad(ctx, "block:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]block.Block, 0, len(items))
		for _, item := range items {
			out = append(out, item.Clone())
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]block.Block)
	out := make([]block.Block, 0, len(items))
	for _, item := range items {
		out = append(out, item.Clone())
	}
	return out, nil
}

func (r *BlockRepository) GetByNumber(ctx context.Context, number int) (block.Block, bool, error) {
	key := blockNumberKey(number)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByNumber(ctx, number)
		if err != nil {
			return nil, err
		}
		return cachedBlockByNumber{value: item.Clone(), exists: exists}, nil
	})
	if err != nil {
		return block.Block{}, false, err
	}

	cached, _ := v.(cachedBlockByNumber)
	return cached.value.Clone(), cached.exists, nil
}

func (r *BlockRepository) MarkScored(ctx context.Context, number int, scoredAt time.Time) error {
	if err := r.next.MarkScored(ctx, number, scoredAt); err != nil {
		return err
	}
	r.cache.Delete(ctx, "block:list")
	r.cache.Delete(ctx, blockNumberKey(number))
	return nil
}

type cachedBlockByNumber struct {
	value  block.Block
	exists bool
}

func blockNumberKey(number int) string {
	return "block:number:" + strconv.Itoa(number)
}

type FixtureRepository struct {
	next  fixture.Repository
	cache *basecache.Store
}

func NewFixtureRepository(next fixture.Repository, cache *basecache.Store) *FixtureRepository {
	return &FixtureRepository{next: next, cache: cache}
}

func (r *FixtureRepository) UpsertMany(ctx context.Context, fixtures []fixture.Fixture) error {
	if err := r.next.UpsertMany(ctx, fixtures); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "fixture:")
	return nil
}

func (r *FixtureRepository) List(ctx context.Context) ([]fixture.Fixture, error) {
	v, err := r.cache.GetOrLoad(ctx, "fixture:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]fixture.Fixture(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]fixture.Fixture)
	return append([]fixture.Fixture(nil), items...), nil
}

func (r *FixtureRepository) ListByIDs(ctx context.Context, ids []string) ([]fixture.Fixture, error) {
	// Results follow the request order, so the key keeps that order too.
	key := "fixture:ids:" + strings.Join(ids, ",")
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		return append([]fixture.Fixture(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]fixture.Fixture)
	return append([]fixture.Fixture(nil), items...), nil
}

type PlayerRepository struct {
	next  player.Repository
	cache *basecache.Store
}

func NewPlayerRepository(next player.Repository, cache *basecache.Store) *PlayerRepository {
	return &PlayerRepository{next: next, cache: cache}
}

func (r *PlayerRepository) UpsertMany(ctx context.Context, players []player.Player) error {
	if err := r.next.UpsertMany(ctx, players); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "player:")
	return nil
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	v, err := r.cache.GetOrLoad(ctx, "player:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]player.Player(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]player.Player)
	return append([]player.Player(nil), items...), nil
}

func (r *PlayerRepository) ListActive(ctx context.Context) ([]player.Player, error) {
	v, err := r.cache.GetOrLoad(ctx, "player:list:active", func(ctx context.Context) (any, error) {
		items, err := r.next.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		return append([]player.Player(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]player.Player)
	return append([]player.Player(nil), items...), nil
}

type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store
}

func NewTeamRepository(next team.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

func (r *TeamRepository) UpsertMany(ctx context.Context, teams []team.Team) error {
	if err := r.next.UpsertMany(ctx, teams); err != nil {
		return err
	}
	r.cache.Delete(ctx, "team:list")
	return nil
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	v, err := r.cache.GetOrLoad(ctx, "team:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]team.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]team.Team)
	return append([]team.Team(nil), items...), nil
}

type PriceRepository struct {
	next  pricing.Repository
	cache *basecache.Store
}

func NewPriceRepository(next pricing.Repository, cache *basecache.Store) *PriceRepository {
	return &PriceRepository{next: next, cache: cache}
}

func (r *PriceRepository) ListByBlock(ctx context.Context, blockNumber int) ([]pricing.BlockPrice, error) {
	key := priceBlockKey(blockNumber)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByBlock(ctx, blockNumber)
		if err != nil {
			return nil, err
		}
		return append([]pricing.BlockPrice(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]pricing.BlockPrice)
	return append([]pricing.BlockPrice(nil), items...), nil
}

func (r *PriceRepository) InsertIfEmpty(ctx context.Context, blockNumber int, prices []pricing.BlockPrice) (bool, error) {
	created, err := r.next.InsertIfEmpty(ctx, blockNumber, prices)
	if err != nil {
		return false, err
	}
	if created {
		r.cache.Delete(ctx, priceBlockKey(blockNumber))
	}
	return created, nil
}

func (r *PriceRepository) Replace(ctx context.Context, blockNumber int, prices []pricing.BlockPrice) error {
	if err := r.next.Replace(ctx, blockNumber, prices); err != nil {
		return err
	}
	r.cache.Delete(ctx, priceBlockKey(blockNumber))
	return nil
}

func priceBlockKey(blockNumber int) string {
	return "price:block:" + strconv.Itoa(blockNumber)
}

type EntryRepository struct {
	next  fantasy.Repository
	cache *basecache.Store
}

func NewEntryRepository(next fantasy.Repository, cache *basecache.Store) *EntryRepository {
	return &EntryRepository{next: next, cache: cache}
}

func (r *EntryRepository) Get(ctx context.Context, blockNumber int, userID string) (fantasy.Entry, bool, error) {
	key := entryKey(blockNumber, userID)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.Get(ctx, blockNumber, userID)
		if err != nil {
			return nil, err
		}
		return cachedEntryByKey{value: item.Clone(), exists: exists}, nil
	})
	if err != nil {
		return fantasy.Entry{}, false, err
	}

	cached, _ := v.(cachedEntryByKey)
	return cached.value.Clone(), cached.exists, nil
}

func (r *EntryRepository) UpsertWhileOpen(ctx context.Context, entry fantasy.Entry, now time.Time) error {
	if err := r.next.UpsertWhileOpen(ctx, entry, now); err != nil {
		return err
	}
	r.cache.Delete(ctx, entryKey(entry.BlockNumber, entry.UserID))
	r.cache.Delete(ctx, entryBlockListKey(entry.BlockNumber))
	r.cache.Delete(ctx, entryUserListKey(entry.UserID))
	return nil
}

func (r *EntryRepository) ListByBlock(ctx context.Context, blockNumber int) ([]fantasy.Entry, error) {
	v, err := r.cache.GetOrLoad(ctx, entryBlockListKey(blockNumber), func(ctx context.Context) (any, error) {
		items, err := r.next.ListByBlock(ctx, blockNumber)
		if err != nil {
			return nil, err
		}
		out := make([]fantasy.Entry, 0, len(items))
		for _, item := range items {
			out = append(out, item.Clone())
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]fantasy.Entry)
	out := make([]fantasy.Entry, 0, len(items))
	for _, item := range items {
		out = append(out, item.Clone())
	}
	return out, nil
}

func (r *EntryRepository) ListByUser(ctx context.Context, userID string) ([]fantasy.Entry, error) {
	v, err := r.cache.GetOrLoad(ctx, entryUserListKey(userID), func(ctx context.Context) (any, error) {
		items, err := r.next.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := make([]fantasy.Entry, 0, len(items))
		for _, item := range items {
			out = append(out, item.Clone())
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]fantasy.Entry)
	out := make([]fantasy.Entry, 0, len(items))
	for _, item := range items {
		out = append(out, item.Clone())
	}
	return out, nil
}

func (r *EntryRepository) Delete(ctx context.Context, blockNumber int, userID string) error {
	if err := r.next.Delete(ctx, blockNumber, userID); err != nil {
		return err
	}
	r.cache.Delete(ctx, entryKey(blockNumber, userID))
	r.cache.Delete(ctx, entryBlockListKey(blockNumber))
	r.cache.Delete(ctx, entryUserListKey(userID))
	return nil
}

type cachedEntryByKey struct {
	value  fantasy.Entry
	exists bool
}

func entryKey(blockNumber int, userID string) string {
	return "entry:block:" + strconv.Itoa(blockNumber) + ":user:" + userID
}

func entryBlockListKey(blockNumber int) string {
	return "entry:list:block:" + strconv.Itoa(blockNumber)
}

func entryUserListKey(userID string) string {
	return "entry:list:user:" + userID
}

type ScoringRepository struct {
	next  scoring.Repository
	cache *basecache.Store
}

func NewScoringRepository(next scoring.Repository, cache *basecache.Store) *ScoringRepository {
	return &ScoringRepository{next: next, cache: cache}
}

func (r *ScoringRepository) UpsertPlayerPoints(ctx context.Context, blockNumber int, rows []scoring.PlayerPoints) error {
	if err := r.next.UpsertPlayerPoints(ctx, blockNumber, rows); err != nil {
		return err
	}
	r.cache.Delete(ctx, pointsBlockKey(blockNumber))
	return nil
}

func (r *ScoringRepository) ListPlayerPoints(ctx context.Context, blockNumber int) ([]scoring.PlayerPoints, error) {
	key := pointsBlockKey(blockNumber)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListPlayerPoints(ctx, blockNumber)
		if err != nil {
			return nil, err
		}
		return append([]scoring.PlayerPoints(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]scoring.PlayerPoints)
	return append([]scoring.PlayerPoints(nil), items...), nil
}

func pointsBlockKey(blockNumber int) string {
	return "points:block:" + strconv.Itoa(blockNumber)
}

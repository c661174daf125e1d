package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	"github.com/leagueroom/fantasy-blocks/internal/domain/fantasy"
)

// EntryRepository stores entries keyed by (block, user). The write lock is
// held across the block-state check and the map write, so a submission that
// saw an open block is stored under that same decision.
type EntryRepository struct {
	mu     sync.RWMutex
	blocks block.Repository
	items  map[string]fantasy.Entry
}

func NewEntryRepository(blocks block.Repository) *EntryRepository {
	return &EntryRepository{
		blocks: blocks,
		items:  make(map[string]fantasy.Entry),
	}
}

func (r *EntryRepository) Get(_ context.Context, blockNumber int, userID string) (fantasy.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.items[entryKey(blockNumber, userID)]
	if !ok {
		return fantasy.Entry{}, false, nil
	}
	return entry.Clone(), true, nil
}

func (r *EntryRepository) UpsertWhileOpen(ctx context.Context, entry fantasy.Entry, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	blk, exists, err := r.blocks.GetByNumber(ctx, entry.BlockNumber)
	if err != nil {
		return fmt.Errorf("resolve block %d: %w", entry.BlockNumber, err)
	}
	if !exists {
		return fmt.Errorf("block %d does not exist", entry.BlockNumber)
	}
	if block.ResolveState(blk, now) != block.StateOpen {
		return fantasy.ErrBlockNotOpen
	}

	r.items[entryKey(entry.BlockNumber, entry.UserID)] = entry.Clone()
	return nil
}

func (r *EntryRepository) ListByBlock(_ context.Context, blockNumber int) ([]fantasy.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fantasy.Entry, 0, len(r.items))
	for _, entry := range r.items {
		if entry.BlockNumber != blockNumber {
			continue
		}
		out = append(out, entry.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *EntryRepository) ListByUser(_ context.Context, userID string) ([]fantasy.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fantasy.Entry, 0, len(r.items))
	for _, entry := range r.items {
		if entry.UserID != userID {
			continue
		}
		out = append(out, entry.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockNumber < out[j].BlockNumber })
	return out, nil
}

func (r *EntryRepository) Delete(_ context.Context, blockNumber int, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, entryKey(blockNumber, userID))
	return nil
}

func entryKey(blockNumber int, userID string) string {
	return strconv.Itoa(blockNumber) + "::" + userID
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
)

type BlockRepository struct {
	mu     sync.RWMutex
	blocks map[int]block.Block
}

func NewBlockRepository(blocks ...block.Block) *BlockRepository {
	items := make(map[int]block.Block, len(blocks))
	for _, b := range blocks {
		items[b.Number] = b.Clone()
	}
	return &BlockRepository{blocks: items}
}

func (r *BlockRepository) InitIfEmpty(_ context.Context, blocks []block.Block) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.blocks) > 0 {
		return false, nil
	}
	for _, b := range blocks {
		r.blocks[b.Number] = b.Clone()
	}
	return true, nil
}

func (r *BlockRepository) List(_ context.Context) ([]block.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]block.Block, 0, len(r.blocks))
	for _, b := range r.blocks {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *BlockRepository) GetByNumber(_ context.Context, number int) (block.Block, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blocks[number]
	if !ok {
		return block.Block{}, false, nil
	}
	return b.Clone(), true, nil
}

func (r *BlockRepository) MarkScored(_ context.Context, number int, scoredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.blocks[number]
	if !ok {
		return fmt.Errorf("block %d does not exist", number)
	}
	if b.ScoredAt != nil {
		return block.ErrAlreadyScored
	}

	at := scoredAt.UTC()
	b.ScoredAt = &at
	b.UpdatedAt = at
	r.blocks[number] = b
	return nil
}

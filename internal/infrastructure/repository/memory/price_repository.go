package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/leagueroom/fantasy-blocks/internal/domain/pricing"
)

type PriceRepository struct {
	mu     sync.RWMutex
	sheets map[int]map[string]pricing.BlockPrice
}

func NewPriceRepository() *PriceRepository {
	return &PriceRepository{sheets: make(map[int]map[string]pricing.BlockPrice)}
}

func (r *PriceRepository) ListByBlock(_ context.Context, blockNumber int) ([]pricing.BlockPrice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sheet := r.sheets[blockNumber]
	out := make([]pricing.BlockPrice, 0, len(sheet))
	for _, price := range sheet {
		out = append(out, price)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (r *PriceRepository) InsertIfEmpty(_ context.Context, blockNumber int, prices []pricing.BlockPrice) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sheets[blockNumber]) > 0 {
		return false, nil
	}

	r.sheets[blockNumber] = sheetByPlayer(prices)
	return true, nil
}

func (r *PriceRepository) Replace(_ context.Context, blockNumber int, prices []pricing.BlockPrice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sheets[blockNumber] = sheetByPlayer(prices)
	return nil
}

func sheetByPlayer(prices []pricing.BlockPrice) map[string]pricing.BlockPrice {
	out := make(map[string]pricing.BlockPrice, len(prices))
	for _, price := range prices {
		if price.PlayerID == "" {
			continue
		}
		out[price.PlayerID] = price
	}
	return out
}

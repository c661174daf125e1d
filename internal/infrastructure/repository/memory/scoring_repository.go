package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/leagueroom/fantasy-blocks/internal/domain/scoring"
)

type ScoringRepository struct {
	mu   sync.RWMutex
	rows map[int]map[string]scoring.PlayerPoints
}

func NewScoringRepository() *ScoringRepository {
	return &ScoringRepository{rows: make(map[int]map[string]scoring.PlayerPoints)}
}

func (r *ScoringRepository) UpsertPlayerPoints(_ context.Context, blockNumber int, rows []scoring.PlayerPoints) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sheet := r.rows[blockNumber]
	if sheet == nil {
		sheet = make(map[string]scoring.PlayerPoints, len(rows))
		r.rows[blockNumber] = sheet
	}
	for _, row := range rows {
		if row.PlayerID == "" {
			continue
		}
		row.BlockNumber = blockNumber
		sheet[row.PlayerID] = row
	}
	return nil
}

func (r *ScoringRepository) ListPlayerPoints(_ context.Context, blockNumber int) ([]scoring.PlayerPoints, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sheet := r.rows[blockNumber]
	out := make([]scoring.PlayerPoints, 0, len(sheet))
	for _, row := range sheet {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

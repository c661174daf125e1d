package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/leagueroom/fantasy-blocks/internal/domain/player"
)

type PlayerRepository struct {
	mu    sync.RWMutex
	items map[string]player.Player
}

func NewPlayerRepository(players []player.Player) *PlayerRepository {
	items := make(map[string]player.Player, len(players))
	for _, p := range players {
		items[p.ID] = p
	}
	return &PlayerRepository{items: items}
}

func (r *PlayerRepository) UpsertMany(_ context.Context, players []player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range players {
		if p.ID == "" {
			continue
		}
		r.items[p.ID] = p
	}
	return nil
}

func (r *PlayerRepository) List(_ context.Context) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, p)
	}
	sortPlayers(out)
	return out, nil
}

func (r *PlayerRepository) ListActive(_ context.Context) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0, len(r.items))
	for _, p := range r.items {
		if !p.Active {
			continue
		}
		out = append(out, p)
	}
	sortPlayers(out)
	return out, nil
}

func sortPlayers(players []player.Player) {
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
}

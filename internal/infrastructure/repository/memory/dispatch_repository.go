package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/leagueroom/fantasy-blocks/internal/domain/dispatch"
)

type DispatchRepository struct {
	mu    sync.RWMutex
	items map[string]dispatch.Event
}

func NewDispatchRepository() *DispatchRepository {
	return &DispatchRepository{items: make(map[string]dispatch.Event)}
}

func (r *DispatchRepository) UpsertEvent(_ context.Context, event dispatch.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.DispatchID == "" {
		return nil
	}
	r.items[event.DispatchID] = cloneDispatchEvent(event)
	return nil
}

func (r *DispatchRepository) ListRecent(_ context.Context, limit int) ([]dispatch.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]dispatch.Event, 0, len(r.items))
	for _, event := range r.items {
		out = append(out, cloneDispatchEvent(event))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].DispatchID < out[j].DispatchID
		}
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneDispatchEvent(event dispatch.Event) dispatch.Event {
	copied := event
	if event.Payload != nil {
		payload := make(map[string]any, len(event.Payload))
		for key, value := range event.Payload {
			payload[key] = value
		}
		copied.Payload = payload
	}
	return copied
}

package dispatch

import "context"

type Repository interface {
	UpsertEvent(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

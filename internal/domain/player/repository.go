package player

import "context"

// Repository exposes roster persistence operations.
type Repository interface {
	UpsertMany(ctx context.Context, players []Player) error
	List(ctx context.Context) ([]Player, error)
	ListActive(ctx context.Context) ([]Player, error)
}

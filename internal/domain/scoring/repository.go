package scoring

import "context"

// Repository exposes per-block player points persistence.
type Repository interface {
	UpsertPlayerPoints(ctx context.Context, blockNumber int, rows []PlayerPoints) error
	ListPlayerPoints(ctx context.Context, blockNumber int) ([]PlayerPoints, error)
}

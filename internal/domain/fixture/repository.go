package fixture

import "context"

// Repository exposes fixture persistence operations.
type Repository interface {
	UpsertMany(ctx context.Context, fixtures []Fixture) error
	List(ctx context.Context) ([]Fixture, error)
	ListByIDs(ctx context.Context, ids []string) ([]Fixture, error)
}

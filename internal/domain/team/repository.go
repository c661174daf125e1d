package team

import "context"

// Repository exposes team directory persistence operations.
type Repository interface {
	UpsertMany(ctx context.Context, teams []Team) error
	List(ctx context.Context) ([]Team, error)
}

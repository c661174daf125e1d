package fantasy

import (
	"context"
	"time"
)

// Repository exposes entry persistence operations. UpsertWhileOpen must
// re-evaluate the owning block's open state inside the same atomic operation
// as the write and report ErrBlockNotOpen when the block has moved on; a
// check performed in a separate round trip is not enough.
type Repository interface {
	Get(ctx context.Context, blockNumber int, userID string) (Entry, bool, error)
	UpsertWhileOpen(ctx context.Context, entry Entry, now time.Time) error
	ListByBlock(ctx context.Context, blockNumber int) ([]Entry, error)
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
	Delete(ctx context.Context, blockNumber int, userID string) error
}

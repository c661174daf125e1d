package block

import (
	"context"
	"time"
)

// Repository exposes block persistence operations. InitIfEmpty must create
// the whole set atomically and only when no blocks exist yet, so concurrent
// first-time derivations cannot produce conflicting numbering. MarkScored
// must set scored_at at most once and report ErrAlreadyScored afterwards.
type Repository interface {
	InitIfEmpty(ctx context.Context, blocks []Block) (bool, error)
	List(ctx context.Context) ([]Block, error)
	GetByNumber(ctx context.Context, number int) (Block, bool, error)
	MarkScored(ctx context.Context, number int, scoredAt time.Time) error
}

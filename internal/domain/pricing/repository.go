package pricing

import "context"

// Repository exposes price sheet persistence operations. InsertIfEmpty must
// write the sheet atomically and only when the block has no prices yet, so
// concurrent first-viewers cannot produce divergent defaults.
type Repository interface {
	ListByBlock(ctx context.Context, blockNumber int) ([]BlockPrice, error)
	InsertIfEmpty(ctx context.Context, blockNumber int, prices []BlockPrice) (bool, error)
	Replace(ctx context.Context, blockNumber int, prices []BlockPrice) error
}

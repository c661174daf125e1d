package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/leagueroom/fantasy-blocks/internal/domain/pricing"
	qb "github.com/leagueroom/fantasy-blocks/internal/platform/querybuilder"
)

type PriceRepository struct {
	db *sqlx.DB
}

func NewPriceRepository(db *sqlx.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

func (r *PriceRepository) ListByBlock(ctx context.Context, blockNumber int) ([]pricing.BlockPrice, error) {
	query, args, err := qb.Select("*").
		From("block_prices").
		Where(
			qb.Eq("block_number", blockNumber),
			qb.IsNull("deleted_at"),
		).
		OrderBy("player_public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list block prices query: %w", err)
	}

	var rows []blockPriceTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list block prices: %w", err)
	}

	out := make([]pricing.BlockPrice, 0, len(rows))
	for _, row := range rows {
		out = append(out, pricing.BlockPrice{
			BlockNumber: row.BlockNumber,
			PlayerID:    row.PlayerID,
			Price:       row.Price,
		})
	}
	return out, nil
}

// InsertIfEmpty seeds the default sheet once. A sheet written by a
// concurrent first viewer or an operator override wins over the seed.
func (r *PriceRepository) InsertIfEmpty(ctx context.Context, blockNumber int, prices []pricing.BlockPrice) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin price seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var count int
	const countQuery = `SELECT COUNT(1) FROM block_prices WHERE block_number = $1 AND deleted_at IS NULL`
	if err := tx.GetContext(ctx, &count, countQuery, blockNumber); err != nil {
		return false, fmt.Errorf("count block prices for seed: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	for _, price := range prices {
		model := blockPriceInsertModel{
			BlockNumber: blockNumber,
			PlayerID:    price.PlayerID,
			Price:       price.Price,
		}
		query, args, err := qb.InsertModel("block_prices", model,
			`ON CONFLICT (block_number, player_public_id) WHERE deleted_at IS NULL DO NOTHING`)
		if err != nil {
			return false, fmt.Errorf("build seed price player=%s query: %w", price.PlayerID, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("seed price player=%s: %w", price.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit price seed tx: %w", err)
	}
	return true, nil
}

// Replace swaps the whole sheet for a block in one transaction.
func (r *PriceRepository) Replace(ctx context.Context, blockNumber int, prices []pricing.BlockPrice) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin price replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const clearQuery = `
UPDATE block_prices
SET deleted_at = NOW()
WHERE block_number = $1
  AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, clearQuery, blockNumber); err != nil {
		return fmt.Errorf("soft delete block prices: %w", err)
	}

	for _, price := range prices {
		model := blockPriceInsertModel{
			BlockNumber: blockNumber,
			PlayerID:    price.PlayerID,
			Price:       price.Price,
		}
		query, args, err := qb.InsertModel("block_prices", model, `ON CONFLICT (block_number, player_public_id) WHERE deleted_at IS NULL
DO UPDATE SET
    price = EXCLUDED.price,
    updated_at = NOW(),
    deleted_at = NULL`)
		if err != nil {
			return fmt.Errorf("build replace price player=%s query: %w", price.PlayerID, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("replace price player=%s: %w", price.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit price replace tx: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/leagueroom/fantasy-blocks/internal/domain/block"
	qb "github.com/leagueroom/fantasy-blocks/internal/platform/querybuilder"
)

type BlockRepository struct {
	db *sqlx.DB
}

func NewBlockRepository(db *sqlx.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// InitIfEmpty writes the derived block set once. Block derivation is
// deterministic over the fixture calendar, so concurrent first writers
// produce the same rows and the unique block number plus ON CONFLICT DO
// NOTHING keeps the outcome consistent.
func (r *BlockRepository) InitIfEmpty(ctx context.Context, blocks []block.Block) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin block init tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(1) FROM blocks WHERE deleted_at IS NULL`); err != nil {
		return false, fmt.Errorf("count blocks for init: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	for _, b := range blocks {
		model := blockInsertModel{
			Number:         b.Number,
			FixtureIDs:     pq.StringArray(b.FixtureIDs),
			FirstKickoffAt: b.FirstKickoffAt.UTC(),
			LockAt:         b.LockAt.UTC(),
		}
		query, args, err := qb.InsertModel("blocks", model, `ON CONFLICT (number) WHERE deleted_at IS NULL DO NOTHING`)
		if err != nil {
			return false, fmt.Errorf("build insert block %d query: %w", b.Number, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("insert block %d: %w", b.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit block init tx: %w", err)
	}
	return true, nil
}

func (r *BlockRepository) List(ctx context.Context) ([]block.Block, error) {
	query, args, err := qb.Select("*").
		From("blocks").
		Where(qb.IsNull("deleted_at")).
		OrderBy("number").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list blocks query: %w", err)
	}

	var rows []blockTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	out := make([]block.Block, 0, len(rows))
	for _, row := range rows {
		out = append(out, blockFromRow(row))
	}
	return out, nil
}

func (r *BlockRepository) GetByNumber(ctx context.Context, number int) (block.Block, bool, error) {
	query, args, err := qb.Select("*").
		From("blocks").
		Where(
			qb.Eq("number", number),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return block.Block{}, false, fmt.Errorf("build get block query: %w", err)
	}

	var row blockTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return block.Block{}, false, nil
		}
		return block.Block{}, false, fmt.Errorf("get block %d: %w", number, err)
	}

	return blockFromRow(row), true, nil
}

// MarkScored sets scored_at exactly once; the guarded update refuses the
// write when another finalization already landed.
func (r *BlockRepository) MarkScored(ctx context.Context, number int, scoredAt time.Time) error {
	query, args, err := qb.Update("blocks").
		Set("scored_at", scoredAt.UTC()).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("number", number),
			qb.IsNull("scored_at"),
			qb.IsNull("deleted_at"),
		).
		Suffix("RETURNING number").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark block scored query: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark block %d scored: %w", number, err)
	}
	defer rows.Close()
	if rows.Next() {
		return nil
	}

	_, found, err := r.GetByNumber(ctx, number)
	if err != nil {
		return fmt.Errorf("resolve block %d after refused scoring: %w", number, err)
	}
	if !found {
		return fmt.Errorf("block %d does not exist", number)
	}
	return block.ErrAlreadyScored
}

func blockFromRow(row blockTableModel) block.Block {
	return block.Block{
		Number:         row.Number,
		FixtureIDs:     append([]string(nil), row.FixtureIDs...),
		FirstKickoffAt: row.FirstKickoffAt,
		LockAt:         row.LockAt,
		ScoredAt:       row.ScoredAt,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
